package domain

// Update is the partial state returned by a node. Zero fields leave the
// state untouched.
type Update struct {
	// Messages are appended to both histories.
	Messages []Message
	// InternalMessages are appended to the internal history only.
	InternalMessages []Message
	// ReplaceInternalMessages, when non-nil, replaces the internal history
	// before any append.
	ReplaceInternalMessages []Message

	Artifact             *Artifact
	AnalyzedRequirements *Requirements
	WebDSL               *WebDSL
	WebSearchResults     []SearchResult
	WebSearchEnabled     *bool
	Next                 *Action
	Title                *string

	// ClearTransient resets the per-request flags and cycle records.
	ClearTransient bool
}

// IsEmpty reports whether applying u changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Messages) == 0 && len(u.InternalMessages) == 0 && u.ReplaceInternalMessages == nil &&
		u.Artifact == nil && u.AnalyzedRequirements == nil && u.WebDSL == nil &&
		u.WebSearchResults == nil && u.WebSearchEnabled == nil && u.Next == nil &&
		u.Title == nil && !u.ClearTransient
}

// Apply returns a new state with u merged in. The receiver is not modified.
func (s *ConversationState) Apply(u Update) *ConversationState {
	out := s.Clone()
	if u.ClearTransient {
		out.clearTransient()
	}
	if u.ReplaceInternalMessages != nil {
		out.InternalMessages = append([]Message(nil), u.ReplaceInternalMessages...)
	}
	out.Messages = append(out.Messages, u.Messages...)
	out.InternalMessages = append(out.InternalMessages, u.Messages...)
	out.InternalMessages = append(out.InternalMessages, u.InternalMessages...)

	if u.Artifact != nil {
		out.Artifact = u.Artifact
	}
	if u.AnalyzedRequirements != nil {
		r := u.AnalyzedRequirements.Normalize()
		out.AnalyzedRequirements = &r
	}
	if u.WebDSL != nil {
		out.WebDSL = u.WebDSL
	}
	if u.WebSearchResults != nil {
		out.WebSearchResults = append([]SearchResult(nil), u.WebSearchResults...)
	}
	if u.WebSearchEnabled != nil {
		out.WebSearchEnabled = *u.WebSearchEnabled
	}
	if u.Next != nil {
		out.Next = *u.Next
	}
	if u.Title != nil {
		out.Title = *u.Title
	}
	return out
}

// Ptr returns a pointer to v, for optional Update fields.
func Ptr[T any](v T) *T { return &v }
