package domain

// SummarizeCharLimit is the internal history size above which the thread is summarised.
const SummarizeCharLimit = 300_000

// ConversationState is the per-thread snapshot flowing through the graph.
type ConversationState struct {
	ThreadID string `json:"threadId"`
	Title    string `json:"title,omitempty"`

	// Messages is the display history.
	Messages []Message `json:"messages"`
	// InternalMessages is the model context, a superset of Messages.
	InternalMessages []Message `json:"_messages"`

	Artifact *Artifact `json:"artifact,omitempty"`

	AnalyzedRequirements *Requirements  `json:"analyzedRequirements,omitempty"`
	WebDSL               *WebDSL        `json:"webDSL,omitempty"`
	WebSearchResults     []SearchResult `json:"webSearchResults,omitempty"`
	WebSearchEnabled     bool           `json:"webSearchEnabled,omitempty"`

	// Transient request flags, reset by cleanState.
	Next                Action              `json:"next,omitempty"`
	Theme               *ThemeSelector      `json:"theme,omitempty"`
	CodeAction          *CodeActionSelector `json:"codeAction,omitempty"`
	HighlightedText     *HighlightedText    `json:"highlightedText,omitempty"`
	HighlightedCode     *HighlightedCode    `json:"highlightedCode,omitempty"`
	CustomQuickActionID string              `json:"customQuickActionId,omitempty"`
}

// NewState creates an empty state for a thread.
func NewState(threadID string) *ConversationState {
	return &ConversationState{
		ThreadID:         threadID,
		Messages:         []Message{},
		InternalMessages: []Message{},
	}
}

// Clone returns a copy whose slices can be appended to independently.
// Artifact values are immutable and are shared.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.InternalMessages = append([]Message(nil), s.InternalMessages...)
	out.WebSearchResults = append([]SearchResult(nil), s.WebSearchResults...)
	return &out
}

// LastHumanMessage returns the latest human turn of the internal history.
func (s *ConversationState) LastHumanMessage() (Message, bool) {
	for i := len(s.InternalMessages) - 1; i >= 0; i-- {
		if s.InternalMessages[i].Role == RoleHuman {
			return s.InternalMessages[i], true
		}
	}
	return Message{}, false
}

// FindAnnotated returns the first internal message carrying key.
func (s *ConversationState) FindAnnotated(key string) (Message, bool) {
	for _, m := range s.InternalMessages {
		if m.HasAnnotation(key) {
			return m, true
		}
	}
	return Message{}, false
}

// InternalChars is the total content size of the internal history.
func (s *ConversationState) InternalChars() int {
	n := 0
	for _, m := range s.InternalMessages {
		n += len(m.Content)
	}
	return n
}

// ArtifactBody returns the body of the current revision, or "".
func (s *ConversationState) ArtifactBody() string {
	if c := s.Artifact.Current(); c != nil {
		return c.Body()
	}
	return ""
}

func (s *ConversationState) clearTransient() {
	s.Next = ""
	s.Theme = nil
	s.CodeAction = nil
	s.HighlightedText = nil
	s.HighlightedCode = nil
	s.CustomQuickActionID = ""
	s.AnalyzedRequirements = nil
	s.WebDSL = nil
	s.WebSearchResults = nil
	s.WebSearchEnabled = false
}
