package domain

// StateDiff represents the changes between two thread states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// ThreadID is always present to identify the target.
	ThreadID string `json:"thread_id"`

	Title *string `json:"title,omitempty"`

	// Messages contains display messages appended since the old state.
	Messages []Message `json:"messages,omitempty"`

	// Artifact holds the new current index and only the appended revisions.
	Artifact *Artifact `json:"artifact,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *ConversationState) *StateDiff {
	if newState == nil {
		return nil
	}
	diff := &StateDiff{ThreadID: newState.ThreadID}

	if oldState == nil {
		if newState.Title != "" {
			diff.Title = &newState.Title
		}
		diff.Messages = newState.Messages
		if newState.Artifact.Len() > 0 {
			diff.Artifact = newState.Artifact
		}
	} else {
		if oldState.Title != newState.Title {
			diff.Title = &newState.Title
		}
		// Display history is append-only.
		if n := len(oldState.Messages); len(newState.Messages) > n {
			diff.Messages = newState.Messages[n:]
		}
		diff.Artifact = diffArtifact(oldState.Artifact, newState.Artifact)
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffArtifact(old, new *Artifact) *Artifact {
	if new.Len() == 0 {
		return nil
	}
	if old.Len() == new.Len() && old.CurrentIndex == new.CurrentIndex {
		return nil
	}
	appended := []ArtifactContent{}
	if new.Len() > old.Len() {
		appended = new.Contents[old.Len():]
	}
	return &Artifact{CurrentIndex: new.CurrentIndex, Contents: appended}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Title == nil && len(d.Messages) == 0 && d.Artifact == nil
}
