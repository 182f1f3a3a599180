package domain

import "fmt"

// ReadingLevel selects the audience of a reading-level rewrite.
type ReadingLevel string

const (
	ReadingChild    ReadingLevel = "child"
	ReadingTeenager ReadingLevel = "teenager"
	ReadingCollege  ReadingLevel = "college"
	ReadingPhD      ReadingLevel = "phd"
	ReadingPirate   ReadingLevel = "pirate"
)

// Audience returns the phrase used in the rewrite prompt.
func (l ReadingLevel) Audience() string {
	switch l {
	case ReadingChild:
		return "elementary school student"
	case ReadingTeenager:
		return "high school student"
	case ReadingCollege:
		return "college student"
	case ReadingPhD:
		return "PhD student"
	}
	return string(l)
}

// ArtifactLength selects the target length of a rewrite.
type ArtifactLength string

const (
	LengthShortest ArtifactLength = "shortest"
	LengthShort    ArtifactLength = "short"
	LengthLong     ArtifactLength = "long"
	LengthLongest  ArtifactLength = "longest"
)

// Describe returns the phrase used in the rewrite prompt.
func (l ArtifactLength) Describe() string {
	switch l {
	case LengthShortest:
		return "much shorter than it currently is"
	case LengthShort:
		return "slightly shorter than it currently is"
	case LengthLong:
		return "slightly longer than it currently is"
	case LengthLongest:
		return "much longer than it currently is"
	}
	return string(l)
}

// ThemeSelector carries the request flags of a markdown theme rewrite.
// Exactly one field must be set; Resolve turns it into a Theme.
type ThemeSelector struct {
	Language             string         `json:"language,omitempty"`
	ReadingLevel         ReadingLevel   `json:"readingLevel,omitempty"`
	ArtifactLength       ArtifactLength `json:"artifactLength,omitempty"`
	RegenerateWithEmojis bool           `json:"regenerateWithEmojis,omitempty"`
}

// Theme is a resolved markdown rewrite. Implementations: LanguageTheme,
// ReadingLevelTheme, PirateTheme, LengthTheme, EmojiTheme.
type Theme interface {
	theme()
}

type LanguageTheme struct{ Language string }
type ReadingLevelTheme struct{ Level ReadingLevel }
type PirateTheme struct{}
type LengthTheme struct{ Length ArtifactLength }
type EmojiTheme struct{}

func (LanguageTheme) theme()     {}
func (ReadingLevelTheme) theme() {}
func (PirateTheme) theme()       {}
func (LengthTheme) theme()       {}
func (EmojiTheme) theme()        {}

// IsSet reports whether any flag is present.
func (s *ThemeSelector) IsSet() bool {
	return s != nil && (s.Language != "" || s.ReadingLevel != "" || s.ArtifactLength != "" || s.RegenerateWithEmojis)
}

// Resolve returns the single selected theme.
func (s *ThemeSelector) Resolve() (Theme, error) {
	if s == nil {
		return nil, ErrNoThemeSelected
	}
	var picked []Theme
	if s.Language != "" {
		picked = append(picked, LanguageTheme{Language: s.Language})
	}
	switch s.ReadingLevel {
	case "":
	case ReadingPirate:
		picked = append(picked, PirateTheme{})
	default:
		picked = append(picked, ReadingLevelTheme{Level: s.ReadingLevel})
	}
	if s.ArtifactLength != "" {
		picked = append(picked, LengthTheme{Length: s.ArtifactLength})
	}
	if s.RegenerateWithEmojis {
		picked = append(picked, EmojiTheme{})
	}
	return single(picked, ErrNoThemeSelected)
}

// CodeActionSelector carries the request flags of a code rewrite.
type CodeActionSelector struct {
	AddComments  bool                `json:"addComments,omitempty"`
	AddLogs      bool                `json:"addLogs,omitempty"`
	FixBugs      bool                `json:"fixBugs,omitempty"`
	PortLanguage ProgrammingLanguage `json:"portLanguage,omitempty"`
}

// CodeAction is a resolved code rewrite. Implementations: AddCommentsAction,
// AddLogsAction, FixBugsAction, PortLanguageAction.
type CodeAction interface {
	codeAction()
}

type AddCommentsAction struct{}
type AddLogsAction struct{}
type FixBugsAction struct{}
type PortLanguageAction struct{ Language ProgrammingLanguage }

func (AddCommentsAction) codeAction()  {}
func (AddLogsAction) codeAction()      {}
func (FixBugsAction) codeAction()      {}
func (PortLanguageAction) codeAction() {}

// IsSet reports whether any flag is present.
func (s *CodeActionSelector) IsSet() bool {
	return s != nil && (s.AddComments || s.AddLogs || s.FixBugs || s.PortLanguage != "")
}

// Resolve returns the single selected code action.
func (s *CodeActionSelector) Resolve() (CodeAction, error) {
	if s == nil {
		return nil, ErrNoCodeActionSelected
	}
	var picked []CodeAction
	if s.AddComments {
		picked = append(picked, AddCommentsAction{})
	}
	if s.AddLogs {
		picked = append(picked, AddLogsAction{})
	}
	if s.FixBugs {
		picked = append(picked, FixBugsAction{})
	}
	if s.PortLanguage != "" {
		picked = append(picked, PortLanguageAction{Language: s.PortLanguage})
	}
	return single(picked, ErrNoCodeActionSelected)
}

func single[T any](picked []T, none error) (T, error) {
	var zero T
	switch len(picked) {
	case 0:
		return zero, none
	case 1:
		return picked[0], nil
	default:
		return zero, fmt.Errorf("%w: %d flags", ErrAmbiguousSelection, len(picked))
	}
}
