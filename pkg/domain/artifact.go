package domain

import (
	"encoding/json"
	"fmt"
)

// ContentKind is the discriminant of an ArtifactContent revision.
type ContentKind string

const (
	KindText ContentKind = "text"
	KindCode ContentKind = "code"
)

// ProgrammingLanguage tags a CodeContent revision.
type ProgrammingLanguage string

const (
	LangTypeScript ProgrammingLanguage = "typescript"
	LangJavaScript ProgrammingLanguage = "javascript"
	LangCPP        ProgrammingLanguage = "cpp"
	LangJava       ProgrammingLanguage = "java"
	LangPHP        ProgrammingLanguage = "php"
	LangPython     ProgrammingLanguage = "python"
	LangHTML       ProgrammingLanguage = "html"
	LangSQL        ProgrammingLanguage = "sql"
	LangJSON       ProgrammingLanguage = "json"
	LangRust       ProgrammingLanguage = "rust"
	LangXML        ProgrammingLanguage = "xml"
	LangClojure    ProgrammingLanguage = "clojure"
	LangCSharp     ProgrammingLanguage = "csharp"
	LangOther      ProgrammingLanguage = "other"
)

// ContentHeader holds the fields shared by every revision.
type ContentHeader struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// ArtifactContent is one revision of an artifact. The set of implementations
// is closed: MarkdownContent and CodeContent.
type ArtifactContent interface {
	Kind() ContentKind
	Header() ContentHeader
	// Body returns the markdown or the code of the revision.
	Body() string
	// WithBody returns a copy of the revision carrying a new body.
	WithBody(body string) ArtifactContent

	withIndex(index int) ArtifactContent
}

// MarkdownContent is a text revision.
type MarkdownContent struct {
	ContentHeader
	FullMarkdown string `json:"fullMarkdown"`
}

func (c MarkdownContent) Kind() ContentKind     { return KindText }
func (c MarkdownContent) Header() ContentHeader { return c.ContentHeader }
func (c MarkdownContent) Body() string          { return c.FullMarkdown }

func (c MarkdownContent) WithBody(body string) ArtifactContent {
	c.FullMarkdown = body
	return c
}

func (c MarkdownContent) withIndex(index int) ArtifactContent {
	c.Index = index
	return c
}

// CodeContent is a code revision.
type CodeContent struct {
	ContentHeader
	Language ProgrammingLanguage `json:"language"`
	Code     string              `json:"code"`
}

func (c CodeContent) Kind() ContentKind     { return KindCode }
func (c CodeContent) Header() ContentHeader { return c.ContentHeader }
func (c CodeContent) Body() string          { return c.Code }

func (c CodeContent) WithBody(body string) ArtifactContent {
	c.Code = body
	return c
}

func (c CodeContent) withIndex(index int) ArtifactContent {
	c.Index = index
	return c
}

// Artifact is the versioned output of a thread.
//
// Contents is append-only and CurrentIndex is 1-based. An Artifact value is
// never modified after creation: Append returns a new Artifact sharing no
// slice memory with the receiver.
type Artifact struct {
	CurrentIndex int
	Contents     []ArtifactContent
}

// Len returns the number of revisions. A nil artifact has none.
func (a *Artifact) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Contents)
}

// Current returns the revision referenced by CurrentIndex, or nil.
func (a *Artifact) Current() ArtifactContent {
	if a == nil {
		return nil
	}
	for _, c := range a.Contents {
		if c.Header().Index == a.CurrentIndex {
			return c
		}
	}
	return nil
}

// Append returns a new artifact with c added as the newest revision.
// The index of c is overwritten with len(contents)+1.
func (a *Artifact) Append(c ArtifactContent) *Artifact {
	n := a.Len()
	contents := make([]ArtifactContent, n, n+1)
	if a != nil {
		copy(contents, a.Contents)
	}
	contents = append(contents, c.withIndex(n+1))
	return &Artifact{CurrentIndex: n + 1, Contents: contents}
}

// Select returns a copy of the artifact pointing at an existing revision.
func (a *Artifact) Select(index int) (*Artifact, error) {
	if index < 1 || index > a.Len() {
		return nil, fmt.Errorf("%w: %d not in [1,%d]", ErrRevisionOutOfRange, index, a.Len())
	}
	contents := make([]ArtifactContent, a.Len())
	copy(contents, a.Contents)
	return &Artifact{CurrentIndex: index, Contents: contents}, nil
}

type wireContent struct {
	Type         ContentKind         `json:"type"`
	Index        int                 `json:"index"`
	Title        string              `json:"title"`
	FullMarkdown string              `json:"fullMarkdown,omitempty"`
	Language     ProgrammingLanguage `json:"language,omitempty"`
	Code         string              `json:"code,omitempty"`
}

type wireArtifact struct {
	CurrentIndex int           `json:"currentIndex"`
	Contents     []wireContent `json:"contents"`
}

// MarshalJSON encodes each revision with a "type" discriminant.
func (a Artifact) MarshalJSON() ([]byte, error) {
	w := wireArtifact{CurrentIndex: a.CurrentIndex, Contents: make([]wireContent, 0, len(a.Contents))}
	for _, c := range a.Contents {
		w.Contents = append(w.Contents, toWire(c))
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes revisions by their "type" discriminant.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var w wireArtifact
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	contents := make([]ArtifactContent, 0, len(w.Contents))
	for i, wc := range w.Contents {
		c, err := fromWire(wc)
		if err != nil {
			return fmt.Errorf("content %d: %w", i, err)
		}
		contents = append(contents, c)
	}
	a.CurrentIndex = w.CurrentIndex
	a.Contents = contents
	return nil
}

func toWire(c ArtifactContent) wireContent {
	h := c.Header()
	w := wireContent{Type: c.Kind(), Index: h.Index, Title: h.Title}
	switch v := c.(type) {
	case MarkdownContent:
		w.FullMarkdown = v.FullMarkdown
	case CodeContent:
		w.Language = v.Language
		w.Code = v.Code
	}
	return w
}

func fromWire(w wireContent) (ArtifactContent, error) {
	header := ContentHeader{Index: w.Index, Title: w.Title}
	switch w.Type {
	case KindText:
		return MarkdownContent{ContentHeader: header, FullMarkdown: w.FullMarkdown}, nil
	case KindCode:
		return CodeContent{ContentHeader: header, Language: w.Language, Code: w.Code}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", w.Type)
	}
}
