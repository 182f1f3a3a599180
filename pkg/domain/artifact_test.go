package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifact_AppendOnly(t *testing.T) {
	var a *Artifact
	ops := []ArtifactContent{
		MarkdownContent{ContentHeader: ContentHeader{Title: "draft"}, FullMarkdown: "# one"},
		CodeContent{ContentHeader: ContentHeader{Title: "page"}, Language: LangHTML, Code: "<p>two</p>"},
		MarkdownContent{ContentHeader: ContentHeader{Index: 99, Title: "again"}, FullMarkdown: "three"},
	}

	var history []*Artifact
	for i, c := range ops {
		prev := a
		var snapshot []ArtifactContent
		if prev != nil {
			snapshot = append(snapshot, prev.Contents...)
		}

		a = a.Append(c)
		history = append(history, a)

		require.Equal(t, i+1, a.Len())
		assert.Equal(t, i+1, a.CurrentIndex)
		require.NotNil(t, a.Current())
		assert.Equal(t, i+1, a.Current().Header().Index, "index is assigned on append")

		if prev != nil {
			if diff := cmp.Diff(snapshot, prev.Contents); diff != "" {
				t.Fatalf("previous artifact mutated (-before +after):\n%s", diff)
			}
			if diff := cmp.Diff(prev.Contents, a.Contents[:prev.Len()]); diff != "" {
				t.Fatalf("existing revisions changed (-old +new):\n%s", diff)
			}
		}
	}

	// Older snapshots still point at their own current revision.
	assert.Equal(t, "# one", history[0].Current().Body())
	assert.Equal(t, "<p>two</p>", history[1].Current().Body())
}

func TestArtifact_AppendDoesNotShareBacking(t *testing.T) {
	a := (*Artifact)(nil).Append(MarkdownContent{FullMarkdown: "a"})
	b := a.Append(MarkdownContent{FullMarkdown: "b"})
	c := a.Append(MarkdownContent{FullMarkdown: "c"})

	assert.Equal(t, "b", b.Current().Body())
	assert.Equal(t, "c", c.Current().Body())
	assert.Equal(t, 1, a.Len())
}

func TestArtifact_Select(t *testing.T) {
	a := (*Artifact)(nil).Append(MarkdownContent{FullMarkdown: "a"}).Append(MarkdownContent{FullMarkdown: "b"})

	back, err := a.Select(1)
	require.NoError(t, err)
	assert.Equal(t, "a", back.Current().Body())
	assert.Equal(t, 2, a.CurrentIndex)

	_, err = a.Select(3)
	assert.ErrorIs(t, err, ErrRevisionOutOfRange)
	_, err = a.Select(0)
	assert.Error(t, err)
}

func TestArtifact_JSONDiscriminant(t *testing.T) {
	a := (*Artifact)(nil).
		Append(MarkdownContent{ContentHeader: ContentHeader{Title: "Poem"}, FullMarkdown: "roses"}).
		Append(CodeContent{ContentHeader: ContentHeader{Title: "Poem"}, Language: LangPython, Code: "print(1)"})

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"text"`)
	assert.Contains(t, string(data), `"type":"code"`)

	var back Artifact
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(*a, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	err = json.Unmarshal([]byte(`{"currentIndex":1,"contents":[{"type":"image","index":1}]}`), &back)
	assert.ErrorContains(t, err, "unknown content type")
}

func TestContent_WithBodyKeepsHeader(t *testing.T) {
	orig := CodeContent{ContentHeader: ContentHeader{Index: 2, Title: "t"}, Language: LangRust, Code: "x"}
	next := orig.WithBody("y").(CodeContent)

	assert.Equal(t, "x", orig.Code)
	assert.Equal(t, "y", next.Code)
	assert.Equal(t, orig.ContentHeader, next.ContentHeader)
	assert.Equal(t, orig.Language, next.Language)
}
