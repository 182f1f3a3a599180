package prompts

import (
	"strings"
	"testing"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestUpdateMeta(t *testing.T) {
	text := UpdateMeta("text", "Pricing")
	assert.Contains(t, text, "text")
	assert.Contains(t, text, "do NOT include this in your response):\nPricing")

	code := UpdateMeta("code", "Pricing")
	assert.Contains(t, code, "code")
	assert.NotContains(t, code, "Pricing", "titles are only mentioned for text artifacts")

	assert.Contains(t, UpdateMeta("", ""), "text")
}

func TestTitleTypeRewrite_Truncates(t *testing.T) {
	long := strings.Repeat("a", 600) + "TAIL"
	out := TitleTypeRewrite(long)
	assert.Contains(t, out, strings.Repeat("a", 500))
	assert.NotContains(t, out, "TAIL")
}

func TestUpdateEntireArtifact_Defaults(t *testing.T) {
	out := UpdateEntireArtifact(RewriteInput{Artifact: "<p>hi</p>", Requirements: "Main Goal: x"})
	assert.Contains(t, out, NoWebDSL)
	assert.Contains(t, out, domain.NoPreviousEvaluation)
	assert.Contains(t, out, "<artifact>\n<p>hi</p>\n</artifact>")
	assert.NotContains(t, out, "<no value>")

	out = UpdateEntireArtifact(RewriteInput{WebDSL: `{"title":"t"}`, Evaluation: "Strengths:"})
	assert.Contains(t, out, `{"title":"t"}`)
	assert.NotContains(t, out, NoWebDSL)
}

func TestCustomAction_OptionalParts(t *testing.T) {
	bare := CustomAction(CustomActionInput{Instructions: "make it rhyme", Artifact: "roses"})
	assert.Contains(t, bare, "<custom-instructions>\nmake it rhyme\n</custom-instructions>")
	assert.NotContains(t, bare, "<reflections>")
	assert.NotContains(t, bare, "<conversation>")
	assert.NotContains(t, bare, "Open Canvas")

	full := CustomAction(CustomActionInput{
		IncludePrefix: true,
		Instructions:  "make it rhyme",
		Reflections:   "likes haiku",
		Conversation:  "<human>\nhi\n</human>",
		Artifact:      "roses",
	})
	assert.Contains(t, full, "Open Canvas")
	assert.Contains(t, full, "likes haiku")
	assert.Contains(t, full, "<human>\nhi\n</human>")
}

func TestRouteQuery(t *testing.T) {
	with := RouteQuery(true, "<human>\nhi\n</human>", "none", CurrentArtifact("body"))
	assert.Contains(t, with, "'rewriteArtifact'")
	assert.Contains(t, with, "This artifact is the one the user is currently viewing.")

	without := RouteQuery(false, "", "none", CurrentArtifact(""))
	assert.Contains(t, without, "'generateArtifact'")
	assert.Contains(t, without, NoArtifact)

	assert.Equal(t, []string{RouteReply, RouteGenerate}, RouteChoices(false))
	assert.Equal(t, []string{RouteReply, RouteRewrite}, RouteSchema(true).Parameters["properties"].(map[string]any)["route"].(map[string]any)["enum"])
}

func TestContextDocuments(t *testing.T) {
	assert.Empty(t, ContextDocuments(nil))
	out := ContextDocuments([]domain.ContextDocument{{Name: "brief.txt", Type: "text/plain", Data: "brand colors: teal"}})
	assert.Contains(t, out, `<document name="brief.txt" type="text/plain">`)
	assert.Contains(t, out, "brand colors: teal")
}

func TestThemesCarryArtifactAndReflections(t *testing.T) {
	for name, out := range map[string]string{
		"language": ChangeLanguage("French", "ART", "REF"),
		"level":    ChangeReadingLevel("PhD student", "ART", "REF"),
		"pirate":   ChangeToPirate("ART", "REF"),
		"length":   ChangeLength("much shorter than it currently is", "ART", "REF"),
		"emojis":   AddEmojis("ART", "REF"),
	} {
		assert.Contains(t, out, "<artifact>\nART\n</artifact>", name)
		assert.Contains(t, out, "<reflections>\nREF\n</reflections>", name)
	}
	assert.Contains(t, PortLanguage("rust", "CODE"), "re-writing the following code in rust")
	assert.Contains(t, FixBugs("CODE"), "<code>\nCODE\n</code>")
}
