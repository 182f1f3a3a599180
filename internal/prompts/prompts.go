// Package prompts holds the instruction templates sent to the models and the
// JSON schemas of their structured replies.
//
// Templates use text/template syntax and are parsed once at init.
package prompts

import (
	"strings"
	"text/template"
)

var registry = template.New("prompts").Option("missingkey=zero")

func define(name, text string) *template.Template {
	return template.Must(registry.New(name).Parse(strings.TrimSpace(text)))
}

// render executes a static template. Data is always a map or a struct
// declared in this package, so execution cannot fail at runtime.
func render(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		panic("prompts: " + t.Name() + ": " + err.Error())
	}
	return sb.String()
}

const appContext = `<app-context>
The name of the application is "Open Canvas". Open Canvas is a web application where users have a chat window and a canvas to display an artifact.
Artifacts can be any sort of writing content, emails, code, or other creative writing work. Think of artifacts as content, or writing you might find on a blog, Google doc, or other writing platform.
Users only have a single artifact per conversation, however they have the ability to go back and forth between artifact edits/revisions.
If a user asks you to generate something completely different from the current artifact, you may do this, as the UI displaying the artifacts will be updated to show whatever they have requested.
Even if the user goes from a 'text' artifact to a 'code' artifact.
</app-context>`

const codeRules = `- Do NOT wrap the code in any XML tags or markdown code fences, unless the original code already had them.
- Preserve the language and formatting conventions of the original code.`

// NoArtifact is used in place of the current artifact when none exists.
const NoArtifact = "The user has not generated an artifact yet."

// NoArtifactContent fills artifact slots that must not be empty.
const NoArtifactContent = "No artifacts generated yet."

var currentArtifact = define("currentArtifact", `
This artifact is the one the user is currently viewing.
<artifact>
{{.}}
</artifact>`)

// CurrentArtifact wraps body in the "currently viewing" block, or returns
// NoArtifact when body is empty.
func CurrentArtifact(body string) string {
	if body == "" {
		return NoArtifact
	}
	return render(currentArtifact, body)
}

var requirementsAnalysis = define("requirementsAnalysis", `
You are an expert system analyzing user requests to build or modify web interfaces. Translate the user's needs into a structured object describing a modern, intuitive and effective interface that solves their specific problem.

Analyze the request using this context:
<context>
User Reflections:
{{.Reflections}}

Recent Artifact:
{{.Artifact}}
</context>

If the user expresses difficulties or confusion, frame the page as the solution to that problem.

Fill every field:
1. mainGoal: the primary objective of the page, framed as a solution.
2. keyFeatures: essential features and high level components.
3. technicalRequirements: interactive elements, animations, visual tools, feedback mechanisms.
4. preferences: visual hierarchy, color system, typography, layout, motion.
5. considerations: constraints such as performance, browser support, edge cases.
6. uiComponents: concrete components (buttons, forms, cards, modals, navigation).
7. interactions: hover, click, validation and transition behaviours.
8. dataVisualization: charts, graphs or tables, if any.
9. responsiveLayouts: behaviour per screen size.
10. accessibilityFeatures: ARIA, keyboard navigation, contrast.

Use empty lists for fields that do not apply.`)

// RequirementsAnalysis is the system prompt of the requirements analyzer.
func RequirementsAnalysis(reflections, artifact string) string {
	return render(requirementsAnalysis, map[string]string{"Reflections": reflections, "Artifact": artifact})
}

var webDSL = define("webDSL", `
You are a meticulous DSL architect and UI/UX designer. Decompose the user's requirements into a detailed JSON blueprint of a single page web application.

Rules:
1. List elements flat; use parentId to build the hierarchy. Every element has a unique id, an elementType and a functionality description.
2. Declare every state the page needs (loading flags, filters, selections, modal visibility) with an initialValue and a description.
3. For every interactive element, list its events. Each event has a handlerDescription and the effects it has on element ids or state names (action and details).
4. Describe the main user flows as ordered steps.
5. Elements displaying dynamic data say which state they read in their functionality.

Analyzed requirements:
<requirements-analysis>
{{.Requirements}}
</requirements-analysis>

Existing artifact (may be empty):
<artifact>
{{.Artifact}}
</artifact>

Reflections on style guidelines and facts about the user:
<reflections>
{{.Reflections}}
</reflections>`)

// WebDSL is the system prompt of the blueprint synthesizer.
func WebDSL(requirements, artifact, reflections string) string {
	return render(webDSL, map[string]string{"Requirements": requirements, "Artifact": artifact, "Reflections": reflections})
}

// RewriteInput fills the full artifact rewrite prompt.
type RewriteInput struct {
	Artifact     string
	Reflections  string
	UpdateMeta   string
	WebSearch    string
	Requirements string
	Evaluation   string
	// WebDSL is the JSON blueprint, empty after the first round.
	WebDSL string
}

// NoWebDSL replaces the blueprint when none applies to the round.
const NoWebDSL = "No web DSL provided."

var updateEntireArtifact = define("updateEntireArtifact", `
You are a professional UI engineer specializing in creating and refining web interfaces.
Your goal is to produce a single, complete HTML file based on the <web-dsl> and the <requirements-analysis>.

If an existing artifact is provided below and it is not empty, refine it: find gaps against the blueprint and the requirements, fix them, and keep what is already correct.
Otherwise, generate a new page from scratch using the blueprint as the source of truth.

Analyzed Requirements:
<requirements-analysis>
{{.Requirements}}
</requirements-analysis>

Web DSL:
<web-dsl>
{{or .WebDSL "No web DSL provided."}}
</web-dsl>

Existing Artifact:
<artifact>
{{.Artifact}}
</artifact>

Previous Evaluation Results:
<evaluation-results>
{{or .Evaluation "No previous evaluation results"}}
</evaluation-results>

<implementation-rules>
- The web DSL is the primary reference for structure, content and interactivity.
- Use semantic HTML5, inline CSS in a <style> tag and inline JavaScript in a <script> tag.
- The page must be responsive and accessible.
- Every interactive element declared in the blueprint must work.
</implementation-rules>

Reflections & User Preferences:
<reflections>
{{.Reflections}}
</reflections>

{{.UpdateMeta}}

Additional Context:
<web-search-results>
{{.WebSearch}}
</web-search-results>

Reminder: your final response MUST be ONLY the complete HTML artifact. No extra text, no explanations.`)

// UpdateEntireArtifact is the generation prompt of one refinement round.
func UpdateEntireArtifact(in RewriteInput) string {
	return render(updateEntireArtifact, in)
}

var titleTypeRewrite = define("titleTypeRewrite", `
You are an AI assistant who has been tasked with analyzing the users request to rewrite an artifact.

Determine what the title and type of the artifact should be based on the users request.
Do NOT modify the title unless the request indicates the subject of the artifact has changed.
Do NOT change the type unless the user clearly asks for a different type of artifact.
`+appContext+`

The types you can choose from are:
- 'text': a general text artifact, including HTML pages.
- 'code': source code in a programming language.

Here is the current artifact (only the first 500 characters, or less if the artifact is shorter):
<artifact>
{{.}}
</artifact>

The users message below is the most recent message they sent. Use it to determine the title and type of the artifact.`)

// TitleTypeRewrite is the system prompt of the metadata decision call.
// Only the first 500 characters of the artifact are included.
func TitleTypeRewrite(artifact string) string {
	if r := []rune(artifact); len(r) > 500 {
		artifact = string(r[:500])
	}
	return render(titleTypeRewrite, artifact)
}

var updateMeta = define("updateMeta", `
It has been pre-determined based on the users message and other context that the type of the artifact should be:
{{.Kind}}

{{if .Title}}And its title is (do NOT include this in your response):
{{.Title}}{{end}}

You should use this as context when generating your response.`)

// UpdateMeta tells the generator the artifact type changed. The title is
// only mentioned for text artifacts.
func UpdateMeta(kind, title string) string {
	if kind == "" {
		kind = "text"
	}
	if kind != "text" {
		title = ""
	}
	return render(updateMeta, map[string]string{"Kind": kind, "Title": title})
}

var evaluationMetrics = define("evaluationMetrics", `
Based on the user's specific requirements and the following analysis, generate evaluation metrics for a generated user interface that directly address their needs.

Each metric has:
- name: a clear, descriptive name
- description: what the metric evaluates
- weight: a number between 0 and 1
- criteria: specific points to evaluate

{{.}}

Cover, in order of priority: core functionality and stability, modern flat design, quality of interactive elements, data visualization, performance, UI component quality, feature completeness.

Ensure that the weights sum to 1.0 and that every metric has at least 3 measurable criteria.`)

// EvaluationMetrics is the system prompt of the metrics synthesis phase.
func EvaluationMetrics(requirements string) string {
	return render(evaluationMetrics, requirements)
}

// EvaluationInput fills the scoring prompt.
type EvaluationInput struct {
	Requirements string
	Reflections  string
	Metrics      string
	Articles     string
}

var evaluation = define("evaluation", `
You are an expert evaluator tasked with analyzing and comparing HTML pages.

Requirements Analysis:
{{.Requirements}}

User Preferences:
{{.Reflections}}

Evaluation Metrics:
{{.Metrics}}

Articles to evaluate:
{{.Articles}}

Evaluation Guidelines:
1. For each metric give a score from 0 to 100 and a one sentence comment.
2. Score from 0 to 100 how well each article matches the user's content preferences, with a one sentence comment.
3. Do the same for the user's style preferences.
4. Give each article a total score from 0 to 100 with one sentence strengths and weaknesses.
5. Choose the article with the highest total score as the best article and justify it in one sentence.

Scoring Scale:
- 90-100: Excellent implementation
- 80-89: Very good implementation
- 70-79: Good implementation
- 60-69: Satisfactory implementation
- Below 60: Needs improvement

Be objective and consistent. Refer to articles only by their ARTICLE ID.`)

// Evaluation is the system prompt of the scoring phase.
func Evaluation(in EvaluationInput) string {
	return render(evaluation, in)
}

// EvaluationRequest is the user turn of the scoring phase.
const EvaluationRequest = "Please evaluate and compare these articles according to the criteria."

// ValidationHTML is the system prompt of the formatting only pass.
const ValidationHTML = `You are a HTML formatter. Your task is to format the user's HTML content.

Rules:
1. Check if the HTML has proper structure (html, head, body tags)
2. If structure is incomplete, add necessary elements
3. If content is not wrapped in markdown code blocks (` + "```html and ```" + `), wrap it
4. If content already has code blocks, keep them as is
5. Return ONLY the formatted HTML code, no explanations or additional text`
