package prompts

import "github.com/aretw0/canvas/pkg/domain"

// Route choices offered to the path selection model.
const (
	RouteReply    = "replyToGeneralInput"
	RouteRewrite  = "rewriteArtifact"
	RouteGenerate = "generateArtifact"
)

const (
	routeOptionsWithArtifact = `
- 'replyToGeneralInput': The user submitted a general input which does not require making an update, edit or generating a new artifact. This should ONLY be used if you are ABSOLUTELY sure the user does not want to make an update, edit or generate a new artifact.
- 'rewriteArtifact': The user has requested some sort of change or revision to the artifact, or to write a completely new artifact independent of the current one. Only select this if the user has clearly requested a change.`

	routeOptionsWithoutArtifact = `
- 'replyToGeneralInput': The user submitted a general input which does not require generating an artifact.
- 'generateArtifact': The user has inputted a request which requires generating an artifact.`
)

var routeQuery = define("routeQuery", `
You are an assistant tasked with routing the users query based on their most recent message.
Look at this message in isolation and determine where to best route their query.

Use this context about the application and its features when determining where to route to:
`+appContext+`

Your options are as follows:
<options>
{{.Options}}
</options>

A few of the recent messages in the chat history are:
<recent-messages>
{{.Recent}}
</recent-messages>

The user's requirements have been analyzed as follows:
<requirements-analysis>
{{.Requirements}}
</requirements-analysis>

If you have previously generated an artifact and the user asks a question that seems actionable, the likely choice is to take that action and rewrite the artifact.

{{.Artifact}}`)

// RouteQuery is the prompt of the path selection call. The options depend on
// whether an artifact already exists.
func RouteQuery(hasArtifact bool, recent, requirements, currentArtifact string) string {
	options := routeOptionsWithoutArtifact
	if hasArtifact {
		options = routeOptionsWithArtifact
	}
	return render(routeQuery, map[string]string{
		"Options":      options,
		"Recent":       recent,
		"Requirements": requirements,
		"Artifact":     currentArtifact,
	})
}

// RouteChoices returns the valid answers of RouteQuery.
func RouteChoices(hasArtifact bool) []string {
	if hasArtifact {
		return []string{RouteReply, RouteRewrite}
	}
	return []string{RouteReply, RouteGenerate}
}

var followup = define("followup", `
You are an AI assistant tasked with generating a followup to the artifact the user just generated.
You are having a conversation with the user and you have just generated an artifact for them. Follow up with a message that notifies them you're done. Make this message creative!

Examples:
<example id="1">
Here's a comedic twist on your poem about Bernese Mountain dogs. Let me know if this captures the humor you were aiming for, or if you'd like me to adjust anything!
</example>
<example id="2">
Does this capture what you had in mind, or is there a different direction you'd like to explore?
</example>

Here is the artifact you generated:
<artifact>
{{.Artifact}}
</artifact>

You also have the following reflections on general memories/facts about the user to use when generating your response.
<reflections>
{{.Reflections}}
</reflections>

Finally, here is the chat history between you and the user:
<conversation>
{{.Conversation}}
</conversation>

This message should be very short. Never generate more than 2-3 short sentences. Your tone should be somewhat formal, but still friendly.
Do NOT include any tags or extra text before or after your response.`)

// Followup is the prompt of the message sent after an artifact change.
func Followup(artifact, reflections, conversation string) string {
	if artifact == "" {
		artifact = NoArtifactContent
	}
	return render(followup, map[string]string{"Artifact": artifact, "Reflections": reflections, "Conversation": conversation})
}

var replyGeneral = define("replyGeneral", `
You are an AI assistant tasked with responding to the users question.

The user has generated artifacts in the past. Use the following artifacts as context when responding to the users question.

You also have the following reflections on style guidelines and general memories/facts about the user to use when generating your response.
<reflections>
{{.Reflections}}
</reflections>

{{.Artifact}}`)

// ReplyGeneral is the system prompt of a plain chat answer.
func ReplyGeneral(reflections, currentArtifact string) string {
	return render(replyGeneral, map[string]string{"Reflections": reflections, "Artifact": currentArtifact})
}

var updateHighlightedCode = define("updateHighlightedCode", `
You are an AI assistant, and the user has requested you make an update to a specific part of an artifact you generated in the past.

Here is the relevant part of the artifact, with the highlighted text between <highlight> tags:

{{.Before}}<highlight>{{.Selected}}</highlight>{{.After}}

Please update the highlighted text based on the user's request.

Follow these rules and guidelines:
<rules-guidelines>
- ONLY respond with the updated text, not the entire artifact.
- Do not include the <highlight> tags, or extra content in your response.
- NEVER generate content that is not included in the highlighted text.
`+codeRules+`
</rules-guidelines>

You also have the following reflections on style guidelines and general memories/facts about the user to use when generating your response.
<reflections>
{{.Reflections}}
</reflections>`)

// UpdateHighlightedCode rewrites the selected range of a code artifact.
func UpdateHighlightedCode(before, selected, after, reflections string) string {
	return render(updateHighlightedCode, map[string]string{
		"Before": before, "Selected": selected, "After": after, "Reflections": reflections,
	})
}

var updateHighlightedText = define("updateHighlightedText", `
You are an expert AI writing assistant, tasked with rewriting some text a user has selected. The selected text is nested inside a larger 'block'.
You should always respond with ONLY the updated text block in accordance with the user's request.
Rewrite the text in the block according to the user's request, using proper markdown syntax where appropriate.

<block>
{{.Block}}
</block>

<highlighted-text>
{{.Selected}}
</highlighted-text>

Only rewrite the highlighted part of the block. Respond with the entire block, not only the highlighted text, and do not wrap it in any tags.`)

// UpdateHighlightedText rewrites the highlighted part of a markdown block.
func UpdateHighlightedText(block, selected string) string {
	return render(updateHighlightedText, map[string]string{"Block": block, "Selected": selected})
}

var customActionPrefix = define("customActionPrefix", `
You are an AI assistant tasked with rewriting a users generated artifact.
They have provided custom instructions on how you should manage rewriting the artifact. The custom instructions are wrapped inside the <custom-instructions> tags.

Use this context about the application the user is interacting with when generating your response:
`+appContext)

var customAction = define("customAction", `
{{if .Prefix}}{{.Prefix}}

{{end}}<custom-instructions>
{{.Instructions}}
</custom-instructions>
{{if .Reflections}}
The following are reflections on style guidelines and general memories/facts about the user:
<reflections>
{{.Reflections}}
</reflections>
{{end}}{{if .Conversation}}
Here is the last 5 (or less) messages in the chat history between you and the user:
<conversation>
{{.Conversation}}
</conversation>
{{end}}
Here is the full artifact content the user has generated, and is requesting you rewrite according to their custom instructions:
<artifact>
{{.Artifact}}
</artifact>`)

// CustomActionInput fills a quick action prompt. Empty optional parts are
// omitted.
type CustomActionInput struct {
	IncludePrefix bool
	Instructions  string
	Reflections   string
	Conversation  string
	Artifact      string
}

// CustomAction applies a user defined quick action.
func CustomAction(in CustomActionInput) string {
	data := map[string]string{
		"Instructions": in.Instructions,
		"Reflections":  in.Reflections,
		"Conversation": in.Conversation,
		"Artifact":     in.Artifact,
	}
	if in.IncludePrefix {
		data["Prefix"] = render(customActionPrefix, nil)
	}
	return render(customAction, data)
}

var reflectSystem = define("reflectSystem", `
You are an expert assistant and software developer tasked with reflecting on a conversation you had with a user, and creating a list of rules and memories about the user.

Here is the artifact you generated for the user:
<artifact>
{{.Artifact}}
</artifact>

Here are the existing reflections. Refine them, do not drop what is still true:
<reflections>
{{.Reflections}}
</reflections>

Generate two lists:
- styleRules: rules and guidelines on how the user wants content written or styled.
- content: facts and memories about the user.
Be specific. Only keep entries that will be useful in future conversations.`)

// ReflectSystem is the system prompt of the reflection step.
func ReflectSystem(artifact, reflections string) string {
	if artifact == "" {
		artifact = "No artifact found."
	}
	return render(reflectSystem, map[string]string{"Artifact": artifact, "Reflections": reflections})
}

var reflectUser = define("reflectUser", `
Here is my conversation:
{{.}}`)

// ReflectUser carries the conversation to reflect on.
func ReflectUser(conversation string) string {
	return render(reflectUser, conversation)
}

var title = define("title", `
You are tasked with generating a concise, descriptive title for a conversation between a user and an AI assistant. The title should capture the main topic or purpose of the conversation.

Guidelines:
- Keep titles extremely short (ideally 2-5 words)
- Focus on the main topic or goal of the conversation
- Use natural, readable language
- Avoid unnecessary articles (a, an, the) when possible
- Do not include quotes or special characters
- Capitalize important words

Here is the conversation:
<conversation>
{{.Conversation}}
</conversation>

Here is the artifact generated during the conversation, if any:
<artifact>
{{.Artifact}}
</artifact>`)

// Title is the prompt of the thread title generation.
func Title(conversation, artifact string) string {
	if artifact == "" {
		artifact = "No artifact found."
	}
	return render(title, map[string]string{"Conversation": conversation, "Artifact": artifact})
}

// Summarizer is the system prompt of the history summarization.
const Summarizer = `You are tasked with summarizing the following conversation between a user and an AI assistant.
The summary replaces the conversation as model context, so keep every fact, decision and requirement needed to continue it.
Mention the artifact only by what it is about; its content is stored separately.
Respond with ONLY the summary.`

// SummaryPrefix opens the message that replaces the internal history.
const SummaryPrefix = "The previous conversation was summarized to save space. Here is the summary:\n\n"

var classifySearch = define("classifySearch", `
You are a helpful AI assistant tasked with classifying the user's latest message.
Determine whether answering it requires up to date information from the web, for example recent events, current prices, statistics or facts you are unlikely to know.

<message>
{{.}}
</message>`)

// ClassifySearch decides whether a turn needs web evidence.
func ClassifySearch(message string) string {
	return render(classifySearch, message)
}

var searchQuery = define("searchQuery", `
You're a helpful AI assistant tasked with writing a query to search the web.
You're provided with a list of messages between a user and an AI assistant.
The most recent message from the user is the one you should update to be a more search engine friendly query.

Try to keep the new query as similar to the message as possible, while still being search engine friendly.

Here is the conversation between the user and the assistant, in order of oldest to newest:

<conversation>
{{.Conversation}}
</conversation>

<additional_context>
The current date is {{.Date}}
</additional_context>

Respond ONLY with the search query, and nothing else.`)

// SearchQuery rewrites the latest turn into a search query. date is the
// human readable current date.
func SearchQuery(conversation, date string) string {
	return render(searchQuery, map[string]string{"Conversation": conversation, "Date": date})
}

var contextDocuments = define("contextDocuments", `
Use the following documents as additional context for your response:
{{range .}}
<document name="{{.Name}}" type="{{.Type}}">
{{.Data}}
</document>
{{end}}`)

// ContextDocuments renders attached documents, or "" when there are none.
func ContextDocuments(docs []domain.ContextDocument) string {
	if len(docs) == 0 {
		return ""
	}
	return render(contextDocuments, docs)
}
