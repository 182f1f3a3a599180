package prompts

const themeTail = `
Here is the current content of the artifact:
<artifact>
{{.Artifact}}
</artifact>

You also have the following reflections on style guidelines and general memories/facts about the user to use when generating your response.
<reflections>
{{.Reflections}}
</reflections>

Rules and guidelines:
<rules-guidelines>
- Respond with ONLY the updated artifact, and no additional text before or after.
- Ensure you respond with the entire updated artifact.
- Do not wrap it in any XML tags you see in this prompt.
</rules-guidelines>`

var (
	changeLanguage = define("changeLanguage", `
You are tasked with changing the language of the following artifact to {{.Target}}.
ONLY change the language and nothing else.
`+themeTail)

	changeReadingLevel = define("changeReadingLevel", `
You are tasked with re-writing the following artifact to be at a {{.Target}} reading level.
Do not change the meaning or story behind the artifact, simply update the language to be appropriate for a {{.Target}} audience.
`+themeTail)

	changeToPirate = define("changeToPirate", `
You are tasked with re-writing the following artifact to sound like a pirate.
Do not change the meaning or story behind the artifact, simply update the language to sound like a pirate.
`+themeTail)

	changeLength = define("changeLength", `
You are tasked with re-writing the following artifact to be {{.Target}}.
Do not change the meaning or story behind the artifact, simply update its length to be {{.Target}}.
`+themeTail)

	addEmojis = define("addEmojis", `
You are tasked with revising the following artifact by adding emojis to it.
Do not change the meaning or story behind the artifact, simply include emojis throughout the text where appropriate.
`+themeTail)
)

func theme(target, artifact, reflections string) map[string]string {
	return map[string]string{"Target": target, "Artifact": artifact, "Reflections": reflections}
}

// ChangeLanguage translates a text artifact.
func ChangeLanguage(language, artifact, reflections string) string {
	return render(changeLanguage, theme(language, artifact, reflections))
}

// ChangeReadingLevel rewrites a text artifact for an audience.
func ChangeReadingLevel(audience, artifact, reflections string) string {
	return render(changeReadingLevel, theme(audience, artifact, reflections))
}

// ChangeToPirate rewrites a text artifact in pirate voice.
func ChangeToPirate(artifact, reflections string) string {
	return render(changeToPirate, theme("", artifact, reflections))
}

// ChangeLength shortens or lengthens a text artifact.
func ChangeLength(length, artifact, reflections string) string {
	return render(changeLength, theme(length, artifact, reflections))
}

// AddEmojis sprinkles emojis over a text artifact.
func AddEmojis(artifact, reflections string) string {
	return render(addEmojis, theme("", artifact, reflections))
}

const codeTail = `
<code>
{{.Code}}
</code>

Rules and guidelines:
<rules-guidelines>
- Respond with ONLY the updated code, and no additional text before or after.
- Ensure you respond with the entire updated code. Do not leave out any code from the original input.
` + codeRules + `
</rules-guidelines>`

var (
	addComments = define("addComments", `
You are an expert software engineer, tasked with updating the following code by adding comments to it.
Do NOT modify any logic or functionality of the code. Comments should be clear and concise.

Here is the code to add comments to:
`+codeTail)

	addLogs = define("addLogs", `
You are an expert software engineer, tasked with updating the following code by adding log statements to it.
Do NOT modify any logic or functionality of the code. Logs should help with debugging and must not be redundant.

Here is the code to add logs to:
`+codeTail)

	fixBugs = define("fixBugs", `
You are an expert software engineer, tasked with fixing any bugs in the following code.
Read through all the code carefully and think through the logic before changing anything. Do not introduce new bugs and do not make meaningless changes.

Here is the code to potentially fix bugs in:
`+codeTail)

	portLanguage = define("portLanguage", `
You are an expert software engineer, tasked with re-writing the following code in {{.Language}}.
Replace language specific modules with their closest equivalent in {{.Language}}.

Here is the code to port to {{.Language}}:
`+codeTail)
)

// AddComments documents a code artifact.
func AddComments(code string) string {
	return render(addComments, map[string]string{"Code": code})
}

// AddLogs instruments a code artifact.
func AddLogs(code string) string {
	return render(addLogs, map[string]string{"Code": code})
}

// FixBugs repairs a code artifact.
func FixBugs(code string) string {
	return render(fixBugs, map[string]string{"Code": code})
}

// PortLanguage translates a code artifact to another programming language.
func PortLanguage(language, code string) string {
	return render(portLanguage, map[string]string{"Language": language, "Code": code})
}
