package prompts

import "github.com/aretw0/canvas/pkg/ports"

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func number(desc string, lo, hi float64) map[string]any {
	return map[string]any{"type": "number", "description": desc, "minimum": lo, "maximum": hi}
}

func list(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

func texts(desc string) map[string]any { return list(desc, map[string]any{"type": "string"}) }

// RequirementsSchema is the reply shape of the requirements analyzer.
var RequirementsSchema = ports.Schema{
	Name:        "requirements_analysis",
	Description: "Structured analysis of the page the user wants built.",
	Parameters: object([]string{"mainGoal", "keyFeatures"}, map[string]any{
		"mainGoal":              str("The main goal of the page to be created."),
		"keyFeatures":           texts("Key features and components, including layout structure, navigation and main content areas."),
		"technicalRequirements": texts("HTML structure, CSS styling, JavaScript behaviour and required libraries."),
		"preferences":           texts("Design preferences: colors, typography, spacing, animations, visual style."),
		"considerations":        texts("Responsive breakpoints, browser support, performance and other constraints."),
		"uiComponents":          texts("UI components needed: buttons, forms, cards, modals, navigation."),
		"interactions":          texts("User interactions: hover effects, clicks, validations, transitions."),
		"dataVisualization":     texts("Charts, graphs or tables, if needed."),
		"responsiveLayouts":     texts("Layout behaviour per screen size."),
		"accessibilityFeatures": texts("ARIA attributes, keyboard navigation, screen reader support, contrast."),
	}),
}

// WebDSLSchema is the reply shape of the blueprint synthesizer.
var WebDSLSchema = ports.Schema{
	Name:        "web_dsl",
	Description: "Declarative blueprint of a single page web application.",
	Parameters: object([]string{"title", "elements", "states", "flows"}, map[string]any{
		"title":       str("Title of the page."),
		"description": str("One paragraph describing the page."),
		"elements": list("Flat list of elements; parentId builds the tree.", object(
			[]string{"id", "elementType"},
			map[string]any{
				"id":            str("Unique element id."),
				"parentId":      str("Id of the parent element, empty for roots."),
				"elementType":   str("HTML tag or component kind, e.g. section, button, pricing-card."),
				"content":       str("Static content, if any."),
				"functionality": str("What the element does and which state it displays."),
				"className":     texts("Style classes."),
				"attributes":    map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
				"events": list("User events handled by the element.", object(
					[]string{"type", "handlerDescription"},
					map[string]any{
						"type":               str("DOM event name, e.g. click."),
						"handlerDescription": str("What happens when the event fires."),
						"affects": list("Targets changed by the event.", object(
							[]string{"target", "action"},
							map[string]any{
								"target":  str("Element id or state name."),
								"action":  str("updateState, setStyle, toggleClass, navigateTo, triggerAnimation."),
								"details": str("Parameters of the action."),
							})),
					})),
			})),
		"states": list("Named pieces of page state.", object(
			[]string{"name", "initialValue"},
			map[string]any{
				"name":         str("State name."),
				"initialValue": str("Initial value, JSON encoded if structured."),
				"description":  str("What the state represents."),
			})),
		"flows": list("Main user journeys.", object(
			[]string{"name", "steps"},
			map[string]any{
				"name":        str("Flow name."),
				"description": str("What the user achieves."),
				"steps":       texts("Ordered steps of the flow."),
			})),
	}),
}

// LanguageChoices are the accepted code languages of MetaSchema.
var LanguageChoices = []string{
	"typescript", "javascript", "cpp", "java", "php", "python", "html",
	"sql", "json", "rust", "xml", "clojure", "csharp", "other",
}

// MetaSchema is the reply shape of the artifact metadata decision.
var MetaSchema = ports.Schema{
	Name:        "optionallyUpdateArtifactMeta",
	Description: "Update the artifact meta information, if necessary.",
	Parameters: object([]string{"type", "language"}, map[string]any{
		"type":     enum("The type of the artifact content.", "text", "code"),
		"title":    str("The new title of the artifact. ONLY set this if the user changes the subject of the artifact."),
		"language": enum("The programming language of a code artifact, or 'other'.", LanguageChoices...),
	}),
}

var scored = object([]string{"score", "comment"}, map[string]any{
	"score":   number("Score from 0 to 100.", 0, 100),
	"comment": str("One sentence comment."),
})

// MetricsSchema is the reply shape of the metrics synthesis phase.
var MetricsSchema = ports.Schema{
	Name:        "generate_metrics",
	Description: "Generate evaluation metrics based on requirements.",
	Parameters: object([]string{"metrics"}, map[string]any{
		"metrics": list("Weighted evaluation metrics.", object(
			[]string{"name", "description", "weight", "criteria"},
			map[string]any{
				"name":        str("Name of the evaluation metric."),
				"description": str("What this metric evaluates."),
				"weight":      number("Weight of the metric in the overall score.", 0, 1),
				"criteria":    texts("Specific criteria to evaluate."),
			})),
	}),
}

// EvaluationSchema is the reply shape of the scoring phase.
var EvaluationSchema = ports.Schema{
	Name:        "evaluate_artifact",
	Description: "Compare and evaluate multiple articles.",
	Parameters: object([]string{"articleComparison", "bestArticle"}, map[string]any{
		"articleComparison": list("One entry per article.", object(
			[]string{"articleId", "scores", "contentPreferences", "stylePreferences", "overall"},
			map[string]any{
				"articleId":          str("Identifier of the article."),
				"scores":             list("One score per metric, in metric order.", scored),
				"contentPreferences": scored,
				"stylePreferences":   scored,
				"overall": object([]string{"totalScore", "strengths", "weaknesses"}, map[string]any{
					"totalScore": number("Final score of the article.", 0, 100),
					"strengths":  texts("Key strengths, one sentence each."),
					"weaknesses": texts("Key weaknesses, one sentence each."),
				}),
			})),
		"bestArticle": object([]string{"articleId", "totalScore", "justification"}, map[string]any{
			"articleId":     str("Identifier of the best article."),
			"totalScore":    number("Total score of the best article.", 0, 100),
			"justification": str("One sentence justification."),
		}),
	}),
}

// RouteSchema is the reply shape of the path selection call.
func RouteSchema(hasArtifact bool) ports.Schema {
	return ports.Schema{
		Name:        "route_query",
		Description: "The route to take based on the user's query.",
		Parameters: object([]string{"route"}, map[string]any{
			"route": enum("The route to take.", RouteChoices(hasArtifact)...),
		}),
	}
}

// ReflectionsSchema is the reply shape of the reflection step.
var ReflectionsSchema = ports.Schema{
	Name:        "generate_reflections",
	Description: "Generate reflections based on the context provided.",
	Parameters: object([]string{"styleRules", "content"}, map[string]any{
		"styleRules": texts("The complete new list of style rules and guidelines."),
		"content":    texts("The complete new list of memories/facts about the user."),
	}),
}

// TitleSchema is the reply shape of the title generation.
var TitleSchema = ports.Schema{
	Name:        "generate_title",
	Description: "Generate a concise title for the conversation.",
	Parameters: object([]string{"title"}, map[string]any{
		"title": str("The generated title for the conversation."),
	}),
}

// ClassifySchema is the reply shape of the web search classification.
var ClassifySchema = ports.Schema{
	Name:        "classify_message",
	Description: "Whether the message needs a web search.",
	Parameters: object([]string{"shouldSearch"}, map[string]any{
		"shouldSearch": map[string]any{"type": "boolean", "description": "True when web evidence is needed."},
	}),
}
