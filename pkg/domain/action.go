package domain

import "slices"

// Action identifies a node of the conversation graph.
type Action string

// Routable actions. The router dispatches to exactly one of these.
const (
	ActionAnalyzeRequirements      Action = "analyzeRequirements"
	ActionUpdateArtifact           Action = "updateArtifact"
	ActionRewriteArtifactTheme     Action = "rewriteArtifactTheme"
	ActionRewriteCodeArtifactTheme Action = "rewriteCodeArtifactTheme"
	ActionReplyToGeneralInput      Action = "replyToGeneralInput"
	ActionRewriteArtifact          Action = "rewriteArtifact"
	ActionCustomAction             Action = "customAction"
	ActionUpdateHighlightedText    Action = "updateHighlightedText"
	ActionWebSearch                Action = "webSearch"
)

// Internal nodes, never selected by the router.
const (
	ActionGeneratePath       Action = "generatePath"
	ActionGenerateWebDSL     Action = "generateWebDSL"
	ActionRoutePostWebSearch Action = "routePostWebSearch"
	ActionGenerateFollowup   Action = "generateFollowup"
	ActionReflect            Action = "reflect"
	ActionCleanState         Action = "cleanState"
	ActionGenerateTitle      Action = "generateTitle"
	ActionSummarizer         Action = "summarizer"
)

// RoutableActions lists the actions the router accepts, in a stable order.
func RoutableActions() []Action {
	return []Action{
		ActionAnalyzeRequirements,
		ActionUpdateArtifact,
		ActionRewriteArtifactTheme,
		ActionRewriteCodeArtifactTheme,
		ActionReplyToGeneralInput,
		ActionRewriteArtifact,
		ActionCustomAction,
		ActionUpdateHighlightedText,
		ActionWebSearch,
	}
}

// IsRoutable reports whether a belongs to RoutableActions.
func (a Action) IsRoutable() bool {
	return slices.Contains(RoutableActions(), a)
}

// ProducesArtifact reports whether the action appends a revision and is
// therefore followed by the followup and reflection steps.
func (a Action) ProducesArtifact() bool {
	switch a {
	case ActionUpdateArtifact, ActionRewriteArtifactTheme, ActionRewriteCodeArtifactTheme,
		ActionRewriteArtifact, ActionCustomAction, ActionUpdateHighlightedText:
		return true
	}
	return false
}
