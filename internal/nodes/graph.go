package nodes

import (
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
)

// BuildGraph wires the nodes into the conversation graph.
func BuildGraph(n *Nodes) (*dsl.Graph, error) {
	b := dsl.New()

	b.Add(domain.ActionGeneratePath, n.GeneratePath).Branch(Route, domain.RoutableActions()...)

	b.Add(domain.ActionAnalyzeRequirements, n.AnalyzeRequirements).Go(domain.ActionGenerateWebDSL)
	b.Add(domain.ActionGenerateWebDSL, n.GenerateWebDSL).Go(domain.ActionGeneratePath)

	// Every artifact revision is followed by the followup and reflection steps.
	artifact := map[domain.Action]dsl.NodeFunc{
		domain.ActionRewriteArtifact:          n.RewriteArtifact,
		domain.ActionRewriteArtifactTheme:     n.RewriteArtifactTheme,
		domain.ActionRewriteCodeArtifactTheme: n.RewriteCodeArtifactTheme,
		domain.ActionUpdateArtifact:           n.UpdateArtifact,
		domain.ActionUpdateHighlightedText:    n.UpdateHighlightedText,
		domain.ActionCustomAction:             n.CustomAction,
	}
	for _, a := range domain.RoutableActions() {
		if fn, ok := artifact[a]; ok {
			b.Add(a, fn).Go(domain.ActionGenerateFollowup)
		}
	}

	b.Add(domain.ActionWebSearch, n.WebSearch).Go(domain.ActionRoutePostWebSearch)
	b.Add(domain.ActionRoutePostWebSearch, n.RoutePostWebSearch).Go(domain.ActionRewriteArtifact)

	b.Add(domain.ActionReplyToGeneralInput, n.ReplyToGeneralInput).Go(domain.ActionCleanState)
	b.Add(domain.ActionGenerateFollowup, n.GenerateFollowup).Go(domain.ActionReflect)
	b.Add(domain.ActionReflect, n.Reflect).Go(domain.ActionCleanState)

	b.Add(domain.ActionCleanState, n.CleanState).
		Branch(RouteAfterClean, domain.ActionGenerateTitle, domain.ActionSummarizer, dsl.End)
	b.Add(domain.ActionGenerateTitle, n.GenerateTitle).Terminal()
	b.Add(domain.ActionSummarizer, n.Summarizer).Terminal()

	return b.Start(domain.ActionGeneratePath).Build()
}
