package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

var (
	requirementsTemperature = 0.6
	webDSLTemperature       = 0.5
)

// AnalyzeRequirements turns the latest request into a Requirements record.
// Fields the model leaves out become "" or empty lists.
func (n *Nodes) AnalyzeRequirements(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	human, err := lastHuman(s)
	if err != nil {
		return domain.Update{}, err
	}
	reflections, err := n.reflections(ctx, false)
	if err != nil {
		return domain.Update{}, err
	}
	artifact := "No artifact found"
	if body := s.ArtifactBody(); body != "" {
		artifact = prompts.CurrentArtifact(body)
	}

	resp, err := n.model.Invoke(ctx, ports.ModelRequest{
		Step: "analyzeRequirements",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.RequirementsAnalysis(reflections, artifact)},
			human,
		},
		Schema:      &prompts.RequirementsSchema,
		Temperature: &requirementsTemperature,
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("analyze requirements: %w", err)
	}

	var req domain.Requirements
	if resp != nil && resp.Args != nil {
		if err := llm.DecodeArgs(resp.Args, &req); err != nil {
			n.logger.WarnContext(ctx, "requirements payload malformed, using defaults", "err", err)
			req = domain.Requirements{}
		}
	}
	req = req.Normalize()
	n.logger.InfoContext(ctx, "requirements analyzed", "main_goal", req.MainGoal, "features", len(req.KeyFeatures))
	return domain.Update{AnalyzedRequirements: &req}, nil
}

// dslAccumulator folds a structured stream into its final value.
//
// Providers emit the object parsed so far on every structured chunk, not a
// delta, so each chunk supersedes the previous one and the last chunk is the
// complete blueprint. Chunks without a payload carry text only and are
// skipped.
type dslAccumulator struct {
	last map[string]any
}

func (a *dslAccumulator) add(c ports.ModelChunk) {
	if c.Args != nil {
		a.last = c.Args
	}
}

// GenerateWebDSL drafts a page blueprint from the analyzed requirements.
// Any model or decoding failure leaves the state unchanged.
func (n *Nodes) GenerateWebDSL(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	human, err := lastHuman(s)
	if err != nil {
		return domain.Update{}, err
	}
	reflections, err := n.reflections(ctx, false)
	if err != nil {
		return domain.Update{}, err
	}
	system := withSystemPrefix(ctx, prompts.WebDSL(s.AnalyzedRequirements.Context(), s.ArtifactBody(), reflections))

	var acc dslAccumulator
	for chunk, err := range n.model.Stream(ctx, ports.ModelRequest{
		Step:        "generateWebDSL",
		Messages:    []domain.Message{{Role: domain.RoleSystem, Content: system}, human},
		Schema:      &prompts.WebDSLSchema,
		Temperature: &webDSLTemperature,
	}) {
		if err != nil {
			n.logger.WarnContext(ctx, "web DSL generation failed, continuing without blueprint", "err", err)
			return domain.Update{}, nil
		}
		acc.add(chunk)
	}
	if acc.last == nil {
		n.logger.WarnContext(ctx, "web DSL generation returned no blueprint")
		return domain.Update{}, nil
	}

	var dsl domain.WebDSL
	if err := llm.DecodeArgs(acc.last, &dsl); err != nil {
		n.logger.WarnContext(ctx, "web DSL payload malformed, continuing without blueprint", "err", err)
		return domain.Update{}, nil
	}
	n.logger.InfoContext(ctx, "web DSL generated", "elements", len(dsl.Elements), "states", len(dsl.States))
	return domain.Update{WebDSL: &dsl}, nil
}
