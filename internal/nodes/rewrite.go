package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/internal/refine"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

var metaTemperature = 0.4

// artifactMeta is the decision of the metadata step.
type artifactMeta struct {
	Type     domain.ContentKind `json:"type"`
	Title    string             `json:"title"`
	Language string             `json:"language"`
}

// RewriteArtifact produces a new revision through the refinement loop.
//
// Without an artifact the loop starts from an empty markdown placeholder
// that is never stored, so the first committed revision has index 1.
func (n *Nodes) RewriteArtifact(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	human, err := lastHuman(s)
	if err != nil {
		return domain.Update{}, err
	}
	reflections, err := n.reflections(ctx, false)
	if err != nil {
		return domain.Update{}, err
	}

	current := s.Artifact.Current()
	if current == nil {
		current = domain.MarkdownContent{}
	}

	meta, err := n.decideMeta(ctx, current, human)
	if err != nil {
		return domain.Update{}, err
	}
	updateMeta := ""
	if meta.Type != current.Kind() {
		updateMeta = prompts.UpdateMeta(string(meta.Type), meta.Title)
	}

	webSearch := domain.NoWebSearchResults
	if m, ok := s.FindAnnotated(domain.AnnotationWebSearchResults); ok && m.Content != "" {
		webSearch = m.Content
	}

	res, err := n.loop().Run(ctx, refine.Input{
		Request:      human,
		Context:      n.contextMessages(ctx),
		Artifact:     current.Body(),
		Reflections:  reflections,
		Requirements: s.AnalyzedRequirements.Context(),
		WebSearch:    webSearch,
		UpdateMeta:   updateMeta,
		WebDSL:       s.WebDSL,
		SystemPrefix: requestInfo(ctx).SystemPrompt,
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("refinement: %w", err)
	}
	if res.Best == nil {
		n.logger.WarnContext(ctx, "no round could be evaluated, storing an empty revision", "run_id", res.RunID, "rounds", res.Rounds)
	}

	body, thinking := n.splitThinking(res.Content)
	return domain.Update{
		Artifact: s.Artifact.Append(newContent(meta, current, body)),
		Messages: thinking,
	}, nil
}

func (n *Nodes) loop() *refine.Loop {
	evalOpts := append([]refine.EvaluatorOption{refine.WithEvaluatorLogger(n.logger)}, n.evalOpts...)
	loopOpts := append([]refine.LoopOption{
		refine.WithAuditStore(n.audit),
		refine.WithLoopHooks(n.hooks),
		refine.WithLoopLogger(n.logger),
	}, n.loopOpts...)
	return refine.NewLoop(
		refine.NewGenerator(n.model, domain.MaxPageCount),
		refine.NewEvaluator(n.model, n.scoring, evalOpts...),
		n.small,
		loopOpts...,
	)
}

// decideMeta asks whether the request changes the artifact type or title.
// A missing type keeps the current one.
func (n *Nodes) decideMeta(ctx context.Context, current domain.ArtifactContent, human domain.Message) (artifactMeta, error) {
	resp, err := n.model.Invoke(ctx, ports.ModelRequest{
		Step: "optionallyUpdateArtifactMeta",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.TitleTypeRewrite(current.Body())},
			human,
		},
		Schema:      &prompts.MetaSchema,
		Temperature: &metaTemperature,
	})
	if err != nil {
		return artifactMeta{}, fmt.Errorf("artifact meta: %w", err)
	}
	var meta artifactMeta
	if resp != nil && resp.Args != nil {
		if err := llm.DecodeArgs(resp.Args, &meta); err != nil {
			return artifactMeta{}, fmt.Errorf("artifact meta: %w", err)
		}
	}
	if meta.Type != domain.KindText && meta.Type != domain.KindCode {
		meta.Type = current.Kind()
	}
	return meta, nil
}

// newContent builds the revision of the decided kind. The title falls back
// to the current one; a code language falls back to the current language,
// then to "other".
func newContent(meta artifactMeta, current domain.ArtifactContent, body string) domain.ArtifactContent {
	header := domain.ContentHeader{Title: meta.Title}
	if header.Title == "" {
		header.Title = current.Header().Title
	}
	if meta.Type != domain.KindCode {
		return domain.MarkdownContent{ContentHeader: header, FullMarkdown: body}
	}
	lang := domain.ProgrammingLanguage(meta.Language)
	if lang == "" {
		lang = domain.LangOther
		if cc, ok := current.(domain.CodeContent); ok && cc.Language != "" {
			lang = cc.Language
		}
	}
	return domain.CodeContent{ContentHeader: header, Language: lang, Code: body}
}
