package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// RewriteArtifactTheme applies the selected theme to a markdown artifact.
func (n *Nodes) RewriteArtifactTheme(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	current := s.Artifact.Current()
	if current == nil {
		return domain.Update{}, domain.ErrNoArtifact
	}
	if current.Kind() != domain.KindText {
		return domain.Update{}, fmt.Errorf("%w: theme rewrites need text, got %s", domain.ErrWrongContentKind, current.Kind())
	}
	theme, err := s.Theme.Resolve()
	if err != nil {
		return domain.Update{}, err
	}
	reflections, err := n.reflections(ctx, false)
	if err != nil {
		return domain.Update{}, err
	}

	body := current.Body()
	var prompt string
	switch t := theme.(type) {
	case domain.LanguageTheme:
		prompt = prompts.ChangeLanguage(t.Language, body, reflections)
	case domain.ReadingLevelTheme:
		prompt = prompts.ChangeReadingLevel(t.Level.Audience(), body, reflections)
	case domain.PirateTheme:
		prompt = prompts.ChangeToPirate(body, reflections)
	case domain.LengthTheme:
		prompt = prompts.ChangeLength(t.Length.Describe(), body, reflections)
	case domain.EmojiTheme:
		prompt = prompts.AddEmojis(body, reflections)
	default:
		return domain.Update{}, fmt.Errorf("%w: %T", domain.ErrNoThemeSelected, theme)
	}

	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step:     "rewriteArtifactTheme",
		Messages: []domain.Message{{Role: domain.RoleHuman, Content: prompt}},
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("theme rewrite: %w", err)
	}
	text, thinking := n.splitThinking(text)
	return domain.Update{
		Artifact: s.Artifact.Append(current.WithBody(text)),
		Messages: thinking,
	}, nil
}

// RewriteCodeArtifactTheme applies the selected code action to a code
// artifact. Porting also retags the revision with the target language.
func (n *Nodes) RewriteCodeArtifactTheme(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	current := s.Artifact.Current()
	if current == nil {
		return domain.Update{}, domain.ErrNoArtifact
	}
	code, ok := current.(domain.CodeContent)
	if !ok {
		return domain.Update{}, fmt.Errorf("%w: code actions need code, got %s", domain.ErrWrongContentKind, current.Kind())
	}
	action, err := s.CodeAction.Resolve()
	if err != nil {
		return domain.Update{}, err
	}

	var prompt string
	switch a := action.(type) {
	case domain.AddCommentsAction:
		prompt = prompts.AddComments(code.Code)
	case domain.AddLogsAction:
		prompt = prompts.AddLogs(code.Code)
	case domain.FixBugsAction:
		prompt = prompts.FixBugs(code.Code)
	case domain.PortLanguageAction:
		prompt = prompts.PortLanguage(string(a.Language), code.Code)
		code.Language = a.Language
	default:
		return domain.Update{}, fmt.Errorf("%w: %T", domain.ErrNoCodeActionSelected, action)
	}

	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step:     "rewriteCodeArtifactTheme",
		Messages: []domain.Message{{Role: domain.RoleHuman, Content: prompt}},
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("code rewrite: %w", err)
	}
	text, thinking := n.splitThinking(text)
	code.Code = text
	return domain.Update{
		Artifact: s.Artifact.Append(code),
		Messages: thinking,
	}, nil
}
