// Package refine implements the generate, evaluate and refine loop that
// produces full page artifacts.
package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// DefaultTemperatures diversify the candidates of a round.
var DefaultTemperatures = []float64{0.5, 0.7, 0.9}

// Generator produces independent candidates from the same prompt.
type Generator struct {
	model        ports.ModelInvoker
	count        int
	temperatures []float64
}

// NewGenerator creates a generator of count candidates per round.
func NewGenerator(model ports.ModelInvoker, count int, temperatures ...float64) *Generator {
	if len(temperatures) == 0 {
		temperatures = DefaultTemperatures
	}
	return &Generator{model: model, count: max(count, 1), temperatures: temperatures}
}

// Generate streams every candidate concurrently and returns once all of
// them are drained. The first failure cancels the others and is returned.
func (g *Generator) Generate(ctx context.Context, iteration int, messages []domain.Message) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, g.count)
	eg, ctx := errgroup.WithContext(ctx)
	for i := range g.count {
		eg.Go(func() error {
			req := ports.ModelRequest{
				Step:        fmt.Sprintf("generateArticleContents_iteration_%d_article_%d", iteration, i+1),
				Messages:    messages,
				Temperature: &g.temperatures[i%len(g.temperatures)],
			}
			var sb strings.Builder
			for chunk, err := range g.model.Stream(ctx, req) {
				if err != nil {
					return fmt.Errorf("candidate %s: %w", domain.CandidateID(i+1), err)
				}
				sb.WriteString(chunk.Delta)
			}
			out[i] = domain.Candidate{ID: domain.CandidateID(i + 1), Content: sb.String()}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
