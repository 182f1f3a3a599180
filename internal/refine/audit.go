package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/google/uuid"
)

// RunID names the audit directory of one loop run.
func RunID(now time.Time) string {
	return fmt.Sprintf("rewrite_artifact_set_%s_%s", now.Format("2006-01-02-15-04-05"), uuid.NewString())
}

var fences = strings.NewReplacer("```html\n", "", "```", "")

// StripFences removes html code fences from model output.
func StripFences(s string) string {
	return fences.Replace(s)
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// auditor writes best-effort records of a run. Failures are logged only.
type auditor struct {
	store  ports.AuditStore
	runID  string
	logger *slog.Logger
}

func (a *auditor) put(ctx context.Context, p string, data []byte) {
	if a.store == nil {
		return
	}
	if err := a.store.Put(ctx, a.runID, p, data); err != nil {
		a.logger.WarnContext(ctx, "audit write failed", "run_id", a.runID, "path", p, "err", err)
	}
}

func (a *auditor) putJSON(ctx context.Context, p string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		a.logger.WarnContext(ctx, "audit encode failed", "run_id", a.runID, "path", p, "err", err)
		return
	}
	a.put(ctx, p, data)
}

type roundRecord struct {
	Iteration    int
	Candidates   []domain.Candidate
	Evaluation   *domain.Evaluation
	UserPrompt   string
	SystemPrompt string
	Original     string
	WebDSL       *domain.WebDSL
}

// round persists every candidate of a round with its rating and the prompts
// that produced it.
func (a *auditor) round(ctx context.Context, r roundRecord) {
	dir := fmt.Sprintf("iteration_%d", r.Iteration)
	for i, c := range r.Candidates {
		var rating *domain.CandidateReport
		score := 0.0
		if r.Evaluation != nil {
			if rep, ok := r.Evaluation.Details.Report(c.ID); ok {
				rating = &rep
				score = rep.Overall.TotalScore
			}
		}
		name := fmt.Sprintf("artifact_%d_score_%s", i, formatScore(score))
		a.put(ctx, path.Join(dir, name, name+".html"), []byte(StripFences(c.Content)))
		if rating != nil {
			a.putJSON(ctx, path.Join(dir, name, "rating.json"), rating)
		}
	}
	a.put(ctx, path.Join(dir, "original_artifact.txt"), []byte(r.Original))
	a.putJSON(ctx, path.Join(dir, "user_prompt.json"), r.UserPrompt)
	a.put(ctx, path.Join(dir, "system_prompt.txt"), []byte(r.SystemPrompt))
	if r.Evaluation != nil {
		a.putJSON(ctx, path.Join(dir, "evaluation_results.json"), r.Evaluation)
	}
	if r.WebDSL != nil {
		a.putJSON(ctx, path.Join(dir, "web_dsl.json"), r.WebDSL)
	}
}

// best persists the winning candidate at the root of the run.
func (a *auditor) best(ctx context.Context, rounds int, best *domain.Evaluation, userPrompt string) {
	if best == nil {
		return
	}
	score := 0.0
	rating, ok := best.Details.Report(best.Best.ID)
	if ok {
		score = rating.Overall.TotalScore
	}
	name := fmt.Sprintf("iterations_%d_%s_score_%s.html", rounds, best.Best.ID, formatScore(score))
	a.put(ctx, name, []byte(StripFences(best.Best.Content)))
	if ok {
		a.putJSON(ctx, "rating.json", rating)
	}
	a.putJSON(ctx, "user_prompt.json", userPrompt)
}
