package domain

import (
	"fmt"
	"strings"
)

// Scoring thresholds for the refinement loop.
const (
	MaxPageCount       = 3
	MaxIterations      = 5
	MinAcceptableScore = 90
)

// NoPreviousEvaluation is rendered into the first round's prompt.
const NoPreviousEvaluation = "No previous evaluation results"

// Candidate is one generated page within a round.
type Candidate struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// CandidateID returns the label of the n-th candidate (1-based).
func CandidateID(n int) string {
	return fmt.Sprintf("article_%d", n)
}

// Metric is a weighted evaluation criterion synthesised from the requirements.
type Metric struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Weight      float64  `json:"weight"`
	Criteria    []string `json:"criteria"`
}

// MetricSet is the structured payload of the metrics phase.
type MetricSet struct {
	Metrics []Metric `json:"metrics"`
}

// ScoredComment is a bounded score with a one-sentence justification.
type ScoredComment struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Overall is the aggregate judgement of one candidate.
type Overall struct {
	TotalScore float64  `json:"totalScore"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// CandidateReport is the scoring of one candidate.
type CandidateReport struct {
	ArticleID          string          `json:"articleId"`
	Scores             []ScoredComment `json:"scores"`
	ContentPreferences ScoredComment   `json:"contentPreferences"`
	StylePreferences   ScoredComment   `json:"stylePreferences"`
	Overall            Overall         `json:"overall"`
}

// BestPick designates the winning candidate.
type BestPick struct {
	ArticleID     string  `json:"articleId"`
	TotalScore    float64 `json:"totalScore"`
	Justification string  `json:"justification"`
}

// ScoreReport is the structured payload of the scoring phase.
type ScoreReport struct {
	ArticleComparison []CandidateReport `json:"articleComparison"`
	BestArticle       BestPick          `json:"bestArticle"`
}

// Report returns the comparison entry of the given candidate.
func (r ScoreReport) Report(articleID string) (CandidateReport, bool) {
	for _, a := range r.ArticleComparison {
		if a.ArticleID == articleID {
			return a, true
		}
	}
	return CandidateReport{}, false
}

// BestArticle is the winning candidate with its generated content.
type BestArticle struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Evaluation is the outcome of one round of scoring.
type Evaluation struct {
	Best    BestArticle `json:"bestArticle"`
	Details ScoreReport `json:"details"`
	Metrics MetricSet   `json:"metrics"`
}

// Score returns the best score, treating a missing evaluation as 0.
func (e *Evaluation) Score() float64 {
	if e == nil {
		return 0
	}
	return e.Best.Score
}

// Summary renders the best candidate's sub-scores for the next round's prompt.
func (e *Evaluation) Summary() string {
	if e == nil {
		return NoPreviousEvaluation
	}
	report, ok := e.Details.Report(e.Best.ID)
	if !ok {
		return NoPreviousEvaluation
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nContent Preferences Score: %v\n", report.ContentPreferences.Score)
	fmt.Fprintf(&sb, "Style Preferences Score: %v\n", report.StylePreferences.Score)
	sb.WriteString("Strengths:\n")
	sb.WriteString(bullets(report.Overall.Strengths))
	sb.WriteString("\nWeaknesses:\n")
	sb.WriteString(bullets(report.Overall.Weaknesses))
	sb.WriteString("\n")
	return sb.String()
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = "- " + s
	}
	return strings.Join(lines, "\n")
}
