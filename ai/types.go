package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/policygraph/core"
)

// QueryAnalysis is the structured form of a user question.
type QueryAnalysis struct {
	Intent          core.Intent `json:"intent"`
	Keywords        []string    `json:"keywords"`
	RiskTypes       []string    `json:"risk_types"`
	SpecialClause   string      `json:"special_clause,omitempty"`
	ClauseMentioned string      `json:"clause_mentioned,omitempty"`
	RawQuestion     string      `json:"raw_question"`
}

// Evidence is one retrieved passage handed to the synthesizer.
type Evidence struct {
	ClauseID   string
	Title      string
	ClauseType core.ClauseType
	Text       string
	Score      float64
}

// Format renders evidence as a numbered context block. n is 1-based.
func (e Evidence) Format(n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s - %s\n", n, e.ClauseID, e.Title)
	fmt.Fprintf(&b, "유형: %s\n", e.ClauseType)
	fmt.Fprintf(&b, "내용: %s\n", e.Text)
	return b.String()
}

// FormatEvidence joins formatted evidence with separators.
func FormatEvidence(evidence []Evidence) string {
	parts := make([]string, len(evidence))
	for i, e := range evidence {
		parts[i] = e.Format(i + 1)
	}
	return strings.Join(parts, "\n---\n")
}

// Citation points an answer statement at a clause.
type Citation struct {
	ClauseID string `json:"clause_id"`
	Title    string `json:"title"`
	Text     string `json:"text,omitempty"`
}

// Answer is a synthesized, cited response.
type Answer struct {
	Text       string     `json:"answer"`
	Coverage   []string   `json:"coverage"`
	Exclusions []string   `json:"exclusions"`
	Conditions []string   `json:"conditions"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
}

// ArticleCandidate is one clause offered to an ArticleSelector.
type ArticleCandidate struct {
	ClauseID string
	Title    string
	Text     string
}

// candidatePreviewRunes bounds the clause text shown per candidate.
const candidatePreviewRunes = 200

// Format renders the candidate as a numbered entry with a text preview.
// n is 1-based.
func (c ArticleCandidate) Format(n int) string {
	text := []rune(c.Text)
	preview := string(text[:min(len(text), candidatePreviewRunes)])
	if len(text) > candidatePreviewRunes {
		preview += "..."
	}
	return fmt.Sprintf("%d. %s - %s\n   내용: %s", n, c.ClauseID, c.Title, preview)
}

// FormatCandidates joins formatted candidates with blank lines.
func FormatCandidates(candidates []ArticleCandidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = c.Format(i + 1)
	}
	return strings.Join(parts, "\n\n")
}
