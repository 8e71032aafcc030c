package openai

import (
	"context"
	"strings"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
)

// QueryAnalyzer implements ai.QueryAnalyzer using OpenAI-compatible chat APIs.
type QueryAnalyzer struct {
	chat   *chat
	prompt string
}

// analysis matches the JSON structure requested from the model.
type analysis struct {
	Intent          string   `json:"intent"`
	Keywords        []string `json:"keywords"`
	RiskTypes       []string `json:"risk_types"`
	SpecialClause   *string  `json:"special_clause"`
	ClauseMentioned *string  `json:"clause_mentioned"`
}

func newQueryAnalyzer(config *ai.Config) (*QueryAnalyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c, err := newChat(config, "openai-analyzer")
	if err != nil {
		return nil, err
	}
	return &QueryAnalyzer{chat: c, prompt: buildAnalysisPrompt()}, nil
}

// NewQueryAnalyzer creates a query analyzer using the provided configuration.
//
// Returns ai.QueryAnalyzer interface to enforce abstraction.
func NewQueryAnalyzer(config *ai.Config) (ai.QueryAnalyzer, error) {
	return newQueryAnalyzer(config)
}

// Analyze asks the model for the structured form of question.
func (a *QueryAnalyzer) Analyze(ctx context.Context, question string) (ai.QueryAnalysis, error) {
	var result analysis
	if err := a.chat.generateJSON(ctx, a.prompt, scrubQuestion(question), &result); err != nil {
		return ai.QueryAnalysis{}, err
	}

	out := toQueryAnalysis(result, question)
	a.chat.logger.Debug("analyzed question",
		"intent", out.Intent,
		"keywords", out.Keywords,
		"special_clause", out.SpecialClause)
	return out, nil
}

func toQueryAnalysis(r analysis, question string) ai.QueryAnalysis {
	return ai.QueryAnalysis{
		Intent:          core.ParseIntent(r.Intent),
		Keywords:        cleanList(r.Keywords),
		RiskTypes:       cleanList(r.RiskTypes),
		SpecialClause:   optional(r.SpecialClause),
		ClauseMentioned: strings.Join(strings.Fields(optional(r.ClauseMentioned)), ""),
		RawQuestion:     question,
	}
}

// optional maps nil and the literal "null" some models emit to "".
func optional(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
