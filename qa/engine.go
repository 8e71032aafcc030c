package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/search"
)

const (
	// FallbackConfidence is reported for excerpt answers built without the
	// synthesizer.
	FallbackConfidence = 0.3

	fallbackPrefix    = "검색된 약관 내용:\n\n"
	fallbackRunes     = 1000
	fallbackCitations = 3
)

// Retriever runs hybrid retrieval for one question. *search.Searcher
// implements it.
type Retriever interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

// Result is the answer to one question.
type Result struct {
	Question             string        `json:"question"`
	Answer               string        `json:"answer"`
	Intent               core.Intent   `json:"intent"`
	Coverage             []string      `json:"coverage,omitempty"`
	Exclusions           []string      `json:"exclusions,omitempty"`
	Conditions           []string      `json:"conditions,omitempty"`
	Citations            []ai.Citation `json:"citations"`
	Confidence           float64       `json:"confidence"`
	RetrievedChunksCount int           `json:"retrieved_chunks_count"`
	SelectedClause       string        `json:"selected_clause,omitempty"`
	Degraded             bool          `json:"degraded,omitempty"`
	RequestID            string        `json:"request_id,omitempty"`
	Error                string        `json:"error,omitempty"` // Set by AskBatch for failed questions

	Analysis   ai.QueryAnalysis      `json:"-"`
	Results    []search.RankedResult `json:"-"`
	References []*core.Clause        `json:"-"`
}

// Engine answers policy questions. It is safe for concurrent use.
type Engine struct {
	retriever   Retriever
	analyzer    ai.QueryAnalyzer
	synthesizer ai.AnswerSynthesizer
	specials    SpecialClauseLister
	concurrency int
	params      *search.Config
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithConcurrency bounds the number of questions AskBatch answers at once.
// Default is 4.
func WithConcurrency(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency must be positive, got %d", core.ErrInvalidParameter, n)
		}
		e.concurrency = n
		return nil
	}
}

// WithSearchConfig overrides the searcher's retrieval parameters for every
// question the engine answers.
func WithSearchConfig(cfg search.Config) Option {
	return func(e *Engine) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.params = &cfg
		return nil
	}
}

// NewEngine creates a question answering engine.
func NewEngine(retriever Retriever, analyzer ai.QueryAnalyzer, synthesizer ai.AnswerSynthesizer, opts ...Option) (*Engine, error) {
	if retriever == nil {
		return nil, ErrSearcherRequired
	}
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	if synthesizer == nil {
		return nil, ErrSynthesizerRequired
	}

	e := &Engine{
		retriever:   retriever,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "qa")
	return e, nil
}

// Ask answers one question.
//
// A search failure returns a Result carrying NoRelevantClausesMessage
// together with an error wrapping ErrNoRelevantClauses and the cause. The
// analyzer's special clause name is resolved against the store first (see
// WithSpecialClauses), so a name that still matches nothing is a search
// failure like any other. core.ErrInvalidParameter and caller cancellation
// are returned unchanged with a nil Result.
func (e *Engine) Ask(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", core.ErrInvalidParameter)
	}
	start := time.Now()

	analysis := e.analyze(ctx, question)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	analysis.SpecialClause = e.resolveSpecial(ctx, analysis.SpecialClause)

	result := &Result{
		Question:  question,
		Intent:    analysis.Intent,
		Citations: []ai.Citation{},
		Analysis:  analysis,
	}

	resp, err := e.retriever.Search(ctx, search.Query{
		Question:        question,
		Intent:          analysis.Intent,
		Keywords:        analysis.Keywords,
		RiskTypes:       analysis.RiskTypes,
		SpecialClause:   analysis.SpecialClause,
		ClauseMentioned: analysis.ClauseMentioned,
		Params:          e.params,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, core.ErrInvalidParameter) {
			return nil, err
		}
		e.logger.Error("error in retrieval", "err", err)
		result.Answer = NoRelevantClausesMessage
		return result, fmt.Errorf("%w: %w", ErrNoRelevantClauses, err)
	}

	result.RequestID = resp.RequestID
	result.Degraded = resp.Degraded
	result.Results = resp.Results
	result.References = resp.References
	result.RetrievedChunksCount = len(resp.Results)
	result.SelectedClause = resp.SelectedClause

	if len(resp.Results) == 0 {
		result.Answer = NoRelevantClausesMessage
		return result, nil
	}

	evidence := BuildEvidence(resp)
	answer, err := e.synthesizer.Synthesize(ctx, question, evidence)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("error in answer synthesis", "request_id", resp.RequestID, "err", err)
		answer = fallbackAnswer(resp.Results, evidence)
	}

	result.Answer = answer.Text
	result.Coverage = answer.Coverage
	result.Exclusions = answer.Exclusions
	result.Conditions = answer.Conditions
	result.Confidence = answer.Confidence
	if answer.Citations != nil {
		result.Citations = answer.Citations
	}

	e.logger.Info("query complete",
		"request_id", resp.RequestID,
		"intent", analysis.Intent.String(),
		"retrieved", result.RetrievedChunksCount,
		"confidence", result.Confidence,
		"elapsed", time.Since(start))
	return result, nil
}

// analyze classifies the question, falling back to keyword heuristics when
// the analyzer fails.
func (e *Engine) analyze(ctx context.Context, question string) ai.QueryAnalysis {
	analysis, err := e.analyzer.Analyze(ctx, question)
	if err != nil {
		e.logger.Warn("error in query understanding, using keyword fallback", "err", err)
		return ai.FallbackAnalysis(question)
	}
	if analysis.RawQuestion == "" {
		analysis.RawQuestion = question
	}
	return analysis
}

// BuildEvidence turns ranked results, followed by the cross-referenced
// clauses, into synthesizer evidence.
func BuildEvidence(resp *search.Response) []ai.Evidence {
	evidence := make([]ai.Evidence, 0, len(resp.Results)+len(resp.References))
	for _, r := range resp.Results {
		e := ai.Evidence{
			ClauseID:   r.ClauseID(),
			ClauseType: r.SemanticType(),
			Text:       r.Text(),
			Score:      r.HybridScore,
		}
		if r.Clause != nil {
			e.Title = r.Clause.Title
			e.ClauseType = r.Clause.Type
		}
		evidence = append(evidence, e)
	}
	for _, c := range resp.References {
		evidence = append(evidence, ai.Evidence{
			ClauseID:   c.ID,
			Title:      c.Title,
			ClauseType: c.Type,
			Text:       c.Text,
		})
	}
	return evidence
}

// fallbackAnswer quotes the evidence directly and cites the top results.
func fallbackAnswer(results []search.RankedResult, evidence []ai.Evidence) ai.Answer {
	citations := make([]ai.Citation, 0, fallbackCitations)
	for _, r := range results[:min(len(results), fallbackCitations)] {
		c := ai.Citation{ClauseID: r.ClauseID()}
		if r.Clause != nil {
			c.Title = r.Clause.Title
		}
		citations = append(citations, c)
	}
	return ai.Answer{
		Text:       fallbackPrefix + truncateRunes(ai.FormatEvidence(evidence), fallbackRunes),
		Citations:  citations,
		Confidence: FallbackConfidence,
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
