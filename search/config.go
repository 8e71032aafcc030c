package search

import (
	"fmt"
	"time"

	"github.com/poiesic/policygraph/core"
)

// Config tunes retrieval and ranking. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	Alpha               float64       `yaml:"alpha" json:"alpha"`
	TopK                int           `yaml:"top_k" json:"top_k"`
	HopLimit            int           `yaml:"hop_limit" json:"hop_limit"`
	MismatchFactor      float64       `yaml:"mismatch_factor" json:"mismatch_factor"`
	CandidateMultiplier int           `yaml:"candidate_multiplier" json:"candidate_multiplier"`
	RetrieverTimeout    time.Duration `yaml:"retriever_timeout" json:"retriever_timeout"`

	// AllowDegraded lets a search continue on one signal when the other
	// retriever fails with a transient error.
	AllowDegraded bool `yaml:"allow_degraded" json:"allow_degraded"`

	// PrefilterVector runs the graph retriever first and restricts the
	// vector search to its results.
	PrefilterVector bool `yaml:"prefilter_vector" json:"prefilter_vector"`

	// ExpandReferences attaches cross-referenced clauses to responses.
	ExpandReferences bool `yaml:"expand_references" json:"expand_references"`

	// SelectArticle asks the searcher's article selector for the single
	// best clause after ranking and keeps only its items. References are
	// then expanded from that clause alone.
	SelectArticle bool `yaml:"select_article" json:"select_article"`
}

// DefaultConfig returns the balanced defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:               0.5,
		TopK:                10,
		HopLimit:            2,
		MismatchFactor:      0.5,
		CandidateMultiplier: 2,
		RetrieverTimeout:    10 * time.Second,
		ExpandReferences:    true,
	}
}

// Validate checks every field range.
func (c Config) Validate() error {
	if err := c.RankParams(core.IntentGeneral).Validate(); err != nil {
		return err
	}
	if c.HopLimit < 0 {
		return fmt.Errorf("%w: hop_limit must not be negative, got %d", core.ErrInvalidParameter, c.HopLimit)
	}
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("%w: candidate_multiplier must be at least 1, got %d", core.ErrInvalidParameter, c.CandidateMultiplier)
	}
	if c.RetrieverTimeout <= 0 {
		return fmt.Errorf("%w: retriever_timeout must be positive, got %s", core.ErrInvalidParameter, c.RetrieverTimeout)
	}
	return nil
}

// RankParams derives ranker parameters for an intent.
func (c Config) RankParams(intent core.Intent) RankParams {
	return RankParams{
		Alpha:          c.Alpha,
		Intent:         intent,
		TopK:           c.TopK,
		MismatchFactor: c.MismatchFactor,
	}
}

// candidates is the per-retriever fetch size.
func (c Config) candidates() int {
	return c.TopK * c.CandidateMultiplier
}
