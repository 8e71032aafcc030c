package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/policygraph/ai"
)

// ErrSelectionOutOfRange indicates the model chose a candidate that was not offered.
var ErrSelectionOutOfRange = errors.New("selected candidate out of range")

// ArticleSelector implements ai.ArticleSelector using OpenAI-compatible chat APIs.
type ArticleSelector struct {
	chat   *chat
	prompt string
}

type selection struct {
	SelectedIndex int    `json:"selected_index"`
	Reason        string `json:"reason"`
}

func newArticleSelector(config *ai.Config) (*ArticleSelector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c, err := newChat(config, "openai-selector")
	if err != nil {
		return nil, err
	}
	return &ArticleSelector{chat: c, prompt: buildSelectionPrompt()}, nil
}

// NewArticleSelector creates a clause selector using the provided configuration.
//
// Returns ai.ArticleSelector interface to enforce abstraction.
func NewArticleSelector(config *ai.Config) (ai.ArticleSelector, error) {
	return newArticleSelector(config)
}

// SelectArticle asks the model which candidate best answers question.
func (s *ArticleSelector) SelectArticle(ctx context.Context, question string, candidates []ai.ArticleCandidate) (int, error) {
	var result selection
	input := buildSelectionInput(scrubQuestion(question), candidates)
	if err := s.chat.generateJSON(ctx, s.prompt, input, &result); err != nil {
		return 0, err
	}
	index, err := toIndex(result, len(candidates))
	if err != nil {
		return 0, err
	}
	s.chat.logger.Debug("selected clause",
		"clause_id", candidates[index].ClauseID,
		"candidates", len(candidates),
		"reason", result.Reason)
	return index, nil
}

// toIndex converts the model's 1-based choice to an index into n candidates.
func toIndex(r selection, n int) (int, error) {
	index := r.SelectedIndex - 1
	if index < 0 || index >= n {
		return 0, fmt.Errorf("%w: %d of %d", ErrSelectionOutOfRange, r.SelectedIndex, n)
	}
	return index, nil
}
