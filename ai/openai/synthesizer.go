package openai

import (
	"context"

	"github.com/poiesic/policygraph/ai"
)

// DefaultConfidence is used when the model omits a confidence score.
const DefaultConfidence = 0.5

// AnswerSynthesizer implements ai.AnswerSynthesizer using OpenAI-compatible chat APIs.
type AnswerSynthesizer struct {
	chat   *chat
	prompt string
}

type synthesis struct {
	Answer     string        `json:"answer"`
	Coverage   []string      `json:"coverage"`
	Exclusions []string      `json:"exclusions"`
	Conditions []string      `json:"conditions"`
	Citations  []ai.Citation `json:"citations"`
	Confidence *float64      `json:"confidence"`
}

func newAnswerSynthesizer(config *ai.Config) (*AnswerSynthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c, err := newChat(config, "openai-synthesizer")
	if err != nil {
		return nil, err
	}
	return &AnswerSynthesizer{chat: c, prompt: buildSynthesisPrompt()}, nil
}

// NewAnswerSynthesizer creates an answer synthesizer using the provided configuration.
//
// Returns ai.AnswerSynthesizer interface to enforce abstraction.
func NewAnswerSynthesizer(config *ai.Config) (ai.AnswerSynthesizer, error) {
	return newAnswerSynthesizer(config)
}

// Synthesize writes a cited answer from evidence.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, evidence []ai.Evidence) (ai.Answer, error) {
	var result synthesis
	input := buildSynthesisInput(scrubQuestion(question), evidence)
	if err := s.chat.generateJSON(ctx, s.prompt, input, &result); err != nil {
		return ai.Answer{}, err
	}

	answer := toAnswer(result)
	s.chat.logger.Debug("synthesized answer",
		"evidence", len(evidence),
		"citations", len(answer.Citations),
		"confidence", answer.Confidence)
	return answer, nil
}

func toAnswer(r synthesis) ai.Answer {
	answer := ai.Answer{
		Text:       r.Answer,
		Coverage:   cleanList(r.Coverage),
		Exclusions: cleanList(r.Exclusions),
		Conditions: cleanList(r.Conditions),
		Citations:  make([]ai.Citation, 0, len(r.Citations)),
		Confidence: DefaultConfidence,
	}
	if answer.Text == "" {
		answer.Text = "답변을 생성할 수 없습니다."
	}
	for _, c := range r.Citations {
		if c.ClauseID != "" {
			answer.Citations = append(answer.Citations, c)
		}
	}
	if r.Confidence != nil {
		answer.Confidence = min(max(*r.Confidence, 0), 1)
	}
	return answer
}
