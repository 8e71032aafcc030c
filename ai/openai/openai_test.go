package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
)

// scriptedModel replays canned replies in order.
type scriptedModel struct {
	replies []string
	err     error
	calls   int
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[min(m.calls, len(m.replies)-1)]
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newScriptedChat(m *scriptedModel) *chat {
	return &chat{client: m, temperature: 0.1, attempts: 3, logger: slog.Default()}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare", ` {"a":1} `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence after prose", "답변입니다:\n```json\n{\"a\":1}\n```\n감사합니다", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"valid untouched", `{"intent":"coverage","keywords":["화재"]}`, `{"intent":"coverage","keywords":["화재"]}`},
		{"missing opening quote", `{"intent":"coverage", keywords":["화재"]}`, `{"intent":"coverage", "keywords":["화재"]}`},
		{"trailing commas", `{"keywords":["화재","도난",],}`, `{"keywords":["화재","도난"]}`},
		{"comma inside string kept", `{"answer":"화재, }"}`, `{"answer":"화재, }"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestQueryAnalyzer(t *testing.T) {
	ctx := context.Background()

	t.Run("parses analysis", func(t *testing.T) {
		m := &scriptedModel{replies: []string{"```json\n" +
			`{"intent":"exclusion","keywords":["도난"," "],"risk_types":["도난"],` +
			`"special_clause":"도난위험 특별약관","clause_mentioned":"제 2 조"}` + "\n```"}}
		a := &QueryAnalyzer{chat: newScriptedChat(m), prompt: buildAnalysisPrompt()}

		got, err := a.Analyze(ctx, "도난 특약 면책은?")
		require.NoError(t, err)

		assert.Equal(t, ai.QueryAnalysis{
			Intent:          core.IntentExclusion,
			Keywords:        []string{"도난"},
			RiskTypes:       []string{"도난"},
			SpecialClause:   "도난위험 특별약관",
			ClauseMentioned: "제2조",
			RawQuestion:     "도난 특약 면책은?",
		}, got)
	})

	t.Run("nulls and unknown intent", func(t *testing.T) {
		m := &scriptedModel{replies: []string{
			`{"intent":"weather","keywords":[],"risk_types":[],"special_clause":null,"clause_mentioned":"null"}`,
		}}
		a := &QueryAnalyzer{chat: newScriptedChat(m), prompt: buildAnalysisPrompt()}

		got, err := a.Analyze(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, core.IntentGeneral, got.Intent)
		assert.Empty(t, got.SpecialClause)
		assert.Empty(t, got.ClauseMentioned)
	})

	t.Run("retries malformed replies", func(t *testing.T) {
		m := &scriptedModel{replies: []string{
			"not json",
			`{"intent":"coverage","keywords":["화재"],"risk_types":[],"special_clause":null,"clause_mentioned":null}`,
		}}
		a := &QueryAnalyzer{chat: newScriptedChat(m), prompt: buildAnalysisPrompt()}

		got, err := a.Analyze(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, core.IntentCoverage, got.Intent)
		assert.Equal(t, 2, m.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		m := &scriptedModel{replies: []string{"not json"}}
		a := &QueryAnalyzer{chat: newScriptedChat(m), prompt: buildAnalysisPrompt()}

		_, err := a.Analyze(ctx, "q")
		require.Error(t, err)
		assert.Equal(t, 3, m.calls)
	})

	t.Run("transport errors are not retried", func(t *testing.T) {
		boom := errors.New("connection refused")
		m := &scriptedModel{err: boom}
		a := &QueryAnalyzer{chat: newScriptedChat(m), prompt: buildAnalysisPrompt()}

		_, err := a.Analyze(ctx, "q")
		assert.ErrorIs(t, err, boom)
	})
}

func TestAnswerSynthesizer(t *testing.T) {
	ctx := context.Background()
	evidence := []ai.Evidence{{ClauseID: "제3조", Title: "보상하는 손해", ClauseType: core.ClauseTypeCoverage, Text: "화재로 입은 손해"}}

	t.Run("parses answer", func(t *testing.T) {
		m := &scriptedModel{replies: []string{
			`{"answer":"화재 손해를 보상합니다.","coverage":["화재 손해"],"exclusions":[],"conditions":[],` +
				`"citations":[{"clause_id":"제3조","title":"보상하는 손해"},{"clause_id":"","title":"x"}],"confidence":0.9}`,
		}}
		s := &AnswerSynthesizer{chat: newScriptedChat(m), prompt: buildSynthesisPrompt()}

		got, err := s.Synthesize(ctx, "화재 보상?", evidence)
		require.NoError(t, err)
		assert.Equal(t, "화재 손해를 보상합니다.", got.Text)
		assert.Equal(t, []string{"화재 손해"}, got.Coverage)
		assert.Equal(t, []ai.Citation{{ClauseID: "제3조", Title: "보상하는 손해"}}, got.Citations)
		assert.Equal(t, 0.9, got.Confidence)
	})

	t.Run("defaults and clamping", func(t *testing.T) {
		got := toAnswer(synthesis{})
		assert.Equal(t, "답변을 생성할 수 없습니다.", got.Text)
		assert.Equal(t, DefaultConfidence, got.Confidence)

		high := 4.0
		assert.Equal(t, 1.0, toAnswer(synthesis{Answer: "a", Confidence: &high}).Confidence)
	})
}

func TestSynthesisInput(t *testing.T) {
	input := buildSynthesisInput("화재 보상?", []ai.Evidence{
		{ClauseID: "제3조", Title: "보상하는 손해", ClauseType: core.ClauseTypeCoverage, Text: "화재"},
		{ClauseID: "제4조", Title: "보상하지 않는 손해", ClauseType: core.ClauseTypeExclusion, Text: "고의"},
	})

	assert.Contains(t, input, "Question: 화재 보상?")
	assert.Contains(t, input, "[1] 제3조 - 보상하는 손해")
	assert.Contains(t, input, "[2] 제4조 - 보상하지 않는 손해")
	assert.Contains(t, input, "\n---\n")
}

func TestArticleSelector(t *testing.T) {
	ctx := context.Background()
	candidates := []ai.ArticleCandidate{
		{ClauseID: "제3조", Title: "보상하는 손해", Text: "화재로 입은 손해"},
		{ClauseID: "제4조", Title: "보상하지 않는 손해", Text: "고의로 일으킨 손해"},
	}

	t.Run("converts to zero based index", func(t *testing.T) {
		m := &scriptedModel{replies: []string{`{"selected_index":2,"reason":"면책 조항"}`}}
		s := &ArticleSelector{chat: newScriptedChat(m), prompt: buildSelectionPrompt()}

		got, err := s.SelectArticle(ctx, "면책 사유는?", candidates)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("rejects indexes outside the candidates", func(t *testing.T) {
		for _, reply := range []string{`{"selected_index":0,"reason":""}`, `{"selected_index":3,"reason":""}`} {
			m := &scriptedModel{replies: []string{reply}}
			s := &ArticleSelector{chat: newScriptedChat(m), prompt: buildSelectionPrompt()}

			_, err := s.SelectArticle(ctx, "q", candidates)
			assert.ErrorIs(t, err, ErrSelectionOutOfRange, reply)
		}
	})

	t.Run("transport errors pass through", func(t *testing.T) {
		boom := errors.New("connection refused")
		s := &ArticleSelector{chat: newScriptedChat(&scriptedModel{err: boom}), prompt: buildSelectionPrompt()}

		_, err := s.SelectArticle(ctx, "q", candidates)
		assert.ErrorIs(t, err, boom)
	})
}

func TestSelectionInput(t *testing.T) {
	long := strings.Repeat("가", 250)
	input := buildSelectionInput("화재 보상?", []ai.ArticleCandidate{
		{ClauseID: "제3조", Title: "보상하는 손해", Text: long},
		{ClauseID: "제4조", Title: "보상하지 않는 손해", Text: "고의"},
	})

	assert.Contains(t, input, "Question: 화재 보상?")
	assert.Contains(t, input, "1. 제3조 - 보상하는 손해\n   내용: "+strings.Repeat("가", 200)+"...")
	assert.Contains(t, input, "2. 제4조 - 보상하지 않는 손해\n   내용: 고의")
	assert.NotContains(t, input, strings.Repeat("가", 201))
}

func TestProviderValidatesConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)
}
