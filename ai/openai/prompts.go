package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/core"
)

const analysisResponseSchema = `{
  "type": "object",
  "properties": {
    "intent": {"type": "string", "enum": [%s]},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "risk_types": {"type": "array", "items": {"type": "string"}},
    "special_clause": {"type": ["string", "null"]},
    "clause_mentioned": {"type": ["string", "null"]}
  },
  "required": ["intent", "keywords", "risk_types", "special_clause", "clause_mentioned"],
  "additionalProperties": false
}`

const analysisPromptTemplate = `You are an expert at analyzing insurance policy questions.

Analyze the question and extract:
1. Intent: what the user is asking about.
   - "coverage": what is covered or compensated
   - "exclusion": what is NOT covered
   - "condition": conditions or requirements
   - "procedure": claim procedures
   - "deductible": self-payment amounts
   - "limit": coverage limits
   - "definition": term definitions
   - "general": anything else
2. Keywords: important terms, in Korean.
3. Risk types: risks mentioned (화재, 도난, 풍수해, 지진 etc).
4. Special clause: the name of a specific special clause (특약) if one is mentioned.
5. Clause number: a specific clause number if one is mentioned (e.g. 제11조).

Output ONLY valid JSON which complies with this schema. Use null for absent values.
Do not include any preamble or text outside the object.

%s

Example:
Input: "도난위험 특약에서 보상하지 않는 손해는?"
Output:
{"intent":"exclusion","keywords":["도난","보상하지 않는 손해"],"risk_types":["도난"],"special_clause":"도난위험 특별약관","clause_mentioned":null}`

const synthesisResponseSchema = `{
  "type": "object",
  "properties": {
    "answer": {"type": "string"},
    "coverage": {"type": "array", "items": {"type": "string"}},
    "exclusions": {"type": "array", "items": {"type": "string"}},
    "conditions": {"type": "array", "items": {"type": "string"}},
    "citations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "clause_id": {"type": "string"},
          "title": {"type": "string"},
          "text": {"type": "string"}
        },
        "required": ["clause_id", "title"]
      }
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["answer", "citations", "confidence"]
}`

const synthesisPromptTemplate = `You are an insurance policy expert assistant.

Answer the user's question using ONLY the retrieved policy clauses.

Rules:
1. Cite the specific clause (조항) for each statement.
2. Separate coverage (보상내용), exclusions (면책사항) and conditions (조건/요건).
3. Use clear, professional Korean.
4. If the clauses do not contain the answer, say so clearly and lower the confidence.

Output ONLY valid JSON which complies with this schema:

%s`

func buildAnalysisPrompt() string {
	names := make([]string, 0, 8)
	for _, i := range []core.Intent{
		core.IntentCoverage, core.IntentExclusion, core.IntentCondition,
		core.IntentProcedure, core.IntentDeductible, core.IntentLimit,
		core.IntentDefinition, core.IntentGeneral,
	} {
		names = append(names, `"`+i.String()+`"`)
	}
	return fmt.Sprintf(analysisPromptTemplate,
		fmt.Sprintf(analysisResponseSchema, strings.Join(names, ", ")))
}

func buildSynthesisPrompt() string {
	return fmt.Sprintf(synthesisPromptTemplate, synthesisResponseSchema)
}

func buildSynthesisInput(question string, evidence []ai.Evidence) string {
	return "Question: " + question + "\n\nRetrieved Policy Clauses:\n" + ai.FormatEvidence(evidence)
}

const selectionResponseSchema = `{
  "type": "object",
  "properties": {
    "selected_index": {"type": "integer", "minimum": 1},
    "reason": {"type": "string"}
  },
  "required": ["selected_index", "reason"]
}`

const selectionPromptTemplate = `You are an insurance policy expert.

You are given a user question and candidate policy clauses (조항) that may answer it.
Select the ONE clause that is most relevant to the question.

Output ONLY valid JSON which complies with this schema. selected_index is the
1-based number of the chosen candidate and reason is one sentence in Korean.

%s`

func buildSelectionPrompt() string {
	return fmt.Sprintf(selectionPromptTemplate, selectionResponseSchema)
}

func buildSelectionInput(question string, candidates []ai.ArticleCandidate) string {
	return "Question: " + question + "\n\nCandidate Clauses:\n" + ai.FormatCandidates(candidates)
}
