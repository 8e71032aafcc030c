package qa

import "errors"

// NoRelevantClausesMessage is the answer given when nothing relevant could be
// retrieved.
const NoRelevantClausesMessage = "죄송합니다. 관련된 약관 정보를 찾을 수 없습니다."

var (
	// ErrNoRelevantClauses is returned when retrieval failed. The returned
	// Result carries NoRelevantClausesMessage.
	ErrNoRelevantClauses = errors.New("no relevant clauses")

	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrAnalyzerRequired is returned when a query analyzer is not provided.
	ErrAnalyzerRequired = errors.New("query analyzer required")

	// ErrSynthesizerRequired is returned when an answer synthesizer is not provided.
	ErrSynthesizerRequired = errors.New("answer synthesizer required")
)
