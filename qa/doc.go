// Package qa answers policy questions end to end: the question is analyzed,
// the clause store is searched, and a cited answer is synthesized from the
// ranked evidence.
//
// Failures degrade instead of surfacing to the user where possible. A failed
// analysis falls back to keyword heuristics, a failed search yields the fixed
// "no relevant clauses" answer, and a failed synthesis yields the evidence
// excerpt itself. Parameter errors and unknown special clauses are returned
// unchanged.
package qa
