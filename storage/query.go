package storage

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/poiesic/policygraph/core"
)

// Predicate is a typed clause filter. Engines translate predicates into
// their own query language; Matches is the reference semantics every
// engine must agree with.
type Predicate interface {
	// Matches reports whether the clause satisfies the predicate.
	Matches(c *core.Clause) bool

	// Empty reports whether the predicate has no input and therefore
	// cannot be evaluated.
	Empty() bool

	fmt.Stringer
}

// TypeIn matches clauses whose type is one of the listed types.
type TypeIn []core.ClauseType

func (p TypeIn) Matches(c *core.Clause) bool {
	return slices.Contains(p, c.Type)
}

func (p TypeIn) Empty() bool { return len(p) == 0 }

func (p TypeIn) String() string {
	names := make([]string, len(p))
	for i, t := range p {
		names[i] = t.String()
	}
	return "type in (" + strings.Join(names, ",") + ")"
}

// TextContains matches clauses whose title or text contains any of the
// keywords, case-insensitively. Build it with NewTextContains so keywords
// are lower-cased.
type TextContains []string

// NewTextContains trims, lower-cases and deduplicates keywords, dropping blanks.
func NewTextContains(keywords ...string) TextContains {
	return TextContains(normalizeTerms(keywords, true))
}

func (p TextContains) Matches(c *core.Clause) bool {
	title := strings.ToLower(c.Title)
	text := strings.ToLower(c.Text)
	for _, kw := range p {
		if strings.Contains(title, kw) || strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (p TextContains) Empty() bool { return len(p) == 0 }

func (p TextContains) String() string {
	return "text contains any (" + strings.Join(p, ",") + ")"
}

// RiskTypeIn matches clauses linked to any of the listed risk types.
// Risk types compare exactly.
type RiskTypeIn []string

// NewRiskTypeIn trims and deduplicates risk types, dropping blanks.
func NewRiskTypeIn(riskTypes ...string) RiskTypeIn {
	return RiskTypeIn(normalizeTerms(riskTypes, false))
}

func (p RiskTypeIn) Matches(c *core.Clause) bool {
	for _, r := range c.RiskTypes {
		if slices.Contains(p, r) {
			return true
		}
	}
	return false
}

func (p RiskTypeIn) Empty() bool { return len(p) == 0 }

func (p RiskTypeIn) String() string {
	return "risk type in (" + strings.Join(p, ",") + ")"
}

// Query selects clauses matching any of its predicates, optionally
// restricted to the clauses owned by one special clause.
//
//	q := storage.NewQuery().
//	    Where(storage.TypeIn{core.ClauseTypeExclusion}).
//	    Where(storage.NewTextContains("화재")).
//	    OwnedBy("도난위험 특별약관")
type Query struct {
	anyOf   []Predicate
	ownedBy string
	limit   int
}

// NewQuery returns an empty query that matches every clause.
func NewQuery() *Query {
	return &Query{}
}

// Where adds a predicate; predicates are OR-combined. Empty predicates are
// ignored.
func (q *Query) Where(p Predicate) *Query {
	if p != nil && !p.Empty() {
		q.anyOf = append(q.anyOf, p)
	}
	return q
}

// OwnedBy restricts the query to clauses owned by the named special clause.
func (q *Query) OwnedBy(name string) *Query {
	q.ownedBy = strings.TrimSpace(name)
	return q
}

// Limit caps the number of clauses returned; 0 means unlimited.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		n = 0
	}
	q.limit = n
	return q
}

// Predicates returns the OR-combined predicates.
func (q *Query) Predicates() []Predicate {
	return q.anyOf
}

// Owner returns the special clause restriction, or "".
func (q *Query) Owner() string {
	return q.ownedBy
}

// MaxResults returns the result cap, or 0 for unlimited.
func (q *Query) MaxResults() int {
	return q.limit
}

// Match reports whether a clause satisfies the query. A query without
// predicates matches every clause allowed by the owner restriction.
func (q *Query) Match(c *core.Clause) bool {
	if q.ownedBy != "" && c.SpecialClause != q.ownedBy {
		return false
	}
	if len(q.anyOf) == 0 {
		return true
	}
	for _, p := range q.anyOf {
		if p.Matches(c) {
			return true
		}
	}
	return false
}

func (q *Query) String() string {
	parts := make([]string, len(q.anyOf))
	for i, p := range q.anyOf {
		parts[i] = p.String()
	}
	s := strings.Join(parts, " or ")
	if s == "" {
		s = "all"
	}
	if q.ownedBy != "" {
		s += " owned by " + q.ownedBy
	}
	return s
}

func normalizeTerms(terms []string, lower bool) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if lower {
			t = strings.ToLower(t)
		}
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// IDSet is a set of clause or sub-chunk identifiers.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s IDSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AllowsChunk reports whether a restriction admits a chunk. A nil set
// admits everything.
func (s IDSet) AllowsChunk(c *core.SubChunk) bool {
	if s == nil {
		return true
	}
	return s.Has(c.ID) || s.Has(c.ClauseID)
}
