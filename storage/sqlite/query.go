package sqlite

import (
	"strings"

	"github.com/poiesic/policygraph/storage"
)

// translateQuery renders q as a WHERE expression. exact reports whether the
// expression captures every predicate; when it does not the caller must
// filter with q.Match.
func translateQuery(q *storage.Query) (where string, args []any, exact bool) {
	var conds []string
	if owner := q.Owner(); owner != "" {
		conds = append(conds, `special_clause = ?`)
		args = append(args, owner)
	}

	exact = true
	var anyOf []string
	var anyArgs []any
	for _, p := range q.Predicates() {
		expr, pargs, ok := translatePredicate(p)
		if !ok {
			exact = false
			break
		}
		anyOf = append(anyOf, expr)
		anyArgs = append(anyArgs, pargs...)
	}
	if exact && len(anyOf) > 0 {
		conds = append(conds, `(`+strings.Join(anyOf, ` OR `)+`)`)
		args = append(args, anyArgs...)
	}

	return strings.Join(conds, ` AND `), args, exact
}

func translatePredicate(p storage.Predicate) (string, []any, bool) {
	switch p := p.(type) {
	case storage.TypeIn:
		args := make([]any, len(p))
		for i, t := range p {
			args[i] = int(t)
		}
		return `clause_type IN (` + placeholders(len(p)) + `)`, args, true

	case storage.TextContains:
		exprs := make([]string, len(p))
		args := make([]any, 0, len(p)*2)
		for i, kw := range p {
			exprs[i] = `instr(title_folded, ?) > 0 OR instr(text_folded, ?) > 0`
			args = append(args, kw, kw)
		}
		return `(` + strings.Join(exprs, ` OR `) + `)`, args, true

	case storage.RiskTypeIn:
		return `EXISTS (SELECT 1 FROM clause_risk_types r WHERE r.clause_id = clauses.id AND r.risk_type IN (` +
			placeholders(len(p)) + `))`, stringArgs(p), true

	default:
		return "", nil, false
	}
}
