package qa

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/policygraph/core"
)

// SpecialClauseLister lists the special clauses of a store.
// storage.ClauseRepository implements it.
type SpecialClauseLister interface {
	ListSpecialClauses(ctx context.Context) ([]*core.SpecialClause, error)
}

// WithSpecialClauses resolves the analyzer's free-text special clause names
// against the stored special clauses before searching.
func WithSpecialClauses(lister SpecialClauseLister) Option {
	return func(e *Engine) error {
		e.specials = lister
		return nil
	}
}

// riderSuffixes are stripped from names before matching, longest first.
var riderSuffixes = []string{"특별약관", "특약", "약관", "rider"}

// riderKey folds a special clause name for fuzzy matching: lower case,
// no spaces or punctuation, no trailing rider suffix.
func riderKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	key := b.String()
	for _, suffix := range riderSuffixes {
		if trimmed := strings.TrimSuffix(key, suffix); trimmed != key && trimmed != "" {
			return trimmed
		}
	}
	return key
}

// resolveSpecialClause maps name onto the stored special clause it most
// likely means. Exact names win; otherwise the folded name or code must
// contain, or be contained in, the folded query. The longest overlap wins
// and a tie between different clauses resolves to nothing. It returns ""
// when no special clause matches.
func resolveSpecialClause(name string, specials []*core.SpecialClause) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, s := range specials {
		if s.Name == name {
			return s.Name
		}
	}

	key := riderKey(name)
	if key == "" {
		return ""
	}
	best, bestLen, tied := "", 0, false
	for _, s := range specials {
		overlap := 0
		for _, candidate := range []string{s.Name, s.Code} {
			k := riderKey(candidate)
			if k == "" {
				continue
			}
			if strings.Contains(k, key) || strings.Contains(key, k) {
				overlap = max(overlap, min(len([]rune(k)), len([]rune(key))))
			}
		}
		switch {
		case overlap == 0:
		case overlap > bestLen:
			best, bestLen, tied = s.Name, overlap, false
		case overlap == bestLen && s.Name != best:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}

// resolveSpecial applies resolveSpecialClause when a lister is configured.
// A listing failure keeps the analyzer's name.
func (e *Engine) resolveSpecial(ctx context.Context, name string) string {
	if e.specials == nil || strings.TrimSpace(name) == "" {
		return name
	}
	specials, err := e.specials.ListSpecialClauses(ctx)
	if err != nil {
		e.logger.Warn("error listing special clauses", "err", err)
		return name
	}
	resolved := resolveSpecialClause(name, specials)
	switch {
	case resolved == "":
		e.logger.Debug("dropping unknown special clause", "special_clause", name)
	case resolved != name:
		e.logger.Debug("resolved special clause", "special_clause", name, "resolved", resolved)
	}
	return resolved
}
