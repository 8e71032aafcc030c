package ai

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/poiesic/policygraph/core"
)

// MaxFallbackKeywords caps the keywords ExtractKeywords returns.
const MaxFallbackKeywords = 5

// Particles and connectives to drop when extracting keywords.
var stopWords = map[string]bool{
	"은": true, "는": true, "이": true, "가": true, "을": true, "를": true,
	"의": true, "에": true, "에서": true, "로": true, "으로": true,
	"와": true, "과": true,
}

var clauseNumberPattern = regexp.MustCompile(`제\s*\d+\s*조(?:의\s*\d+)?`)

// tokenize splits text into runs of letters and digits, lowercased.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ExtractKeywords returns up to MaxFallbackKeywords distinct words of more
// than one rune, in order of first appearance, skipping particles.
func ExtractKeywords(text string) []string {
	keywords := make([]string, 0, MaxFallbackKeywords)
	seen := make(map[string]bool)
	for _, word := range tokenize(text) {
		if len(keywords) == MaxFallbackKeywords {
			break
		}
		if stopWords[word] || seen[word] || len([]rune(word)) < 2 {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}

// MentionedClause returns the first clause number such as "제11조" found in
// text with internal spaces removed, or "".
func MentionedClause(text string) string {
	m := clauseNumberPattern.FindString(text)
	return strings.Join(strings.Fields(m), "")
}

// FallbackAnalysis is the analysis used when the query analyzer fails:
// general intent with heuristic keywords.
func FallbackAnalysis(question string) QueryAnalysis {
	return QueryAnalysis{
		Intent:          core.IntentGeneral,
		Keywords:        ExtractKeywords(question),
		RiskTypes:       []string{},
		ClauseMentioned: MentionedClause(question),
		RawQuestion:     question,
	}
}
