package core

import "strings"

// ClauseType classifies a clause or sub-chunk. Classification comes from a
// probabilistic upstream classifier, so Uncategorized is always possible.
type ClauseType int

const (
	ClauseTypeUncategorized ClauseType = iota
	ClauseTypeCoverage
	ClauseTypeExclusion
	ClauseTypeCondition
	ClauseTypeDefinition
	ClauseTypeProcedure
	ClauseTypeDeductible
	ClauseTypeLimit
)

var clauseTypeNames = map[ClauseType]string{
	ClauseTypeUncategorized: "uncategorized",
	ClauseTypeCoverage:      "coverage",
	ClauseTypeExclusion:     "exclusion",
	ClauseTypeCondition:     "condition",
	ClauseTypeDefinition:    "definition",
	ClauseTypeProcedure:     "procedure",
	ClauseTypeDeductible:    "deductible",
	ClauseTypeLimit:         "limit",
}

// ClauseTypes lists every categorized clause type in declaration order.
var ClauseTypes = []ClauseType{
	ClauseTypeCoverage,
	ClauseTypeExclusion,
	ClauseTypeCondition,
	ClauseTypeDefinition,
	ClauseTypeProcedure,
	ClauseTypeDeductible,
	ClauseTypeLimit,
}

func (t ClauseType) String() string {
	if name, ok := clauseTypeNames[t]; ok {
		return name
	}
	return clauseTypeNames[ClauseTypeUncategorized]
}

// ParseClauseType maps a classifier label to a ClauseType. Labels are matched
// case-insensitively; anything unknown, including "general", is Uncategorized.
func ParseClauseType(s string) ClauseType {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range clauseTypeNames {
		if name == s {
			return t
		}
	}
	return ClauseTypeUncategorized
}

// MarshalText implements encoding.TextMarshaler.
func (t ClauseType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ClauseType) UnmarshalText(b []byte) error {
	*t = ParseClauseType(string(b))
	return nil
}

// Intent is the classified purpose of a question.
type Intent int

const (
	IntentGeneral Intent = iota
	IntentCoverage
	IntentExclusion
	IntentCondition
	IntentDeductible
	IntentLimit
	IntentDefinition
	IntentProcedure
)

var intentNames = map[Intent]string{
	IntentGeneral:    "general",
	IntentCoverage:   "coverage",
	IntentExclusion:  "exclusion",
	IntentCondition:  "condition",
	IntentDeductible: "deductible",
	IntentLimit:      "limit",
	IntentDefinition: "definition",
	IntentProcedure:  "procedure",
}

var intentClauseTypes = map[Intent]ClauseType{
	IntentCoverage:   ClauseTypeCoverage,
	IntentExclusion:  ClauseTypeExclusion,
	IntentCondition:  ClauseTypeCondition,
	IntentDeductible: ClauseTypeDeductible,
	IntentLimit:      ClauseTypeLimit,
	IntentDefinition: ClauseTypeDefinition,
	IntentProcedure:  ClauseTypeProcedure,
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return intentNames[IntentGeneral]
}

// ClauseType returns the clause type an intent asks about.
// The second return is false for IntentGeneral.
func (i Intent) ClauseType() (ClauseType, bool) {
	t, ok := intentClauseTypes[i]
	return t, ok
}

// ParseIntent maps a label to an Intent; unknown labels become IntentGeneral.
func ParseIntent(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range intentNames {
		if name == s {
			return i
		}
	}
	return IntentGeneral
}

// MarshalText implements encoding.TextMarshaler.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Intent) UnmarshalText(b []byte) error {
	*i = ParseIntent(string(b))
	return nil
}
