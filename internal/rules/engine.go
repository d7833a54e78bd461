package rules

import "strings"

// MatchResult represents the outcome of matching a path against a RuleSet.
type MatchResult struct {
	// Matched indicates whether the path should open in read mode.
	Matched bool

	// Index is the position of the first matching rule, or -1.
	Index int

	// Rule is the first matching rule. Zero value when nothing matched.
	Rule Rule
}

// NewNoMatchResult creates a result for a path that no rule matched.
func NewNoMatchResult() MatchResult {
	return MatchResult{
		Matched: false,
		Index:   -1,
	}
}

// NewMatchedResult creates a result for a path matched by rules[index].
func NewMatchedResult(index int, rule Rule) MatchResult {
	return MatchResult{
		Matched: true,
		Index:   index,
		Rule:    rule,
	}
}

// ShouldOpenInReadMode reports whether candidate matches any rule in rs.
// It never fails and returns false for an empty RuleSet.
func ShouldOpenInReadMode(candidate string, rs RuleSet) bool {
	return Match(candidate, rs).Matched
}

// Match evaluates rs against candidate and reports the first rule that
// matches. Rule order does not change whether a match is found.
func Match(candidate string, rs RuleSet) MatchResult {
	candidate = NormalizePath(candidate)

	for i, rule := range rs {
		if rule.Matches(candidate) {
			return NewMatchedResult(i, rule)
		}
	}

	return NewNoMatchResult()
}

// Matches reports whether the rule applies to candidate. Both paths are
// normalized before comparison.
func (r Rule) Matches(candidate string) bool {
	candidate = NormalizePath(candidate)
	rulePath := NormalizePath(r.Path)

	switch r.Type {
	case RuleTypeFile:
		return candidate == rulePath
	case RuleTypeFolder:
		// The root folder covers the whole vault.
		if rulePath == "" {
			return true
		}
		return candidate == rulePath || strings.HasPrefix(candidate, rulePath+"/")
	default:
		return false
	}
}
