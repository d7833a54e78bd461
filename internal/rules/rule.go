package rules

import "fmt"

// RuleType determines how a rule's path is compared with a candidate path.
type RuleType string

const (
	// RuleTypeFile matches a single file by exact path.
	RuleTypeFile RuleType = "file"
	// RuleTypeFolder matches a folder and everything below it.
	RuleTypeFolder RuleType = "folder"
)

// ParseRuleType converts user input into a RuleType.
func ParseRuleType(s string) (RuleType, error) {
	switch RuleType(s) {
	case RuleTypeFile, RuleTypeFolder:
		return RuleType(s), nil
	default:
		return "", fmt.Errorf("%w: %q (must be 'file' or 'folder')", ErrInvalidRuleType, s)
	}
}

// Rule forces read mode for the files it matches.
type Rule struct {
	// Path is vault-relative. An empty path on a folder rule denotes the vault root.
	Path string   `json:"path"`
	Type RuleType `json:"type"`
}

// DisplayPath returns the path as shown to users, with "/" for the root.
func (r Rule) DisplayPath() string {
	if r.Path == "" {
		return "/"
	}
	return r.Path
}

// RuleSet is an ordered list of rules. Order is kept for editing only;
// any rule may match on its own.
type RuleSet []Rule

// Clone returns a copy that does not share storage with rs.
func (rs RuleSet) Clone() RuleSet {
	if rs == nil {
		return RuleSet{}
	}
	out := make(RuleSet, len(rs))
	copy(out, rs)
	return out
}
