package rules

import "errors"

var (
	ErrInvalidRuleType = errors.New("invalid rule type")
	ErrRuleNotFound    = errors.New("rule not found")
)
