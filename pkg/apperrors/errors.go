package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidRule     = errors.New("invalid rule")
	ErrUnsupportedKind = errors.New("unsupported rule kind")
)

// RuleError reports a structural problem with a named rule.
// It wraps ErrInvalidRule so callers can match with errors.Is.
type RuleError struct {
	Name   string
	Reason string
}

func (e *RuleError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule %q: %s", e.Name, e.Reason)
}

func (e *RuleError) Unwrap() error {
	return ErrInvalidRule
}

// NewRuleError creates a RuleError for the named rule.
func NewRuleError(name, reason string) *RuleError {
	return &RuleError{Name: name, Reason: reason}
}
