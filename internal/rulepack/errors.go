package rulepack

import (
	"fmt"
)

// SchemaValidationError reports a structurally invalid rule pack document.
// It always aborts the load; a partially valid pack is never installed.
type SchemaValidationError struct {
	Msg string
}

func (e *SchemaValidationError) Error() string {
	return "rule pack schema validation failed: " + e.Msg
}

func newSchemaError(format string, args ...interface{}) *SchemaValidationError {
	return &SchemaValidationError{Msg: fmt.Sprintf(format, args...)}
}

// DuplicateRuleIDError reports a rule id that appears more than once within
// a single pack
type DuplicateRuleIDError struct {
	PackType PackType
	RuleID   string
}

func (e *DuplicateRuleIDError) Error() string {
	return fmt.Sprintf("duplicate rule id %q in pack %q", e.RuleID, e.PackType)
}
