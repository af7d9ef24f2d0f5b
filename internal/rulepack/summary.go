package rulepack

import (
	"strings"
	"time"
)

// Result is the overall outcome of one executor call
type Result string

const (
	ResultAllow      Result = "ALLOW"
	ResultBlock      Result = "BLOCK"
	ResultExit       Result = "EXIT"
	ResultUpdateStop Result = "UPDATE_STOP"
)

// RuleRef identifies a rule that contributed to the outcome
type RuleRef struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// RuleFailure records a rule whose evaluation failed. The rule counts as
// not triggered; the failure rides along so callers can apply their
// fail-closed or fail-safe policy.
type RuleFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Summary is the outcome of one Execute call, produced once and consumed
// immediately by the caller.
type Summary struct {
	Result    Result        `json:"result"`
	Triggered []RuleRef     `json:"triggered,omitempty"`
	Warnings  []RuleRef     `json:"warnings,omitempty"`
	Failures  []RuleFailure `json:"failures,omitempty"`
	Stop      float64       `json:"stop,omitempty"`
	HasStop   bool          `json:"has_stop,omitempty"`
	Evaluated int           `json:"evaluated"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Allowed reports whether the call concluded without a block or exit
func (s *Summary) Allowed() bool {
	return s.Result == ResultAllow
}

// TriggeredIDs returns the ids of the rules behind the outcome
func (s *Summary) TriggeredIDs() []string {
	ids := make([]string, 0, len(s.Triggered))
	for _, r := range s.Triggered {
		ids = append(ids, r.ID)
	}
	return ids
}

// Reason joins the triggered rule messages into one human-readable string.
// Empty when nothing fired.
func (s *Summary) Reason() string {
	if len(s.Triggered) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.Triggered))
	for _, r := range s.Triggered {
		if r.Message != "" {
			parts = append(parts, r.Message)
		} else {
			parts = append(parts, r.ID)
		}
	}
	return strings.Join(parts, "; ")
}

// HadFailures reports whether any rule failed to evaluate during the call
func (s *Summary) HadFailures() bool {
	return len(s.Failures) > 0
}
