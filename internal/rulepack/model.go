// Package rulepack owns the declarative rule layer: the versioned RulePack
// model, its loader, and the executor that evaluates packs against an
// expression context under fixed ordering and monotonic-stop contracts.
package rulepack

import (
	"time"
)

// PackType identifies what a pack of rules governs
type PackType string

const (
	PackRisk       PackType = "risk"
	PackEntry      PackType = "entry"
	PackExit       PackType = "exit"
	PackUpdateStop PackType = "update_stop"
)

// Known reports whether the pack type is one the executor can select.
// Unknown types are accepted at load time for forward compatibility but are
// never selected unless explicitly requested.
func (p PackType) Known() bool {
	switch p {
	case PackRisk, PackEntry, PackExit, PackUpdateStop:
		return true
	default:
		return false
	}
}

// ExecutionOrder is the fixed evaluation order of pack types. A requested
// subset is always filtered to this order, never reordered.
var ExecutionOrder = []PackType{PackExit, PackUpdateStop, PackRisk, PackEntry}

// Severity determines what a fired rule does. Block expressions are pass
// conditions and fire when the expression does not hold; warn and exit
// expressions fire when true; update_stop expressions yield a stop candidate.
type Severity string

const (
	SeverityBlock      Severity = "block"
	SeverityWarn       Severity = "warn"
	SeverityExit       Severity = "exit"
	SeverityUpdateStop Severity = "update_stop"
)

// Valid reports whether the severity is from the closed set
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlock, SeverityWarn, SeverityExit, SeverityUpdateStop:
		return true
	default:
		return false
	}
}

// Rule is one declarative rule inside a pack
type Rule struct {
	ID         string
	Name       string
	Expression string
	Severity   Severity
	Message    string
	Enabled    bool
}

// Pack is an ordered group of rules sharing one pack type
type Pack struct {
	Type        PackType
	Description string
	Rules       []Rule
}

// RulePack is a versioned, immutable collection of packs. It is replaced
// wholesale via Engine.Install, never mutated in place.
type RulePack struct {
	RulesVersion string
	Engine       string
	Packs        []Pack
	LoadedAt     time.Time
}

// PacksOfType returns the packs with the given type, in document order
func (rp *RulePack) PacksOfType(t PackType) []Pack {
	var out []Pack
	for _, p := range rp.Packs {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// RuleCount returns the total number of rules across all packs
func (rp *RulePack) RuleCount() int {
	n := 0
	for _, p := range rp.Packs {
		n += len(p.Rules)
	}
	return n
}
