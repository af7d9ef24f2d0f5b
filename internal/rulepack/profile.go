package rulepack

import (
	"sort"
	"sync"
	"time"
)

// RuleStats is a snapshot of one rule's profiling counters
type RuleStats struct {
	RuleID        string    `json:"rule_id"`
	EvalCount     int64     `json:"eval_count"`
	TriggerCount  int64     `json:"trigger_count"`
	LastTriggered time.Time `json:"last_triggered,omitempty"`
}

// statsTable holds per-rule profiling counters. It is written by the
// evaluation path and read concurrently by the reporting path; the mutex is
// the only synchronization. Reads never influence evaluation order or
// outcome.
type statsTable struct {
	mu   sync.Mutex
	byID map[string]*RuleStats
}

func newStatsTable() *statsTable {
	return &statsTable{byID: make(map[string]*RuleStats)}
}

func (t *statsTable) recordEval(ruleID string) {
	t.mu.Lock()
	t.entry(ruleID).EvalCount++
	t.mu.Unlock()
}

func (t *statsTable) recordTrigger(ruleID string) {
	t.mu.Lock()
	s := t.entry(ruleID)
	s.TriggerCount++
	s.LastTriggered = time.Now()
	t.mu.Unlock()
}

// entry returns the stats record for ruleID, creating it if needed.
// Callers must hold the mutex.
func (t *statsTable) entry(ruleID string) *RuleStats {
	s, ok := t.byID[ruleID]
	if !ok {
		s = &RuleStats{RuleID: ruleID}
		t.byID[ruleID] = s
	}
	return s
}

func (t *statsTable) reset() {
	t.mu.Lock()
	t.byID = make(map[string]*RuleStats)
	t.mu.Unlock()
}

func (t *statsTable) get(ruleID string) (RuleStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byID[ruleID]
	if !ok {
		return RuleStats{}, false
	}
	return *s, true
}

func (t *statsTable) snapshot() []RuleStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RuleStats, 0, len(t.byID))
	for _, s := range t.byID {
		out = append(out, *s)
	}
	return out
}

// Stats returns the profiling snapshot for one rule id
func (e *Engine) Stats(ruleID string) (RuleStats, bool) {
	return e.stats.get(ruleID)
}

// AllStats returns a snapshot of every rule's counters, sorted by rule id
func (e *Engine) AllStats() []RuleStats {
	out := e.stats.snapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}

// TopTriggered returns up to n rules ranked by trigger count, ties broken
// by rule id for stable output
func (e *Engine) TopTriggered(n int) []RuleStats {
	out := e.stats.snapshot()
	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggerCount != out[j].TriggerCount {
			return out[i].TriggerCount > out[j].TriggerCount
		}
		return out[i].RuleID < out[j].RuleID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
