// Package policy decides whether a proposed vault action is safe to approve
// automatically. It evaluates an ordered list of deny rules and reports every
// rule that fires, not just the first, so an operator auditing the log sees
// all violations at once.
package policy

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vaultsentry/vaultsentry/types"
)

// Rule is a stateless deny predicate over a proposed action. A matching rule
// blocks automatic approval.
type Rule struct {
	ID          string
	Description string
	Matches     func(action types.ProposedAction) bool
}

// Engine evaluates proposed actions against the deny-rule list. Rules may be
// added and removed at runtime; evaluation never short-circuits.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine builds an engine with the built-in rules. trustedDelegateTargets
// is the allowlist consulted by the delegate-call rule; an empty allowlist
// denies every delegate call.
func NewEngine(trustedDelegateTargets []common.Address) *Engine {
	trusted := make(map[common.Address]struct{}, len(trustedDelegateTargets))
	for _, addr := range trustedDelegateTargets {
		trusted[addr] = struct{}{}
	}
	return &Engine{rules: builtinRules(trusted)}
}

// Evaluate runs every rule against the action and collects all matching
// reasons. Pure with respect to the current rule set: the same action always
// yields the same decision.
func (e *Engine) Evaluate(action types.ProposedAction) types.PolicyDecision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var reasons []string
	for _, rule := range e.rules {
		if rule.Matches(action) {
			reasons = append(reasons, fmt.Sprintf("%s: %s", rule.ID, rule.Description))
		}
	}
	return types.PolicyDecision{Denied: len(reasons) > 0, Reasons: reasons}
}

// Add appends a rule to the evaluation order. Duplicate ids are permitted and
// all of them fire; ids are labels, not keys.
func (e *Engine) Add(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// Remove drops every rule with the given id and reports whether any matched.
func (e *Engine) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.rules[:0]
	removed := false
	for _, rule := range e.rules {
		if rule.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rule)
	}
	e.rules = kept
	return removed
}

// RuleIDs returns the ids of the rules in evaluation order.
func (e *Engine) RuleIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, len(e.rules))
	for i, rule := range e.rules {
		ids[i] = rule.ID
	}
	return ids
}
