// Package policy implements the attribute-based access control (ABAC) policy
// decision point: predicate evaluation, rule combination, and hot-reloadable
// policy sets.
package policy

import "math"

// Effect is the outcome a single rule contributes when it matches.
type Effect string

const (
	// EffectPermit grants the request.
	EffectPermit Effect = "Permit"
	// EffectDeny blocks the request outright.
	EffectDeny Effect = "Deny"
	// EffectChallenge requires a second authentication factor before the
	// request may proceed.
	EffectChallenge Effect = "Challenge"
)

// DefaultDenyRuleID is the id of the mandatory implicit terminal rule that
// every PolicySet carries, with the lowest priority and an always-true
// condition.
const DefaultDenyRuleID = "DEFAULT-DENY-01"

// Target is a coarse pre-filter on resource/action, evaluated before the
// full condition. A nil Target always matches.
type Target struct {
	Condition *Expr
}

// Policy is a single immutable rule as published in a PolicySet.
type Policy struct {
	RuleID      string
	Effect      Effect
	Priority    int
	Target      *Target
	Condition   *Expr
	Advice      []string
	Obligations []string
}

// PolicySet is the ordered, immutable collection of rules under evaluation.
// It is always non-empty and always terminates in DefaultDenyRuleID.
// PolicySet must never be mutated after construction; NewPolicySet is the
// only constructor and it defensively copies its input.
type PolicySet struct {
	policies []Policy
}

// NewPolicySet builds an immutable PolicySet from already-sorted policies,
// appending the implicit DEFAULT-DENY-01 terminal rule.
func NewPolicySet(sorted []Policy) *PolicySet {
	out := make([]Policy, len(sorted), len(sorted)+1)
	copy(out, sorted)
	out = append(out, Policy{
		RuleID:    DefaultDenyRuleID,
		Effect:    EffectDeny,
		Priority:  math.MinInt,
		Condition: AlwaysTrue(),
	})
	return &PolicySet{policies: out}
}

// Policies returns the ordered slice of published rules, including the
// terminal DEFAULT-DENY-01 rule. Callers must treat the result as read-only;
// it is not defensively copied for evaluation-hot-path performance, but the
// backing array is never mutated in place after publication.
func (ps *PolicySet) Policies() []Policy {
	return ps.policies
}

// Len returns the number of rules including the terminal deny rule.
func (ps *PolicySet) Len() int {
	return len(ps.policies)
}
