package policy

import "sync/atomic"

// Decision is the structured outcome of a PDP evaluation: which effect won,
// which matched rules contributed to it, and any advice/obligations those
// rules carried.
type Decision struct {
	Effect      Effect
	Reasons     []string
	Advice      []string
	Obligations []string
}

// Request bundles the (subject, resource, context, action) tuple the PDP
// evaluates.
type Request struct {
	Subject  map[string]interface{}
	Resource map[string]interface{}
	Context  map[string]interface{}
	Action   string
}

// Engine is the rule engine (PDP): it walks a PolicySet snapshot in
// published order and combines matched rules under deny-overrides with
// explicit-permit preference and challenge escalation. Evaluate results are
// cached by request shape, bounded by an LRU ResultCache, and invalidated
// automatically whenever the loader publishes a new PolicySet.
type Engine struct {
	loader   *Loader
	cache    *ResultCache
	lastSeen atomic.Pointer[PolicySet]
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithCacheSize overrides the Engine's default 1000-entry decision cache.
// A size of 0 disables caching entirely.
func WithCacheSize(size int) EngineOption {
	return func(e *Engine) {
		if size <= 0 {
			e.cache = nil
			return
		}
		e.cache = NewResultCache(size)
	}
}

// NewEngine creates an Engine reading PolicySet snapshots from loader.
func NewEngine(loader *Loader, opts ...EngineOption) *Engine {
	e := &Engine{loader: loader, cache: NewResultCache(1000)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one evaluation against the current PolicySet snapshot. It
// never returns an error for malformed attribute shapes — those degrade to
// Undefined/non-match — and the PolicySet is read exactly once so a
// concurrent reload cannot tear the view for this call. Identical requests
// evaluated against the same published PolicySet are served from cache; a
// hot-reload that publishes a new PolicySet invalidates every prior entry.
func (e *Engine) Evaluate(req Request) Decision {
	ps := e.loader.Current()
	if ps == nil || ps.Len() == 0 {
		return Decision{Effect: EffectDeny, Reasons: []string{"ruleId: " + DefaultDenyRuleID}}
	}

	if e.cache == nil {
		return EvaluateSet(ps, req)
	}

	if prev := e.lastSeen.Swap(ps); prev != nil && prev != ps {
		e.cache.Clear()
	}

	key := computeCacheKey(req)
	if d, ok := e.cache.Get(key); ok {
		return d
	}
	d := EvaluateSet(ps, req)
	e.cache.Put(key, d)
	return d
}

// EvaluateSet runs one evaluation against an explicit PolicySet snapshot.
// Split out from Engine.Evaluate so tests and the policy-admin reload path
// can evaluate against a candidate set before publishing it.
func EvaluateSet(ps *PolicySet, req Request) Decision {
	ctx := AttrCtx{Subject: req.Subject, Resource: req.Resource, Context: req.Context, Action: req.Action}

	var matches []matchedRule

	for _, p := range ps.Policies() {
		// The terminal DEFAULT-DENY-01 rule always matches; it never
		// participates in the effect combination below, it is only the
		// fallback when no real rule matched.
		if p.RuleID == DefaultDenyRuleID {
			continue
		}
		if !ruleMatches(p, ctx) {
			continue
		}
		matches = append(matches, matchedRule{policy: p})
	}

	if len(matches) == 0 {
		return Decision{Effect: EffectDeny, Reasons: []string{"ruleId: " + DefaultDenyRuleID}}
	}

	// deny-overrides with explicit-permit preference and challenge escalation.
	var denyIdx = -1
	for i, m := range matches {
		if m.policy.Effect == EffectDeny {
			denyIdx = i
			break
		}
	}
	if denyIdx >= 0 {
		return buildDecision(EffectDeny, matches[:denyIdx+1])
	}

	var challengeIdx = -1
	for i, m := range matches {
		if m.policy.Effect == EffectChallenge {
			challengeIdx = i
			break
		}
	}
	if challengeIdx >= 0 {
		return buildDecision(EffectChallenge, matches[:challengeIdx+1])
	}

	var permitIdx = -1
	for i, m := range matches {
		if m.policy.Effect == EffectPermit {
			permitIdx = i
			break
		}
	}
	if permitIdx >= 0 {
		return buildDecision(EffectPermit, matches[:permitIdx+1])
	}

	// Matched rules whose effect is none of the above, which the grammar
	// does not allow; treat as if nothing matched.
	return Decision{Effect: EffectDeny, Reasons: []string{"ruleId: " + DefaultDenyRuleID}}
}

// ruleMatches evaluates the conjunction of target and condition for one
// rule. Undefined at the top level is treated as non-match, isolating absent
// data from both Permit and Deny rules.
func ruleMatches(p Policy, ctx AttrCtx) bool {
	if p.Target != nil && p.Target.Condition != nil {
		if Eval(p.Target.Condition, ctx) != True {
			return false
		}
	}
	return Eval(p.Condition, ctx) == True
}

// matchedRule pairs a matched Policy for the aggregation step below.
type matchedRule struct{ policy Policy }

// buildDecision takes the list of matched rules up to and including the
// winning rule (inclusive, in evaluation order) and produces the
// contributing-ruleIds/advice/obligations aggregation. Only the rules
// sharing the winning effect contribute reasons/advice/obligations;
// higher-priority matched rules of a *different* effect that preceded the
// winner are not reasons for it, except that a winning Deny's reasons also
// include any higher-priority matched ruleIds that preceded it.
func buildDecision(effect Effect, upToWinner []matchedRule) Decision {
	d := Decision{Effect: effect}
	seenAdvice := make(map[string]bool)
	seenObl := make(map[string]bool)

	if effect == EffectDeny {
		// All matched rules up to and including the first Deny are reasons:
		// the first matched Deny's ruleId plus any higher-priority matched
		// ruleIds that preceded it.
		for _, m := range upToWinner {
			d.Reasons = append(d.Reasons, "ruleId: "+m.policy.RuleID)
			appendUnique(&d.Advice, seenAdvice, m.policy.Advice)
			appendUnique(&d.Obligations, seenObl, m.policy.Obligations)
		}
		return d
	}

	// For Challenge/Permit, only rules sharing the winning effect contribute.
	for _, m := range upToWinner {
		if m.policy.Effect != effect {
			continue
		}
		d.Reasons = append(d.Reasons, "ruleId: "+m.policy.RuleID)
		appendUnique(&d.Advice, seenAdvice, m.policy.Advice)
		appendUnique(&d.Obligations, seenObl, m.policy.Obligations)
	}
	return d
}

func appendUnique(dst *[]string, seen map[string]bool, items []string) {
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		*dst = append(*dst, it)
	}
}
