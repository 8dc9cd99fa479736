package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
)

// rawDocument is the top-level shape of a policies.json file.
type rawDocument struct {
	Policies []rawPolicy `json:"policies"`
}

type rawPolicy struct {
	RuleID      string          `json:"ruleId"`
	Effect      string          `json:"effect"`
	Priority    *int            `json:"priority"`
	Target      json.RawMessage `json:"target"`
	Condition   json.RawMessage `json:"condition"`
	Advice      []string        `json:"advice"`
	Obligations []string        `json:"obligations"`
}

type rawExpr struct {
	Op     string          `json:"op"`
	Path   string          `json:"path"`
	Value  json.RawMessage `json:"value"`
	Values []interface{}   `json:"values"`
	Low    json.RawMessage `json:"low"`
	High   json.RawMessage `json:"high"`
	Args   []json.RawMessage `json:"args"`
	Arg    json.RawMessage `json:"arg"`
}

var knownOps = map[string]bool{
	string(OpAll): true, string(OpAny): true, string(OpNot): true,
	string(OpEq): true, string(OpNeq): true, string(OpIn): true,
	string(OpContains): true, string(OpGte): true, string(OpGt): true,
	string(OpLte): true, string(OpLt): true, string(OpBetween): true,
	string(OpExists): true,
}

// Loader reads policies.json from a filesystem path, validates it, and
// publishes an immutable PolicySet by atomic reference swap. Concurrent
// readers call Current() and evaluate against the returned snapshot for the
// duration of one evaluation; a concurrent reload never tears that view.
type Loader struct {
	path    string
	current atomic.Pointer[PolicySet]
}

// NewLoader creates a Loader for the given policies.json path. The initial
// Load must be called before Current() returns a non-nil set.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Current returns the currently published PolicySet, or nil if Load has
// never succeeded.
func (l *Loader) Current() *PolicySet {
	return l.current.Load()
}

// Load reads and validates the policy document and publishes it atomically.
// On any failure the previously published PolicySet (if any) is retained
// and the failure is returned to the caller unswapped.
func (l *Loader) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return &PolicyIOError{Path: l.path, Err: err}
	}

	ps, err := ParseDocument(data)
	if err != nil {
		return err
	}

	l.current.Store(ps)
	return nil
}

// ParseDocument parses and validates a policies.json payload into an
// immutable, sorted PolicySet (without publishing it). Exposed separately
// from Load so callers (e.g. startup seeding, tests) can build a PolicySet
// from an in-memory byte slice.
func ParseDocument(data []byte) (*PolicySet, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &PolicyParseError{Err: err}
	}

	seen := make(map[string]bool, len(doc.Policies))
	out := make([]Policy, 0, len(doc.Policies))
	for _, rp := range doc.Policies {
		p, err := convertPolicy(rp)
		if err != nil {
			return nil, err
		}
		if seen[p.RuleID] {
			return nil, &PolicySemanticError{RuleID: p.RuleID, Reason: "duplicate ruleId"}
		}
		seen[p.RuleID] = true
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].RuleID < out[j].RuleID
	})

	return NewPolicySet(out), nil
}

func convertPolicy(rp rawPolicy) (Policy, error) {
	if rp.RuleID == "" {
		return Policy{}, &PolicySemanticError{Reason: "ruleId is required"}
	}
	if rp.RuleID == DefaultDenyRuleID {
		return Policy{}, &PolicySemanticError{RuleID: rp.RuleID, Reason: "ruleId is reserved for the implicit terminal rule"}
	}

	effect := Effect(rp.Effect)
	switch effect {
	case EffectPermit, EffectDeny, EffectChallenge:
	default:
		return Policy{}, &PolicySemanticError{RuleID: rp.RuleID, Reason: fmt.Sprintf("unknown effect %q", rp.Effect)}
	}

	if rp.Priority == nil {
		return Policy{}, &PolicySemanticError{RuleID: rp.RuleID, Reason: "priority is required"}
	}

	if len(rp.Condition) == 0 {
		return Policy{}, &PolicySemanticError{RuleID: rp.RuleID, Reason: "condition is required"}
	}
	cond, err := parseExpr(rp.RuleID, rp.Condition, 0)
	if err != nil {
		return Policy{}, err
	}

	var target *Target
	if len(rp.Target) > 0 {
		texpr, err := parseExpr(rp.RuleID, rp.Target, 0)
		if err != nil {
			return Policy{}, err
		}
		target = &Target{Condition: texpr}
	}

	return Policy{
		RuleID:      rp.RuleID,
		Effect:      effect,
		Priority:    *rp.Priority,
		Target:      target,
		Condition:   cond,
		Advice:      rp.Advice,
		Obligations: rp.Obligations,
	}, nil
}

func parseExpr(ruleID string, raw json.RawMessage, depth int) (*Expr, error) {
	if depth > maxPredicateDepth {
		return nil, &PolicySemanticError{RuleID: ruleID, Reason: "condition nesting too deep"}
	}

	var re rawExpr
	if err := json.Unmarshal(raw, &re); err != nil {
		return nil, &PolicyParseError{Err: err}
	}
	if !knownOps[re.Op] {
		return nil, &PolicySemanticError{RuleID: ruleID, Reason: fmt.Sprintf("unknown operator %q", re.Op)}
	}
	if re.Op != string(OpAll) && re.Op != string(OpAny) && re.Op != string(OpNot) && re.Path == "" {
		return nil, &PolicySemanticError{RuleID: ruleID, Reason: fmt.Sprintf("operator %q requires a path", re.Op)}
	}
	if err := validatePath(re.Path); re.Path != "" && err != nil {
		return nil, &PolicySemanticError{RuleID: ruleID, Reason: err.Error()}
	}

	expr := &Expr{Op: Op(re.Op), Path: re.Path}

	switch Op(re.Op) {
	case OpAll, OpAny:
		if len(re.Args) == 0 {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: fmt.Sprintf("%s requires at least one arg", re.Op)}
		}
		for _, a := range re.Args {
			child, err := parseExpr(ruleID, a, depth+1)
			if err != nil {
				return nil, err
			}
			expr.Operands = append(expr.Operands, child)
		}
	case OpNot:
		if len(re.Arg) == 0 {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: "not requires arg"}
		}
		child, err := parseExpr(ruleID, re.Arg, depth+1)
		if err != nil {
			return nil, err
		}
		expr.Operands = []*Expr{child}
	case OpEq, OpNeq, OpContains:
		lit, err := decodeLiteral(re.Value)
		if err != nil {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: "value: " + err.Error()}
		}
		expr.Literal = lit
	case OpIn:
		if len(re.Values) == 0 {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: "in requires a non-empty values list"}
		}
		expr.List = re.Values
	case OpGte, OpGt, OpLte, OpLt:
		lit, err := decodeLiteral(re.Value)
		if err != nil {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: "value: " + err.Error()}
		}
		if _, ok := lit.(float64); !ok {
			if _, ok := lit.(string); !ok {
				return nil, &PolicySemanticError{RuleID: ruleID, Reason: fmt.Sprintf("%s requires a numeric or parseable literal, got %T", re.Op, lit)}
			}
		}
		expr.Literal = lit
	case OpBetween:
		lo, err := decodeLiteral(re.Low)
		if err != nil {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: "low: " + err.Error()}
		}
		hi, err := decodeLiteral(re.High)
		if err != nil {
			return nil, &PolicySemanticError{RuleID: ruleID, Reason: "high: " + err.Error()}
		}
		expr.List = []interface{}{lo, hi}
	case OpExists:
		// path only, nothing further to validate
	}

	return expr, nil
}

func decodeLiteral(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing literal")
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// validatePath checks an AttributePath is rooted at subject/resource/context
// and has at least one further segment.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty attribute path")
	}
	segs := splitPath(path)
	if len(segs) < 2 {
		return fmt.Errorf("attribute path %q must have at least one segment after its root", path)
	}
	switch segs[0] {
	case "subject", "resource", "context":
		return nil
	default:
		return fmt.Errorf("attribute path %q must be rooted at subject, resource, or context", path)
	}
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}
