package policy

import (
	"strconv"
	"strings"
)

// Tri is a three-valued logic result: True, False, or Undefined. Missing
// attributes propagate Undefined through comparators rather than silently
// collapsing to False, so a Permit rule that references an absent attribute
// cannot accidentally fire.
type Tri int

const (
	// Undefined means the attribute path did not resolve, or a comparator's
	// operands were not comparable.
	Undefined Tri = iota
	// False means the predicate evaluated definitively false.
	False
	// True means the predicate evaluated definitively true.
	True
)

// Op names the operator of a predicate tree node, matching the JSON
// grammar's "op" discriminator.
type Op string

const (
	OpAll      Op = "all"
	OpAny      Op = "any"
	OpNot      Op = "not"
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpIn       Op = "in"
	OpContains Op = "contains"
	OpGte      Op = "gte"
	OpGt       Op = "gt"
	OpLte      Op = "lte"
	OpLt       Op = "lt"
	OpBetween  Op = "between"
	OpExists   Op = "exists"
)

// maxPredicateDepth bounds recursive nesting of a PredicateExpression tree.
const maxPredicateDepth = 50

// Expr is a node in the recursive PredicateExpression sum type. Exactly one
// shape is populated per Op; which fields are
// meaningful depends on Op, matching the closed grammar rather than a
// generic tagged union.
type Expr struct {
	Op Op

	// all/any/not operands.
	Operands []*Expr

	// eq/neq/in/contains/gte/gt/lte/lt/between/exists operands.
	Path string
	// Literal is the scalar comparison value for eq/neq/gte/gt/lte/lt.
	Literal interface{}
	// List is the membership set for in, or the [lo, hi] pair for between.
	List []interface{}
}

// AlwaysTrue returns an expression that unconditionally evaluates True (an
// "all" with no operands), used for the implicit DEFAULT-DENY-01 rule. An
// absent Target is nil and is skipped by the engine instead.
func AlwaysTrue() *Expr {
	return &Expr{Op: OpAll, Operands: nil}
}

// AttrCtx is the (subject, resource, context) tuple a predicate is evaluated
// against, plus the request's action name.
type AttrCtx struct {
	Subject  map[string]interface{}
	Resource map[string]interface{}
	Context  map[string]interface{}
	Action   string
}

// Eval evaluates expr against ctx under Kleene three-valued semantics.
func Eval(expr *Expr, ctx AttrCtx) Tri {
	return evalDepth(expr, ctx, 0)
}

func evalDepth(expr *Expr, ctx AttrCtx, depth int) Tri {
	if expr == nil {
		return Undefined
	}
	if depth > maxPredicateDepth {
		return Undefined
	}

	switch expr.Op {
	case OpAll:
		return evalAll(expr.Operands, ctx, depth)
	case OpAny:
		return evalAny(expr.Operands, ctx, depth)
	case OpNot:
		if len(expr.Operands) != 1 {
			return Undefined
		}
		switch evalDepth(expr.Operands[0], ctx, depth+1) {
		case True:
			return False
		case False:
			return True
		default:
			return Undefined
		}
	case OpEq:
		return evalEq(expr, ctx)
	case OpNeq:
		return negate(evalEq(expr, ctx))
	case OpIn:
		return evalIn(expr, ctx)
	case OpContains:
		return evalContains(expr, ctx)
	case OpGte, OpGt, OpLte, OpLt:
		return evalNumericCompare(expr, ctx)
	case OpBetween:
		return evalBetween(expr, ctx)
	case OpExists:
		_, ok := resolvePath(expr.Path, ctx)
		return triOf(ok)
	default:
		return Undefined
	}
}

// evalAll implements logical AND: False dominates (even alongside Undefined
// siblings), otherwise any Undefined operand makes the whole conjunction
// Undefined, otherwise True.
func evalAll(operands []*Expr, ctx AttrCtx, depth int) Tri {
	sawUndefined := false
	for _, op := range operands {
		switch evalDepth(op, ctx, depth+1) {
		case False:
			return False
		case Undefined:
			sawUndefined = true
		}
	}
	if sawUndefined {
		return Undefined
	}
	return True
}

// evalAny implements logical OR: True dominates, otherwise any Undefined
// operand makes the whole disjunction Undefined, otherwise False.
func evalAny(operands []*Expr, ctx AttrCtx, depth int) Tri {
	sawUndefined := false
	for _, op := range operands {
		switch evalDepth(op, ctx, depth+1) {
		case True:
			return True
		case Undefined:
			sawUndefined = true
		}
	}
	if sawUndefined {
		return Undefined
	}
	return False
}

func negate(t Tri) Tri {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Undefined
	}
}

func triOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

// evalEq implements eq(path, literal). Equality on strings is case-sensitive
// except when path's final segment is "userName", which compares
// case-insensitively.
func evalEq(expr *Expr, ctx AttrCtx) Tri {
	val, ok := resolvePath(expr.Path, ctx)
	if !ok {
		return Undefined
	}
	return triOf(valuesEqual(expr.Path, val, expr.Literal))
}

func valuesEqual(path string, a, b interface{}) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		if isUserNamePath(path) {
			return strings.EqualFold(as, bs)
		}
		return as == bs
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	return a == b
}

func isUserNamePath(path string) bool {
	segs := strings.Split(path, ".")
	return len(segs) > 0 && segs[len(segs)-1] == "userName"
}

// evalIn implements in(path, list): membership for a scalar attribute, or
// non-empty set intersection when the attribute itself resolves to a list.
func evalIn(expr *Expr, ctx AttrCtx) Tri {
	val, ok := resolvePath(expr.Path, ctx)
	if !ok {
		return Undefined
	}
	if asList, isList := toInterfaceSlice(val); isList {
		for _, v := range asList {
			for _, candidate := range expr.List {
				if valuesEqual(expr.Path, v, candidate) {
					return True
				}
			}
		}
		return False
	}
	for _, candidate := range expr.List {
		if valuesEqual(expr.Path, val, candidate) {
			return True
		}
	}
	return False
}

// evalContains implements contains(path, literal): the path's value (a list)
// includes the literal.
func evalContains(expr *Expr, ctx AttrCtx) Tri {
	val, ok := resolvePath(expr.Path, ctx)
	if !ok {
		return Undefined
	}
	asList, isList := toInterfaceSlice(val)
	if !isList {
		return Undefined
	}
	for _, v := range asList {
		if valuesEqual(expr.Path, v, expr.Literal) {
			return True
		}
	}
	return False
}

func evalNumericCompare(expr *Expr, ctx AttrCtx) Tri {
	val, ok := resolvePath(expr.Path, ctx)
	if !ok {
		return Undefined
	}
	lhs, lok := asFloat(val)
	rhs, rok := asFloat(expr.Literal)
	if !lok || !rok {
		return Undefined
	}
	var result bool
	switch expr.Op {
	case OpGte:
		result = lhs >= rhs
	case OpGt:
		result = lhs > rhs
	case OpLte:
		result = lhs <= rhs
	case OpLt:
		result = lhs < rhs
	}
	return triOf(result)
}

// evalBetween implements between(path, lo, hi): a closed interval. When the
// resolved value and bounds look like "HH:MM" strings, minute-of-day parsing
// is used (the timeOfDay convention); otherwise numeric bounds are compared
// directly.
func evalBetween(expr *Expr, ctx AttrCtx) Tri {
	if len(expr.List) != 2 {
		return Undefined
	}
	val, ok := resolvePath(expr.Path, ctx)
	if !ok {
		return Undefined
	}

	if s, isStr := val.(string); isStr {
		if minutes, err := parseHHMM(s); err == nil {
			loStr, loIsStr := expr.List[0].(string)
			hiStr, hiIsStr := expr.List[1].(string)
			if loIsStr && hiIsStr {
				lo, loErr := parseHHMM(loStr)
				hi, hiErr := parseHHMM(hiStr)
				if loErr == nil && hiErr == nil {
					return triOf(minutes >= lo && minutes <= hi)
				}
			}
		}
	}

	lhs, lok := asFloat(val)
	lo, lok2 := asFloat(expr.List[0])
	hi, hok := asFloat(expr.List[1])
	if !lok || !lok2 || !hok {
		return Undefined
	}
	return triOf(lhs >= lo && lhs <= hi)
}

// parseHHMM parses "HH:MM" into minute-of-day.
func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, strconv.ErrSyntax
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, strconv.ErrRange
	}
	return h*60 + m, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInterfaceSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

// resolvePath resolves a dot-separated AttributePath rooted at subject,
// resource, or context. Missing segments yield (nil, false) — Undefined at
// the caller.
func resolvePath(path string, ctx AttrCtx) (interface{}, bool) {
	segs := strings.Split(path, ".")
	if len(segs) == 0 {
		return nil, false
	}

	var root map[string]interface{}
	switch segs[0] {
	case "subject":
		root = ctx.Subject
	case "resource":
		root = ctx.Resource
	case "context":
		root = ctx.Context
	default:
		return nil, false
	}
	if root == nil {
		return nil, false
	}

	var cur interface{} = root
	for _, seg := range segs[1:] {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, present := m[seg]
		if !present || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
