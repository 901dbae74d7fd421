package expr

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

const cacheSize = 512

// compiled caches parsed expressions by source text. Conditions are
// re-evaluated on every trigger, so parsing once pays off quickly.
var compiled *lru.Cache

func init() {
	c, err := lru.New(cacheSize)
	if err != nil {
		panic("expr: create cache: " + err.Error())
	}
	compiled = c
}

// Expr is a compiled expression. It is immutable and safe for concurrent use.
type Expr struct {
	src   string
	root  node
	paths []string
}

// Compile parses src. It returns a *SyntaxError for malformed input and a
// *SecurityError when a forbidden identifier appears.
func Compile(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if cached, ok := compiled.Get(src); ok {
		return cached.(*Expr), nil
	}
	root, paths, err := parse(src)
	if err != nil {
		return nil, err
	}
	e := &Expr{src: src, root: root, paths: paths}
	compiled.Add(src, e)
	return e, nil
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Dependencies returns the distinct dotted paths the expression reads, in order of appearance.
func (e *Expr) Dependencies() []string {
	seen := make(map[string]bool, len(e.paths))
	out := make([]string, 0, len(e.paths))
	for _, p := range e.paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Eval evaluates the expression against scope. Missing paths evaluate to nil.
func (e *Expr) Eval(scope map[string]any) any {
	return eval(e.root, scope)
}

// Eval compiles and evaluates src in one step.
func Eval(src string, scope map[string]any) (any, error) {
	e, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Eval(scope), nil
}

// Test evaluates src as a condition. Expressions that fail to compile are false.
func Test(src string, scope map[string]any) (bool, error) {
	v, err := Eval(src, scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Dependencies compiles src and returns the paths it reads.
func Dependencies(src string) ([]string, error) {
	e, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Dependencies(), nil
}

func eval(n node, scope map[string]any) any {
	switch n := n.(type) {
	case literalNode:
		return n.value
	case pathNode:
		v, _ := lookup(scope, n.segments)
		return v
	case unaryNode:
		v := eval(n.operand, scope)
		if n.op == "!" {
			return !Truthy(v)
		}
		return -ToNumber(v)
	case binaryNode:
		return evalBinary(n, scope)
	}
	return nil
}

func evalBinary(n binaryNode, scope map[string]any) any {
	left := eval(n.left, scope)
	switch n.op {
	case "&&":
		if !Truthy(left) {
			return left
		}
		return eval(n.right, scope)
	case "||":
		if Truthy(left) {
			return left
		}
		return eval(n.right, scope)
	}

	right := eval(n.right, scope)
	switch n.op {
	case "===":
		return StrictEqual(left, right)
	case "!==":
		return !StrictEqual(left, right)
	case "==":
		return LooseEqual(left, right)
	case "!=":
		return !LooseEqual(left, right)
	case ">", ">=", "<", "<=":
		return compare(n.op, left, right)
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return ToString(left) + ToString(right)
		}
		return ToNumber(left) + ToNumber(right)
	case "-":
		return ToNumber(left) - ToNumber(right)
	case "*":
		return ToNumber(left) * ToNumber(right)
	case "/":
		return ToNumber(left) / ToNumber(right)
	case "%":
		return math.Mod(ToNumber(left), ToNumber(right))
	}
	return nil
}

func compare(op string, left, right any) bool {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case ">":
			return ls > rs
		case ">=":
			return ls >= rs
		case "<":
			return ls < rs
		default:
			return ls <= rs
		}
	}
	l, r := ToNumber(left), ToNumber(right)
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}
	switch op {
	case ">":
		return l > r
	case ">=":
		return l >= r
	case "<":
		return l < r
	default:
		return l <= r
	}
}

// Lookup resolves a dotted path ("pageState.items.0.name") inside scope.
func Lookup(scope map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	return lookup(scope, strings.Split(path, "."))
}

func lookup(scope map[string]any, segments []string) (any, bool) {
	var cur any = scope
	for _, seg := range segments {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v any, key string) (any, bool) {
	switch c := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		out, ok := c[key]
		return out, ok
	case map[string]string:
		out, ok := c[key]
		return out, ok
	case []any:
		if key == "length" {
			return float64(len(c)), true
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	case string:
		if key == "length" {
			return float64(len([]rune(c))), true
		}
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !out.IsValid() {
			return nil, false
		}
		return out.Interface(), true
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return float64(rv.Len()), true
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}
		return child(rv.Elem().Interface(), key)
	}
	return nil, false
}

// Truthy applies script-style truthiness: nil, false, 0, NaN and "" are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if n, ok := number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// ToNumber coerces v to a float64. Non-numeric strings and composite values yield NaN.
func ToNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	if n, ok := number(v); ok {
		return n
	}
	return math.NaN()
}

// number reports v as float64 when v is any Go numeric type.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	}
	return 0, false
}

// IsNumber reports whether v holds a Go numeric value.
func IsNumber(v any) bool {
	_, ok := number(v)
	return ok
}

// StrictEqual compares without coercion, except that all Go numeric types are one number type.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, aok := number(a)
	bn, bok := number(b)
	if aok || bok {
		return aok && bok && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

// LooseEqual compares with coercion between numbers, numeric strings and booleans.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if StrictEqual(a, b) {
		return true
	}
	_, as := a.(string)
	_, bs := b.(string)
	if as && bs {
		return false
	}
	if scalar(a) && scalar(b) {
		an, bn := ToNumber(a), ToNumber(b)
		return !math.IsNaN(an) && an == bn
	}
	return false
}

func scalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	return IsNumber(v)
}

// ToString renders v the way string concatenation does: nil is empty,
// integral floats drop the fraction, composites are JSON.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return FormatNumber(t)
	case float32:
		return FormatNumber(float64(t))
	case json.Number:
		return t.String()
	}
	if n, ok := number(v); ok {
		return FormatNumber(n)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// FormatNumber prints f without exponent or trailing zeros.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
