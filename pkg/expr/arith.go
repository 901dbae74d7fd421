package expr

import (
	"math"
	"regexp"
)

// arithmeticRe matches numbers joined by whitespace-separated operators: "0 + 1", "2.5 * 4 - 1".
// Plain numeric strings ("42") and text that merely contains operators do not match.
var arithmeticRe = regexp.MustCompile(`^\s*-?\d+(\.\d+)?(\s+[-+*/%]\s+-?\d+(\.\d+)?)+\s*$`)

// Arithmetic evaluates s when it is a pure arithmetic string, as produced by
// interpolating numbers into a template like "{{pageState.total}} + {{trigger.item}}".
func Arithmetic(s string) (float64, bool) {
	if !arithmeticRe.MatchString(s) {
		return 0, false
	}
	v, err := Eval(s, nil)
	if err != nil {
		return 0, false
	}
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
