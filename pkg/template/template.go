// Package template resolves {{path}} interpolation tokens against an execution context.
package template

import (
	"regexp"
	"strings"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/expr"
)

var (
	tokenRe  = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
	singleRe = regexp.MustCompile(`^\{\{\s*([^{}]*?)\s*\}\}$`)
)

// HasTokens reports whether s contains at least one interpolation token.
func HasTokens(s string) bool {
	return tokenRe.MatchString(s)
}

// Resolve interpolates tmpl against the context.
//
// A template made of exactly one token yields the typed value at that path
// (nil when missing). Anything else yields a string in which every token is
// replaced by its stringified value, missing values becoming "".
func Resolve(tmpl string, ectx *domain.ExecutionContext) any {
	return ResolveScope(tmpl, ectx.Scope())
}

// ResolveScope is Resolve over an explicit root namespace map.
func ResolveScope(tmpl string, scope map[string]any) any {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	if m := singleRe.FindStringSubmatch(tmpl); m != nil {
		return value(m[1], scope)
	}
	return tokenRe.ReplaceAllStringFunc(tmpl, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		return Stringify(value(m[1], scope))
	})
}

// ResolveParams deep-walks params and resolves every string leaf.
// The input is not modified; maps and slices are copied on the way.
func ResolveParams(params map[string]any, ectx *domain.ExecutionContext) map[string]any {
	if params == nil {
		return nil
	}
	return ResolveValue(params, ectx.Scope()).(map[string]any)
}

// ResolveValue resolves any value against scope: strings are interpolated,
// maps and slices are walked, everything else is returned as is.
func ResolveValue(v any, scope map[string]any) any {
	switch t := v.(type) {
	case string:
		return ResolveScope(t, scope)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ResolveValue(item, scope)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ResolveValue(item, scope)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ResolveScope(item, scope)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ResolveScope(item, scope)
		}
		return out
	}
	return v
}

// Stringify renders a resolved value for string interpolation.
func Stringify(v any) string {
	return expr.ToString(v)
}

// value evaluates the inside of one token. Plain paths are looked up
// directly; anything else goes through the expression evaluator. Failures
// resolve to nil, never to an error.
func value(inner string, scope map[string]any) any {
	if inner == "" {
		return nil
	}
	if isPath(inner) {
		v, _ := expr.Lookup(scope, inner)
		return v
	}
	v, err := expr.Eval(inner, scope)
	if err != nil {
		return nil
	}
	return v
}

var pathRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[\w$]+)*$`)

func isPath(s string) bool {
	return pathRe.MatchString(s)
}
