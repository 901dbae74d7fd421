package expr

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
	tokOpenTmpl  // {{
	tokCloseTmpl // }}
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// operators, longest first so that "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", ">=", "<=", "&&", "||",
	">", "<", "+", "-", "*", "/", "%", "!",
	"(", ")", "[", "]", ".",
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "{{"):
			toks = append(toks, token{kind: tokOpenTmpl, text: "{{", pos: i})
			i += 2
		case strings.HasPrefix(src[i:], "}}"):
			toks = append(toks, token{kind: tokCloseTmpl, text: "}}", pos: i})
			i += 2
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1]) && !afterPathSegment(toks)):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) && !afterDot(toks) {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			n, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, &SyntaxError{Expr: src, Pos: start, Reason: "invalid number"}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], num: n, pos: start})
		case c == '\'' || c == '"':
			s, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s, pos: i})
			i = next
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, &SyntaxError{Expr: src, Pos: i, Reason: "unexpected character " + strconv.QuoteRune(rune(c))}
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return "", 0, &SyntaxError{Expr: src, Pos: start, Reason: "unterminated string"}
}

// afterDot reports whether the previous token is a "." so that items.0.name
// lexes the 0 as a segment rather than as the start of 0.name.
func afterDot(toks []token) bool {
	return len(toks) > 0 && toks[len(toks)-1].kind == tokOp && toks[len(toks)-1].text == "."
}

// afterPathSegment reports whether a leading "." continues a path (a.b) rather than starting .5.
func afterPathSegment(toks []token) bool {
	if len(toks) == 0 {
		return false
	}
	last := toks[len(toks)-1]
	return last.kind == tokIdent || (last.kind == tokOp && last.text == "]")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
