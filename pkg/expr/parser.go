package expr

import (
	"strconv"
	"strings"
)

// forbidden identifiers are rejected anywhere in an expression.
var forbidden = map[string]bool{
	"constructor": true,
	"prototype":   true,
	"__proto__":   true,
	"eval":        true,
	"Function":    true,
	"window":      true,
	"globalThis":  true,
	"global":      true,
	"process":     true,
	"require":     true,
	"import":      true,
	"document":    true,
	"this":        true,
	"new":         true,
}

type node interface{ isNode() }

type (
	literalNode struct{ value any }
	pathNode    struct {
		segments []string
		raw      string
	}
	unaryNode struct {
		op      string
		operand node
	}
	binaryNode struct {
		op          string
		left, right node
	}
)

func (literalNode) isNode() {}
func (pathNode) isNode()    {}
func (unaryNode) isNode()   {}
func (binaryNode) isNode()  {}

type parser struct {
	src   string
	toks  []token
	pos   int
	paths []string
}

func parse(src string) (node, []string, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range toks {
		if t.kind == tokIdent && forbidden[t.text] {
			return nil, nil, &SecurityError{Expr: src, Identifier: t.text}
		}
	}

	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, nil, &SyntaxError{Expr: src, Pos: 0, Reason: "empty expression"}
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, nil, p.errorf(t, "unexpected "+describe(t))
	}
	return n, p.paths, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) errorf(t token, reason string) error {
	return &SyntaxError{Expr: p.src, Pos: t.pos, Reason: reason}
}

// binary parses a left-associative level of the grammar.
func (p *parser) binary(operand func() (node, error), ops ...string) (node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseOr() (node, error) { return p.binary(p.parseAnd, "||") }

func (p *parser) parseAnd() (node, error) { return p.binary(p.parseEquality, "&&") }

func (p *parser) parseEquality() (node, error) {
	return p.binary(p.parseCompare, "===", "!==", "==", "!=")
}

func (p *parser) parseCompare() (node, error) {
	return p.binary(p.parseAdditive, ">=", "<=", ">", "<")
}

func (p *parser) parseAdditive() (node, error) { return p.binary(p.parseMult, "+", "-") }

func (p *parser) parseMult() (node, error) { return p.binary(p.parseUnary, "*", "/", "%") }

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.acceptOp("!", "-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return literalNode{value: t.num}, nil
	case tokString:
		return literalNode{value: t.text}, nil
	case tokOpenTmpl:
		first := p.next()
		if first.kind != tokIdent {
			return nil, p.errorf(first, "expected path inside {{ }}")
		}
		path, err := p.parsePath(first)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokCloseTmpl {
			return nil, p.errorf(closing, "expected }}")
		}
		return path, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null", "undefined":
			return literalNode{value: nil}, nil
		}
		return p.parsePath(t)
	case tokOp:
		if t.text == "(" {
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if closing := p.next(); closing.kind != tokOp || closing.text != ")" {
				return nil, p.errorf(closing, "expected )")
			}
			return inner, nil
		}
	}
	return nil, p.errorf(t, "unexpected "+describe(t))
}

func (p *parser) parsePath(first token) (node, error) {
	segments := []string{first.text}
	for {
		if _, ok := p.acceptOp("."); ok {
			t := p.next()
			switch t.kind {
			case tokIdent:
				segments = append(segments, t.text)
			case tokNumber:
				segments = append(segments, t.text)
			default:
				return nil, p.errorf(t, "expected property name after .")
			}
			continue
		}
		if _, ok := p.acceptOp("["); ok {
			t := p.next()
			switch t.kind {
			case tokNumber:
				segments = append(segments, strconv.Itoa(int(t.num)))
			case tokString:
				if forbidden[t.text] {
					return nil, &SecurityError{Expr: p.src, Identifier: t.text}
				}
				segments = append(segments, t.text)
			default:
				return nil, p.errorf(t, "expected index inside [ ]")
			}
			if closing := p.next(); closing.kind != tokOp || closing.text != "]" {
				return nil, p.errorf(closing, "expected ]")
			}
			continue
		}
		break
	}
	raw := strings.Join(segments, ".")
	p.paths = append(p.paths, raw)
	return pathNode{segments: segments, raw: raw}, nil
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokString:
		return "string " + strconv.Quote(t.text)
	default:
		return strconv.Quote(t.text)
	}
}
