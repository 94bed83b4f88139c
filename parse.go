package counter

import (
	"errors"
	"math/big"
	"strings"
)

// Expr = Or
// Or = And { ('|' | 'xor') And }
// And = Shift { '&' Shift }
// Shift = Sum { ('<<' | '>>') Sum }
// Sum = Product { ('+' | '-') Product }
// Product = Unary { ('*' | '/') Unary }
// Unary = '-' Unary | Pow
// Pow = Fact [ '^' Unary ]
// Fact = Atom { '!' }
// Atom = num | roll | NumWords | name | Call | '(' Expr ')'
// Call = name '(' [ Expr { ',' Expr } ] ')'
//
// A parse that stops before the end of its tokens is tainted rather than
// rejected, so long as what it consumed is a complete Expr.

// Expr is a parsed expression that can be evaluated with a context.
type Expr struct {
	// n is the root node of the expression. It is never tainted.
	n *node
	// names is the list of variable names used in the expression.
	names []string
}

func newExpr(n *node) *Expr {
	m := make(map[string]bool)
	n.names(m)
	e := Expr{
		n:     n,
		names: make([]string, 0, len(m)),
	}
	for k := range m {
		e.names = append(e.names, k)
	}
	sortstrs(e.names)
	return &e
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// Vars returns the variable names used when evaluating the expression.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// Size returns the score the parser uses to choose among parses of noisy
// input. Numbers and names count 1, rolls count 2, and each operator or
// function call counts 1 plus its operands.
func (e *Expr) Size() int {
	return e.n.size()
}

// String creates a string representation of the parsed expression, with
// alternating round and square brackets grouping each term.
func (e *Expr) String() string {
	var b strings.Builder
	e.n.fmt(&b, false)
	return b.String()
}

// parser derives a tree from a token sequence ending in EOF.
type parser struct {
	toks []lexToken
	pos  int
	// split is the index of a negative literal whose minus sign has already
	// been taken as an operator, or -1.
	split int
	// depth counts nested brackets and unary operators.
	depth int
	max   int
	// failed records positions where no operand could be parsed. Whether an
	// operand parses does not depend on the surrounding precedence, so
	// recovery never needs to retry one.
	failed map[int]error
}

// parseTokens parses a single expression from toks, which must end with an
// EOF token. If the expression ends before EOF, the result is a nodeBad
// wrapping it. The second result is the index of the first token not
// consumed.
func parseTokens(toks []lexToken, cfg *parsecfg) (*node, int, error) {
	p := parser{toks: toks, split: -1, max: cfg.maxNesting}
	n, err := p.parseterm(exprprec)
	if err != nil {
		return nil, 0, err
	}
	if p.peek().kind != tokenEOF {
		return &node{kind: nodeBad, left: n}, p.pos, nil
	}
	return n, p.pos, nil
}

func (p *parser) peek() lexToken {
	return p.toks[p.pos]
}

// next returns the next token. The EOF token is never consumed.
func (p *parser) next() lexToken {
	tok := p.toks[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

// nest records entering a nested construct and checks the nesting limit.
// Callers must call p.depth-- when leaving it.
func (p *parser) nest(tok lexToken) error {
	p.depth++
	if p.max > 0 && p.depth > p.max {
		return &NestingError{Col: tok.pos, Max: p.max}
	}
	return nil
}

// parseterm parses an expression containing operators more binding than
// until. If an operator is not followed by a valid operand, parsing stops
// before the operator and the result is the expression parsed so far, so that
// any complete leading expression is recovered.
func (p *parser) parseterm(until operator) (*node, error) {
	k := p.pos
	if err := p.failed[k]; err != nil {
		return nil, err
	}
	n, err := p.parselhs(until)
	if err != nil {
		var ne *NestingError
		if !errors.As(err, &ne) {
			if p.failed == nil {
				p.failed = make(map[int]error)
			}
			p.failed[k] = err
		}
		return nil, err
	}
	for {
		tok := p.peek()
		var prec operator
		switch {
		case tok.kind == tokenOp && tok.text == "!":
			if !factprec.moreBinding(until) {
				return n, nil
			}
			p.pos++
			n = &node{kind: nodeFact, left: n}
			continue
		case tok.kind == tokenOp:
			prec = binop(tok.text)
			if prec.op == nodeNone {
				return n, nil
			}
		case tok.negative():
			// 1-2 lexes as 1 followed by -2; read it as a subtraction.
			prec = binop("-")
		default:
			return n, nil
		}
		if !prec.moreBinding(until) {
			return n, nil
		}
		mark := p.pos
		if tok.kind == tokenOp {
			p.pos++
		} else {
			p.split = p.pos
		}
		rhs, err := p.parseterm(prec)
		if err != nil {
			var ne *NestingError
			if errors.As(err, &ne) {
				return nil, err
			}
			p.pos, p.split = mark, -1
			return n, nil
		}
		n = &node{kind: prec.op, left: n, right: rhs}
	}
}

// parselhs parses the first component of a term. I.e., operators are unary,
// and any encountered token must be valid as the start of a subexpression.
func (p *parser) parselhs(until operator) (*node, error) {
	k := p.pos
	tok := p.next()
	switch tok.kind {
	case tokenNum:
		if k == p.split {
			// The minus sign has been used as an operator.
			p.split = -1
			return &node{kind: nodeNum, val: new(big.Rat).Neg(tok.val)}, nil
		}
		if tok.negative() {
			if nx := p.peek(); nx.kind == tokenOp && (nx.text == "^" || nx.text == "!") {
				// -2^2 -> -(2^2)
				p.pos, p.split = k, k
				return p.parseunary(tok, until)
			}
		}
		return &node{kind: nodeNum, val: tok.val}, nil
	case tokenRoll:
		return &node{kind: nodeRoll, count: tok.count, sides: tok.sides}, nil
	case tokenWord:
		p.pos = k
		v, err := p.parsewords()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeNum, val: new(big.Rat).SetInt64(v), src: srcWords}, nil
	case tokenIdent:
		if nx := p.peek(); nx.kind == tokenOpen {
			return p.parsecall(tok)
		}
		return &node{kind: nodeName, name: tok.text}, nil
	case tokenOp:
		if unop(tok.text).op == nodeNone {
			return nil, unexpected(tok, operandTokens...)
		}
		return p.parseunary(tok, until)
	case tokenOpen:
		if err := p.nest(tok); err != nil {
			return nil, err
		}
		defer func() { p.depth-- }()
		n, err := p.parseterm(exprprec)
		if err != nil {
			return nil, err
		}
		if end := p.next(); end.kind != tokenClose {
			return nil, unexpected(end, ")")
		}
		return n, nil
	default:
		return nil, unexpected(tok, operandTokens...)
	}
}

// parseunary parses the operand of a prefix minus. The minus has already
// been consumed, either as an operator token or by marking a negative literal
// as split.
func (p *parser) parseunary(tok lexToken, until operator) (*node, error) {
	if err := p.nest(tok); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	prec := unop("-")
	if !prec.moreBinding(until) {
		// x^-y -> x^(-y)
		// Just use the new operator's precedence to simplify.
		prec.prec, prec.right = until.prec, until.right
	}
	rhs, err := p.parseterm(prec)
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeNeg, left: rhs}, nil
}

// parsecall parses the bracketed argument list of a function call. The open
// bracket is the next token.
func (p *parser) parsecall(name lexToken) (*node, error) {
	open := p.next()
	if err := p.nest(open); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	n := &node{kind: nodeCall, name: name.text}
	if p.peek().kind == tokenClose {
		p.pos++
		return n, nil
	}
	l := n
	for {
		arg, err := p.parseterm(exprprec)
		if err != nil {
			return nil, err
		}
		l.right = &node{kind: nodeArg, left: arg}
		l = l.right
		switch end := p.next(); end.kind {
		case tokenClose:
			return n, nil
		case tokenSep:
		default:
			return nil, unexpected(end, ",", ")")
		}
	}
}

// operandTokens describes the tokens that can begin an operand.
var operandTokens = []string{"number", "roll", "number word", "name", "-", "("}

// Group parsing states for number words.
const (
	// groupEmpty means no word of the current group has been seen.
	groupEmpty = iota
	// groupLead means the group is a single unit or zero, which may take
	// "hundred".
	groupLead
	// groupHundred means the group is X hundred.
	groupHundred
	// groupTens means the group ends with a tens word, which may take a unit.
	groupTens
	// groupDone means the group can take no more words.
	groupDone
)

// parsewords parses the longest valid number phrase starting at the current
// token. Each magnitude word must be smaller than the previous one, and two
// groups may not follow each other without a magnitude between them.
func (p *parser) parsewords() (int64, error) {
	var total, group int64
	state := groupEmpty
	// last is the last magnitude seen. Every magnitude is below it.
	last := int64(1e15)
	k := p.pos
loop:
	for {
		tok := p.peek()
		if tok.kind != tokenWord {
			break
		}
		w := tok.word
		switch {
		case w < 10:
			switch state {
			case groupEmpty:
				group, state = w, groupLead
			case groupHundred, groupTens:
				if w == 0 {
					break loop
				}
				group, state = group+w, groupDone
			default:
				break loop
			}
		case w < 20:
			if state != groupEmpty && state != groupHundred {
				break loop
			}
			group, state = group+w, groupDone
		case w < 100:
			if state != groupEmpty && state != groupHundred {
				break loop
			}
			group, state = group+w, groupTens
		case w == 100:
			if state != groupLead {
				break loop
			}
			group, state = group*100, groupHundred
		default:
			if state == groupEmpty || w >= last {
				break loop
			}
			total += group * w
			group, state, last = 0, groupEmpty, w
		}
		p.pos++
	}
	if p.pos == k {
		return 0, unexpected(p.toks[k], "number")
	}
	return total + group, nil
}

// parseNumWords parses toks entirely as a number phrase.
func parseNumWords(toks []lexToken) (int64, error) {
	p := parser{toks: toks, split: -1}
	v, err := p.parsewords()
	if err != nil {
		return 0, err
	}
	if end := p.peek(); end.kind != tokenEOF {
		return 0, unexpected(end, "number word", "end of input")
	}
	return v, nil
}

type operator struct {
	// prec is the precedence value. Higher is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of nodeNone.
func binop(text string) operator {
	switch text {
	case "|":
		return operator{1, false, nodeOr}
	case "xor":
		return operator{1, false, nodeXor}
	case "&":
		return operator{2, false, nodeAnd}
	case "<<":
		return operator{3, false, nodeLsh}
	case ">>":
		return operator{3, false, nodeRsh}
	case "+":
		return operator{4, false, nodeAdd}
	case "-":
		return operator{4, false, nodeSub}
	case "*":
		return operator{5, false, nodeMul}
	case "/":
		return operator{5, false, nodeDiv}
	case "^":
		return operator{15, true, nodePow}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	switch text {
	case "-":
		return operator{10, true, nodeNeg}
	default:
		return operator{}
	}
}

var (
	// factprec is the precedence of postfix factorial.
	factprec = operator{20, false, nodeFact}
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{-128, true, nodeNone}
)
