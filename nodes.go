package counter

import (
	"math/big"
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression. Nodes are
// never modified after the parser creates them.
type node struct {
	kind nodeKind

	// name is the variable or function name.
	name string
	// val and src are the value and spelling of a number.
	val *big.Rat
	src numSource
	// count and sides describe a roll.
	count, sides int

	left  *node
	right *node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum  // push val
	nodeRoll // push sum of count rolls of a die with sides sides
	nodeName // push lookup(name)

	nodeCall // name is function to call, right is link to nodeArg
	nodeArg  // eval left, right is link to next arg

	nodeNeg  // evaluate left, then negate
	nodeFact // evaluate left, then factorial
	nodeAdd  // evaluate left, add right
	nodeSub  // evaluate left, sub right
	nodeMul  // evaluate left, mul right
	nodeDiv  // evaluate left, div by right
	nodePow  // evaluate left, exp by right
	nodeAnd  // evaluate left, bitwise and right
	nodeOr   // evaluate left, bitwise or right
	nodeXor  // evaluate left, bitwise xor right
	nodeLsh  // evaluate left, shift left by right
	nodeRsh  // evaluate left, shift right by right

	nodeBad // left is an expression that did not consume all its input
)

var nodeKindNames = [...]string{
	nodeNone: "None",
	nodeNum:  "Num",
	nodeRoll: "Roll",
	nodeName: "Name",
	nodeCall: "Call",
	nodeArg:  "Arg",
	nodeNeg:  "Neg",
	nodeFact: "Fact",
	nodeAdd:  "Add",
	nodeSub:  "Sub",
	nodeMul:  "Mul",
	nodeDiv:  "Div",
	nodePow:  "Pow",
	nodeAnd:  "And",
	nodeOr:   "Or",
	nodeXor:  "Xor",
	nodeLsh:  "Lsh",
	nodeRsh:  "Rsh",
	nodeBad:  "Bad",
}

func (k nodeKind) String() string {
	if k < 0 || int(k) >= len(nodeKindNames) {
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeKindNames[k]
}

// numSource records how a number was written. It does not affect its value.
type numSource int8

const (
	srcDigits numSource = iota
	srcWords
)

// binopText is the text used to format each binary operator.
var binopText = map[nodeKind]string{
	nodeAdd: " + ",
	nodeSub: " - ",
	nodeMul: " * ",
	nodeDiv: " / ",
	nodePow: " ^ ",
	nodeAnd: " & ",
	nodeOr:  " | ",
	nodeXor: " xor ",
	nodeLsh: " << ",
	nodeRsh: " >> ",
}

// size is the number of nodes in the tree, counting rolls twice. Larger
// trees are more informative parses.
func (n *node) size() int {
	switch n.kind {
	case nodeNum, nodeName:
		return 1
	case nodeRoll:
		return 2
	case nodeNeg, nodeFact:
		return 1 + n.left.size()
	case nodeCall:
		s := 1
		for a := n.right; a != nil; a = a.right {
			s += a.left.size()
		}
		return s
	case nodeBad:
		return n.left.size()
	default:
		if _, ok := binopText[n.kind]; !ok {
			panic("counter: size of invalid node kind " + n.kind.String())
		}
		return 1 + n.left.size() + n.right.size()
	}
}

// names adds the variable names used in the tree to m.
func (n *node) names(m map[string]bool) {
	if n == nil {
		return
	}
	if n.kind == nodeName {
		m[n.name] = true
	}
	n.left.names(m)
	n.right.names(m)
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b, false)
	return b.String()
}

func (n *node) fmt(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
	case nodeNum:
		b.WriteString(Format(n.val))
	case nodeRoll:
		b.WriteString(strconv.Itoa(n.count))
		b.WriteByte('d')
		b.WriteString(strconv.Itoa(n.sides))
	case nodeName:
		b.WriteString(n.name)
	case nodeCall:
		b.WriteString(n.name)
		n.fmtargs(b, !square)
	case nodeArg:
		// Args usually only appear inside calls, which are handled by fmtargs.
		b.WriteByte(':')
		n.left.fmt(b, !square)
		if n.right != nil {
			n.right.fmt(b, !square)
		}
	case nodeNeg:
		b.WriteByte('-')
		n.left.fmt(b, !square)
	case nodeFact:
		n.left.fmt(b, !square)
		b.WriteByte('!')
	case nodeBad:
		b.WriteByte('?')
		n.left.fmt(b, !square)
	default:
		op, ok := binopText[n.kind]
		if !ok {
			panic("counter: invalid node kind " + n.kind.String() + " after writing " + b.String())
		}
		n.left.fmt(b, !square)
		b.WriteString(op)
		n.right.fmt(b, !square)
	}
}

func (n *node) fmtargs(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	for a := n.right; a != nil; a = a.right {
		if a != n.right {
			b.WriteString(", ")
		}
		a.left.fmt(b, !square)
	}
}
