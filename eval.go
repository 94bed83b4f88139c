package counter

import (
	"math/big"
	mathbits "math/bits"
	"math/rand/v2"
	"strconv"
)

// Context is a context for evaluating expressions. It is not safe to use a
// Context concurrently, but clones of one Context may be used concurrently
// with each other.
type Context struct {
	stack []*big.Rat
	names map[string]*big.Rat
	rng   Source
	err   error

	// depth is the current depth of evaluation and maxDepth its limit.
	depth, maxDepth int
	// maxBits limits the size of results of expensive operations.
	maxBits int64
}

// Source is a source of random numbers for rolls. IntN returns a uniformly
// distributed integer in [0, n). *math/rand/v2.Rand is a Source.
type Source interface {
	IntN(n int) int
}

// globalSource is the default Source, which is safe for concurrent use.
type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  *big.Rat
	}
	varsopt  map[string]*big.Rat
	randopt  struct{ src Source }
	depthopt int
	bitsopt  int64
)

func (varopt) ctxOption()   {}
func (varsopt) ctxOption()  {}
func (randopt) ctxOption()  {}
func (depthopt) ctxOption() {}
func (bitsopt) ctxOption()  {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val *big.Rat) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]*big.Rat) ContextOption {
	return varsopt(vars)
}

// WithRand sets the source of random numbers for rolls. A nil src restores
// the default, the top-level generator of math/rand/v2.
func WithRand(src Source) ContextOption {
	return randopt{src}
}

// MaxDepth limits how deeply nested an expression may be evaluated. Deeper
// expressions fail with a *DepthError. With n <= 0, depth is unlimited, which
// is the default.
func MaxDepth(n int) ContextOption {
	if n < 0 {
		n = 0
	}
	return depthopt(n)
}

// MaxBits limits the estimated size in bits of the results of
// exponentiation, factorial, and left shift, and the random bits drawn by a
// roll. Operations that would exceed it
// fail with a *LimitError instead of computing the result. With n <= 0, size
// is unlimited, which is the default.
func MaxBits(n int64) ContextOption {
	if n < 0 {
		n = 0
	}
	return bitsopt(n)
}

// NewContext creates a new evaluation context. Unless WithRand is given, rolls
// draw from the top-level generator of math/rand/v2, which is shared by the
// whole process and safe for concurrent use. Pass WithRand with a seeded
// generator for reproducible rolls.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{rng: globalSource{}}
	return ctx.Clone(opts...)
}

// Eval evaluates an expression and returns the result. If an error occurs,
// e.g. a missing variable definition or a division by zero, then the result
// is nil and ctx.Err returns the error.
func (ctx *Context) Eval(e *Expr) *big.Rat {
	switch len(ctx.stack) {
	case 0: // do nothing
	case 1:
		ctx.stack[0] = new(big.Rat)
		ctx.stack = ctx.stack[:0]
	default:
		panic("counter: Eval during Eval")
	}
	ctx.depth = 0
	err := e.n.eval(ctx)
	ctx.err = err
	if err != nil {
		ctx.stack = ctx.stack[:0]
		return nil
	}
	return ctx.Result()
}

// Result returns the result obtained after evaluating an expression. Panics if
// ctx has not been used to evaluate an expression. Returns nil if an error
// occurred during evaluation.
func (ctx *Context) Result() *big.Rat {
	if ctx.err != nil {
		return nil
	}
	switch len(ctx.stack) {
	case 0:
		panic("counter: Context.Result called before evaluating any expression")
	case 1:
		return ctx.stack[0]
	default:
		panic("counter: inconsistent stack: " + strconv.Itoa(len(ctx.stack)) + " items (bad AST?)")
	}
}

// Err returns the error that occurred while evaluating the last expression
// with ctx, if any.
func (ctx *Context) Err() error {
	return ctx.err
}

// Set sets the value of a variable. Returns ctx for chaining. Calling Set
// while the context is being used to evaluate an expression panics.
func (ctx *Context) Set(name string, value *big.Rat) *Context {
	if len(ctx.stack) > 1 {
		panic("counter: Set on in-use context")
	}
	if ctx.names == nil {
		ctx.names = make(map[string]*big.Rat)
	}
	ctx.names[name] = new(big.Rat).Set(value)
	return ctx
}

// Lookup returns a copy of the value of a variable. If there is no such
// variable in the context, then the result is nil.
func (ctx *Context) Lookup(name string) *big.Rat {
	v := ctx.names[name]
	if v == nil {
		return nil
	}
	return new(big.Rat).Set(v)
}

// Clone creates a copy of a context and applies options to it. The returned
// context has no Result and is safe to use to evaluate an expression.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		stack:    make([]*big.Rat, 0, cap(ctx.stack)),
		names:    make(map[string]*big.Rat, len(ctx.names)),
		rng:      ctx.rng,
		maxDepth: ctx.maxDepth,
		maxBits:  ctx.maxBits,
	}
	// Variables are never modified in place, so the copy can share values.
	for name, val := range ctx.names {
		n.names[name] = val
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.names[opt.name] = new(big.Rat).Set(opt.val)
		case varsopt:
			for k, v := range opt {
				n.names[k] = new(big.Rat).Set(v)
			}
		case randopt:
			n.rng = opt.src
			if n.rng == nil {
				n.rng = globalSource{}
			}
		case depthopt:
			n.maxDepth = int(opt)
		case bitsopt:
			n.maxBits = int64(opt)
		default:
			panic("counter: unknown option type")
		}
	}
	return &n
}

// push ensures a settable value on the stack.
func (ctx *Context) push() *big.Rat {
	if len(ctx.stack) < cap(ctx.stack) {
		ctx.stack = ctx.stack[:len(ctx.stack)+1]
		if ctx.stack[len(ctx.stack)-1] == nil {
			ctx.stack[len(ctx.stack)-1] = new(big.Rat)
		}
	} else {
		ctx.stack = append(ctx.stack, new(big.Rat))
	}
	return ctx.stack[len(ctx.stack)-1]
}

// pop removes the top from the stack and returns it. The returned value may be
// modified by future node evaluations.
func (ctx *Context) pop() *big.Rat {
	r := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return r
}

// top is a shortcut to get the top element of the stack.
func (ctx *Context) top() *big.Rat {
	return ctx.stack[len(ctx.stack)-1]
}

// eval pushes the node's value to the context's stack.
func (n *node) eval(ctx *Context) error {
	ctx.depth++
	defer func() { ctx.depth-- }()
	if ctx.maxDepth > 0 && ctx.depth > ctx.maxDepth {
		return &DepthError{Max: ctx.maxDepth}
	}
	switch n.kind {
	case nodeNum:
		ctx.push().Set(n.val)
	case nodeRoll:
		if n.sides < 1 {
			return &RollError{Count: n.count, Sides: n.sides}
		}
		if n.count > maxDice {
			return &LimitError{Op: "d", Bits: rollbits(n.count, n.sides), Max: ctx.maxBits}
		}
		if err := ctx.checkBits("d", rollbits(n.count, n.sides)); err != nil {
			return err
		}
		r := ctx.push()
		r.SetInt(roll(ctx.rng, n.count, n.sides))
	case nodeName:
		v := ctx.names[n.name]
		if v == nil {
			return &NameError{Name: n.name}
		}
		ctx.push().Set(v)
	case nodeCall:
		return &FuncError{Name: n.name}
	case nodeArg:
		panic("counter: eval on nodeArg")
	case nodeNeg:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		v := ctx.top()
		v.Neg(v)
	case nodeFact:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		return factorial(ctx, ctx.top())
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodePow, nodeAnd, nodeOr, nodeXor, nodeLsh, nodeRsh:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		if err := n.right.eval(ctx); err != nil {
			return err
		}
		r := ctx.pop()
		l := ctx.top()
		return binary(ctx, n.kind, l, r)
	case nodeBad:
		return &MalformedError{Expr: n.left.String()}
	default:
		panic("counter: invalid AST node " + n.kind.String())
	}
	return nil
}

// binary sets l to l op r.
func binary(ctx *Context, op nodeKind, l, r *big.Rat) error {
	switch op {
	case nodeAdd:
		l.Add(l, r)
	case nodeSub:
		l.Sub(l, r)
	case nodeMul:
		l.Mul(l, r)
	case nodeDiv:
		if r.Sign() == 0 {
			return &ZeroDivisionError{X: new(big.Rat).Set(l)}
		}
		l.Quo(l, r)
	case nodePow:
		if !r.IsInt() {
			return &ExponentError{X: new(big.Rat).Set(r)}
		}
		return pow(ctx, l, r.Num())
	case nodeAnd, nodeOr, nodeXor:
		if err := integers(op, l, r); err != nil {
			return err
		}
		var z big.Int
		switch op {
		case nodeAnd:
			z.And(l.Num(), r.Num())
		case nodeOr:
			z.Or(l.Num(), r.Num())
		case nodeXor:
			z.Xor(l.Num(), r.Num())
		}
		l.SetInt(&z)
	case nodeLsh, nodeRsh:
		if err := integers(op, l, r); err != nil {
			return err
		}
		// A negative shift count shifts the other way.
		left := op == nodeLsh
		s := r.Num()
		if s.Sign() < 0 {
			left = !left
			s = new(big.Int).Neg(s)
		}
		return shift(ctx, op, l, s, left)
	default:
		panic("counter: invalid binary operator " + op.String())
	}
	return nil
}

// integers checks that both operands of op are integers.
func integers(op nodeKind, l, r *big.Rat) error {
	if !l.IsInt() {
		return &OperandError{Op: opName(op), X: new(big.Rat).Set(l)}
	}
	if !r.IsInt() {
		return &OperandError{Op: opName(op), X: new(big.Rat).Set(r)}
	}
	return nil
}

// pow sets x to x^e, where e may be negative.
func pow(ctx *Context, x *big.Rat, e *big.Int) error {
	switch {
	case e.Sign() == 0:
		x.SetInt64(1)
		return nil
	case x.Sign() == 0:
		if e.Sign() < 0 {
			return &ZeroDivisionError{X: big.NewRat(1, 1)}
		}
		return nil
	case x.IsInt() && x.Num().CmpAbs(big.NewInt(1)) == 0:
		// ±1 to any power is ±1, even when the power is huge.
		if x.Sign() < 0 && e.Bit(0) == 0 {
			x.SetInt64(1)
		}
		return nil
	}
	if !e.IsInt64() {
		return &LimitError{Op: "^", Max: ctx.maxBits}
	}
	k := e.Int64()
	if k < 0 {
		k = -k
	}
	if err := ctx.checkBits("^", powbits(x, k)); err != nil {
		return err
	}
	ek := big.NewInt(k)
	num := new(big.Int).Exp(x.Num(), ek, nil)
	den := new(big.Int).Exp(x.Denom(), ek, nil)
	if e.Sign() < 0 {
		num, den = den, num
	}
	x.SetFrac(num, den)
	return nil
}

// factorial sets x to x!. The factorial of any integer less than 2 is 1.
func factorial(ctx *Context, x *big.Rat) error {
	if !x.IsInt() {
		return &OperandError{Op: "!", X: new(big.Rat).Set(x)}
	}
	n := x.Num()
	if n.Cmp(big.NewInt(2)) < 0 {
		x.SetInt64(1)
		return nil
	}
	if !n.IsInt64() {
		return &LimitError{Op: "!", Max: ctx.maxBits}
	}
	k := n.Int64()
	if err := ctx.checkBits("!", factbits(k)); err != nil {
		return err
	}
	x.SetInt(new(big.Int).MulRange(2, k))
	return nil
}

// shift sets x to x shifted by s bits, which is non-negative.
func shift(ctx *Context, op nodeKind, x *big.Rat, s *big.Int, left bool) error {
	v := x.Num()
	if left {
		if v.Sign() == 0 {
			return nil
		}
		if !s.IsUint64() || s.Uint64() > maxShift {
			return &LimitError{Op: opName(op), Max: ctx.maxBits}
		}
		k := uint(s.Uint64())
		if err := ctx.checkBits(opName(op), int64(v.BitLen())+int64(k)); err != nil {
			return err
		}
		x.SetInt(new(big.Int).Lsh(v, k))
		return nil
	}
	if !s.IsUint64() || s.Uint64() >= uint64(v.BitLen()) {
		// Everything is shifted out, leaving only the sign.
		if v.Sign() < 0 {
			x.SetInt64(-1)
		} else {
			x.SetInt64(0)
		}
		return nil
	}
	x.SetInt(new(big.Int).Rsh(v, uint(s.Uint64())))
	return nil
}

// maxShift is the largest left shift that can be attempted.
const maxShift = 1 << 31

// maxDice is the largest number of dice that can be rolled at once.
const maxDice = 1 << 20

// rollbits estimates the randomness a roll draws, which is proportional to
// the work to compute it.
func rollbits(count, sides int) int64 {
	return int64(count) * int64(mathbits.Len(uint(sides)))
}

// roll sums count rolls of a die with the given number of sides.
func roll(src Source, count, sides int) *big.Int {
	var sum big.Int
	// Accumulate in an int64 and only use the big sum when that would
	// overflow.
	var acc int64
	for i := 0; i < count; i++ {
		d := int64(src.IntN(sides)) + 1
		if acc > (1<<63-1)-d {
			sum.Add(&sum, big.NewInt(acc))
			acc = 0
		}
		acc += d
	}
	return sum.Add(&sum, big.NewInt(acc))
}

func opName(op nodeKind) string {
	switch op {
	case nodeAnd:
		return "&"
	case nodeOr:
		return "|"
	case nodeXor:
		return "xor"
	case nodeLsh:
		return "<<"
	case nodeRsh:
		return ">>"
	case nodePow:
		return "^"
	case nodeFact:
		return "!"
	default:
		return op.String()
	}
}

// Evaluate evaluates an expression with the given variables and options.
// env is not modified.
func Evaluate(e *Expr, env map[string]*big.Rat, opts ...ContextOption) (*big.Rat, error) {
	ctx := NewContext(append(opts[:len(opts):len(opts)], SetVars(env))...)
	r := ctx.Eval(e)
	return r, ctx.Err()
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...ContextOption) (*big.Rat, error) {
	a, err := Parse(src)
	if err != nil {
		return nil, err
	}
	ctx := NewContext(opts...)
	ctx.Eval(a)
	return ctx.Result(), ctx.Err()
}

// Format formats a number canonically: integers in decimal, and other values
// as a fraction in lowest terms like 3/4.
func Format(x *big.Rat) string {
	if x.IsInt() {
		return x.Num().String()
	}
	return x.String()
}
