package counter

import (
	"math"
	"math/big"

	"github.com/zephyrtronium/bigfloat"
)

// estprec is the precision used to estimate result sizes.
const estprec = 64

// checkBits checks an estimated result size against the context's limit.
func (ctx *Context) checkBits(op string, bits int64) error {
	if ctx.maxBits > 0 && bits > ctx.maxBits {
		return &LimitError{Op: op, Bits: bits, Max: ctx.maxBits}
	}
	return nil
}

// log2 computes the base 2 logarithm of x, which must be positive.
func log2(x *big.Float) *big.Float {
	r := new(big.Float).SetPrec(estprec)
	bigfloat.Log(r, x)
	return r.Quo(r, ln2)
}

var ln2 = new(big.Float).SetPrec(estprec).SetFloat64(math.Ln2)

// bits converts an estimate to a whole number of bits, saturating.
func bits(x *big.Float) int64 {
	if x.Sign() <= 0 {
		return 1
	}
	x.Add(x, big.NewFloat(1))
	n, acc := x.Int64()
	if acc == big.Below && n == math.MaxInt64 {
		return math.MaxInt64
	}
	return n
}

// powbits estimates the size of x^k as the size of the larger of its
// numerator and denominator, k*log2(max(|num|, den)).
func powbits(x *big.Rat, k int64) int64 {
	m := new(big.Int).Abs(x.Num())
	if m.Cmp(x.Denom()) < 0 {
		m = x.Denom()
	}
	if m.BitLen() <= 1 {
		return 1
	}
	f := new(big.Float).SetPrec(estprec).SetInt(m)
	l := log2(f)
	return bits(l.Mul(l, new(big.Float).SetInt64(k)))
}

// factbits estimates the size of n! by Stirling's approximation,
// log2(n!) ~ (n ln n - n + ln(2 pi n)/2) / ln 2.
func factbits(n int64) int64 {
	if n < 2 {
		return 1
	}
	f := new(big.Float).SetPrec(estprec).SetInt64(n)
	ln := new(big.Float).SetPrec(estprec)
	bigfloat.Log(ln, f)
	r := new(big.Float).SetPrec(estprec).Mul(f, ln)
	r.Sub(r, f)
	tau := new(big.Float).SetPrec(estprec).SetFloat64(2 * math.Pi)
	tau.Mul(tau, f)
	bigfloat.Log(tau, tau)
	tau.Quo(tau, big.NewFloat(2))
	r.Add(r, tau)
	return bits(r.Quo(r, ln2))
}
