package counter

import (
	"math/big"
	"strconv"
)

// NameError is an error from a lookup for a variable that is missing from the
// evaluation context.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}

// FuncError is an error from evaluating a function call. No functions are
// defined, so every call produces one.
type FuncError struct {
	// Name is the function that was called.
	Name string
}

func (err *FuncError) Error() string {
	return "unknown function: " + strconv.Quote(err.Name)
}

// OperandError is an error indicating a non-integer operand to an operator
// that requires integers: factorial, the bitwise operators, and shifts.
type OperandError struct {
	// Op is the operator.
	Op string
	// X is the offending operand.
	X *big.Rat
}

func (err *OperandError) Error() string {
	return "non-integer operand " + Format(err.X) + " to " + err.Op
}

// ExponentError is an error indicating a non-integer exponent.
type ExponentError struct {
	// X is the exponent.
	X *big.Rat
}

func (err *ExponentError) Error() string {
	return "non-integer exponent " + Format(err.X)
}

// ZeroDivisionError is an error indicating a division by zero, including
// raising zero to a negative power.
type ZeroDivisionError struct {
	// X is the dividend.
	X *big.Rat
}

func (err *ZeroDivisionError) Error() string {
	return "division of " + Format(err.X) + " by zero"
}

// MalformedError is an error indicating an expression that was only partially
// parsed. Parse never returns such expressions.
type MalformedError struct {
	// Expr is the part of the expression that was parsed.
	Expr string
}

func (err *MalformedError) Error() string {
	return "malformed expression near " + err.Expr
}

// DepthError is an error indicating an expression nested more deeply than
// allowed by MaxDepth.
type DepthError struct {
	// Max is the depth limit.
	Max int
}

func (err *DepthError) Error() string {
	return "expression deeper than " + strconv.Itoa(err.Max)
}

// LimitError is an error indicating an operation whose result would be too
// large or a roll of too many dice, either for MaxBits or for any computer.
type LimitError struct {
	// Op is the operator.
	Op string
	// Bits is the estimated size of the result, or 0 if it is too large to
	// estimate.
	Bits int64
	// Max is the limit set by MaxBits, or 0 if there is none.
	Max int64
}

func (err *LimitError) Error() string {
	r := "result of " + err.Op + " too large"
	if err.Bits > 0 {
		r += " (" + strconv.FormatInt(err.Bits, 10) + " bits"
		if err.Max > 0 {
			r += ", limit " + strconv.FormatInt(err.Max, 10)
		}
		r += ")"
	}
	return r
}

// RollError is an error indicating a roll of dice with no sides.
type RollError struct {
	Count, Sides int
}

func (err *RollError) Error() string {
	return "cannot roll " + strconv.Itoa(err.Count) + "d" + strconv.Itoa(err.Sides)
}
