// Package counter finds and evaluates arithmetic in loosely structured text.
//
// Expressions mix digits, spelled-out English numbers, dice, and bitwise
// operators: "one hundred fifty + 3", "2d6 + 4", "0xff & 0b1010 << 2". Every
// value is an exact rational number; there is no floating point. "1/3 * 3"
// is exactly 1.
//
// Input does not have to be clean. Parse tolerates noise before, after, and
// around an expression, and returns the largest expression it can find:
// "roll 2d6 + 3 for damage" parses as "2d6 + 3". Use Strict to require the
// whole input to be an expression.
//
// Evaluation happens in a Context, which holds variable definitions, the
// random source for dice, and optional resource limits. Function call syntax
// is recognized, but no functions exist, so calls always fail to evaluate.
package counter
