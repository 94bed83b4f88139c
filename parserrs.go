package counter

import (
	"strconv"
	"strings"
)

// ParseError is an error indicating that no expression could be derived from
// the input at some position. It implements InputError.
type ParseError struct {
	// Col is the byte offset of the token that could not be parsed.
	Col int
	// Found is the text of that token, or the empty string at the end of the
	// input.
	Found string
	// Expected lists descriptions of the tokens that would have been valid.
	Expected []string
}

func (err *ParseError) Error() string {
	found := "end of input"
	if err.Found != "" {
		found = strconv.Quote(err.Found)
	}
	msg := "unexpected " + found
	switch len(err.Expected) {
	case 0:
	case 1:
		msg += ", expected " + err.Expected[0]
	default:
		msg += ", expected one of " + strings.Join(err.Expected, " ")
	}
	return errpos(err.Col, msg)
}

func (err *ParseError) Pos() int {
	return err.Col
}

// unexpected creates a ParseError for tok.
func unexpected(tok lexToken, expected ...string) error {
	return &ParseError{Col: tok.pos, Found: tok.text, Expected: expected}
}

// NestingError is an error indicating input nested more deeply than allowed
// by MaxNesting. It implements InputError.
type NestingError struct {
	// Col is the position of the token that exceeded the limit.
	Col int
	// Max is the nesting limit.
	Max int
}

func (err *NestingError) Error() string {
	return errpos(err.Col, "expression nested deeper than "+strconv.Itoa(err.Max))
}

func (err *NestingError) Pos() int {
	return err.Col
}

// NoParseError is an error indicating that no part of the input was a useful
// expression.
type NoParseError struct {
	// Text is the input.
	Text string
	// Err is the error from parsing the entire input, if any.
	Err error
}

func (err *NoParseError) Error() string {
	return "no good parse in " + strconv.Quote(err.Text)
}

func (err *NoParseError) Unwrap() error {
	return err.Err
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input at a known position implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the byte offset of the start
	// of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*ParseError)(nil)
	_ InputError = (*NestingError)(nil)
)
