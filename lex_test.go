package counter

import (
	"math/big"
	"testing"
)

// tok is a compact description of a token for tests.
type tok struct {
	kind tokenKind
	text string
	pos  int
}

func TestLex(t *testing.T) {
	cases := []struct {
		src    string
		tokens []tok
	}{
		// spaces
		{"", nil},
		{" \t \r\n ", nil},
		// numbers
		{"0", []tok{{tokenNum, "0", 0}}},
		{"9876543210", []tok{{tokenNum, "9876543210", 0}}},
		{"1 0", []tok{{tokenNum, "1", 0}, {tokenNum, "0", 2}}},
		{"1.25", []tok{{tokenNum, "1.25", 0}}},
		{"-1", []tok{{tokenNum, "-1", 0}}},
		{"- 1", []tok{{tokenOp, "-", 0}, {tokenNum, "1", 2}}},
		{"1-2", []tok{{tokenNum, "1", 0}, {tokenNum, "-2", 1}}},
		{"0x1f", []tok{{tokenNum, "0x1f", 0}}},
		{"0o17", []tok{{tokenNum, "0o17", 0}}},
		{"0b101.1", []tok{{tokenNum, "0b101.1", 0}}},
		{"0x", []tok{{tokenNum, "0", 0}, {tokenIdent, "x", 1}}},
		{"1.", []tok{{tokenNum, "1", 0}, {tokenUnknown, ".", 1}}},
		{"1.1.1", []tok{{tokenNum, "1.1", 0}, {tokenUnknown, ".", 3}, {tokenNum, "1", 4}}},
		{"2x", []tok{{tokenNum, "2", 0}, {tokenIdent, "x", 1}}},
		// rolls
		{"2d6", []tok{{tokenRoll, "2d6", 0}}},
		{"d20", []tok{{tokenRoll, "d20", 0}}},
		{"3D4", []tok{{tokenRoll, "3D4", 0}}},
		{"-2d6", []tok{{tokenOp, "-", 0}, {tokenRoll, "2d6", 1}}},
		{"2d", []tok{{tokenNum, "2", 0}, {tokenIdent, "d", 1}}},
		{"d6x", []tok{{tokenIdent, "d6x", 0}}},
		{"0x1d6", []tok{{tokenNum, "0x1d6", 0}}},
		{"99999999999999999999d6", []tok{{tokenUnknown, "99999999999999999999d6", 0}}},
		// identifiers and words
		{"x", []tok{{tokenIdent, "x", 0}}},
		{"x_1", []tok{{tokenIdent, "x_1", 0}}},
		{"π", []tok{{tokenUnknown, "π", 0}}},
		{"xπ", []tok{{tokenIdent, "x", 0}, {tokenUnknown, "π", 1}}},
		{"café", []tok{{tokenIdent, "caf", 0}, {tokenUnknown, "é", 3}}},
		{"d6π", []tok{{tokenRoll, "d6", 0}, {tokenUnknown, "π", 2}}},
		{"one", []tok{{tokenWord, "one", 0}}},
		{"Twenty", []tok{{tokenWord, "Twenty", 0}}},
		{"HUNDRED", []tok{{tokenWord, "HUNDRED", 0}}},
		{"oneself", []tok{{tokenIdent, "oneself", 0}}},
		{"x(", []tok{{tokenIdent, "x", 0}, {tokenOpen, "(", 1}}},
		// operators
		{"+", []tok{{tokenOp, "+", 0}}},
		{"<<>>", []tok{{tokenOp, "<<", 0}, {tokenOp, ">>", 2}}},
		{"**", []tok{{tokenOp, "^", 0}}},
		{"×÷", []tok{{tokenOp, "*", 0}, {tokenOp, "/", 2}}},
		{"a XOR b", []tok{{tokenIdent, "a", 0}, {tokenOp, "xor", 2}, {tokenIdent, "b", 6}}},
		{"Plus minus times over", []tok{{tokenOp, "+", 0}, {tokenOp, "-", 5}, {tokenOp, "*", 11}, {tokenOp, "/", 17}}},
		{"and", []tok{{tokenIdent, "and", 0}}},
		{"3!", []tok{{tokenNum, "3", 0}, {tokenOp, "!", 1}}},
		// brackets
		{"(,)", []tok{{tokenOpen, "(", 0}, {tokenSep, ",", 1}, {tokenClose, ")", 2}}},
		// unrecognized
		{"$", []tok{{tokenUnknown, "$", 0}}},
		{"a$", []tok{{tokenIdent, "a", 0}, {tokenUnknown, "$", 1}}},
		{"<", []tok{{tokenUnknown, "<", 0}}},
		{"_a", []tok{{tokenUnknown, "_", 0}, {tokenIdent, "a", 1}}},
	}

	for _, c := range cases {
		toks := tokenize(c.src)
		if len(toks) != len(c.tokens)+1 {
			t.Errorf("scanning %q: want %d tokens, got %v", c.src, len(c.tokens)+1, toks)
			continue
		}
		for i, want := range c.tokens {
			got := toks[i]
			if got.kind != want.kind || got.text != want.text || got.pos != want.pos {
				t.Errorf("scanning %q: want %v:%s@%d, got %v", c.src, want.kind, want.text, want.pos, got)
			}
		}
		if eof := toks[len(toks)-1]; eof.kind != tokenEOF || eof.pos != len(c.src) {
			t.Errorf("scanning %q: bad final token %v", c.src, eof)
		}
	}
}

func TestLexValues(t *testing.T) {
	cases := []struct {
		src  string
		want *big.Rat
	}{
		{"0", big.NewRat(0, 1)},
		{"42", big.NewRat(42, 1)},
		{"-42", big.NewRat(-42, 1)},
		{"1.25", big.NewRat(5, 4)},
		{"0.1", big.NewRat(1, 10)},
		{"-0.5", big.NewRat(-1, 2)},
		{"0x1f", big.NewRat(31, 1)},
		{"0XFF", big.NewRat(255, 1)},
		{"0o17", big.NewRat(15, 1)},
		{"0b101.1", big.NewRat(11, 2)},
		{"0x0.8", big.NewRat(1, 2)},
		{"123456789012345678901234567890", func() *big.Rat {
			r, _ := new(big.Rat).SetString("123456789012345678901234567890")
			return r
		}()},
	}
	for _, c := range cases {
		toks := tokenize(c.src)
		if toks[0].kind != tokenNum {
			t.Errorf("%q lexed as %v", c.src, toks[0])
			continue
		}
		if toks[0].val.Cmp(c.want) != 0 {
			t.Errorf("%q: want %v, got %v", c.src, c.want, toks[0].val)
		}
	}
}

func TestLexRolls(t *testing.T) {
	cases := []struct {
		src          string
		count, sides int
	}{
		{"2d6", 2, 6},
		{"d20", 1, 20},
		{"0d4", 0, 4},
		{"10D100", 10, 100},
		{"1d0", 1, 0},
	}
	for _, c := range cases {
		toks := tokenize(c.src)
		if toks[0].kind != tokenRoll || toks[0].count != c.count || toks[0].sides != c.sides {
			t.Errorf("%q: want roll %dd%d, got %v (%d, %d)", c.src, c.count, c.sides, toks[0], toks[0].count, toks[0].sides)
		}
	}
}

func TestLexWords(t *testing.T) {
	words := []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
		"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
		"sixteen", "seventeen", "eighteen", "nineteen", "twenty", "thirty",
		"forty", "fifty", "sixty", "seventy", "eighty", "ninety", "hundred",
		"thousand", "million", "billion", "trillion",
	}
	for _, w := range words {
		toks := tokenize(w)
		if toks[0].kind != tokenWord {
			t.Errorf("%q lexed as %v", w, toks[0])
		}
	}
	if v := tokenize("trillion")[0].word; v != 1e12 {
		t.Errorf("trillion is %d", v)
	}
}

// TestLexRestart checks that lexing from any token boundary gives the same
// tokens as lexing the whole input.
func TestLexRestart(t *testing.T) {
	cases := []string{
		"one hundred fifty + 3",
		"1-2--3 - -4",
		"roll 2d6+d8 for (0x1f << 2) & 0b11 xor 7!",
		"f(1, 2.5) $$ twenty two",
		"  spaced   out\tinput  ",
	}
	for _, src := range cases {
		all := tokenize(src)
		for i, tk := range all {
			l := lex(src[tk.pos:])
			l.off = tk.pos
			for j := i; j < len(all); j++ {
				got, ok := l.next()
				if !ok {
					t.Errorf("%q from %d: early end at token %d", src, tk.pos, j)
					break
				}
				want := all[j]
				if got.kind != want.kind || got.text != want.text || got.pos != want.pos || got.end != want.end {
					t.Errorf("%q from %d: want %v, got %v", src, tk.pos, want, got)
				}
			}
			if _, ok := l.next(); ok {
				t.Errorf("%q from %d: extra tokens", src, tk.pos)
			}
		}
	}
}
