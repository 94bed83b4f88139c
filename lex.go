package counter

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexToken struct {
	// text is the source text of the token, except for operators, where it
	// is the canonical spelling of the operator regardless of alias.
	text string
	kind tokenKind
	// pos and end are the byte offsets of the token in the source.
	pos, end int

	// val is the value of a tokenNum.
	val *big.Rat
	// word is the value of a tokenWord.
	word int64
	// count and sides describe a tokenRoll.
	count, sides int
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

// negative reports whether t is a numeric literal written with a leading
// minus sign.
func (t lexToken) negative() bool {
	return t.kind == tokenNum && t.val.Sign() < 0
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenNum is a numeric literal in any radix.
	tokenNum
	// tokenRoll is a dice literal like 3d6.
	tokenRoll
	// tokenWord is a spelled-out number word like "twenty".
	tokenWord
	// tokenIdent is a variable or function name.
	tokenIdent
	// tokenOp is an operator.
	tokenOp
	// tokenOpen is an open parenthesis.
	tokenOpen
	// tokenClose is a close parenthesis.
	tokenClose
	// tokenSep is a function argument separator.
	tokenSep
	// tokenUnknown is a rune the lexer does not recognize.
	tokenUnknown
)

var tokenKindNames = [...]string{
	tokenNone:    "None",
	tokenEOF:     "EOF",
	tokenNum:     "Num",
	tokenRoll:    "Roll",
	tokenWord:    "Word",
	tokenIdent:   "Ident",
	tokenOp:      "Op",
	tokenOpen:    "Open",
	tokenClose:   "Close",
	tokenSep:     "Sep",
	tokenUnknown: "Unknown",
}

func (k tokenKind) String() string {
	if k < 0 || int(k) >= len(tokenKindNames) {
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
	return tokenKindNames[k]
}

// symbols maps operator spellings to their canonical text. Longer symbols
// must be tried before their prefixes.
var symbols = []struct{ sym, op string }{
	{"<<", "<<"},
	{">>", ">>"},
	{"**", "^"},
	{"+", "+"},
	{"-", "-"},
	{"*", "*"},
	{"/", "/"},
	{"^", "^"},
	{"!", "!"},
	{"&", "&"},
	{"|", "|"},
	{"×", "*"},
	{"÷", "/"},
}

// opwords are the case-insensitive word aliases for operators.
var opwords = map[string]string{
	"plus":  "+",
	"minus": "-",
	"times": "*",
	"over":  "/",
	"xor":   "xor",
}

// numwords are the case-insensitive number words.
var numwords = map[string]int64{
	"zero":      0,
	"one":       1,
	"two":       2,
	"three":     3,
	"four":      4,
	"five":      5,
	"six":       6,
	"seven":     7,
	"eight":     8,
	"nine":      9,
	"ten":       10,
	"eleven":    11,
	"twelve":    12,
	"thirteen":  13,
	"fourteen":  14,
	"fifteen":   15,
	"sixteen":   16,
	"seventeen": 17,
	"eighteen":  18,
	"nineteen":  19,
	"twenty":    20,
	"thirty":    30,
	"forty":     40,
	"fifty":     50,
	"sixty":     60,
	"seventy":   70,
	"eighty":    80,
	"ninety":    90,
	"hundred":   100,
	"thousand":  1e3,
	"million":   1e6,
	"billion":   1e9,
	"trillion":  1e12,
}

type lexer struct {
	src string
	// off is added to every token position. It lets a lexer started on a
	// suffix of some text report positions in that text.
	off int
	pos int
	eof bool
}

func lex(src string) *lexer {
	return &lexer{src: src}
}

// tokenize lexes all of src. The result always ends with an EOF token.
func tokenize(src string) []lexToken {
	l := lex(src)
	var toks []lexToken
	for {
		tok, ok := l.next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

// next scans the next token from the input. The first time the end of the
// input is reached, the result is an EOF token. Afterward, the second result
// is false. Lexing never fails; runes that begin no token become
// tokenUnknown.
func (l *lexer) next() (lexToken, bool) {
	if l.eof {
		return lexToken{}, false
	}
	for l.pos < len(l.src) {
		r, sz := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += sz
	}
	start := l.pos
	if start >= len(l.src) {
		l.eof = true
		return l.token(tokenEOF, start), true
	}
	r, sz := utf8.DecodeRuneInString(l.src[start:])
	switch {
	case '0' <= r && r <= '9':
		return l.scanNum(start), true
	case r == '-' && start+1 < len(l.src) && isDigit(l.src[start+1]):
		// A minus sign immediately followed by digits is a negative
		// literal, unless the digits are the count of a roll.
		if _, _, _, ok := scanRoll(l.src, start+1); !ok {
			return l.scanNum(start), true
		}
	case isLetter(r):
		return l.scanWord(start), true
	case r == '(':
		l.pos += sz
		return l.token(tokenOpen, start), true
	case r == ')':
		l.pos += sz
		return l.token(tokenClose, start), true
	case r == ',':
		l.pos += sz
		return l.token(tokenSep, start), true
	}
	for _, s := range symbols {
		if strings.HasPrefix(l.src[start:], s.sym) {
			l.pos += len(s.sym)
			tok := l.token(tokenOp, start)
			tok.text = s.op
			return tok, true
		}
	}
	l.pos += sz
	return l.token(tokenUnknown, start), true
}

// token creates a token of the given kind spanning from start to the current
// position.
func (l *lexer) token(kind tokenKind, start int) lexToken {
	return lexToken{
		text: l.src[start:l.pos],
		kind: kind,
		pos:  start + l.off,
		end:  l.pos + l.off,
	}
}

// scanNum scans a numeric literal or a roll with a count. The literal starts
// with either a digit or a minus sign followed by a digit.
func (l *lexer) scanNum(start int) lexToken {
	if end, count, sides, ok := scanRoll(l.src, start); ok {
		l.pos = end
		if count < 0 {
			return l.token(tokenUnknown, start)
		}
		tok := l.token(tokenRoll, start)
		tok.count, tok.sides = count, sides
		return tok
	}
	p := start
	neg := l.src[p] == '-'
	if neg {
		p++
	}
	radix := 10
	if l.src[p] == '0' && p+2 < len(l.src) {
		rx := 0
		switch l.src[p+1] {
		case 'x', 'X':
			rx = 16
		case 'o', 'O':
			rx = 8
		case 'b', 'B':
			rx = 2
		}
		// The prefix only counts if a digit of the radix follows it.
		if rx != 0 && digitVal(l.src[p+2]) < rx {
			radix = rx
			p += 2
		}
	}
	ip := p
	for p < len(l.src) && digitVal(l.src[p]) < radix {
		p++
	}
	ie := p
	var fp, fe int
	if p+1 < len(l.src) && l.src[p] == '.' && digitVal(l.src[p+1]) < radix {
		fp = p + 1
		p = fp
		for p < len(l.src) && digitVal(l.src[p]) < radix {
			p++
		}
		fe = p
	}
	l.pos = p
	tok := l.token(tokenNum, start)
	tok.val = numval(l.src[ip:ie], l.src[fp:fe], radix)
	if neg {
		tok.val.Neg(tok.val)
	}
	return tok
}

// numval computes integer + fraction/radix^len(fraction) exactly.
func numval(integer, fraction string, radix int) *big.Rat {
	var n big.Int
	if _, ok := n.SetString(integer, radix); !ok {
		panic("counter: invalid digits " + strconv.Quote(integer))
	}
	r := new(big.Rat).SetInt(&n)
	if fraction == "" {
		return r
	}
	var f, d big.Int
	if _, ok := f.SetString(fraction, radix); !ok {
		panic("counter: invalid digits " + strconv.Quote(fraction))
	}
	d.Exp(big.NewInt(int64(radix)), big.NewInt(int64(len(fraction))), nil)
	return r.Add(r, new(big.Rat).SetFrac(&f, &d))
}

// scanRoll checks for a roll literal [count]d<sides> starting at p. The
// roll must not continue into an identifier. If the count or sides do not
// fit in an int, count is -1 and the literal should be treated as
// unrecognized.
func scanRoll(src string, p int) (end, count, sides int, ok bool) {
	cs := p
	for p < len(src) && isDigit(src[p]) {
		p++
	}
	ce := p
	if p >= len(src) || src[p] != 'd' && src[p] != 'D' {
		return 0, 0, 0, false
	}
	p++
	ss := p
	for p < len(src) && isDigit(src[p]) {
		p++
	}
	if p == ss {
		return 0, 0, 0, false
	}
	if p < len(src) {
		if r, _ := utf8.DecodeRuneInString(src[p:]); isIdentRune(r) {
			return 0, 0, 0, false
		}
	}
	count = 1
	if ce > cs {
		n, err := strconv.Atoi(src[cs:ce])
		if err != nil {
			return p, -1, 0, true
		}
		count = n
	}
	sides, err := strconv.Atoi(src[ss:p])
	if err != nil {
		return p, -1, 0, true
	}
	return p, count, sides, true
}

// scanWord scans an identifier, then classifies it as a roll, number word,
// operator word, or plain name.
func (l *lexer) scanWord(start int) lexToken {
	if end, count, sides, ok := scanRoll(l.src, start); ok {
		l.pos = end
		if count < 0 {
			return l.token(tokenUnknown, start)
		}
		tok := l.token(tokenRoll, start)
		tok.count, tok.sides = count, sides
		return tok
	}
	p := start
	for p < len(l.src) {
		r, sz := utf8.DecodeRuneInString(l.src[p:])
		if !isIdentRune(r) {
			break
		}
		p += sz
	}
	l.pos = p
	word := strings.ToLower(l.src[start:p])
	if v, ok := numwords[word]; ok {
		tok := l.token(tokenWord, start)
		tok.word = v
		return tok
	}
	if op, ok := opwords[word]; ok {
		tok := l.token(tokenOp, start)
		tok.text = op
		return tok
	}
	return l.token(tokenIdent, start)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isLetter reports whether r can begin a name. Names are ASCII only.
func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

func isIdentRune(r rune) bool {
	return r == '_' || isLetter(r) || '0' <= r && r <= '9'
}

// digitVal returns the value of c as a digit in radix up to 16, or 16 if c is
// not a digit.
func digitVal(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	default:
		return 16
	}
}
