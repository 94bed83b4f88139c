package counter

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsecfg) parsecfg
}

type (
	nestopt   int
	strictopt struct{}
)

// parsecfg holds the options for parsing. It is also a ParseOption.
type parsecfg struct {
	// maxNesting is the maximum depth of brackets and unary operators, or 0
	// for no limit.
	maxNesting int
	// strict disables recovery of expressions from noisy input.
	strict bool
}

// MaxNesting limits the depth to which brackets, function calls, and unary
// operators may nest. Deeper input fails to parse with a *NestingError. With
// n <= 0, nesting is unlimited, which is the default.
func MaxNesting(n int) ParseOption {
	if n < 0 {
		n = 0
	}
	return nestopt(n)
}

func (o nestopt) parseOption(p parsecfg) parsecfg {
	p.maxNesting = int(o)
	return p
}

// Strict tells the parser to accept only input that is entirely one
// expression. By default, the parser searches noisy input for the most
// informative expression it contains.
func Strict() ParseOption {
	return strictopt{}
}

func (strictopt) parseOption(p parsecfg) parsecfg {
	p.strict = true
	return p
}

// ParsingPreset creates a parsing preset that may be more efficient when using
// the same non-default parsing options for many calls to Parse. A preset
// panics when it would change any option from the default, but it is safe to
// apply other options after a preset.
func ParsingPreset(opts ...ParseOption) ParseOption {
	var p parsecfg
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	return &p
}

func (o *parsecfg) parseOption(p parsecfg) parsecfg {
	if p != (parsecfg{}) {
		panic("counter: preset applied to non-default parse config")
	}
	return *o
}
