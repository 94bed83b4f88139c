package counter

// Parse finds the most informative expression in text. If the whole text is
// one expression, that is the result. Otherwise, Parse tries every token as a
// starting point and keeps the largest expression found, as measured by
// Expr.Size, preferring earlier ones among equals. A lone number or name is
// not considered useful; if nothing larger is found, the error is a
// *NoParseError.
//
// With Strict, only the first case applies, and the error describes why the
// text is not one expression.
func Parse(text string, opts ...ParseOption) (*Expr, error) {
	var cfg parsecfg
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		cfg = opt.parseOption(cfg)
	}
	toks := tokenize(text)
	first, end, err := parseTokens(toks, &cfg)
	if err == nil && first.kind != nodeBad {
		return newExpr(first), nil
	}
	if cfg.strict {
		if err == nil {
			err = unexpected(toks[end], "end of input")
		}
		return nil, err
	}
	if err != nil {
		if _, ok := err.(*NestingError); ok {
			return nil, err
		}
	}
	var best *node
	size := 1
	for i := 0; i < len(toks)-1; i++ {
		n := first
		if i > 0 {
			var err error
			n, _, err = parseTokens(toks[i:], &cfg)
			if err != nil {
				continue
			}
		}
		if n == nil {
			continue
		}
		if n.kind == nodeBad {
			n = n.left
		}
		if s := n.size(); s > size {
			best, size = n, s
		}
	}
	if best == nil {
		return nil, &NoParseError{Text: text, Err: err}
	}
	return newExpr(best), nil
}
