package expr

// parser is a recursive-descent parser over the fixed token stream.
// Precedence, loosest first: || then && then comparison then +- then */%
// then unary then primary.
type parser struct {
	input  string
	tokens []token
	pos    int
}

func parse(input string) (node, error) {
	lx := newLexer(input)
	tokens, err := lx.lexAll()
	if err != nil {
		return nil, err
	}

	p := &parser{input: input, tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokEOF {
		return nil, newParseError(input, tok.pos, "unexpected trailing token")
	}
	return root, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tokOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokAnd {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tokAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	switch op := p.peek().typ; op {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}

		// Chained comparisons like a < b < c are ambiguous; reject them
		switch next := p.peek(); next.typ {
		case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
			return nil, newParseError(p.input, next.pos, "chained comparisons are not allowed")
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().typ
		if op != tokPlus && op != tokMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().typ
		if op != tokStar && op != tokSlash && op != tokPercent {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	switch tok := p.peek(); tok.typ {
	case tokNot, tokMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: tok.typ, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	switch tok.typ {
	case tokNumber:
		p.advance()
		return &literalNode{value: Number(tok.num)}, nil
	case tokString:
		p.advance()
		return &literalNode{value: String(tok.lit)}, nil
	case tokTrue:
		p.advance()
		return &literalNode{value: Bool(true)}, nil
	case tokFalse:
		p.advance()
		return &literalNode{value: Bool(false)}, nil
	case tokNull:
		p.advance()
		return &literalNode{value: Null()}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().typ != tokRParen {
			return nil, newParseError(p.input, p.peek().pos, "expected closing parenthesis")
		}
		p.advance()
		return inner, nil
	case tokIdent:
		return p.parseIdent()
	case tokEOF:
		return nil, newParseError(p.input, tok.pos, "unexpected end of expression")
	default:
		return nil, newParseError(p.input, tok.pos, "unexpected token")
	}
}

// parseIdent handles both function calls and dotted field references.
// Function names are checked against the allow-list at parse time so an
// unknown call fails the load, not the trade.
func (p *parser) parseIdent() (node, error) {
	tok := p.peek()
	p.advance()

	if p.peek().typ == tokLParen {
		fn, ok := builtins[tok.lit]
		if !ok {
			return nil, newParseError(p.input, tok.pos, "unknown function %q", tok.lit)
		}
		p.advance() // consume '('

		var args []node
		if p.peek().typ != tokRParen {
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().typ != tokComma {
					break
				}
				p.advance()
			}
		}
		if p.peek().typ != tokRParen {
			return nil, newParseError(p.input, p.peek().pos, "expected closing parenthesis in call to %q", tok.lit)
		}
		p.advance()

		if err := fn.checkArity(len(args)); err != nil {
			return nil, newParseError(p.input, tok.pos, "%s", err.Error())
		}
		return &callNode{name: tok.lit, fn: fn, args: args}, nil
	}

	// Field reference: "group" or "group.field"
	group := tok.lit
	field := "value"
	path := group
	if p.peek().typ == tokDot {
		p.advance()
		fieldTok := p.peek()
		if fieldTok.typ != tokIdent {
			return nil, newParseError(p.input, fieldTok.pos, "expected field name after '.'")
		}
		p.advance()
		field = fieldTok.lit
		path = group + "." + field

		if p.peek().typ == tokDot {
			return nil, newParseError(p.input, p.peek().pos, "field paths have at most two segments")
		}
	}
	return &fieldNode{group: group, field: field, path: path}, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}
