package expr

import (
	"math"
)

// Compiled is a reusable compiled expression. It is immutable and safe for
// concurrent evaluation against independent contexts.
type Compiled struct {
	text string
	root node
}

// Compile parses the expression text into a reusable evaluator.
// Returns a *ParseError on malformed syntax or disallowed constructs.
func Compile(text string) (*Compiled, error) {
	root, err := parse(text)
	if err != nil {
		return nil, err
	}
	return &Compiled{text: text, root: root}, nil
}

// Text returns the original expression text
func (c *Compiled) Text() string {
	return c.text
}

// Eval evaluates the expression against the given context.
// Returns a *EvalError on missing fields, type mismatches, or arithmetic
// faults. Evaluation has no side effects on the context.
func (c *Compiled) Eval(ctx *Context) (Value, error) {
	return c.root.eval(ctx)
}

// EvalBool evaluates the expression and requires a boolean result, which is
// the shape rule expressions must have.
func (c *Compiled) EvalBool(ctx *Context) (bool, error) {
	v, err := c.Eval(ctx)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, newEvalError("expression %q did not produce a bool: %s", c.text, err.Error())
	}
	return b, nil
}

func (n *literalNode) eval(_ *Context) (Value, error) {
	return n.value, nil
}

func (n *fieldNode) eval(ctx *Context) (Value, error) {
	v, ok := ctx.Lookup(n.group, n.field)
	if !ok {
		return Null(), newMissingFieldError(n.path)
	}
	return v, nil
}

func (n *unaryNode) eval(ctx *Context) (Value, error) {
	v, err := n.operand.eval(ctx)
	if err != nil {
		return Null(), err
	}
	switch n.op {
	case tokNot:
		b, err := v.AsBool()
		if err != nil {
			return Null(), newEvalError("operator ! %s", err.Error())
		}
		return Bool(!b), nil
	case tokMinus:
		f, err := v.AsNumber()
		if err != nil {
			return Null(), newEvalError("unary - %s", err.Error())
		}
		return Number(-f), nil
	default:
		return Null(), newEvalError("unsupported unary operator")
	}
}

// eval for binary operators. && and || evaluate both operands before
// combining: a missing field on either side surfaces deterministically
// instead of depending on operand order.
func (n *binaryNode) eval(ctx *Context) (Value, error) {
	left, err := n.left.eval(ctx)
	if err != nil {
		return Null(), err
	}
	right, err := n.right.eval(ctx)
	if err != nil {
		return Null(), err
	}

	switch n.op {
	case tokAnd, tokOr:
		lb, err := left.AsBool()
		if err != nil {
			return Null(), newEvalError("left operand of logical operator: %s", err.Error())
		}
		rb, err := right.AsBool()
		if err != nil {
			return Null(), newEvalError("right operand of logical operator: %s", err.Error())
		}
		if n.op == tokAnd {
			return Bool(lb && rb), nil
		}
		return Bool(lb || rb), nil

	case tokEq:
		return Bool(left.Equal(right)), nil
	case tokNeq:
		return Bool(!left.Equal(right)), nil

	case tokLt, tokLte, tokGt, tokGte:
		lf, err := left.AsNumber()
		if err != nil {
			return Null(), newEvalError("left operand of comparison: %s", err.Error())
		}
		rf, err := right.AsNumber()
		if err != nil {
			return Null(), newEvalError("right operand of comparison: %s", err.Error())
		}
		switch n.op {
		case tokLt:
			return Bool(lf < rf), nil
		case tokLte:
			return Bool(lf <= rf), nil
		case tokGt:
			return Bool(lf > rf), nil
		default:
			return Bool(lf >= rf), nil
		}

	case tokPlus, tokMinus, tokStar, tokSlash, tokPercent:
		lf, err := left.AsNumber()
		if err != nil {
			return Null(), newEvalError("left operand of arithmetic: %s", err.Error())
		}
		rf, err := right.AsNumber()
		if err != nil {
			return Null(), newEvalError("right operand of arithmetic: %s", err.Error())
		}
		switch n.op {
		case tokPlus:
			return Number(lf + rf), nil
		case tokMinus:
			return Number(lf - rf), nil
		case tokStar:
			return Number(lf * rf), nil
		case tokSlash:
			if rf == 0 {
				return Null(), newEvalError("division by zero")
			}
			return Number(lf / rf), nil
		default:
			if rf == 0 {
				return Null(), newEvalError("modulo by zero")
			}
			return Number(math.Mod(lf, rf)), nil
		}

	default:
		return Null(), newEvalError("unsupported binary operator")
	}
}

func (n *callNode) eval(ctx *Context) (Value, error) {
	return n.fn.call(n, ctx)
}
