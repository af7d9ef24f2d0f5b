package expr

// node is a compiled AST node. Nodes are immutable after parsing, which is
// what makes compiled expressions safe to share across evaluations.
type node interface {
	eval(ctx *Context) (Value, error)
}

// literalNode holds a constant value
type literalNode struct {
	value Value
}

// fieldNode is a dotted field reference such as "rsi_14.value".
// A single-segment path resolves the group's "value" field.
type fieldNode struct {
	group string
	field string
	path  string // original dotted text, for error messages
}

// unaryNode is !x or -x
type unaryNode struct {
	op      tokenType
	operand node
}

// binaryNode covers arithmetic, comparison, and logical operators.
// Logical operators evaluate both operands (strict semantics).
type binaryNode struct {
	op    tokenType
	left  node
	right node
}

// callNode is a call to one of the allow-listed builtin functions
type callNode struct {
	name string
	fn   builtin
	args []node
}
