package expr

import (
	"fmt"
	"strconv"
)

// Kind identifies the runtime type of a Value
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindBool
	KindString
	KindSeries
)

// String returns the kind name used in error messages
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindSeries:
		return "series"
	default:
		return "unknown"
	}
}

// Value is a runtime value produced by expression evaluation.
// The zero value is null.
type Value struct {
	kind   Kind
	num    float64
	b      bool
	str    string
	series []float64
}

// Null returns the null value
func Null() Value {
	return Value{kind: KindNull}
}

// Number returns a numeric value
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// String returns a string value
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Series returns a series value wrapping a slice of floats.
// The slice is not copied; callers must not mutate it after handing it over.
func Series(s []float64) Value {
	return Value{kind: KindSeries, series: s}
}

// Kind returns the kind of the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsNumber returns the numeric payload, or an EvalError for other kinds
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, newEvalError("expected number, got %s", v.kind)
	}
	return v.num, nil
}

// AsBool returns the boolean payload, or an EvalError for other kinds
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, newEvalError("expected bool, got %s", v.kind)
	}
	return v.b, nil
}

// AsSeries returns the series payload, or an EvalError for other kinds
func (v Value) AsSeries() ([]float64, error) {
	if v.kind != KindSeries {
		return nil, newEvalError("expected series, got %s", v.kind)
	}
	return v.series, nil
}

// Equal reports value equality. Values of different kinds are never equal;
// null equals only null.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.str == o.str
	default:
		return false
	}
}

// GoString renders the value for logs and summaries
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.str)
	case KindSeries:
		return fmt.Sprintf("series[%d]", len(v.series))
	default:
		return "unknown"
	}
}
