package bytecode

import (
	"math"
	"strconv"
)

// ValueType identifies the runtime type of a Value.
type ValueType uint8

const (
	TypeNil ValueType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeFunction
)

// String returns a human-readable name for a value type.
func (t ValueType) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is a tagged union over nil, booleans, 64-bit floats, immutable
// strings and function closures. Nil/Bool/Number copy by value; String and
// Function copy by shared reference. There are no other heap types.
type Value struct {
	typ ValueType
	b   bool
	num float64
	str string
	fn  *Closure
}

// Closure is a runtime function value: a compiled chunk plus the capture
// cells resolved when the closure was instantiated.
type Closure struct {
	Chunk    *Chunk
	Upvalues []*Upvalue
}

// Upvalue is a mutable cell holding a value captured from an enclosing
// function's scope. Cells are shared between closures that capture the
// same variable through nesting.
type Upvalue struct {
	Value Value
}

// Constructors

// NilValue returns the nil value.
func NilValue() Value {
	return Value{typ: TypeNil}
}

// BoolValue returns a boolean value.
func BoolValue(b bool) Value {
	return Value{typ: TypeBool, b: b}
}

// NumberValue returns a number value.
func NumberValue(n float64) Value {
	return Value{typ: TypeNumber, num: n}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{typ: TypeString, str: s}
}

// FunctionValue returns a function value wrapping the given closure.
func FunctionValue(fn *Closure) Value {
	return Value{typ: TypeFunction, fn: fn}
}

// Type checking

// Type returns the runtime type of the value.
func (v Value) Type() ValueType { return v.typ }

// IsNil returns true if v is nil.
func (v Value) IsNil() bool { return v.typ == TypeNil }

// IsBool returns true if v is a boolean.
func (v Value) IsBool() bool { return v.typ == TypeBool }

// IsNumber returns true if v is a number.
func (v Value) IsNumber() bool { return v.typ == TypeNumber }

// IsString returns true if v is a string.
func (v Value) IsString() bool { return v.typ == TypeString }

// IsFunction returns true if v is a function.
func (v Value) IsFunction() bool { return v.typ == TypeFunction }

// Accessors. Each returns the zero value when the tag does not match;
// callers type-check first.

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Number returns the numeric payload.
func (v Value) Number() float64 { return v.num }

// Str returns the string payload.
func (v Value) Str() string { return v.str }

// Fn returns the closure payload.
func (v Value) Fn() *Closure { return v.fn }

// IsTruthy applies the truthiness rule: only nil and false are falsy;
// everything else (including 0 and the empty string) is truthy.
func (v Value) IsTruthy() bool {
	switch v.typ {
	case TypeNil:
		return false
	case TypeBool:
		return v.b
	default:
		return true
	}
}

// Equals compares two values. Values of different types are never equal.
// Numbers follow IEEE-754 equality (NaN ~= NaN); strings compare by
// content; functions compare by identity.
func (v Value) Equals(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNil:
		return true
	case TypeBool:
		return v.b == other.b
	case TypeNumber:
		return v.num == other.num
	case TypeString:
		return v.str == other.str
	case TypeFunction:
		return v.fn == other.fn
	default:
		return false
	}
}

// String renders the value using the print rule: nil/true/false literally,
// numbers as shortest round-trip decimal with no fractional part for
// integral values, strings as their unquoted content.
func (v Value) String() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBool:
		if v.b {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.num)
	case TypeString:
		return v.str
	case TypeFunction:
		name := v.fn.Chunk.Name
		if name == "" {
			name = "anonymous"
		}
		return "function: " + name
	default:
		return "unknown"
	}
}

// formatNumber renders a float as the shortest decimal text that round-trips.
// Integral values render without a fractional part.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	// Shortest 'g' formatting switches to exponent notation at 1e6, which
	// would render integral values like 1000000 as "1e+06". Integers that
	// float64 represents exactly print in plain decimal instead.
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
