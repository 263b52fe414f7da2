package errbridge

import (
	"math"
	"strconv"
)

// ValueType identifies the type held by a Value.
type ValueType uint8

const (
	// TypeInvalid is the type of the zero Value, which stands for a missing value.
	TypeInvalid ValueType = iota
	TypeString
	TypeBool
	TypeI64
	TypeU64
	TypeF64
)

// String returns the type name.
func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeI64:
		return "i64"
	case TypeU64:
		return "u64"
	case TypeF64:
		return "f64"
	default:
		return "invalid"
	}
}

// Value is a scalar stored in an InfoMap.
type Value struct {
	typ  ValueType
	str  string
	bits uint64
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{typ: TypeString, str: s}
}

// BoolValue returns a bool Value.
func BoolValue(b bool) Value {
	var bits uint64
	if b {
		bits = 1
	}
	return Value{typ: TypeBool, bits: bits}
}

// I64Value returns a signed integer Value.
func I64Value(n int64) Value {
	return Value{typ: TypeI64, bits: uint64(n)}
}

// U64Value returns an unsigned integer Value.
func U64Value(n uint64) Value {
	return Value{typ: TypeU64, bits: n}
}

// F64Value returns a floating-point Value.
func F64Value(f float64) Value {
	return Value{typ: TypeF64, bits: math.Float64bits(f)}
}

// Type returns the type of v.
func (v Value) Type() ValueType {
	return v.typ
}

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool {
	return v.typ != TypeInvalid
}

func (v Value) AsString() (string, bool) {
	return v.str, v.typ == TypeString
}

func (v Value) AsBool() (bool, bool) {
	return v.bits != 0, v.typ == TypeBool
}

func (v Value) AsI64() (int64, bool) {
	return int64(v.bits), v.typ == TypeI64
}

func (v Value) AsU64() (uint64, bool) {
	return v.bits, v.typ == TypeU64
}

func (v Value) AsF64() (float64, bool) {
	return math.Float64frombits(v.bits), v.typ == TypeF64
}

// Any returns the held value as a Go value, or nil for an invalid Value.
func (v Value) Any() any {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeBool:
		return v.bits != 0
	case TypeI64:
		return int64(v.bits)
	case TypeU64:
		return v.bits
	case TypeF64:
		return math.Float64frombits(v.bits)
	default:
		return nil
	}
}

// String renders the held value.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeBool:
		return strconv.FormatBool(v.bits != 0)
	case TypeI64:
		return strconv.FormatInt(int64(v.bits), 10)
	case TypeU64:
		return strconv.FormatUint(v.bits, 10)
	case TypeF64:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	default:
		return "<invalid>"
	}
}

// Equal reports whether v and other hold the same type and value.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	if v.typ == TypeF64 {
		return math.Float64frombits(v.bits) == math.Float64frombits(other.bits)
	}
	return v.str == other.str && v.bits == other.bits
}

func (v Value) storageSize() int {
	return len(v.str)
}
