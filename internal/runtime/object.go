package runtime

import (
	"math/big"
)

// Value represents a Python value
type Value = any

// PyObject is implemented by every non-adopted Python object and reports
// the object's Python type.
type PyObject interface {
	PyType() *Type
}

// Adopted host representations. A handful of Go types stand in directly for
// their Python counterparts so that the hot paths of the evaluation loop do
// not allocate wrapper objects:
//
//	bool     -> bool
//	int64    -> int
//	*big.Int -> int (values outside the int64 range)
//	float64  -> float
//	string   -> str
//
// Everything else implements PyObject.

// PyNone represents Python's None
type PyNone struct{}

func (n *PyNone) PyType() *Type { return NoneType }

// None is the singleton None value
var None = &PyNone{}

// PyNotImplemented is the type of the NotImplemented singleton returned by
// binary operator slots that decline their operands.
type PyNotImplemented struct{}

func (n *PyNotImplemented) PyType() *Type { return NotImplementedType }

// NotImplemented is the singleton returned by declined binary operations
var NotImplemented = &PyNotImplemented{}

// PyEllipsis represents the '...' singleton
type PyEllipsis struct{}

func (e *PyEllipsis) PyType() *Type { return EllipsisType }

// Ellipsis is the singleton '...' value
var Ellipsis = &PyEllipsis{}

// TypeOf returns the Python type of any value. Adopted Go representations
// map through the type switch; everything else reports its own type. The
// switch is a single indirection and never allocates.
func TypeOf(v Value) *Type {
	switch v.(type) {
	case bool:
		return BoolType
	case int64:
		return IntType
	case *big.Int:
		return IntType
	case float64:
		return FloatType
	case string:
		return StrType
	}
	if o, ok := v.(PyObject); ok {
		return o.PyType()
	}
	// A value with no resolvable type is a runtime bug, not a user error.
	return nil
}

// TypeName returns the Python-visible type name of a value, for error messages.
func TypeName(v Value) string {
	if t := TypeOf(v); t != nil {
		return t.Name
	}
	return "<invalid>"
}

// Small integer cache for common values (-5 to 256)
// This avoids boxing allocations when adopted int64 values round-trip
// through interfaces.
const (
	smallIntMin   = -5
	smallIntMax   = 256
	smallIntCount = smallIntMax - smallIntMin + 1
)

var smallIntCache [smallIntCount]Value

func init() {
	for i := 0; i < smallIntCount; i++ {
		smallIntCache[i] = int64(i + smallIntMin)
	}
}

// MakeInt returns an int value, reusing pre-boxed small integers
func MakeInt(v int64) Value {
	if v >= smallIntMin && v <= smallIntMax {
		return smallIntCache[v-smallIntMin]
	}
	return v
}

// MakeBigInt returns an int value from a big.Int, demoting to the int64
// representation when it fits.
func MakeBigInt(v *big.Int) Value {
	if v.IsInt64() {
		return MakeInt(v.Int64())
	}
	return v
}

// MakeBool returns the adopted bool for a Go bool
func MakeBool(v bool) Value {
	return v
}

// asIntPair extracts the integer representation of a value accepted by the
// int type (int64, *big.Int, or bool which inherits int behavior).
// big is non-nil only for the big representation.
func asIntPair(v Value) (small int64, bigv *big.Int, ok bool) {
	switch n := v.(type) {
	case int64:
		return n, nil, true
	case *big.Int:
		return 0, n, true
	case bool:
		if n {
			return 1, nil, true
		}
		return 0, nil, true
	}
	return 0, nil, false
}

// asFloat extracts a float64 from a float or anything accepted by int
func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
