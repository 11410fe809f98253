package adder

import (
	"fmt"
	"math/big"

	"github.com/ATSOTECK/adder/internal/runtime"
)

// Conversion helpers between Go values and interpreter values.

// Int converts a Go int64 to a Python int
func Int(v int64) Value { return runtime.MakeInt(v) }

// Float converts a Go float64 to a Python float
func Float(v float64) Value { return v }

// String converts a Go string to a Python str
func String(v string) Value { return v }

// Bool converts a Go bool to a Python bool
func Bool(v bool) Value { return runtime.MakeBool(v) }

// None is the Python None singleton
func None() Value { return runtime.None }

// List builds a Python list from values
func List(items ...Value) Value { return &runtime.PyList{Items: items} }

// Tuple builds a Python tuple from values
func Tuple(items ...Value) Value { return runtime.NewTuple(items...) }

// AsInt extracts a Go int64 from a Python int or bool
func AsInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case *big.Int:
		if n.IsInt64() {
			return n.Int64(), true
		}
	}
	return 0, false
}

// AsFloat extracts a Go float64 from a Python float
func AsFloat(v Value) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// AsString extracts a Go string from a Python str
func AsString(v Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsBool extracts a Go bool from a Python bool
func AsBool(v Value) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// TypeName reports the Python type name of a value
func TypeName(v Value) string { return runtime.TypeName(v) }

// Repr renders a value the way repr() would, against a state's interpreter
func (s *State) Repr(v Value) (string, error) {
	return s.vm.Repr(v)
}

// GoString renders a value for debugging without an interpreter, using Go
// formatting as a last resort.
func GoString(v Value) string {
	switch x := v.(type) {
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
