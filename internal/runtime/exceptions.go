package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// errEmptySlot signals that a consulted slot is not defined for the type.
// It never escapes the abstract operation API: every caller either falls
// back or converts it to a Python-visible exception.
var errEmptySlot = errors.New("empty slot")

// PyException is a Python-visible exception. It implements error so it can
// travel through ordinary Go return paths, and PyObject so it can live on
// the value stack and be re-raised.
type PyException struct {
	ExcType *Type
	Args    []Value
	Cause   *PyException
	Context *PyException

	// Dict holds attributes assigned to the exception instance
	Dict map[string]Value
}

func (e *PyException) PyType() *Type { return e.ExcType }

func (e *PyException) Error() string {
	msg := e.text()
	if msg == "" {
		return e.ExcType.Name
	}
	return e.ExcType.Name + ": " + msg
}

// text renders the exception arguments the way str(exc) does
func (e *PyException) text() string {
	switch len(e.Args) {
	case 0:
		return ""
	case 1:
		if s, ok := e.Args[0].(string); ok {
			return s
		}
		return reprFallback(e.Args[0])
	default:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = reprFallback(a)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

// reprFallback formats a value without a VM, for error text only
func reprFallback(v Value) string {
	switch x := v.(type) {
	case string:
		return "'" + x + "'"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Matches reports whether the exception would be caught by an except clause
// naming cls. Only the precomputed MRO is consulted.
func (e *PyException) Matches(cls *Type) bool {
	return IsSubType(e.ExcType, cls)
}

// InterpreterError is a non-Python-visible internal error: a bug in the
// runtime or a corrupt code object. It propagates out of the evaluation
// loop unchanged and is never caught by Python handlers.
type InterpreterError struct {
	Msg    string
	Opcode Opcode
	IP     int
	Err    error
}

func (e *InterpreterError) Error() string {
	s := "interpreter error: " + e.Msg
	if e.Opcode != 0 || e.IP != 0 {
		s += fmt.Sprintf(" (op=%s ip=%d)", e.Opcode.Name(), e.IP)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *InterpreterError) Unwrap() error { return e.Err }

// Fatal builds an InterpreterError from a format string
func Fatal(format string, a ...any) *InterpreterError {
	return &InterpreterError{Msg: fmt.Sprintf(format, a...)}
}

// Raise builds a Python exception of the given type with a formatted
// message. Type-name substitutions in callers are truncated to 200
// characters before formatting.
func (vm *VM) Raise(t *Type, format string, a ...any) *PyException {
	return &PyException{ExcType: t, Args: []Value{fmt.Sprintf(format, a...)}}
}

// RaiseTypeError is shorthand for the most common raise
func (vm *VM) RaiseTypeError(format string, a ...any) *PyException {
	return vm.Raise(TypeErrorType, format, a...)
}

// RaiseNoArgs builds an exception with an empty args tuple. StopIteration
// carries no message.
func (vm *VM) RaiseNoArgs(t *Type) *PyException {
	return &PyException{ExcType: t, Args: []Value{}}
}

// trimType truncates a type name for message formatting, matching the
// %.200s convention of the message templates.
func trimType(name string) string {
	if len(name) > 200 {
		return name[:200]
	}
	return name
}

// trimAttr truncates an attribute name for message formatting (%.50s)
func trimAttr(name string) string {
	if len(name) > 50 {
		return name[:50]
	}
	return name
}

// asPyException converts any error into a Python exception, or reports that
// it must propagate as-is (empty-slot sentinel and internal errors).
func asPyException(err error) (*PyException, bool) {
	var exc *PyException
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}

// isEmptySlot reports whether err is the internal empty-slot condition
func isEmptySlot(err error) bool {
	return err == errEmptySlot
}
