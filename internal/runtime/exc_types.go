package runtime

import "fmt"

// Built-in exception types. Instances are *PyException values; the slots
// here give them construction, text and attribute behavior, and user
// subclasses inherit everything through the MRO.

func excNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	if len(kwargs) != 0 {
		return nil, vm.RaiseTypeError("%s() takes no keyword arguments", t.Name)
	}
	return &PyException{ExcType: t, Args: append([]Value(nil), args...)}, nil
}

func excInit(vm *VM, self Value, args []Value, kwargs map[string]Value) error {
	return nil
}

func excStr(vm *VM, self Value) (Value, error) {
	e, ok := self.(*PyException)
	if !ok {
		return nil, Fatal("BaseException.__str__ applied to %s", TypeName(self))
	}
	switch len(e.Args) {
	case 0:
		return "", nil
	case 1:
		return vm.Str(e.Args[0])
	default:
		return tupleRepr(vm, NewTuple(e.Args...))
	}
}

func excRepr(vm *VM, self Value) (Value, error) {
	e, ok := self.(*PyException)
	if !ok {
		return nil, Fatal("BaseException.__repr__ applied to %s", TypeName(self))
	}
	args, err := tupleRepr(vm, NewTuple(e.Args...))
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s%s", e.ExcType.Name, args), nil
}

// excGetAttr resolves the args tuple before falling back to the generic path
func excGetAttr(vm *VM, self Value, name string) (Value, error) {
	if e, ok := self.(*PyException); ok && name == "args" {
		return NewTuple(e.Args...), nil
	}
	return genericGetAttr(vm, self, name)
}

// newExceptionType creates one node of the built-in hierarchy
func newExceptionType(name string, base *Type) *Type {
	return NewTypeFromSpec(&TypeSpec{
		Name:  name,
		Bases: []*Type{base},
	})
}

func initExceptionTypes() {
	BaseExceptionType = NewTypeFromSpec(&TypeSpec{
		Name: "BaseException",
		Slots: map[Slot]any{
			SlotNew:          newFunc(excNew),
			SlotInit:         initFunc(excInit),
			SlotStr:          unaryFunc(excStr),
			SlotRepr:         unaryFunc(excRepr),
			SlotGetattribute: getattrFunc(excGetAttr),
		},
	})
	ExceptionType = newExceptionType("Exception", BaseExceptionType)

	TypeErrorType = newExceptionType("TypeError", ExceptionType)
	ValueErrorType = newExceptionType("ValueError", ExceptionType)
	AttributeErrorType = newExceptionType("AttributeError", ExceptionType)
	NameErrorType = newExceptionType("NameError", ExceptionType)
	UnboundLocalErrorType = newExceptionType("UnboundLocalError", NameErrorType)
	LookupErrorType = newExceptionType("LookupError", ExceptionType)
	IndexErrorType = newExceptionType("IndexError", LookupErrorType)
	KeyErrorType = newExceptionType("KeyError", LookupErrorType)
	ArithmeticErrorType = newExceptionType("ArithmeticError", ExceptionType)
	OverflowErrorType = newExceptionType("OverflowError", ArithmeticErrorType)
	ZeroDivisionErrorType = newExceptionType("ZeroDivisionError", ArithmeticErrorType)
	StopIterationType = newExceptionType("StopIteration", ExceptionType)
	RuntimeErrorType = newExceptionType("RuntimeError", ExceptionType)
	RecursionErrorType = newExceptionType("RecursionError", RuntimeErrorType)
	ImportErrorType = newExceptionType("ImportError", ExceptionType)
	MemoryErrorType = newExceptionType("MemoryError", ExceptionType)
}
