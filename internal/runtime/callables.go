package runtime

// BuiltinFn is the signature of functions implemented in Go and exposed to
// Python code.
type BuiltinFn func(vm *VM, args []Value, kwargs map[string]Value) (Value, error)

// PyBuiltinFunc wraps a Go function for use as a Python callable
type PyBuiltinFunc struct {
	Name string
	Fn   BuiltinFn
}

func (f *PyBuiltinFunc) PyType() *Type { return BuiltinFuncType }

// PyMethodDescr is an unbound built-in method living in a type dict.
// Attribute access through an instance binds it; calling it unbound expects
// self as the first argument.
type PyMethodDescr struct {
	Name    string
	DefType *Type
	Fn      BuiltinFn
}

func (d *PyMethodDescr) PyType() *Type { return MethodDescrType }

// PySlotWrapper exposes a built-in slot implementation as a callable dict
// entry, so that MRO lookup of a dunder name and slot dispatch resolve to
// the same behavior.
type PySlotWrapper struct {
	Name    string
	Slot    Slot
	Fn      any // typed per the slot signature
	DefType *Type
}

func (w *PySlotWrapper) PyType() *Type { return SlotWrapperType }

// invoke calls the wrapped slot function with self and positional arguments
// in the slot's native shape.
func (w *PySlotWrapper) invoke(vm *VM, self Value, args []Value) (Value, error) {
	switch fn := w.Fn.(type) {
	case unaryFunc:
		if len(args) != 0 {
			return nil, vm.RaiseTypeError("%s() takes no arguments (%d given)", w.Name, len(args))
		}
		return fn(vm, self)
	case binaryFunc:
		if len(args) != 1 {
			return nil, vm.RaiseTypeError("%s() takes exactly one argument (%d given)", w.Name, len(args))
		}
		return fn(vm, self, args[0])
	case ternaryFunc:
		switch len(args) {
		case 1:
			return fn(vm, self, args[0], None)
		case 2:
			return fn(vm, self, args[0], args[1])
		default:
			return nil, vm.RaiseTypeError("%s() takes 1 or 2 arguments (%d given)", w.Name, len(args))
		}
	case predicateFunc:
		b, err := fn(vm, self)
		if err != nil {
			return nil, err
		}
		return MakeBool(b), nil
	case binaryPredFunc:
		if len(args) != 1 {
			return nil, vm.RaiseTypeError("%s() takes exactly one argument (%d given)", w.Name, len(args))
		}
		b, err := fn(vm, self, args[0])
		if err != nil {
			return nil, err
		}
		return MakeBool(b), nil
	case lenFunc:
		n, err := fn(vm, self)
		if err != nil {
			return nil, err
		}
		return MakeInt(n), nil
	case getattrFunc:
		if len(args) != 1 {
			return nil, vm.RaiseTypeError("%s() takes exactly one argument (%d given)", w.Name, len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, vm.RaiseTypeError("attribute name must be string, not '%.200s'", TypeName(args[0]))
		}
		return fn(vm, self, name)
	case setattrFunc:
		if len(args) != 2 {
			return nil, vm.RaiseTypeError("%s() takes exactly 2 arguments (%d given)", w.Name, len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, vm.RaiseTypeError("attribute name must be string, not '%.200s'", TypeName(args[0]))
		}
		if err := fn(vm, self, name, args[1]); err != nil {
			return nil, err
		}
		return None, nil
	case setitemFunc:
		if len(args) != 2 {
			return nil, vm.RaiseTypeError("%s() takes exactly 2 arguments (%d given)", w.Name, len(args))
		}
		if err := fn(vm, self, args[0], args[1]); err != nil {
			return nil, err
		}
		return None, nil
	case delitemFunc:
		if len(args) != 1 {
			return nil, vm.RaiseTypeError("%s() takes exactly one argument (%d given)", w.Name, len(args))
		}
		if err := fn(vm, self, args[0]); err != nil {
			return nil, err
		}
		return None, nil
	case descrGetFunc:
		if len(args) < 1 || len(args) > 2 {
			return nil, vm.RaiseTypeError("%s() takes 1 or 2 arguments (%d given)", w.Name, len(args))
		}
		obj := args[0]
		var owner *Type
		if len(args) == 2 {
			if t, ok := args[1].(*Type); ok {
				owner = t
			}
		}
		return fn(vm, self, obj, owner)
	case callFunc:
		return fn(vm, self, args, nil)
	default:
		return nil, Fatal("slot wrapper %s has unsupported signature %T", w.Name, w.Fn)
	}
}

// PyBoundMethod is a callable binding an instance to a function or built-in
// method descriptor.
type PyBoundMethod struct {
	Self Value
	Func Value // *PyFunction, *PyMethodDescr, or *PySlotWrapper
}

func (m *PyBoundMethod) PyType() *Type { return BoundMethodType }

// PyClassMethod wraps a function as a classmethod descriptor
type PyClassMethod struct {
	Func Value
}

func (c *PyClassMethod) PyType() *Type { return ClassMethodType }

// PyStaticMethod wraps a function as a staticmethod descriptor
type PyStaticMethod struct {
	Func Value
}

func (s *PyStaticMethod) PyType() *Type { return StaticMethodType }

// PyProperty is the property descriptor: a data descriptor built from
// getter, setter and deleter callables.
type PyProperty struct {
	Fget, Fset, Fdel Value
}

func (p *PyProperty) PyType() *Type { return PropertyType }

// PyInstance is a generic instance of a heap type: a type reference plus an
// attribute dictionary.
type PyInstance struct {
	Class *Type
	Dict  map[string]Value
}

func (i *PyInstance) PyType() *Type { return i.Class }

// NewInstance allocates an empty instance of a heap type
func NewInstance(t *Type) *PyInstance {
	return &PyInstance{Class: t, Dict: make(map[string]Value)}
}

// PyModule is a namespace object; the loop only needs attribute access on it
type PyModule struct {
	Name string
	Dict map[string]Value
}

func (m *PyModule) PyType() *Type { return ModuleType }
