package runtime

import (
	"fmt"
	"math/big"
	"strings"
)

// Unpack iterates a value into a slice. When want >= 0, the count must
// match exactly and the unpack-mismatch errors use the fixed wording.
func (vm *VM) Unpack(v Value, want int) ([]Value, error) {
	var items []Value
	switch s := v.(type) {
	case *PyTuple:
		items = append(items, s.Items...)
	case *PyList:
		items = append(items, s.Items...)
	default:
		it, err := vm.Iter(v)
		if err != nil {
			if exc, ok := asPyException(err); ok && exc.Matches(TypeErrorType) {
				return nil, vm.RaiseTypeError("cannot unpack non-iterable %.200s object", trimType(TypeName(v)))
			}
			return nil, err
		}
		for {
			x, err := vm.Next(it)
			if err != nil {
				if exc, ok := asPyException(err); ok && exc.Matches(StopIterationType) {
					break
				}
				return nil, err
			}
			items = append(items, x)
			if want >= 0 && len(items) > want {
				return nil, vm.Raise(ValueErrorType, "too many values to unpack (expected %d)", want)
			}
		}
	}
	if want >= 0 {
		if len(items) < want {
			return nil, vm.Raise(ValueErrorType, "not enough values to unpack (expected %d, got %d)", want, len(items))
		}
		if len(items) > want {
			return nil, vm.Raise(ValueErrorType, "too many values to unpack (expected %d)", want)
		}
	}
	return items, nil
}

func builtinPrint(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	sep, end := " ", "\n"
	if v, ok := kwargs["sep"]; ok && v != None {
		s, ok := v.(string)
		if !ok {
			return nil, vm.RaiseTypeError("sep must be None or a string, not %.200s", trimType(TypeName(v)))
		}
		sep = s
	}
	if v, ok := kwargs["end"]; ok && v != None {
		s, ok := v.(string)
		if !ok {
			return nil, vm.RaiseTypeError("end must be None or a string, not %.200s", trimType(TypeName(v)))
		}
		end = s
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := vm.Str(a)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	fmt.Fprint(vm.Stdout, strings.Join(parts, sep)+end)
	return None, nil
}

func builtinLen(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return nil, vm.RaiseTypeError("len() takes exactly one argument (%d given)", len(args))
	}
	n, err := vm.Len(args[0])
	if err != nil {
		return nil, err
	}
	return MakeInt(n), nil
}

func builtinRepr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return nil, vm.RaiseTypeError("repr() takes exactly one argument (%d given)", len(args))
	}
	s, err := vm.Repr(args[0])
	if err != nil {
		return nil, err
	}
	return s, nil
}

func builtinHash(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return nil, vm.RaiseTypeError("hash() takes exactly one argument (%d given)", len(args))
	}
	h, err := vm.Hash(args[0])
	if err != nil {
		return nil, err
	}
	return MakeInt(h), nil
}

func builtinIsinstance(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return nil, vm.RaiseTypeError("isinstance expected 2 arguments, got %d", len(args))
	}
	ok, err := vm.IsInstance(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return MakeBool(ok), nil
}

func builtinIssubclass(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return nil, vm.RaiseTypeError("issubclass expected 2 arguments, got %d", len(args))
	}
	ok, err := vm.IsSubclass(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return MakeBool(ok), nil
}

func builtinGetattr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, vm.RaiseTypeError("getattr expected 2 or 3 arguments, got %d", len(args))
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, vm.RaiseTypeError("attribute name must be string, not '%.200s'", trimType(TypeName(args[1])))
	}
	v, err := vm.GetAttr(args[0], name)
	if err != nil {
		if exc, ok := asPyException(err); ok && exc.Matches(AttributeErrorType) && len(args) == 3 {
			return args[2], nil
		}
		return nil, err
	}
	return v, nil
}

func builtinSetattr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 3 {
		return nil, vm.RaiseTypeError("setattr expected 3 arguments, got %d", len(args))
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, vm.RaiseTypeError("attribute name must be string, not '%.200s'", trimType(TypeName(args[1])))
	}
	if err := vm.SetAttr(args[0], name, args[2]); err != nil {
		return nil, err
	}
	return None, nil
}

func builtinHasattr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return nil, vm.RaiseTypeError("hasattr expected 2 arguments, got %d", len(args))
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, vm.RaiseTypeError("attribute name must be string, not '%.200s'", trimType(TypeName(args[1])))
	}
	has, err := vm.HasAttr(args[0], name)
	if err != nil {
		return nil, err
	}
	return MakeBool(has), nil
}

func builtinIter(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return nil, vm.RaiseTypeError("iter() takes exactly one argument (%d given)", len(args))
	}
	return vm.Iter(args[0])
}

func builtinNext(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, vm.RaiseTypeError("next expected at most 2 arguments, got %d", len(args))
	}
	v, err := vm.Next(args[0])
	if err != nil {
		if exc, ok := asPyException(err); ok && exc.Matches(StopIterationType) && len(args) == 2 {
			return args[1], nil
		}
		return nil, err
	}
	return v, nil
}

func builtinAbs(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return nil, vm.RaiseTypeError("abs() takes exactly one argument (%d given)", len(args))
	}
	r, err := vm.slotUnary(TypeOf(args[0]), SlotAbs, args[0])
	if err != nil && isEmptySlot(err) {
		return nil, vm.RaiseTypeError("bad operand type for abs(): '%.200s'", trimType(TypeName(args[0])))
	}
	return r, err
}

func builtinRange(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	asI64 := func(v Value) (int64, error) {
		n, bigv, ok := asIntPair(v)
		if !ok {
			return 0, vm.RaiseTypeError("'%.200s' object cannot be interpreted as an integer", trimType(TypeName(v)))
		}
		if bigv != nil {
			return 0, vm.Raise(OverflowErrorType, "Python int too large to convert to C ssize_t")
		}
		return n, nil
	}
	r := &PyRange{Step: 1}
	switch len(args) {
	case 1:
		stop, err := asI64(args[0])
		if err != nil {
			return nil, err
		}
		r.Stop = stop
	case 2, 3:
		start, err := asI64(args[0])
		if err != nil {
			return nil, err
		}
		stop, err := asI64(args[1])
		if err != nil {
			return nil, err
		}
		r.Start, r.Stop = start, stop
		if len(args) == 3 {
			step, err := asI64(args[2])
			if err != nil {
				return nil, err
			}
			if step == 0 {
				return nil, vm.Raise(ValueErrorType, "range() arg 3 must not be zero")
			}
			r.Step = step
		}
	default:
		return nil, vm.RaiseTypeError("range expected 1 to 3 arguments, got %d", len(args))
	}
	return r, nil
}

func builtinId(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return nil, vm.RaiseTypeError("id() takes exactly one argument (%d given)", len(args))
	}
	h, err := objectHash(vm, args[0])
	if err != nil {
		// Adopted values have no address; hash their identity instead
		return vm.Hash(args[0])
	}
	return MakeInt(h), nil
}

func builtinInt(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return MakeInt(0), nil
	}
	switch v := args[0].(type) {
	case int64, *big.Int:
		return v, nil
	case bool:
		if v {
			return MakeInt(1), nil
		}
		return MakeInt(0), nil
	case string:
		return ParseInt(strings.TrimSpace(v))
	}
	r, err := vm.slotUnary(TypeOf(args[0]), SlotInt, args[0])
	if err != nil {
		if isEmptySlot(err) {
			return nil, vm.RaiseTypeError("int() argument must be a string or a number, not '%.200s'",
				trimType(TypeName(args[0])))
		}
		return nil, err
	}
	return r, nil
}

func builtinStr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return "", nil
	}
	return vm.Str(args[0])
}

func builtinBool(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return MakeBool(false), nil
	}
	b, err := vm.IsTrue(args[0])
	if err != nil {
		return nil, err
	}
	return MakeBool(b), nil
}

func builtinFloat(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return float64(0), nil
	}
	if f, ok := asFloat(args[0]); ok {
		return f, nil
	}
	r, err := vm.slotUnary(TypeOf(args[0]), SlotFloat, args[0])
	if err != nil && isEmptySlot(err) {
		return nil, vm.RaiseTypeError("float() argument must be a string or a number, not '%.200s'",
			trimType(TypeName(args[0])))
	}
	return r, err
}

func builtinTuple(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return NewTuple(), nil
	}
	items, err := vm.Unpack(args[0], -1)
	if err != nil {
		return nil, err
	}
	return NewTuple(items...), nil
}

func builtinList(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return &PyList{}, nil
	}
	items, err := vm.Unpack(args[0], -1)
	if err != nil {
		return nil, err
	}
	return &PyList{Items: items}, nil
}

// builtinBuildClass backs the LOAD_BUILD_CLASS opcode: run the class body
// in a fresh namespace, then assemble the type.
func builtinBuildClass(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 2 {
		return nil, vm.RaiseTypeError("__build_class__: not enough arguments")
	}
	body, ok := args[0].(*PyFunction)
	if !ok {
		return nil, vm.RaiseTypeError("__build_class__: func must be a function")
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, vm.RaiseTypeError("__build_class__: name is not a string")
	}
	bases := make([]*Type, 0, len(args)-2)
	for _, b := range args[2:] {
		bt, ok := b.(*Type)
		if !ok {
			return nil, vm.RaiseTypeError("__build_class__: bases must be types")
		}
		bases = append(bases, bt)
	}

	// The class body runs with a plain namespace as its locals
	ns := make(map[string]Value)
	f, err := NewFrame(body.Code, body.Globals, body.Builtins, ns, body.Closure)
	if err != nil {
		return nil, err
	}
	if _, err := vm.evalFrame(f); err != nil {
		return nil, err
	}
	delete(ns, "__qualname__")
	delete(ns, "__module__")
	t, err := NewHeapType(name, bases, ns)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func defaultBuiltins() map[string]Value {
	b := map[string]Value{
		"None":           None,
		"NotImplemented": NotImplemented,
		"Ellipsis":       Ellipsis,
		"True":           MakeBool(true),
		"False":          MakeBool(false),

		"object": ObjectType,
		"type":   TypeType,
		"int":    IntType,
		"float":  FloatType,
		"str":    StrType,
		"bool":   BoolType,
		"tuple":  TupleType,
		"list":   ListType,
		"dict":   DictType,
		"set":    SetType,
		"bytes":  BytesType,
		"slice":  SliceType,

		"BaseException":     BaseExceptionType,
		"Exception":         ExceptionType,
		"TypeError":         TypeErrorType,
		"ValueError":        ValueErrorType,
		"AttributeError":    AttributeErrorType,
		"NameError":         NameErrorType,
		"UnboundLocalError": UnboundLocalErrorType,
		"LookupError":       LookupErrorType,
		"IndexError":        IndexErrorType,
		"KeyError":          KeyErrorType,
		"ArithmeticError":   ArithmeticErrorType,
		"OverflowError":     OverflowErrorType,
		"ZeroDivisionError": ZeroDivisionErrorType,
		"StopIteration":     StopIterationType,
		"RuntimeError":      RuntimeErrorType,
		"RecursionError":    RecursionErrorType,
		"ImportError":       ImportErrorType,
		"MemoryError":       MemoryErrorType,
	}
	fns := []*PyBuiltinFunc{
		{Name: "print", Fn: builtinPrint},
		{Name: "len", Fn: builtinLen},
		{Name: "repr", Fn: builtinRepr},
		{Name: "hash", Fn: builtinHash},
		{Name: "isinstance", Fn: builtinIsinstance},
		{Name: "issubclass", Fn: builtinIssubclass},
		{Name: "getattr", Fn: builtinGetattr},
		{Name: "setattr", Fn: builtinSetattr},
		{Name: "hasattr", Fn: builtinHasattr},
		{Name: "iter", Fn: builtinIter},
		{Name: "next", Fn: builtinNext},
		{Name: "abs", Fn: builtinAbs},
		{Name: "id", Fn: builtinId},
		{Name: "__build_class__", Fn: builtinBuildClass},
	}
	for _, f := range fns {
		b[f.Name] = f
	}
	b["range"] = RangeType
	return b
}

// __new__ adapters so the adopted-representation types construct through
// the ordinary type-call path.

func intNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinInt(vm, args, nil)
}

func floatNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinFloat(vm, args, nil)
}

func strNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinStr(vm, args, nil)
}

func boolNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinBool(vm, args, nil)
}

func tupleNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinTuple(vm, args, nil)
}

func listNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinList(vm, args, nil)
}

func dictNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	d := NewDict()
	if len(args) > 1 {
		return nil, vm.RaiseTypeError("dict expected at most 1 argument, got %d", len(args))
	}
	if len(args) == 1 {
		if src, ok := args[0].(*PyDict); ok {
			if err := src.Each(func(k, v Value) error { return d.Set(vm, k, v) }); err != nil {
				return nil, err
			}
		} else {
			pairs, err := vm.Unpack(args[0], -1)
			if err != nil {
				return nil, err
			}
			for _, p := range pairs {
				kv, err := vm.Unpack(p, 2)
				if err != nil {
					return nil, err
				}
				if err := d.Set(vm, kv[0], kv[1]); err != nil {
					return nil, err
				}
			}
		}
	}
	for k, v := range kwargs {
		if err := d.Set(vm, k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func setNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	s := &PySet{}
	if len(args) > 1 {
		return nil, vm.RaiseTypeError("set expected at most 1 argument, got %d", len(args))
	}
	if len(args) == 1 {
		items, err := vm.Unpack(args[0], -1)
		if err != nil {
			return nil, err
		}
		for _, v := range items {
			if err := s.Add(vm, v); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func rangeNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return builtinRange(vm, args, nil)
}
