package runtime

import "strings"

// Dict slot implementations

func dictRepr(vm *VM, self Value) (Value, error) {
	d := self.(*PyDict)
	var b strings.Builder
	b.WriteString("{")
	first := true
	err := d.Each(func(k, v Value) error {
		if !first {
			b.WriteString(", ")
		}
		first = false
		kr, err := vm.Repr(k)
		if err != nil {
			return err
		}
		vr, err := vm.Repr(v)
		if err != nil {
			return err
		}
		b.WriteString(kr)
		b.WriteString(": ")
		b.WriteString(vr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.WriteString("}")
	return b.String(), nil
}

func dictLen(vm *VM, self Value) (int64, error) {
	return int64(self.(*PyDict).Len()), nil
}

func dictGetitem(vm *VM, self, key Value) (Value, error) {
	d := self.(*PyDict)
	v, ok, err := d.Get(vm, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		kr, rerr := vm.Repr(key)
		if rerr != nil {
			kr = "<unreprable>"
		}
		return nil, vm.Raise(KeyErrorType, "%s", kr)
	}
	return v, nil
}

func dictSetitem(vm *VM, self, key, v Value) error {
	return self.(*PyDict).Set(vm, key, v)
}

func dictDelitem(vm *VM, self, key Value) error {
	d := self.(*PyDict)
	ok, err := d.Del(vm, key)
	if err != nil {
		return err
	}
	if !ok {
		kr, rerr := vm.Repr(key)
		if rerr != nil {
			kr = "<unreprable>"
		}
		return vm.Raise(KeyErrorType, "%s", kr)
	}
	return nil
}

func dictContains(vm *VM, self, item Value) (bool, error) {
	_, ok, err := self.(*PyDict).Get(vm, item)
	return ok, err
}

func dictIter(vm *VM, self Value) (Value, error) {
	return newSliceIterator(self.(*PyDict).Keys()), nil
}

func dictEq(vm *VM, self, other Value) (Value, error) {
	o, ok := other.(*PyDict)
	if !ok {
		return NotImplemented, nil
	}
	d := self.(*PyDict)
	if d.Len() != o.Len() {
		return MakeBool(false), nil
	}
	equal := true
	err := d.Each(func(k, v Value) error {
		ov, ok, err := o.Get(vm, k)
		if err != nil {
			return err
		}
		if !ok {
			equal = false
			return errStopCompare
		}
		eq, err := vm.RichCompareBool(v, ov, CompareEq)
		if err != nil {
			return err
		}
		if !eq {
			equal = false
			return errStopCompare
		}
		return nil
	})
	if err != nil && err != errStopCompare {
		return nil, err
	}
	return MakeBool(equal), nil
}

// errStopCompare short-circuits dict equality iteration
var errStopCompare = &InterpreterError{Msg: "stop compare"}

func dictGetMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, vm.RaiseTypeError("get expected at most 2 arguments, got %d", len(args)-1)
	}
	d, ok := args[0].(*PyDict)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'get' requires a 'dict' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	v, ok, err := d.Get(vm, args[1])
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return None, nil
}

func dictKeysMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	d, ok := args[0].(*PyDict)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'keys' requires a 'dict' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	return &PyList{Items: d.Keys()}, nil
}

func dictItemsMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	d, ok := args[0].(*PyDict)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'items' requires a 'dict' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	out := &PyList{}
	d.Each(func(k, v Value) error {
		out.Append(NewTuple(k, v))
		return nil
	})
	return out, nil
}

func dictValuesMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	d, ok := args[0].(*PyDict)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'values' requires a 'dict' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	out := &PyList{}
	d.Each(func(k, v Value) error {
		out.Append(v)
		return nil
	})
	return out, nil
}
