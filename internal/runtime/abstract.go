package runtime

import "fmt"

// The abstract operation API is the single entry point the evaluation loop
// uses. Every operation consults a slot, falls back where the table in the
// design allows, and raises the fixed-template error otherwise. The
// empty-slot condition never escapes this layer.

// Slot invocation helpers. Each returns errEmptySlot when the slot is not
// populated for the type.

func (vm *VM) slotUnary(t *Type, s Slot, self Value) (Value, error) {
	h := t.slot(s)
	if h == nil {
		return nil, errEmptySlot
	}
	return h.fn.(unaryFunc)(vm, self)
}

func (vm *VM) slotBinary(t *Type, s Slot, self, other Value) (Value, error) {
	h := t.slot(s)
	if h == nil {
		return nil, errEmptySlot
	}
	return h.fn.(binaryFunc)(vm, self, other)
}

func (vm *VM) slotTernary(t *Type, s Slot, self, a, b Value) (Value, error) {
	h := t.slot(s)
	if h == nil {
		return nil, errEmptySlot
	}
	return h.fn.(ternaryFunc)(vm, self, a, b)
}

func (vm *VM) slotPredicate(t *Type, s Slot, self Value) (bool, error) {
	h := t.slot(s)
	if h == nil {
		return false, errEmptySlot
	}
	return h.fn.(predicateFunc)(vm, self)
}

func (vm *VM) slotBinaryPred(t *Type, s Slot, self, other Value) (bool, error) {
	h := t.slot(s)
	if h == nil {
		return false, errEmptySlot
	}
	return h.fn.(binaryPredFunc)(vm, self, other)
}

func (vm *VM) slotLen(t *Type, s Slot, self Value) (int64, error) {
	h := t.slot(s)
	if h == nil {
		return 0, errEmptySlot
	}
	return h.fn.(lenFunc)(vm, self)
}

// Repr computes repr(o); an empty slot falls back to the default rendering
func (vm *VM) Repr(o Value) (string, error) {
	r, err := vm.slotUnary(TypeOf(o), SlotRepr, o)
	if err != nil {
		if isEmptySlot(err) {
			return fmt.Sprintf("<%s object>", TypeName(o)), nil
		}
		return "", err
	}
	s, ok := r.(string)
	if !ok {
		return "", vm.RaiseTypeError("__repr__ returned non-string (type %.200s)", TypeName(r))
	}
	return s, nil
}

// Str computes str(o), falling back to repr
func (vm *VM) Str(o Value) (string, error) {
	r, err := vm.slotUnary(TypeOf(o), SlotStr, o)
	if err != nil {
		if isEmptySlot(err) {
			return vm.Repr(o)
		}
		return "", err
	}
	s, ok := r.(string)
	if !ok {
		return "", vm.RaiseTypeError("__str__ returned non-string (type %.200s)", TypeName(r))
	}
	return s, nil
}

// Hash computes hash(o); types without __hash__ are unhashable
func (vm *VM) Hash(o Value) (int64, error) {
	h, err := vm.slotLen(TypeOf(o), SlotHash, o)
	if err != nil {
		if isEmptySlot(err) {
			return 0, vm.RaiseTypeError("unhashable type: '%.200s'", trimType(TypeName(o)))
		}
		return 0, err
	}
	return h, nil
}

// IsTrue computes truth: __bool__, else __len__ != 0, else true
func (vm *VM) IsTrue(o Value) (bool, error) {
	switch v := o.(type) {
	case bool:
		return v, nil
	case *PyNone:
		return false, nil
	}
	t := TypeOf(o)
	b, err := vm.slotPredicate(t, SlotBool, o)
	if err == nil {
		return b, nil
	}
	if !isEmptySlot(err) {
		return false, err
	}
	n, err := vm.slotLen(t, SlotLen, o)
	if err == nil {
		return n != 0, nil
	}
	if !isEmptySlot(err) {
		return false, err
	}
	return true, nil
}

// Len computes len(o)
func (vm *VM) Len(o Value) (int64, error) {
	n, err := vm.slotLen(TypeOf(o), SlotLen, o)
	if err != nil {
		if isEmptySlot(err) {
			return 0, vm.RaiseTypeError("object of type '%.200s' has no len()", trimType(TypeName(o)))
		}
		return 0, err
	}
	if n < 0 {
		return 0, vm.Raise(ValueErrorType, "__len__() should return >= 0")
	}
	return n, nil
}

// GetItem computes o[key]
func (vm *VM) GetItem(o, key Value) (Value, error) {
	v, err := vm.slotBinary(TypeOf(o), SlotGetitem, o, key)
	if err != nil && isEmptySlot(err) {
		return nil, vm.RaiseTypeError("'%.200s' object is not subscriptable", trimType(TypeName(o)))
	}
	return v, err
}

// SetItem computes o[key] = v
func (vm *VM) SetItem(o, key, v Value) error {
	h := TypeOf(o).slot(SlotSetitem)
	if h == nil {
		return vm.RaiseTypeError("'%.200s' object does not support item assignment", trimType(TypeName(o)))
	}
	return h.fn.(setitemFunc)(vm, o, key, v)
}

// DelItem computes del o[key]
func (vm *VM) DelItem(o, key Value) error {
	h := TypeOf(o).slot(SlotDelitem)
	if h == nil {
		return vm.RaiseTypeError("'%.200s' object does not support item deletion", trimType(TypeName(o)))
	}
	return h.fn.(delitemFunc)(vm, o, key)
}

// GetAttr computes o.name: __getattribute__, then __getattr__ on absence
func (vm *VM) GetAttr(o Value, name string) (Value, error) {
	t := TypeOf(o)
	h := t.slot(SlotGetattribute)
	if h == nil {
		return nil, Fatal("type %s has no __getattribute__", t.Name)
	}
	v, err := h.fn.(getattrFunc)(vm, o, name)
	if err == nil {
		return v, nil
	}
	exc, ok := asPyException(err)
	if !ok || !exc.Matches(AttributeErrorType) {
		return nil, err
	}
	if g := t.slot(SlotGetattr); g != nil {
		return g.fn.(getattrFunc)(vm, o, name)
	}
	return nil, err
}

// HasAttr reports whether o.name resolves, swallowing AttributeError only
func (vm *VM) HasAttr(o Value, name string) (bool, error) {
	_, err := vm.GetAttr(o, name)
	if err == nil {
		return true, nil
	}
	if exc, ok := asPyException(err); ok && exc.Matches(AttributeErrorType) {
		return false, nil
	}
	return false, err
}

// SetAttr computes o.name = v
func (vm *VM) SetAttr(o Value, name string, v Value) error {
	h := TypeOf(o).slot(SlotSetattr)
	if h == nil {
		return vm.RaiseTypeError("'%.200s' object has only read-only attributes (assign to .%s)",
			trimType(TypeName(o)), trimAttr(name))
	}
	return h.fn.(setattrFunc)(vm, o, name, v)
}

// DelAttr computes del o.name
func (vm *VM) DelAttr(o Value, name string) error {
	h := TypeOf(o).slot(SlotDelattr)
	if h == nil {
		return vm.RaiseTypeError("'%.200s' object has only read-only attributes (del .%s)",
			trimType(TypeName(o)), trimAttr(name))
	}
	return h.fn.(delattrFunc)(vm, o, name)
}

// Call invokes a callable with positional and keyword arguments
func (vm *VM) Call(callable Value, args []Value, kwargs map[string]Value) (Value, error) {
	if err := vm.enterCall(); err != nil {
		return nil, err
	}
	defer vm.leaveCall()
	h := TypeOf(callable).slot(SlotCall)
	if h == nil {
		return nil, vm.RaiseTypeError("'%.200s' object is not callable", trimType(TypeName(callable)))
	}
	return h.fn.(callFunc)(vm, callable, args, kwargs)
}

// Iter returns an iterator for o: __iter__, else the __getitem__ sequence
// fallback.
func (vm *VM) Iter(o Value) (Value, error) {
	t := TypeOf(o)
	it, err := vm.slotUnary(t, SlotIter, o)
	if err == nil {
		if !TypeOf(it).HasSlot(SlotNext) {
			return nil, vm.RaiseTypeError("iter() returned non-iterator of type '%.200s'", trimType(TypeName(it)))
		}
		return it, nil
	}
	if !isEmptySlot(err) {
		return nil, err
	}
	if t.HasSlot(SlotGetitem) {
		return newSeqIterator(o), nil
	}
	return nil, vm.RaiseTypeError("'%.200s' object is not iterable", trimType(TypeName(o)))
}

// Next advances an iterator; exhaustion surfaces as StopIteration
func (vm *VM) Next(it Value) (Value, error) {
	v, err := vm.slotUnary(TypeOf(it), SlotNext, it)
	if err != nil && isEmptySlot(err) {
		return nil, vm.RaiseTypeError("'%.200s' object is not an iterator", trimType(TypeName(it)))
	}
	return v, err
}

// IsInstance implements isinstance(v, cls): exact type check, then
// __instancecheck__, then the subclass walk.
func (vm *VM) IsInstance(v Value, cls Value) (bool, error) {
	if t, ok := cls.(*Type); ok {
		vt := TypeOf(v)
		if vt == t || IsSubType(vt, t) {
			return true, nil
		}
	}
	if tup, ok := cls.(*PyTuple); ok {
		for _, c := range tup.Items {
			ok, err := vm.IsInstance(v, c)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	ct := TypeOf(cls)
	if ct.HasSlot(SlotInstancecheck) {
		if err := vm.enterRecursive("__instancecheck__"); err != nil {
			return false, err
		}
		defer vm.leaveRecursive()
		return vm.slotBinaryPred(ct, SlotInstancecheck, cls, v)
	}
	if _, ok := cls.(*Type); !ok {
		return false, vm.RaiseTypeError("isinstance() arg 2 must be a type or tuple of types, not %.200s",
			trimType(TypeName(cls)))
	}
	return isSubclassHelper(TypeOf(v), cls), nil
}

// IsSubclass implements issubclass(derived, cls)
func (vm *VM) IsSubclass(derived, cls Value) (bool, error) {
	if d, ok := derived.(*Type); ok {
		if c, ok := cls.(*Type); ok {
			return IsSubType(d, c), nil
		}
	}
	if tup, ok := cls.(*PyTuple); ok {
		for _, c := range tup.Items {
			ok, err := vm.IsSubclass(derived, c)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	ct := TypeOf(cls)
	if ct.HasSlot(SlotSubclasscheck) {
		if err := vm.enterRecursive("__subclasscheck__"); err != nil {
			return false, err
		}
		defer vm.leaveRecursive()
		return vm.slotBinaryPred(ct, SlotSubclasscheck, cls, derived)
	}
	if _, ok := derived.(*Type); !ok {
		return false, vm.RaiseTypeError("issubclass() arg 1 must be a class")
	}
	return isSubclassHelper(derived, cls), nil
}

// Contains implements `item in o`: __contains__, else iterate and compare
func (vm *VM) Contains(o, item Value) (bool, error) {
	b, err := vm.slotBinaryPred(TypeOf(o), SlotContains, o, item)
	if err == nil {
		return b, nil
	}
	if !isEmptySlot(err) {
		return false, err
	}
	it, err := vm.Iter(o)
	if err != nil {
		if exc, ok := asPyException(err); ok && exc.Matches(TypeErrorType) {
			return false, vm.RaiseTypeError("argument of type '%.200s' is not iterable", trimType(TypeName(o)))
		}
		return false, err
	}
	for {
		v, err := vm.Next(it)
		if err != nil {
			if exc, ok := asPyException(err); ok && exc.Matches(StopIterationType) {
				return false, nil
			}
			return false, err
		}
		eq, err := vm.RichCompareBool(v, item, CompareEq)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
}

// GetMethod is the LOAD_METHOD fast path. When the type uses generic
// attribute lookup and name resolves to an unbound method descriptor not
// shadowed by the instance dict, it returns (callable, true) so the call
// site can invoke it with o as the leading argument; otherwise it returns
// the fully bound attribute and false.
func (vm *VM) GetMethod(o Value, name string) (Value, bool, error) {
	t := TypeOf(o)
	if t.Flags&FlagGenericGetattr == 0 {
		v, err := vm.GetAttr(o, name)
		return v, false, err
	}
	attr, _ := t.lookupWithType(name)
	unbound := false
	switch attr.(type) {
	case *PyFunction, *PyMethodDescr, *PySlotWrapper:
		unbound = true
	}
	if unbound {
		if inst, ok := o.(*PyInstance); ok {
			if shadow, found := inst.Dict[name]; found {
				return shadow, false, nil
			}
		}
		return attr, true, nil
	}
	v, err := vm.GetAttr(o, name)
	return v, false, err
}

// CallMethod looks up and calls o.name(args...)
func (vm *VM) CallMethod(o Value, name string, args ...Value) (Value, error) {
	m, unbound, err := vm.GetMethod(o, name)
	if err != nil {
		return nil, err
	}
	if unbound {
		all := make([]Value, 1+len(args))
		all[0] = o
		copy(all[1:], args)
		return vm.Call(m, all, nil)
	}
	return vm.Call(m, args, nil)
}
