package runtime

// Generic attribute access: the default __getattribute__/__setattr__/
// __delattr__ slot implementations shared by object and everything that
// does not override them. Lookup order is the descriptor protocol: data
// descriptors on the type, then the instance dict, then non-data
// descriptors and plain class attributes.

// instanceDict returns the mutable attribute dict of a value, or nil when
// the value carries none.
func instanceDict(o Value) map[string]Value {
	switch x := o.(type) {
	case *PyInstance:
		return x.Dict
	case *PyFunction:
		if x.Dict == nil {
			x.Dict = make(map[string]Value)
		}
		return x.Dict
	case *PyModule:
		return x.Dict
	case *PyException:
		if x.Dict == nil {
			x.Dict = make(map[string]Value)
		}
		return x.Dict
	}
	return nil
}

// descrGetOf returns the __get__ implementation of a value's type and
// whether the value is a data descriptor (also defines __set__ or
// __delete__).
func descrGetOf(v Value) (descrGetFunc, bool) {
	t := TypeOf(v)
	h := t.slot(SlotGet)
	if h == nil {
		return nil, false
	}
	return h.fn.(descrGetFunc), t.HasSlot(SlotSet) || t.HasSlot(SlotDelete)
}

// raiseNoAttr builds the canonical missing-attribute error
func (vm *VM) raiseNoAttr(o Value, name string) *PyException {
	return vm.Raise(AttributeErrorType, "'%.50s' object has no attribute '%.50s'",
		trimAttr(TypeName(o)), trimAttr(name))
}

// genericGetAttr is object.__getattribute__
func genericGetAttr(vm *VM, o Value, name string) (Value, error) {
	t := TypeOf(o)

	switch name {
	case "__class__":
		return t, nil
	case "__dict__":
		if dict := instanceDict(o); dict != nil {
			d := NewDict()
			for k, v := range dict {
				if err := d.Set(vm, k, v); err != nil {
					return nil, err
				}
			}
			return d, nil
		}
	}

	attr, _ := t.lookupWithType(name)
	var get descrGetFunc
	if attr != nil {
		var data bool
		get, data = descrGetOf(attr)
		if get != nil && data {
			return get(vm, attr, o, t)
		}
	}
	if dict := instanceDict(o); dict != nil {
		if v, ok := dict[name]; ok {
			return v, nil
		}
	}
	if get != nil {
		return get(vm, attr, o, t)
	}
	if attr != nil {
		return attr, nil
	}
	return nil, vm.raiseNoAttr(o, name)
}

// genericSetAttr is object.__setattr__
func genericSetAttr(vm *VM, o Value, name string, v Value) error {
	t := TypeOf(o)
	attr, _ := t.lookupWithType(name)
	if attr != nil {
		at := TypeOf(attr)
		if h := at.slot(SlotSet); h != nil {
			return h.fn.(descrSetFunc)(vm, attr, o, v)
		}
	}
	dict := instanceDict(o)
	if dict == nil {
		return vm.raiseNoAttr(o, name)
	}
	dict[name] = v
	return nil
}

// genericDelAttr is object.__delattr__
func genericDelAttr(vm *VM, o Value, name string) error {
	t := TypeOf(o)
	attr, _ := t.lookupWithType(name)
	if attr != nil {
		at := TypeOf(attr)
		if h := at.slot(SlotDelete); h != nil {
			return h.fn.(descrDelFunc)(vm, attr, o)
		}
	}
	dict := instanceDict(o)
	if dict != nil {
		if _, ok := dict[name]; ok {
			delete(dict, name)
			return nil
		}
	}
	return vm.raiseNoAttr(o, name)
}

// typeGetAttr is type.__getattribute__: metatype data descriptors, then the
// type's own MRO with class-level descriptor binding, then metatype
// attributes.
func typeGetAttr(vm *VM, o Value, name string) (Value, error) {
	t, ok := o.(*Type)
	if !ok {
		return nil, Fatal("type.__getattribute__ applied to %s", TypeName(o))
	}

	switch name {
	case "__name__":
		return t.Name, nil
	case "__mro__":
		items := make([]Value, len(t.MRO))
		for i, m := range t.MRO {
			items[i] = m
		}
		return NewTuple(items...), nil
	case "__bases__":
		items := make([]Value, len(t.Bases))
		for i, b := range t.Bases {
			items[i] = b
		}
		return NewTuple(items...), nil
	}

	meta := TypeType
	metaAttr, _ := meta.lookupWithType(name)
	var metaGet descrGetFunc
	if metaAttr != nil {
		var data bool
		metaGet, data = descrGetOf(metaAttr)
		if metaGet != nil && data {
			return metaGet(vm, metaAttr, t, meta)
		}
	}

	if attr := t.Lookup(name); attr != nil {
		if get, _ := descrGetOf(attr); get != nil {
			return get(vm, attr, nil, t)
		}
		return attr, nil
	}

	if metaGet != nil {
		return metaGet(vm, metaAttr, t, meta)
	}
	if metaAttr != nil {
		return metaAttr, nil
	}
	return nil, vm.Raise(AttributeErrorType, "type object '%.50s' has no attribute '%.50s'",
		trimAttr(t.Name), trimAttr(name))
}

// typeSetAttr is type.__setattr__; only heap types are writable, and dict
// changes propagate to the slot table.
func typeSetAttr(vm *VM, o Value, name string, v Value) error {
	t, ok := o.(*Type)
	if !ok {
		return Fatal("type.__setattr__ applied to %s", TypeName(o))
	}
	return t.SetDictItem(name, v)
}

// typeDelAttr is type.__delattr__
func typeDelAttr(vm *VM, o Value, name string) error {
	t, ok := o.(*Type)
	if !ok {
		return Fatal("type.__delattr__ applied to %s", TypeName(o))
	}
	return t.DelDictItem(name)
}
