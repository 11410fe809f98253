package runtime

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// TypeFlags carries per-type behavior bits
type TypeFlags int

const (
	// FlagBaseType is set when the type may be subclassed
	FlagBaseType TypeFlags = 1 << iota
	// FlagHeapType is set on types created at runtime by class statements
	FlagHeapType
	// FlagGenericGetattr is set when the type uses the default attribute
	// lookup; the LOAD_METHOD fast path requires it
	FlagGenericGetattr
	flagDefault = FlagBaseType | FlagGenericGetattr
)

// Type represents a Python type: its name, linearized bases, attribute
// dictionary, accepted host representations, and the operation slot table
// every special-method dispatch goes through.
type Type struct {
	Name     string
	Bases    []*Type
	MRO      []*Type
	Flags    TypeFlags
	Accepted []reflect.Type // ordered host classes realizing instances

	// dict maps attribute names to values. Guarded by mu on heap types;
	// built-in types are sealed after construction and read freely.
	dict map[string]Value
	mu   sync.Mutex

	// slots is the operation table. Each cell is replaced atomically so a
	// concurrently evaluating thread always sees a whole handle or nil.
	slots  [numSlots]atomic.Pointer[slotHandle]
	sealed bool

	// heapSubs lists heap types that have this type in their MRO, so a dict
	// mutation here can re-derive the slots they inherit. Guarded by mu.
	heapSubs []*Type
}

func (t *Type) PyType() *Type { return TypeType }

// TypeSpec describes a built-in type to be constructed exactly once.
// Slot implementations given here become both slot handles and callable
// wrapper entries in the type dict, so that MRO lookup and slot dispatch
// agree on what a dunder name means.
type TypeSpec struct {
	Name     string
	Bases    []*Type
	Flags    TypeFlags
	Accepted []reflect.Type
	Slots    map[Slot]any
	Methods  map[string]*PyBuiltinFunc
	Members  map[string]Value
}

// NewTypeFromSpec builds and seals a built-in type. Invariants are checked
// eagerly; a bad spec is a programming error.
func NewTypeFromSpec(spec *TypeSpec) *Type {
	t := &Type{
		Name:     spec.Name,
		Bases:    spec.Bases,
		Flags:    spec.Flags,
		Accepted: spec.Accepted,
		dict:     make(map[string]Value),
	}
	if t.Flags == 0 {
		t.Flags = flagDefault
	}
	if len(t.Bases) == 0 && t != ObjectType && ObjectType != nil {
		t.Bases = []*Type{ObjectType}
	}
	mro, err := linearize(t)
	if err != nil {
		panic(fmt.Sprintf("type %s: %v", spec.Name, err))
	}
	t.MRO = mro
	for s, fn := range spec.Slots {
		checkSlotFn(s, fn)
		t.dict[s.Name()] = &PySlotWrapper{Name: s.Name(), Slot: s, Fn: fn, DefType: t}
	}
	for name, m := range spec.Methods {
		t.dict[name] = &PyMethodDescr{Name: name, DefType: t, Fn: m.Fn}
	}
	for name, v := range spec.Members {
		t.dict[name] = v
	}
	t.deriveAllSlots()
	t.sealed = true
	return t
}

// checkSlotFn verifies a spec-provided slot function has the signature's
// function type.
func checkSlotFn(s Slot, fn any) {
	ok := false
	switch slotDefs[s].sig {
	case sigUnary:
		_, ok = fn.(unaryFunc)
	case sigBinary:
		_, ok = fn.(binaryFunc)
	case sigTernary:
		_, ok = fn.(ternaryFunc)
	case sigPredicate:
		_, ok = fn.(predicateFunc)
	case sigBinaryPredicate:
		_, ok = fn.(binaryPredFunc)
	case sigLen:
		_, ok = fn.(lenFunc)
	case sigGetattr:
		_, ok = fn.(getattrFunc)
	case sigSetattr:
		_, ok = fn.(setattrFunc)
	case sigDelattr:
		_, ok = fn.(delattrFunc)
	case sigDescrGet:
		_, ok = fn.(descrGetFunc)
	case sigDescrSet:
		_, ok = fn.(descrSetFunc)
	case sigDescrDel:
		_, ok = fn.(descrDelFunc)
	case sigSetitem:
		_, ok = fn.(setitemFunc)
	case sigDelitem:
		_, ok = fn.(delitemFunc)
	case sigCall:
		_, ok = fn.(callFunc)
	case sigInit:
		_, ok = fn.(initFunc)
	case sigNew:
		_, ok = fn.(newFunc)
	}
	if !ok {
		panic(fmt.Sprintf("slot %s: implementation %T does not match signature", s.Name(), fn))
	}
}

// NewHeapType creates a class at runtime from a class statement's name,
// bases and populated namespace. The result is mutable: dict updates
// re-derive the affected slots.
func NewHeapType(name string, bases []*Type, dict map[string]Value) (*Type, error) {
	if len(bases) == 0 {
		bases = []*Type{ObjectType}
	}
	for _, b := range bases {
		if b.Flags&FlagBaseType == 0 {
			return nil, &PyException{
				ExcType: TypeErrorType,
				Args:    []Value{fmt.Sprintf("type '%s' is not an acceptable base type", b.Name)},
			}
		}
	}
	t := &Type{
		Name:  name,
		Bases: bases,
		Flags: flagDefault | FlagHeapType,
		dict:  make(map[string]Value, len(dict)),
	}
	for k, v := range dict {
		t.dict[k] = v
	}
	mro, err := linearize(t)
	if err != nil {
		return nil, &PyException{ExcType: TypeErrorType, Args: []Value{err.Error()}}
	}
	t.MRO = mro
	t.deriveAllSlots()
	t.sealed = true
	for _, m := range mro[1:] {
		if m.Flags&FlagHeapType == 0 {
			continue // sealed built-ins never mutate
		}
		m.mu.Lock()
		m.heapSubs = append(m.heapSubs, t)
		m.mu.Unlock()
	}
	return t, nil
}

// linearize computes the C3 method resolution order of a type
func linearize(t *Type) ([]*Type, error) {
	if len(t.Bases) == 0 {
		return []*Type{t}, nil
	}
	seqs := make([][]*Type, 0, len(t.Bases)+1)
	for _, b := range t.Bases {
		seqs = append(seqs, append([]*Type(nil), b.MRO...))
	}
	seqs = append(seqs, append([]*Type(nil), t.Bases...))
	mro := []*Type{t}
	for {
		done := true
		for _, s := range seqs {
			if len(s) > 0 {
				done = false
				break
			}
		}
		if done {
			return mro, nil
		}
		var next *Type
	candidates:
		for _, s := range seqs {
			if len(s) == 0 {
				continue
			}
			head := s[0]
			for _, other := range seqs {
				if len(other) == 0 {
					continue
				}
				for _, o := range other[1:] {
					if o == head {
						continue candidates
					}
				}
			}
			next = head
			break
		}
		if next == nil {
			return nil, fmt.Errorf("cannot create a consistent method resolution order (MRO) for bases %s", basesNames(t.Bases))
		}
		mro = append(mro, next)
		for i, s := range seqs {
			if len(s) > 0 && s[0] == next {
				seqs[i] = s[1:]
			}
		}
	}
}

func basesNames(bases []*Type) string {
	s := ""
	for i, b := range bases {
		if i > 0 {
			s += ", "
		}
		s += b.Name
	}
	return s
}

// Lookup walks the MRO and returns the first dict entry for name, or nil.
// This is the resolution mechanism behind both special and normal methods.
func (t *Type) Lookup(name string) Value {
	for _, m := range t.MRO {
		if v, ok := m.getDictItem(name); ok {
			return v
		}
	}
	return nil
}

// lookupWithType returns the resolved attribute and the MRO entry defining it
func (t *Type) lookupWithType(name string) (Value, *Type) {
	for _, m := range t.MRO {
		if v, ok := m.getDictItem(name); ok {
			return v, m
		}
	}
	return nil, nil
}

func (t *Type) getDictItem(name string) (Value, bool) {
	if t.Flags&FlagHeapType != 0 {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	v, ok := t.dict[name]
	return v, ok
}

// SetDictItem mutates the type dict and propagates the change to the slot
// of the same name, on this type and every heap subclass that inherits it.
func (t *Type) SetDictItem(name string, v Value) error {
	if !t.sealed {
		t.dict[name] = v
		return nil
	}
	if t.Flags&FlagHeapType == 0 {
		return &PyException{
			ExcType: TypeErrorType,
			Args:    []Value{fmt.Sprintf("can't set attributes of built-in/extension type '%s'", t.Name)},
		}
	}
	t.mu.Lock()
	t.dict[name] = v
	t.mu.Unlock()
	if s, ok := SlotForName(name); ok {
		t.rederive(s)
	}
	return nil
}

// DelDictItem removes a type attribute and re-derives the matching slot
func (t *Type) DelDictItem(name string) error {
	if t.Flags&FlagHeapType == 0 && t.sealed {
		return &PyException{
			ExcType: TypeErrorType,
			Args:    []Value{fmt.Sprintf("can't set attributes of built-in/extension type '%s'", t.Name)},
		}
	}
	t.mu.Lock()
	_, ok := t.dict[name]
	delete(t.dict, name)
	t.mu.Unlock()
	if !ok {
		return &PyException{
			ExcType: AttributeErrorType,
			Args:    []Value{name},
		}
	}
	if s, ok := SlotForName(name); ok {
		t.rederive(s)
	}
	return nil
}

// rederive recomputes one slot on this type and on every heap subclass that
// may inherit it; deriveSlot re-walks the MRO, so shadowed slots are left
// untouched.
func (t *Type) rederive(s Slot) {
	t.deriveSlot(s)
	t.mu.Lock()
	subs := append([]*Type(nil), t.heapSubs...)
	t.mu.Unlock()
	for _, sub := range subs {
		sub.deriveSlot(s)
	}
}

// deriveAllSlots populates the whole slot table from the MRO
func (t *Type) deriveAllSlots() {
	for s := Slot(0); s < numSlots; s++ {
		t.deriveSlot(s)
	}
}

// deriveSlot recomputes one slot from the current MRO state and publishes
// the new handle. A dunder resolving to a built-in slot wrapper keeps the
// direct function; any other value is wrapped generically; __hash__ = None
// and absent names leave the slot empty.
func (t *Type) deriveSlot(s Slot) {
	v := t.Lookup(s.Name())
	switch attr := v.(type) {
	case nil:
		t.slots[s].Store(nil)
	case *PyNone:
		// e.g. __hash__ = None marks a type unhashable
		t.slots[s].Store(nil)
	case *PySlotWrapper:
		if attr.Slot == s {
			t.slots[s].Store(&slotHandle{def: &slotDefs[s], fn: attr.Fn})
			return
		}
		t.slots[s].Store(wrapDictSlot(s, attr))
	default:
		t.slots[s].Store(wrapDictSlot(s, attr))
	}
}

// slot returns the current handle for a slot, or nil when empty
func (t *Type) slot(s Slot) *slotHandle {
	return t.slots[s].Load()
}

// HasSlot reports whether the slot is populated
func (t *Type) HasSlot(s Slot) bool { return t.slot(s) != nil }

// IsSubType reports whether t appears in of's place, i.e. whether t's MRO
// contains of. It consults only the precomputed MRO and never runs user code.
func IsSubType(t, of *Type) bool {
	for _, m := range t.MRO {
		if m == of {
			return true
		}
	}
	return false
}

// isSubclassHelper recursively walks __bases__ for dynamically assembled
// class objects. It must not invoke __subclasscheck__.
func isSubclassHelper(derived, cls Value) bool {
	d, ok := derived.(*Type)
	c, cok := cls.(*Type)
	if ok && cok {
		return IsSubType(d, c)
	}
	if d == nil || !ok {
		return false
	}
	for _, b := range d.Bases {
		if b == cls || isSubclassHelper(b, cls) {
			return true
		}
	}
	return false
}

// AcceptsHost reports whether a host representation is an accepted
// implementation of this type.
func (t *Type) AcceptsHost(rt reflect.Type) bool {
	for _, a := range t.Accepted {
		if a == rt {
			return true
		}
	}
	return false
}

// DictCopy returns a snapshot of the type dict, for introspection
func (t *Type) DictCopy() map[string]Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Value, len(t.dict))
	for k, v := range t.dict {
		out[k] = v
	}
	return out
}
