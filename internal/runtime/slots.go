package runtime

import "fmt"

// Slot identifies one cell in a type's operation table. Every special method
// the runtime recognizes has exactly one slot; the evaluation loop and the
// abstract operation API dispatch through these rather than through dict
// lookups.
type Slot int

const (
	SlotRepr Slot = iota
	SlotStr
	SlotHash
	SlotBool
	SlotLen
	SlotCall
	SlotGetattribute
	SlotGetattr
	SlotSetattr
	SlotDelattr
	SlotGet    // __get__ (descriptor)
	SlotSet    // __set__ (descriptor)
	SlotDelete // __delete__ (descriptor)
	SlotGetitem
	SlotSetitem
	SlotDelitem
	SlotContains
	SlotIter
	SlotNext
	SlotInit
	SlotNew
	SlotInstancecheck
	SlotSubclasscheck

	// Rich comparison
	SlotEq
	SlotNe
	SlotLt
	SlotLe
	SlotGt
	SlotGe

	// Unary numeric
	SlotNeg
	SlotPos
	SlotAbs
	SlotInvert
	SlotIndex
	SlotInt
	SlotFloat

	// Binary numeric, each with its reflected counterpart
	SlotAdd
	SlotRadd
	SlotSub
	SlotRsub
	SlotMul
	SlotRmul
	SlotMatmul
	SlotRmatmul
	SlotTruediv
	SlotRtruediv
	SlotFloordiv
	SlotRfloordiv
	SlotMod
	SlotRmod
	SlotPow
	SlotRpow
	SlotLshift
	SlotRlshift
	SlotRshift
	SlotRrshift
	SlotAnd
	SlotRand
	SlotOr
	SlotRor
	SlotXor
	SlotRxor

	// Augmented assignment; fall back to the plain binary slot when empty
	SlotIadd
	SlotIsub
	SlotImul
	SlotImatmul
	SlotItruediv
	SlotIfloordiv
	SlotImod
	SlotIpow
	SlotIlshift
	SlotIrshift
	SlotIand
	SlotIor
	SlotIxor

	numSlots
)

// slotSig classifies the invocation signature of a slot. The signature
// decides both the Go function type stored in the slot and the generic
// wrapper used when a user-defined class fills it from its dict.
type slotSig int

const (
	sigUnary           slotSig = iota // (self) -> Value
	sigBinary                         // (self, Value) -> Value
	sigTernary                        // (self, Value, Value) -> Value
	sigPredicate                      // (self) -> bool
	sigBinaryPredicate                // (self, Value) -> bool
	sigLen                            // (self) -> int64
	sigGetattr                        // (self, string) -> Value
	sigSetattr                        // (self, string, Value)
	sigDelattr                        // (self, string)
	sigDescrGet                       // (self, obj, owner *Type) -> Value
	sigDescrSet                       // (self, obj, Value)
	sigDescrDel                       // (self, obj)
	sigSetitem                        // (self, key, Value)
	sigDelitem                        // (self, key)
	sigCall                           // (self, args, kwargs) -> Value
	sigInit                           // (self, args, kwargs)
	sigNew                            // (type, args, kwargs) -> Value
)

// Typed slot function signatures. A slot holds exactly one of these,
// selected by its signature, or is empty.
type (
	unaryFunc      func(vm *VM, self Value) (Value, error)
	binaryFunc     func(vm *VM, self, other Value) (Value, error)
	ternaryFunc    func(vm *VM, self, a, b Value) (Value, error)
	predicateFunc  func(vm *VM, self Value) (bool, error)
	binaryPredFunc func(vm *VM, self, other Value) (bool, error)
	lenFunc        func(vm *VM, self Value) (int64, error)
	getattrFunc    func(vm *VM, self Value, name string) (Value, error)
	setattrFunc    func(vm *VM, self Value, name string, v Value) error
	delattrFunc    func(vm *VM, self Value, name string) error
	descrGetFunc   func(vm *VM, self, obj Value, owner *Type) (Value, error)
	descrSetFunc   func(vm *VM, self, obj, v Value) error
	descrDelFunc   func(vm *VM, self, obj Value) error
	setitemFunc    func(vm *VM, self, key, v Value) error
	delitemFunc    func(vm *VM, self, key Value) error
	callFunc       func(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error)
	initFunc       func(vm *VM, self Value, args []Value, kwargs map[string]Value) error
	newFunc        func(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error)
)

// noSlot marks a slot definition with no reflected counterpart
const noSlot Slot = -1

// slotDef describes one slot: the dunder name that populates it, its
// signature, and the reflected counterpart for binary operators.
type slotDef struct {
	name      string
	sig       slotSig
	reflected Slot
}

var slotDefs = [numSlots]slotDef{
	SlotRepr:          {"__repr__", sigUnary, noSlot},
	SlotStr:           {"__str__", sigUnary, noSlot},
	SlotHash:          {"__hash__", sigLen, noSlot},
	SlotBool:          {"__bool__", sigPredicate, noSlot},
	SlotLen:           {"__len__", sigLen, noSlot},
	SlotCall:          {"__call__", sigCall, noSlot},
	SlotGetattribute:  {"__getattribute__", sigGetattr, noSlot},
	SlotGetattr:       {"__getattr__", sigGetattr, noSlot},
	SlotSetattr:       {"__setattr__", sigSetattr, noSlot},
	SlotDelattr:       {"__delattr__", sigDelattr, noSlot},
	SlotGet:           {"__get__", sigDescrGet, noSlot},
	SlotSet:           {"__set__", sigDescrSet, noSlot},
	SlotDelete:        {"__delete__", sigDescrDel, noSlot},
	SlotGetitem:       {"__getitem__", sigBinary, noSlot},
	SlotSetitem:       {"__setitem__", sigSetitem, noSlot},
	SlotDelitem:       {"__delitem__", sigDelitem, noSlot},
	SlotContains:      {"__contains__", sigBinaryPredicate, noSlot},
	SlotIter:          {"__iter__", sigUnary, noSlot},
	SlotNext:          {"__next__", sigUnary, noSlot},
	SlotInit:          {"__init__", sigInit, noSlot},
	SlotNew:           {"__new__", sigNew, noSlot},
	SlotInstancecheck: {"__instancecheck__", sigBinaryPredicate, noSlot},
	SlotSubclasscheck: {"__subclasscheck__", sigBinaryPredicate, noSlot},

	SlotEq: {"__eq__", sigBinary, SlotEq},
	SlotNe: {"__ne__", sigBinary, SlotNe},
	SlotLt: {"__lt__", sigBinary, SlotGt},
	SlotLe: {"__le__", sigBinary, SlotGe},
	SlotGt: {"__gt__", sigBinary, SlotLt},
	SlotGe: {"__ge__", sigBinary, SlotLe},

	SlotNeg:    {"__neg__", sigUnary, noSlot},
	SlotPos:    {"__pos__", sigUnary, noSlot},
	SlotAbs:    {"__abs__", sigUnary, noSlot},
	SlotInvert: {"__invert__", sigUnary, noSlot},
	SlotIndex:  {"__index__", sigUnary, noSlot},
	SlotInt:    {"__int__", sigUnary, noSlot},
	SlotFloat:  {"__float__", sigUnary, noSlot},

	SlotAdd:       {"__add__", sigBinary, SlotRadd},
	SlotRadd:      {"__radd__", sigBinary, SlotAdd},
	SlotSub:       {"__sub__", sigBinary, SlotRsub},
	SlotRsub:      {"__rsub__", sigBinary, SlotSub},
	SlotMul:       {"__mul__", sigBinary, SlotRmul},
	SlotRmul:      {"__rmul__", sigBinary, SlotMul},
	SlotMatmul:    {"__matmul__", sigBinary, SlotRmatmul},
	SlotRmatmul:   {"__rmatmul__", sigBinary, SlotMatmul},
	SlotTruediv:   {"__truediv__", sigBinary, SlotRtruediv},
	SlotRtruediv:  {"__rtruediv__", sigBinary, SlotTruediv},
	SlotFloordiv:  {"__floordiv__", sigBinary, SlotRfloordiv},
	SlotRfloordiv: {"__rfloordiv__", sigBinary, SlotFloordiv},
	SlotMod:       {"__mod__", sigBinary, SlotRmod},
	SlotRmod:      {"__rmod__", sigBinary, SlotMod},
	SlotPow:       {"__pow__", sigTernary, SlotRpow},
	SlotRpow:      {"__rpow__", sigTernary, SlotPow},
	SlotLshift:    {"__lshift__", sigBinary, SlotRlshift},
	SlotRlshift:   {"__rlshift__", sigBinary, SlotLshift},
	SlotRshift:    {"__rshift__", sigBinary, SlotRrshift},
	SlotRrshift:   {"__rrshift__", sigBinary, SlotRshift},
	SlotAnd:       {"__and__", sigBinary, SlotRand},
	SlotRand:      {"__rand__", sigBinary, SlotAnd},
	SlotOr:        {"__or__", sigBinary, SlotRor},
	SlotRor:       {"__ror__", sigBinary, SlotOr},
	SlotXor:       {"__xor__", sigBinary, SlotRxor},
	SlotRxor:      {"__rxor__", sigBinary, SlotXor},

	SlotIadd:      {"__iadd__", sigBinary, noSlot},
	SlotIsub:      {"__isub__", sigBinary, noSlot},
	SlotImul:      {"__imul__", sigBinary, noSlot},
	SlotImatmul:   {"__imatmul__", sigBinary, noSlot},
	SlotItruediv:  {"__itruediv__", sigBinary, noSlot},
	SlotIfloordiv: {"__ifloordiv__", sigBinary, noSlot},
	SlotImod:      {"__imod__", sigBinary, noSlot},
	SlotIpow:      {"__ipow__", sigTernary, noSlot},
	SlotIlshift:   {"__ilshift__", sigBinary, noSlot},
	SlotIrshift:   {"__irshift__", sigBinary, noSlot},
	SlotIand:      {"__iand__", sigBinary, noSlot},
	SlotIor:       {"__ior__", sigBinary, noSlot},
	SlotIxor:      {"__ixor__", sigBinary, noSlot},
}

// slotsByName maps dunder names back to slot indexes. The set of recognized
// special-method names is closed; only these populate type slots.
var slotsByName = func() map[string]Slot {
	m := make(map[string]Slot, numSlots)
	for s := Slot(0); s < numSlots; s++ {
		m[slotDefs[s].name] = s
	}
	return m
}()

// Name returns the dunder name that populates the slot
func (s Slot) Name() string { return slotDefs[s].name }

// Reflected returns the reflected counterpart of a binary operator slot,
// or noSlot.
func (s Slot) Reflected() Slot { return slotDefs[s].reflected }

// SlotForName returns the slot populated by a dunder name, if any
func SlotForName(name string) (Slot, bool) {
	s, ok := slotsByName[name]
	return s, ok
}

// slotHandle is the published content of one slot cell: the defining type
// and a function typed per the slot's signature. Handles are immutable once
// published; updates replace the whole handle.
type slotHandle struct {
	def *slotDef
	fn  any
}

// wrapDictSlot builds a handle for a slot filled by an arbitrary callable
// found in a class dict. The wrapper binds self as the leading argument and
// routes the invocation through the generic call machinery, converting the
// result to the slot's native shape.
func wrapDictSlot(s Slot, callable Value) *slotHandle {
	def := &slotDefs[s]
	h := &slotHandle{def: def}
	switch def.sig {
	case sigUnary:
		h.fn = unaryFunc(func(vm *VM, self Value) (Value, error) {
			return vm.callSlotCallable(callable, self)
		})
	case sigBinary:
		h.fn = binaryFunc(func(vm *VM, self, other Value) (Value, error) {
			return vm.callSlotCallable(callable, self, other)
		})
	case sigTernary:
		h.fn = ternaryFunc(func(vm *VM, self, a, b Value) (Value, error) {
			if b == None {
				return vm.callSlotCallable(callable, self, a)
			}
			return vm.callSlotCallable(callable, self, a, b)
		})
	case sigPredicate:
		h.fn = predicateFunc(func(vm *VM, self Value) (bool, error) {
			r, err := vm.callSlotCallable(callable, self)
			if err != nil {
				return false, err
			}
			b, ok := r.(bool)
			if !ok {
				return false, vm.RaiseTypeError("%s should return bool, returned %s", def.name, TypeName(r))
			}
			return b, nil
		})
	case sigBinaryPredicate:
		h.fn = binaryPredFunc(func(vm *VM, self, other Value) (bool, error) {
			r, err := vm.callSlotCallable(callable, self, other)
			if err != nil {
				return false, err
			}
			return vm.IsTrue(r)
		})
	case sigLen:
		h.fn = lenFunc(func(vm *VM, self Value) (int64, error) {
			r, err := vm.callSlotCallable(callable, self)
			if err != nil {
				return 0, err
			}
			n, bigv, ok := asIntPair(r)
			if !ok {
				return 0, vm.RaiseTypeError("%s should return an int, returned %s", def.name, TypeName(r))
			}
			if bigv != nil {
				return 0, vm.Raise(OverflowErrorType, "cannot fit 'int' into an index-sized integer")
			}
			return n, nil
		})
	case sigGetattr:
		h.fn = getattrFunc(func(vm *VM, self Value, name string) (Value, error) {
			return vm.callSlotCallable(callable, self, name)
		})
	case sigSetattr:
		h.fn = setattrFunc(func(vm *VM, self Value, name string, v Value) error {
			_, err := vm.callSlotCallable(callable, self, name, v)
			return err
		})
	case sigDelattr:
		h.fn = delattrFunc(func(vm *VM, self Value, name string) error {
			_, err := vm.callSlotCallable(callable, self, name)
			return err
		})
	case sigDescrGet:
		h.fn = descrGetFunc(func(vm *VM, self, obj Value, owner *Type) (Value, error) {
			ownerArg := Value(None)
			if owner != nil {
				ownerArg = owner
			}
			if obj == nil {
				obj = None
			}
			return vm.callSlotCallable(callable, self, obj, ownerArg)
		})
	case sigDescrSet:
		h.fn = descrSetFunc(func(vm *VM, self, obj, v Value) error {
			_, err := vm.callSlotCallable(callable, self, obj, v)
			return err
		})
	case sigDescrDel:
		h.fn = descrDelFunc(func(vm *VM, self, obj Value) error {
			_, err := vm.callSlotCallable(callable, self, obj)
			return err
		})
	case sigSetitem:
		h.fn = setitemFuncOf(callable)
	case sigDelitem:
		h.fn = delitemFuncOf(callable)
	case sigCall:
		h.fn = callFunc(func(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
			all := make([]Value, 1+len(args))
			all[0] = self
			copy(all[1:], args)
			return vm.Call(callable, all, kwargs)
		})
	case sigInit:
		h.fn = initFunc(func(vm *VM, self Value, args []Value, kwargs map[string]Value) error {
			all := make([]Value, 1+len(args))
			all[0] = self
			copy(all[1:], args)
			r, err := vm.Call(callable, all, kwargs)
			if err != nil {
				return err
			}
			if r != None {
				return vm.RaiseTypeError("__init__() should return None, not '%.200s'", TypeName(r))
			}
			return nil
		})
	case sigNew:
		h.fn = newFunc(func(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
			all := make([]Value, 1+len(args))
			all[0] = t
			copy(all[1:], args)
			return vm.Call(callable, all, kwargs)
		})
	default:
		panic(fmt.Sprintf("unknown slot signature %d", def.sig))
	}
	return h
}

func setitemFuncOf(callable Value) setitemFunc {
	return func(vm *VM, self, key, v Value) error {
		_, err := vm.callSlotCallable(callable, self, key, v)
		return err
	}
}

func delitemFuncOf(callable Value) delitemFunc {
	return func(vm *VM, self, key Value) error {
		_, err := vm.callSlotCallable(callable, self, key)
		return err
	}
}

// callSlotCallable invokes a dict-found slot callable with self prepended,
// applying the descriptor protocol the same way a normal attribute access
// would.
func (vm *VM) callSlotCallable(callable Value, args ...Value) (Value, error) {
	if fn, ok := callable.(*PyFunction); ok {
		return vm.callFunction(fn, args, nil)
	}
	if bf, ok := callable.(*PyBuiltinFunc); ok {
		return bf.Fn(vm, args, nil)
	}
	return vm.Call(callable, args, nil)
}
