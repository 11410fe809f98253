package runtime

// CompareOp is the comparison selector carried by COMPARE_OP. The first six
// values are the rich comparisons; the remaining members cover the extended
// 3.8 operand range so compiled `in`/`is`/except-match tests execute.
type CompareOp int

const (
	CompareLt CompareOp = iota
	CompareLe
	CompareEq
	CompareNe
	CompareGt
	CompareGe
	CompareIn
	CompareNotIn
	CompareIs
	CompareIsNot
	CompareExcMatch
)

var compareSymbols = [...]string{"<", "<=", "==", "!=", ">", ">="}

// compareSlots maps a rich comparison to its slot and the slot used when
// the operands are swapped.
var compareSlots = [...]struct{ slot, swapped Slot }{
	CompareLt: {SlotLt, SlotGt},
	CompareLe: {SlotLe, SlotGe},
	CompareEq: {SlotEq, SlotEq},
	CompareNe: {SlotNe, SlotNe},
	CompareGt: {SlotGt, SlotLt},
	CompareGe: {SlotGe, SlotLe},
}

// sameValue is reference identity for object values and value identity for
// the adopted immutable representations.
func sameValue(v, w Value) bool {
	return v == w
}

// BinaryOp applies the binary operator whose slot is s to v and w,
// following the reflected-dispatch rule:
//
//  1. When type(w) is a strict subclass of type(v) and defines the
//     reflected op, w gets the first try.
//  2. Otherwise v.__op__(w); on NotImplemented, w.__rop__(v).
//  3. Otherwise TypeError.
func (vm *VM) BinaryOp(s Slot, symbol string, v, w Value) (Value, error) {
	rs := s.Reflected()
	vt, wt := TypeOf(v), TypeOf(w)

	triedReflected := false
	if wt != vt && IsSubType(wt, vt) && wt.HasSlot(rs) {
		triedReflected = true
		r, err := vm.invokeBinOpSlot(wt, rs, w, v)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}

	if vt.HasSlot(s) {
		r, err := vm.invokeBinOpSlot(vt, s, v, w)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}

	if !triedReflected && wt != vt && wt.HasSlot(rs) {
		r, err := vm.invokeBinOpSlot(wt, rs, w, v)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}

	return nil, vm.RaiseTypeError("unsupported operand type(s) for %s: '%s' and '%s'",
		symbol, trimType(vt.Name), trimType(wt.Name))
}

// invokeBinOpSlot dispatches through a binary operator slot, treating the
// ternary __pow__ pair uniformly with a None modulus.
func (vm *VM) invokeBinOpSlot(t *Type, s Slot, self, other Value) (Value, error) {
	if slotDefs[s].sig == sigTernary {
		return vm.slotTernary(t, s, self, other, None)
	}
	return vm.slotBinary(t, s, self, other)
}

// InplaceOp applies an augmented-assignment operator: the in-place slot
// when present, falling back to the plain binary dispatch.
func (vm *VM) InplaceOp(is, s Slot, symbol string, v, w Value) (Value, error) {
	vt := TypeOf(v)
	if vt.HasSlot(is) {
		r, err := vm.invokeBinOpSlot(vt, is, v, w)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}
	return vm.BinaryOp(s, symbol, v, w)
}

// UnaryOp applies a unary operator through its slot
func (vm *VM) UnaryOp(s Slot, symbol string, v Value) (Value, error) {
	r, err := vm.slotUnary(TypeOf(v), s, v)
	if err != nil && isEmptySlot(err) {
		return nil, vm.RaiseTypeError("bad operand type for unary %s: '%.200s'", symbol, trimType(TypeName(v)))
	}
	return r, err
}

// RichCompare applies a rich comparison, mirroring the binary dispatch
// order, with the documented fallbacks: == defaults to identity, != negates
// it, and ordering comparisons raise TypeError.
func (vm *VM) RichCompare(v, w Value, op CompareOp) (Value, error) {
	if op < CompareLt || op > CompareGe {
		return nil, Fatal("rich comparison with non-rich operator %d", op)
	}
	pair := compareSlots[op]
	vt, wt := TypeOf(v), TypeOf(w)

	triedSwapped := false
	if wt != vt && IsSubType(wt, vt) && wt.HasSlot(pair.swapped) {
		triedSwapped = true
		r, err := vm.slotBinary(wt, pair.swapped, w, v)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}
	if vt.HasSlot(pair.slot) {
		r, err := vm.slotBinary(vt, pair.slot, v, w)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}
	if !triedSwapped && wt.HasSlot(pair.swapped) {
		r, err := vm.slotBinary(wt, pair.swapped, w, v)
		if err != nil {
			return nil, err
		}
		if r != NotImplemented {
			return r, nil
		}
	}

	switch op {
	case CompareEq:
		return MakeBool(sameValue(v, w)), nil
	case CompareNe:
		return MakeBool(!sameValue(v, w)), nil
	}
	return nil, vm.RaiseTypeError("'%s' not supported between instances of '%.100s' and '%.100s'",
		compareSymbols[op], trimType(vt.Name), trimType(wt.Name))
}

// RichCompareBool evaluates a comparison to a Go bool. Identity implies
// equality: the same reference compares equal without consulting __eq__,
// even when __eq__ would raise.
func (vm *VM) RichCompareBool(v, w Value, op CompareOp) (bool, error) {
	if sameValue(v, w) {
		switch op {
		case CompareEq:
			return true, nil
		case CompareNe:
			return false, nil
		}
	}
	r, err := vm.RichCompare(v, w, op)
	if err != nil {
		return false, err
	}
	return vm.IsTrue(r)
}
