package runtime

import (
	"fmt"
	"strings"
)

// Sequence slot implementations: tuples, lists, ranges, slices, bytes and
// the iterator object, in their stack-value role.

// seqIndex normalizes a subscript against a sequence length, applying
// negative indexing.
func seqIndex(vm *VM, key Value, length int64, kind string) (int64, error) {
	i, bigv, ok := asIntPair(key)
	if !ok {
		if idx, err := vm.slotUnary(TypeOf(key), SlotIndex, key); err == nil {
			i, bigv, ok = asIntPair(idx)
		}
		if !ok {
			return 0, vm.RaiseTypeError("%s indices must be integers or slices, not %.200s",
				kind, trimType(TypeName(key)))
		}
	}
	if bigv != nil {
		return 0, vm.Raise(IndexErrorType, "%s index out of range", kind)
	}
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, vm.Raise(IndexErrorType, "%s index out of range", kind)
	}
	return i, nil
}

// indices resolves a slice against a sequence length, clamping the way
// slice.indices does.
func (s *PySlice) indices(vm *VM, length int64) (start, stop, step int64, err error) {
	step = 1
	if s.Step != None {
		n, bigv, ok := asIntPair(s.Step)
		if !ok || bigv != nil {
			return 0, 0, 0, vm.RaiseTypeError("slice indices must be integers or None")
		}
		if n == 0 {
			return 0, 0, 0, vm.Raise(ValueErrorType, "slice step cannot be zero")
		}
		step = n
	}
	defStart, defStop := int64(0), length
	if step < 0 {
		defStart, defStop = length-1, -1
	}
	resolve := func(v Value, def int64) (int64, error) {
		if v == None {
			return def, nil
		}
		n, bigv, ok := asIntPair(v)
		if !ok || bigv != nil {
			return 0, vm.RaiseTypeError("slice indices must be integers or None")
		}
		if n < 0 {
			n += length
		}
		lo, hi := int64(-1), length
		if step > 0 {
			lo = 0
		}
		if n < lo {
			n = lo
		}
		if n > hi {
			n = hi
		}
		if step < 0 && n >= length {
			n = length - 1
		}
		return n, nil
	}
	if start, err = resolve(s.Start, defStart); err != nil {
		return
	}
	stop, err = resolve(s.Stop, defStop)
	return
}

// seqRepr renders a bracketed element list
func seqRepr(vm *VM, items []Value, open, close string, trailingComma bool) (Value, error) {
	var b strings.Builder
	b.WriteString(open)
	for i, v := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		r, err := vm.Repr(v)
		if err != nil {
			return nil, err
		}
		b.WriteString(r)
	}
	if trailingComma && len(items) == 1 {
		b.WriteString(",")
	}
	b.WriteString(close)
	return b.String(), nil
}

// seqEq compares two element slices with Python equality
func seqEq(vm *VM, a, b []Value) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := vm.RichCompareBool(a[i], b[i], CompareEq)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// seqContains scans a slice for an equal element
func seqContains(vm *VM, items []Value, item Value) (bool, error) {
	for _, v := range items {
		eq, err := vm.RichCompareBool(v, item, CompareEq)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// Tuple slots

func tupleRepr(vm *VM, self Value) (Value, error) {
	return seqRepr(vm, self.(*PyTuple).Items, "(", ")", true)
}

func tupleLen(vm *VM, self Value) (int64, error) {
	return int64(len(self.(*PyTuple).Items)), nil
}

func tupleGetitem(vm *VM, self, key Value) (Value, error) {
	t := self.(*PyTuple)
	if sl, ok := key.(*PySlice); ok {
		items, err := sliceItems(vm, t.Items, sl)
		if err != nil {
			return nil, err
		}
		return NewTuple(items...), nil
	}
	i, err := seqIndex(vm, key, int64(len(t.Items)), "tuple")
	if err != nil {
		return nil, err
	}
	return t.Items[i], nil
}

func tupleContains(vm *VM, self, item Value) (bool, error) {
	return seqContains(vm, self.(*PyTuple).Items, item)
}

func tupleIter(vm *VM, self Value) (Value, error) {
	return newSliceIterator(self.(*PyTuple).Items), nil
}

func tupleEq(vm *VM, self, other Value) (Value, error) {
	o, ok := other.(*PyTuple)
	if !ok {
		return NotImplemented, nil
	}
	eq, err := seqEq(vm, self.(*PyTuple).Items, o.Items)
	if err != nil {
		return nil, err
	}
	return MakeBool(eq), nil
}

func tupleHash(vm *VM, self Value) (int64, error) {
	h := int64(0x345678)
	for _, v := range self.(*PyTuple).Items {
		eh, err := vm.Hash(v)
		if err != nil {
			return 0, err
		}
		h = (h*1000003 ^ eh) % hashModulus
	}
	if h == -1 {
		h = -2
	}
	return h, nil
}

func tupleAdd(vm *VM, self, other Value) (Value, error) {
	o, ok := other.(*PyTuple)
	if !ok {
		return NotImplemented, nil
	}
	t := self.(*PyTuple)
	items := make([]Value, 0, len(t.Items)+len(o.Items))
	items = append(items, t.Items...)
	items = append(items, o.Items...)
	return NewTuple(items...), nil
}

func sliceItems(vm *VM, items []Value, sl *PySlice) ([]Value, error) {
	start, stop, step, err := sl.indices(vm, int64(len(items)))
	if err != nil {
		return nil, err
	}
	out := []Value{}
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, items[i])
	}
	return out, nil
}

// List slots

func listRepr(vm *VM, self Value) (Value, error) {
	return seqRepr(vm, self.(*PyList).Items, "[", "]", false)
}

func listLen(vm *VM, self Value) (int64, error) {
	return int64(len(self.(*PyList).Items)), nil
}

func listGetitem(vm *VM, self, key Value) (Value, error) {
	l := self.(*PyList)
	if sl, ok := key.(*PySlice); ok {
		items, err := sliceItems(vm, l.Items, sl)
		if err != nil {
			return nil, err
		}
		return &PyList{Items: items}, nil
	}
	i, err := seqIndex(vm, key, int64(len(l.Items)), "list")
	if err != nil {
		return nil, err
	}
	return l.Items[i], nil
}

func listSetitem(vm *VM, self, key, v Value) error {
	l := self.(*PyList)
	i, err := seqIndex(vm, key, int64(len(l.Items)), "list assignment")
	if err != nil {
		return err
	}
	l.Items[i] = v
	return nil
}

func listDelitem(vm *VM, self, key Value) error {
	l := self.(*PyList)
	i, err := seqIndex(vm, key, int64(len(l.Items)), "list assignment")
	if err != nil {
		return err
	}
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return nil
}

func listContains(vm *VM, self, item Value) (bool, error) {
	return seqContains(vm, self.(*PyList).Items, item)
}

func listIter(vm *VM, self Value) (Value, error) {
	return newListIterator(self.(*PyList)), nil
}

func listEq(vm *VM, self, other Value) (Value, error) {
	o, ok := other.(*PyList)
	if !ok {
		return NotImplemented, nil
	}
	eq, err := seqEq(vm, self.(*PyList).Items, o.Items)
	if err != nil {
		return nil, err
	}
	return MakeBool(eq), nil
}

func listAdd(vm *VM, self, other Value) (Value, error) {
	o, ok := other.(*PyList)
	if !ok {
		return NotImplemented, nil
	}
	l := self.(*PyList)
	items := make([]Value, 0, len(l.Items)+len(o.Items))
	items = append(items, l.Items...)
	items = append(items, o.Items...)
	return &PyList{Items: items}, nil
}

func listAppendMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return nil, vm.RaiseTypeError("append() takes exactly one argument (%d given)", len(args)-1)
	}
	l, ok := args[0].(*PyList)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'append' requires a 'list' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	l.Append(args[1])
	return None, nil
}

func listExtendMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return nil, vm.RaiseTypeError("extend() takes exactly one argument (%d given)", len(args)-1)
	}
	l, ok := args[0].(*PyList)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'extend' requires a 'list' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	items, err := vm.Unpack(args[1], -1)
	if err != nil {
		return nil, err
	}
	l.Items = append(l.Items, items...)
	return None, nil
}

func listPopMethod(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	l, ok := args[0].(*PyList)
	if !ok {
		return nil, vm.RaiseTypeError("descriptor 'pop' requires a 'list' object but received a '%.200s'",
			trimType(TypeName(args[0])))
	}
	if len(l.Items) == 0 {
		return nil, vm.Raise(IndexErrorType, "pop from empty list")
	}
	i := int64(len(l.Items) - 1)
	if len(args) == 2 {
		var err error
		i, err = seqIndex(vm, args[1], int64(len(l.Items)), "list")
		if err != nil {
			return nil, err
		}
	}
	v := l.Items[i]
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return v, nil
}

// Range slots

func rangeRepr(vm *VM, self Value) (Value, error) {
	r := self.(*PyRange)
	if r.Step == 1 {
		return fmt.Sprintf("range(%d, %d)", r.Start, r.Stop), nil
	}
	return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step), nil
}

func rangeLen(vm *VM, self Value) (int64, error) {
	return self.(*PyRange).Len(), nil
}

func rangeGetitem(vm *VM, self, key Value) (Value, error) {
	r := self.(*PyRange)
	i, err := seqIndex(vm, key, r.Len(), "range")
	if err != nil {
		return nil, err
	}
	return MakeInt(r.Start + i*r.Step), nil
}

func rangeIter(vm *VM, self Value) (Value, error) {
	return newRangeIterator(self.(*PyRange)), nil
}

func rangeContains(vm *VM, self, item Value) (bool, error) {
	r := self.(*PyRange)
	n, bigv, ok := asIntPair(item)
	if !ok || bigv != nil {
		return seqContainsIter(vm, self, item)
	}
	if r.Step > 0 {
		return n >= r.Start && n < r.Stop && (n-r.Start)%r.Step == 0, nil
	}
	return n <= r.Start && n > r.Stop && (r.Start-n)%(-r.Step) == 0, nil
}

func seqContainsIter(vm *VM, seq, item Value) (bool, error) {
	it, err := vm.Iter(seq)
	if err != nil {
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
		if err != nil || eq {
			return eq, err
		}
	}
}

// Bytes slots

func bytesRepr(vm *VM, self Value) (Value, error) {
	b := self.(*PyBytes)
	var sb strings.Builder
	sb.WriteString("b'")
	for _, c := range b.B {
		switch {
		case c == '\\' || c == '\'':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(fmt.Sprintf(`\x%02x`, c))
		}
	}
	sb.WriteString("'")
	return sb.String(), nil
}

func bytesLen(vm *VM, self Value) (int64, error) {
	return int64(len(self.(*PyBytes).B)), nil
}

func bytesGetitem(vm *VM, self, key Value) (Value, error) {
	b := self.(*PyBytes)
	i, err := seqIndex(vm, key, int64(len(b.B)), "index")
	if err != nil {
		return nil, err
	}
	return MakeInt(int64(b.B[i])), nil
}

// Set slots

func setRepr(vm *VM, self Value) (Value, error) {
	s := self.(*PySet)
	if s.Len() == 0 {
		return "set()", nil
	}
	return seqRepr(vm, s.Items(), "{", "}", false)
}

func setLen(vm *VM, self Value) (int64, error) {
	return int64(self.(*PySet).Len()), nil
}

func setContains(vm *VM, self, item Value) (bool, error) {
	return self.(*PySet).Contains(vm, item)
}

func setIter(vm *VM, self Value) (Value, error) {
	return newSliceIterator(self.(*PySet).Items()), nil
}

// Slice slots

func sliceRepr(vm *VM, self Value) (Value, error) {
	s := self.(*PySlice)
	start, err := vm.Repr(s.Start)
	if err != nil {
		return nil, err
	}
	stop, err := vm.Repr(s.Stop)
	if err != nil {
		return nil, err
	}
	step, err := vm.Repr(s.Step)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("slice(%s, %s, %s)", start, stop, step), nil
}

// Iterator slots: an iterator is its own iterator

func iterIter(vm *VM, self Value) (Value, error) {
	return self, nil
}

func iterNext(vm *VM, self Value) (Value, error) {
	return self.(*PyIterator).Next(vm)
}
