package runtime

// Container objects appear here only in their role as stack values for the
// evaluation loop: building, unpacking, subscripting, iteration, and the
// handful of methods the builders need. Full container semantics live with
// the built-in type implementations, outside this core.

// PyTuple is an immutable sequence of values
type PyTuple struct {
	Items []Value
}

func (t *PyTuple) PyType() *Type { return TupleType }

// NewTuple builds a tuple from values
func NewTuple(items ...Value) *PyTuple {
	return &PyTuple{Items: items}
}

// PyList is a mutable sequence of values
type PyList struct {
	Items []Value
}

func (l *PyList) PyType() *Type { return ListType }

// Append adds an element; used by LIST_APPEND and list.append
func (l *PyList) Append(v Value) {
	l.Items = append(l.Items, v)
}

// PyBytes is an immutable byte string
type PyBytes struct {
	B []byte
}

func (b *PyBytes) PyType() *Type { return BytesType }

// PySet is a set of values, keyed the same way dict keys are
type PySet struct {
	dict PyDict
}

func (s *PySet) PyType() *Type { return SetType }

// Add inserts a value into the set
func (s *PySet) Add(vm *VM, v Value) error {
	return s.dict.Set(vm, v, None)
}

// Contains reports membership
func (s *PySet) Contains(vm *VM, v Value) (bool, error) {
	_, ok, err := s.dict.Get(vm, v)
	return ok, err
}

// Len returns the number of elements
func (s *PySet) Len() int { return s.dict.Len() }

// Items returns the elements in insertion order
func (s *PySet) Items() []Value { return s.dict.Keys() }

// PyCell is a mutable box shared between the frame that created it and any
// closures that captured it. An unset cell holds nil and reads as an
// unbound-variable error.
type PyCell struct {
	Value Value
}

func (c *PyCell) PyType() *Type { return CellType }

// Get returns the cell contents, or nil when the cell is empty
func (c *PyCell) Get() Value { return c.Value }

// Set replaces the cell contents
func (c *PyCell) Set(v Value) { c.Value = v }

// Clear empties the cell
func (c *PyCell) Clear() { c.Value = nil }

// PySlice is the object produced by BUILD_SLICE
type PySlice struct {
	Start, Stop, Step Value
}

func (s *PySlice) PyType() *Type { return SliceType }

// PyRange is the value returned by range()
type PyRange struct {
	Start, Stop, Step int64
}

func (r *PyRange) PyType() *Type { return RangeType }

// Len returns the number of elements the range produces
func (r *PyRange) Len() int64 {
	if r.Step > 0 {
		if r.Stop <= r.Start {
			return 0
		}
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	}
	if r.Stop >= r.Start {
		return 0
	}
	return (r.Start - r.Stop - r.Step - 1) / -r.Step
}

// dictEntry is one live or deleted slot in a dict's insertion-ordered store
type dictEntry struct {
	key     Value
	value   Value
	deleted bool
}

// PyDict is a mapping keyed by Python equality. Entries are bucketed by
// Python hash and kept in insertion order; lookups compare candidates with
// richCompareBool so 1, 1.0 and True coincide the way they do in Python.
type PyDict struct {
	entries []dictEntry
	table   map[int64][]int // hash -> indexes into entries
	size    int
}

func (d *PyDict) PyType() *Type { return DictType }

// NewDict returns an empty dict
func NewDict() *PyDict {
	return &PyDict{table: make(map[int64][]int)}
}

// Len returns the number of live entries
func (d *PyDict) Len() int { return d.size }

func (d *PyDict) find(vm *VM, key Value) (int, int64, error) {
	h, err := vm.Hash(key)
	if err != nil {
		return -1, 0, err
	}
	for _, i := range d.table[h] {
		e := &d.entries[i]
		if e.deleted {
			continue
		}
		eq, err := vm.RichCompareBool(e.key, key, CompareEq)
		if err != nil {
			return -1, 0, err
		}
		if eq {
			return i, h, nil
		}
	}
	return -1, h, nil
}

// Get looks a key up, reporting presence separately from errors
func (d *PyDict) Get(vm *VM, key Value) (Value, bool, error) {
	if d.table == nil {
		return nil, false, nil
	}
	i, _, err := d.find(vm, key)
	if err != nil || i < 0 {
		return nil, false, err
	}
	return d.entries[i].value, true, nil
}

// Set inserts or replaces a key
func (d *PyDict) Set(vm *VM, key, value Value) error {
	if d.table == nil {
		d.table = make(map[int64][]int)
	}
	i, h, err := d.find(vm, key)
	if err != nil {
		return err
	}
	if i >= 0 {
		d.entries[i].value = value
		return nil
	}
	d.entries = append(d.entries, dictEntry{key: key, value: value})
	d.table[h] = append(d.table[h], len(d.entries)-1)
	d.size++
	return nil
}

// Del removes a key, reporting whether it was present
func (d *PyDict) Del(vm *VM, key Value) (bool, error) {
	if d.table == nil {
		return false, nil
	}
	i, _, err := d.find(vm, key)
	if err != nil || i < 0 {
		return false, err
	}
	d.entries[i].deleted = true
	d.entries[i].value = nil
	d.size--
	return true, nil
}

// Keys returns the live keys in insertion order
func (d *PyDict) Keys() []Value {
	out := make([]Value, 0, d.size)
	for _, e := range d.entries {
		if !e.deleted {
			out = append(out, e.key)
		}
	}
	return out
}

// Each calls fn for every live entry in insertion order
func (d *PyDict) Each(fn func(k, v Value) error) error {
	for _, e := range d.entries {
		if e.deleted {
			continue
		}
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}


// PyIterator is the uniform iterator object. Built-in iteration sources
// provide a next function; exhaustion raises StopIteration through it.
type PyIterator struct {
	next func(vm *VM) (Value, error)
}

func (it *PyIterator) PyType() *Type { return IteratorType }

// Next advances the iterator
func (it *PyIterator) Next(vm *VM) (Value, error) { return it.next(vm) }

// newSliceIterator iterates a captured []Value
func newSliceIterator(items []Value) *PyIterator {
	i := 0
	return &PyIterator{next: func(vm *VM) (Value, error) {
		if i >= len(items) {
			return nil, vm.RaiseNoArgs(StopIterationType)
		}
		v := items[i]
		i++
		return v, nil
	}}
}

// newListIterator tracks a live list, matching list iterator semantics for
// appends during iteration
func newListIterator(l *PyList) *PyIterator {
	i := 0
	return &PyIterator{next: func(vm *VM) (Value, error) {
		if i >= len(l.Items) {
			return nil, vm.RaiseNoArgs(StopIterationType)
		}
		v := l.Items[i]
		i++
		return v, nil
	}}
}

// newRangeIterator iterates a range value
func newRangeIterator(r *PyRange) *PyIterator {
	cur := r.Start
	return &PyIterator{next: func(vm *VM) (Value, error) {
		if (r.Step > 0 && cur >= r.Stop) || (r.Step < 0 && cur <= r.Stop) {
			return nil, vm.RaiseNoArgs(StopIterationType)
		}
		v := MakeInt(cur)
		cur += r.Step
		return v, nil
	}}
}

// newStrIterator iterates the characters of a string
func newStrIterator(s string) *PyIterator {
	runes := []rune(s)
	i := 0
	return &PyIterator{next: func(vm *VM) (Value, error) {
		if i >= len(runes) {
			return nil, vm.RaiseNoArgs(StopIterationType)
		}
		v := string(runes[i])
		i++
		return v, nil
	}}
}

// newSeqIterator is the __getitem__ fallback iterator used when a type has
// no __iter__: index from zero until IndexError.
func newSeqIterator(seq Value) *PyIterator {
	var i int64
	return &PyIterator{next: func(vm *VM) (Value, error) {
		v, err := vm.GetItem(seq, MakeInt(i))
		if err != nil {
			if exc, ok := asPyException(err); ok && exc.Matches(IndexErrorType) {
				return nil, vm.RaiseNoArgs(StopIterationType)
			}
			return nil, err
		}
		i++
		return v, nil
	}}
}
