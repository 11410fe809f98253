package runtime

import (
	"hash/fnv"
	"strings"
	"unicode/utf8"
)

// Str slot implementations. The adopted representation is the Go string;
// indexing and length are in code points. Rich string methods belong to the
// built-in library layer, not this core.

func strRepr(vm *VM, self Value) (Value, error) {
	s := self.(string)
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String(), nil
}

func strStr(vm *VM, self Value) (Value, error) {
	return self.(string), nil
}

func strHash(vm *VM, self Value) (int64, error) {
	h := fnv.New64a()
	h.Write([]byte(self.(string)))
	v := int64(h.Sum64())
	if v == -1 {
		v = -2
	}
	return v, nil
}

func strLen(vm *VM, self Value) (int64, error) {
	return int64(utf8.RuneCountInString(self.(string))), nil
}

func strGetitem(vm *VM, self, key Value) (Value, error) {
	s := self.(string)
	if sl, ok := key.(*PySlice); ok {
		runes := []rune(s)
		start, stop, step, err := sl.indices(vm, int64(len(runes)))
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
			b.WriteRune(runes[i])
		}
		return b.String(), nil
	}
	i, bigv, ok := asIntPair(key)
	if !ok {
		return nil, vm.RaiseTypeError("string indices must be integers")
	}
	if bigv != nil {
		return nil, vm.Raise(IndexErrorType, "string index out of range")
	}
	runes := []rune(s)
	if i < 0 {
		i += int64(len(runes))
	}
	if i < 0 || i >= int64(len(runes)) {
		return nil, vm.Raise(IndexErrorType, "string index out of range")
	}
	return string(runes[i]), nil
}

func strContains(vm *VM, self, item Value) (bool, error) {
	sub, ok := item.(string)
	if !ok {
		return false, vm.RaiseTypeError("'in <string>' requires string as left operand, not %.200s",
			trimType(TypeName(item)))
	}
	return strings.Contains(self.(string), sub), nil
}

func strAdd(vm *VM, self, other Value) (Value, error) {
	b, ok := other.(string)
	if !ok {
		return NotImplemented, nil
	}
	return self.(string) + b, nil
}

func strMul(vm *VM, self, other Value) (Value, error) {
	n, bigv, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if bigv != nil {
		return nil, vm.Raise(OverflowErrorType, "repeated string is too long")
	}
	if n <= 0 {
		return "", nil
	}
	return strings.Repeat(self.(string), int(n)), nil
}

func strRmul(vm *VM, self, other Value) (Value, error) {
	return strMul(vm, self, other)
}

func strIter(vm *VM, self Value) (Value, error) {
	return newStrIterator(self.(string)), nil
}

// strCmp orders two strings; non-string operands decline
func strCmp(self, other Value) (int, bool) {
	a, ok := self.(string)
	if !ok {
		return 0, false
	}
	b, ok := other.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(a, b), true
}
