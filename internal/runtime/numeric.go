package runtime

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Int slot implementations. The int type accepts three host
// representations: int64, *big.Int for values outside the int64 range, and
// bool through inheritance. Arithmetic stays in int64 until it overflows,
// then promotes to big.Int.

const hashModulus = (1 << 61) - 1 // hashes agree across int, big and integral float

func hashInt64(v int64) int64 {
	h := v % hashModulus
	if h == -1 {
		h = -2
	}
	return h
}

func hashBig(v *big.Int) int64 {
	m := new(big.Int).Mod(v, big.NewInt(hashModulus))
	h := m.Int64()
	if v.Sign() < 0 && h != 0 {
		h -= hashModulus
	}
	if h == -1 {
		h = -2
	}
	return h
}

func bigOf(small int64, bigv *big.Int) *big.Int {
	if bigv != nil {
		return bigv
	}
	return big.NewInt(small)
}

// intRepr is int.__repr__
func intRepr(vm *VM, self Value) (Value, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return bigv.String(), nil
	}
	return strconv.FormatInt(n, 10), nil
}

func intHash(vm *VM, self Value) (int64, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return hashBig(bigv), nil
	}
	return hashInt64(n), nil
}

func intBool(vm *VM, self Value) (bool, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return bigv.Sign() != 0, nil
	}
	return n != 0, nil
}

func intIndex(vm *VM, self Value) (Value, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return bigv, nil
	}
	return MakeInt(n), nil
}

func intFloatConv(vm *VM, self Value) (Value, error) {
	f, _ := asFloat(self)
	return f, nil
}

// addOverflows reports whether a+b leaves the int64 range
func addOverflows(a, b, r int64) bool {
	return (a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r >= 0)
}

func intAdd(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if abig == nil && bbig == nil {
		r := a + b
		if !addOverflows(a, b, r) {
			return MakeInt(r), nil
		}
	}
	return MakeBigInt(new(big.Int).Add(bigOf(a, abig), bigOf(b, bbig))), nil
}

func intSub(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if abig == nil && bbig == nil && b != math.MinInt64 {
		r := a - b
		if !addOverflows(a, -b, r) {
			return MakeInt(r), nil
		}
	}
	return MakeBigInt(new(big.Int).Sub(bigOf(a, abig), bigOf(b, bbig))), nil
}

func intRsub(vm *VM, self, other Value) (Value, error) {
	return intSub(vm, other, self)
}

func intMul(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if abig == nil && bbig == nil {
		r := a * b
		if a == 0 || (r/a == b && !(a == -1 && b == math.MinInt64)) {
			return MakeInt(r), nil
		}
	}
	return MakeBigInt(new(big.Int).Mul(bigOf(a, abig), bigOf(b, bbig))), nil
}

// floorDiv is Python floor division on int64
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// floorMod is Python modulo: the result takes the divisor's sign
func floorMod(a, b int64) int64 {
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

func intFloordiv(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if abig == nil && bbig == nil {
		if b == 0 {
			return nil, vm.Raise(ZeroDivisionErrorType, "integer division or modulo by zero")
		}
		if !(a == math.MinInt64 && b == -1) {
			return MakeInt(floorDiv(a, b)), nil
		}
	}
	bb := bigOf(b, bbig)
	if bb.Sign() == 0 {
		return nil, vm.Raise(ZeroDivisionErrorType, "integer division or modulo by zero")
	}
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(bigOf(a, abig), bb, m) // DivMod is Euclidean; adjust to floor
	if m.Sign() != 0 && bb.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
	return MakeBigInt(q), nil
}

func intRfloordiv(vm *VM, self, other Value) (Value, error) {
	return intFloordiv(vm, other, self)
}

func intMod(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if abig == nil && bbig == nil {
		if b == 0 {
			return nil, vm.Raise(ZeroDivisionErrorType, "integer division or modulo by zero")
		}
		if !(a == math.MinInt64 && b == -1) {
			return MakeInt(floorMod(a, b)), nil
		}
	}
	bb := bigOf(b, bbig)
	if bb.Sign() == 0 {
		return nil, vm.Raise(ZeroDivisionErrorType, "integer division or modulo by zero")
	}
	m := new(big.Int).Mod(bigOf(a, abig), bb) // Mod is Euclidean: 0 <= m < |b|
	if m.Sign() != 0 && bb.Sign() < 0 {
		m.Add(m, bb)
	}
	return MakeBigInt(m), nil
}

func intRmod(vm *VM, self, other Value) (Value, error) {
	return intMod(vm, other, self)
}

func intTruediv(vm *VM, self, other Value) (Value, error) {
	a, ok := asFloat(self)
	if !ok {
		return NotImplemented, nil
	}
	if _, _, isInt := asIntPair(other); !isInt {
		return NotImplemented, nil
	}
	b, _ := asFloat(other)
	if b == 0 {
		return nil, vm.Raise(ZeroDivisionErrorType, "division by zero")
	}
	return a / b, nil
}

func intRtruediv(vm *VM, self, other Value) (Value, error) {
	return intTruediv(vm, other, self)
}

func intPowOp(vm *VM, self, other, mod Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if mod != None {
		m, mbig, ok := asIntPair(mod)
		if !ok {
			return NotImplemented, nil
		}
		mm := bigOf(m, mbig)
		if mm.Sign() == 0 {
			return nil, vm.Raise(ValueErrorType, "pow() 3rd argument cannot be 0")
		}
		r := new(big.Int).Exp(bigOf(a, abig), bigOf(b, bbig), mm)
		return MakeBigInt(r), nil
	}
	if bbig == nil && b < 0 {
		// Negative exponent produces a float
		af, _ := asFloat(self)
		bf, _ := asFloat(other)
		if af == 0 {
			return nil, vm.Raise(ZeroDivisionErrorType, "0.0 cannot be raised to a negative power")
		}
		return math.Pow(af, bf), nil
	}
	if bbig != nil {
		return nil, vm.Raise(OverflowErrorType, "exponent too large")
	}
	r := new(big.Int).Exp(bigOf(a, abig), big.NewInt(b), nil)
	return MakeBigInt(r), nil
}

func intRpow(vm *VM, self, other, mod Value) (Value, error) {
	return intPowOp(vm, other, self, mod)
}

func intNeg(vm *VM, self Value) (Value, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return MakeBigInt(new(big.Int).Neg(bigv)), nil
	}
	if n == math.MinInt64 {
		return MakeBigInt(new(big.Int).Neg(big.NewInt(n))), nil
	}
	return MakeInt(-n), nil
}

func intPos(vm *VM, self Value) (Value, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return bigv, nil
	}
	return MakeInt(n), nil
}

func intAbs(vm *VM, self Value) (Value, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return MakeBigInt(new(big.Int).Abs(bigv)), nil
	}
	if n < 0 {
		return intNeg(vm, self)
	}
	return MakeInt(n), nil
}

func intInvert(vm *VM, self Value) (Value, error) {
	n, bigv, _ := asIntPair(self)
	if bigv != nil {
		return MakeBigInt(new(big.Int).Not(bigv)), nil
	}
	return MakeInt(^n), nil
}

func intLshift(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if bbig != nil || b > 1<<20 {
		return nil, vm.Raise(OverflowErrorType, "shift count too large")
	}
	if b < 0 {
		return nil, vm.Raise(ValueErrorType, "negative shift count")
	}
	if abig == nil && b < 63 {
		r := a << uint(b)
		if r>>uint(b) == a {
			return MakeInt(r), nil
		}
	}
	return MakeBigInt(new(big.Int).Lsh(bigOf(a, abig), uint(b))), nil
}

func intRlshift(vm *VM, self, other Value) (Value, error) {
	return intLshift(vm, other, self)
}

func intRshift(vm *VM, self, other Value) (Value, error) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return NotImplemented, nil
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return NotImplemented, nil
	}
	if bbig != nil {
		return nil, vm.Raise(OverflowErrorType, "shift count too large")
	}
	if b < 0 {
		return nil, vm.Raise(ValueErrorType, "negative shift count")
	}
	if abig == nil {
		if b > 63 {
			if a < 0 {
				return MakeInt(-1), nil
			}
			return MakeInt(0), nil
		}
		return MakeInt(a >> uint(b)), nil
	}
	return MakeBigInt(new(big.Int).Rsh(abig, uint(b))), nil
}

func intRrshift(vm *VM, self, other Value) (Value, error) {
	return intRshift(vm, other, self)
}

func intBitop(op func(z, x, y *big.Int) *big.Int, small func(a, b int64) int64) binaryFunc {
	return func(vm *VM, self, other Value) (Value, error) {
		a, abig, ok := asIntPair(self)
		if !ok {
			return NotImplemented, nil
		}
		b, bbig, ok := asIntPair(other)
		if !ok {
			return NotImplemented, nil
		}
		if abig == nil && bbig == nil {
			return MakeInt(small(a, b)), nil
		}
		return MakeBigInt(op(new(big.Int), bigOf(a, abig), bigOf(b, bbig))), nil
	}
}

// intCmp orders two int-accepted values; also accepts float on the right
func intCmp(self, other Value) (int, bool) {
	a, abig, ok := asIntPair(self)
	if !ok {
		return 0, false
	}
	if f, isFloat := other.(float64); isFloat {
		af, _ := asFloat(self)
		return cmpFloat(af, f), true
	}
	b, bbig, ok := asIntPair(other)
	if !ok {
		return 0, false
	}
	if abig == nil && bbig == nil {
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}
	return bigOf(a, abig).Cmp(bigOf(b, bbig)), true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpSlot builds a rich-comparison slot from an ordering function
func cmpSlot(cmp func(self, other Value) (int, bool), test func(c int) bool) binaryFunc {
	return func(vm *VM, self, other Value) (Value, error) {
		c, ok := cmp(self, other)
		if !ok {
			return NotImplemented, nil
		}
		return MakeBool(test(c)), nil
	}
}

// Float slot implementations. Floats accept int operands on either side.

func floatRepr(vm *VM, self Value) (Value, error) {
	f := self.(float64)
	if math.IsInf(f, 1) {
		return "inf", nil
	}
	if math.IsInf(f, -1) {
		return "-inf", nil
	}
	if math.IsNaN(f) {
		return "nan", nil
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !containsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

func containsAny(s, chars string) bool {
	for _, c := range s {
		for _, d := range chars {
			if c == d {
				return true
			}
		}
	}
	return false
}

func floatHash(vm *VM, self Value) (int64, error) {
	f := self.(float64)
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		if math.Abs(f) < 1<<62 {
			return hashInt64(int64(f)), nil
		}
		bi, _ := new(big.Float).SetFloat64(f).Int(nil)
		return hashBig(bi), nil
	}
	bits := int64(math.Float64bits(f))
	h := bits % hashModulus
	if h == -1 {
		h = -2
	}
	return h, nil
}

func floatBool(vm *VM, self Value) (bool, error) {
	return self.(float64) != 0, nil
}

func floatBinop(apply func(vm *VM, a, b float64) (Value, error), swap bool) binaryFunc {
	return func(vm *VM, self, other Value) (Value, error) {
		a, ok := asFloat(self)
		if !ok {
			return NotImplemented, nil
		}
		b, ok := asFloat(other)
		if !ok {
			return NotImplemented, nil
		}
		if swap {
			a, b = b, a
		}
		return apply(vm, a, b)
	}
}

func floatAddOp(vm *VM, a, b float64) (Value, error) { return a + b, nil }
func floatSubOp(vm *VM, a, b float64) (Value, error) { return a - b, nil }
func floatMulOp(vm *VM, a, b float64) (Value, error) { return a * b, nil }

func floatDivOp(vm *VM, a, b float64) (Value, error) {
	if b == 0 {
		return nil, vm.Raise(ZeroDivisionErrorType, "float division by zero")
	}
	return a / b, nil
}

func floatFloordivOp(vm *VM, a, b float64) (Value, error) {
	if b == 0 {
		return nil, vm.Raise(ZeroDivisionErrorType, "float floor division by zero")
	}
	return math.Floor(a / b), nil
}

func floatModOp(vm *VM, a, b float64) (Value, error) {
	if b == 0 {
		return nil, vm.Raise(ZeroDivisionErrorType, "float modulo")
	}
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

func floatPow(vm *VM, self, other, mod Value) (Value, error) {
	if mod != None {
		return nil, vm.RaiseTypeError("pow() 3rd argument not allowed unless all arguments are integers")
	}
	a, ok := asFloat(self)
	if !ok {
		return NotImplemented, nil
	}
	b, ok := asFloat(other)
	if !ok {
		return NotImplemented, nil
	}
	return math.Pow(a, b), nil
}

func floatRpow(vm *VM, self, other, mod Value) (Value, error) {
	return floatPow(vm, other, self, mod)
}

func floatNeg(vm *VM, self Value) (Value, error) {
	return -self.(float64), nil
}

func floatPos(vm *VM, self Value) (Value, error) {
	return self.(float64), nil
}

func floatAbs(vm *VM, self Value) (Value, error) {
	return math.Abs(self.(float64)), nil
}

func floatIntConv(vm *VM, self Value) (Value, error) {
	f := self.(float64)
	if math.IsInf(f, 0) {
		return nil, vm.Raise(OverflowErrorType, "cannot convert float infinity to integer")
	}
	if math.IsNaN(f) {
		return nil, vm.Raise(ValueErrorType, "cannot convert float NaN to integer")
	}
	t := math.Trunc(f)
	if t >= math.MinInt64 && t <= math.MaxInt64 {
		return MakeInt(int64(t)), nil
	}
	bf := new(big.Float).SetFloat64(t)
	bi, _ := bf.Int(nil)
	return MakeBigInt(bi), nil
}

// floatCmp orders a float against float or int operands
func floatCmp(self, other Value) (int, bool) {
	a, isFloat := self.(float64)
	if !isFloat {
		return 0, false
	}
	b, ok := asFloat(other)
	if !ok {
		return 0, false
	}
	return cmpFloat(a, b), true
}

// Bool slot implementations; bool inherits int behavior and overrides only
// its textual forms.

func boolRepr(vm *VM, self Value) (Value, error) {
	if self.(bool) {
		return "True", nil
	}
	return "False", nil
}

// ParseInt converts a decimal literal to an int value, with the round-trip
// property: formatting the result reproduces the canonical literal.
func ParseInt(s string) (Value, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return MakeInt(n), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &PyException{
			ExcType: ValueErrorType,
			Args:    []Value{fmt.Sprintf("invalid literal for int() with base 10: '%.200s'", s)},
		}
	}
	return MakeBigInt(b), nil
}
