package runtime

import (
	"math"
	"math/big"
	"strings"
	"testing"
)

func TestIntArithmetic(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		name string
		slot Slot
		a, b int64
		want int64
	}{
		{"add", SlotAdd, 3, 4, 7},
		{"add negative", SlotAdd, -3, 4, 1},
		{"sub", SlotSub, 10, 3, 7},
		{"mul", SlotMul, 6, 7, 42},
		{"mul negative", SlotMul, -3, 4, -12},
		{"floordiv", SlotFloordiv, 10, 3, 3},
		{"floordiv negative", SlotFloordiv, -7, 2, -4},
		{"mod", SlotMod, 10, 3, 1},
		{"mod negative divisor", SlotMod, 7, -3, -2},
		{"mod negative dividend", SlotMod, -7, 3, 2},
		{"pow", SlotPow, 2, 10, 1024},
		{"lshift", SlotLshift, 1, 8, 256},
		{"rshift", SlotRshift, 256, 4, 16},
		{"and", SlotAnd, 0xFF, 0x0F, 0x0F},
		{"or", SlotOr, 0xF0, 0x0F, 0xFF},
		{"xor", SlotXor, 0xFF, 0x0F, 0xF0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := vm.BinaryOp(tt.slot, "?", MakeInt(tt.a), MakeInt(tt.b))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r != MakeInt(tt.want) {
				t.Errorf("got %v, want %d", r, tt.want)
			}
		})
	}
}

func TestIntOverflowPromotesToBig(t *testing.T) {
	vm := NewVM()
	r, err := vm.BinaryOp(SlotAdd, "+", MakeInt(math.MaxInt64), MakeInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := r.(*big.Int)
	if !ok {
		t.Fatalf("result is %T, want *big.Int", r)
	}
	want := new(big.Int).Add(big.NewInt(math.MaxInt64), big.NewInt(1))
	if b.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", b, want)
	}

	// Big results that fit demote back to int64
	r, err = vm.BinaryOp(SlotSub, "-", b, MakeInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != MakeInt(math.MaxInt64) {
		t.Errorf("demotion failed: %v (%T)", r, r)
	}
}

func TestIntDivisionByZero(t *testing.T) {
	vm := NewVM()
	for _, slot := range []Slot{SlotFloordiv, SlotMod, SlotTruediv} {
		_, err := vm.BinaryOp(slot, "?", MakeInt(1), MakeInt(0))
		exc, ok := err.(*PyException)
		if !ok || !exc.Matches(ZeroDivisionErrorType) {
			t.Errorf("%s: error = %v, want ZeroDivisionError", slot.Name(), err)
		}
	}
}

func TestIntTrueDivideMakesFloat(t *testing.T) {
	vm := NewVM()
	r, err := vm.BinaryOp(SlotTruediv, "/", MakeInt(7), MakeInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 3.5 {
		t.Errorf("got %v, want 3.5", r)
	}
}

func TestIntNegativePowMakesFloat(t *testing.T) {
	vm := NewVM()
	r, err := vm.BinaryOp(SlotPow, "**", MakeInt(2), MakeInt(-2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 0.25 {
		t.Errorf("got %v, want 0.25", r)
	}
}

func TestIntFloatMixedArithmetic(t *testing.T) {
	vm := NewVM()
	// int.__add__ declines floats; float.__radd__ accepts ints
	r, err := vm.BinaryOp(SlotAdd, "+", MakeInt(1), 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 1.5 {
		t.Errorf("got %v, want 1.5", r)
	}
	r, err = vm.BinaryOp(SlotSub, "-", 2.5, MakeInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 1.5 {
		t.Errorf("got %v, want 1.5", r)
	}
}

func TestBoolActsAsInt(t *testing.T) {
	vm := NewVM()
	r, err := vm.BinaryOp(SlotAdd, "+", MakeBool(true), MakeInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != MakeInt(3) {
		t.Errorf("True + 2 = %v, want 3", r)
	}
}

func TestUnaryOps(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		name string
		slot Slot
		v    Value
		want Value
	}{
		{"neg int", SlotNeg, MakeInt(3), MakeInt(-3)},
		{"pos int", SlotPos, MakeInt(-3), MakeInt(-3)},
		{"invert", SlotInvert, MakeInt(0), MakeInt(-1)},
		{"neg float", SlotNeg, 2.5, -2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := vm.UnaryOp(tt.slot, "?", tt.v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r != tt.want {
				t.Errorf("got %v, want %v", r, tt.want)
			}
		})
	}

	_, err := vm.UnaryOp(SlotInvert, "~", "s")
	if err == nil || !strings.Contains(err.Error(), "bad operand type for unary ~: 'str'") {
		t.Errorf("error = %v", err)
	}
}

func TestHashConsistency(t *testing.T) {
	vm := NewVM()
	// Values that compare equal must hash equal: 2, 2.0, big(2)
	h1, err := vm.Hash(MakeInt(2))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := vm.Hash(2.0)
	if err != nil {
		t.Fatal(err)
	}
	h3, err := vm.Hash(big.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 || h1 != h3 {
		t.Errorf("hashes disagree: %d %d %d", h1, h2, h3)
	}
}

func TestParseIntRoundTrip(t *testing.T) {
	vm := NewVM()
	literals := []string{"0", "42", "-17", "9223372036854775807", "123456789012345678901234567890"}
	for _, lit := range literals {
		v, err := ParseInt(lit)
		if err != nil {
			t.Fatalf("ParseInt(%q): %v", lit, err)
		}
		s, err := vm.Str(v)
		if err != nil {
			t.Fatalf("Str: %v", err)
		}
		if s != lit {
			t.Errorf("round trip %q -> %q", lit, s)
		}
	}

	_, err := ParseInt("not a number")
	exc, ok := err.(*PyException)
	if !ok || !exc.Matches(ValueErrorType) {
		t.Errorf("error = %v, want ValueError", err)
	}
}

func TestFloorDivModIdentity(t *testing.T) {
	vm := NewVM()
	// a == (a // b) * b + a % b across sign combinations
	pairs := [][2]int64{{7, 3}, {-7, 3}, {7, -3}, {-7, -3}, {9, 3}, {-9, 3}}
	for _, p := range pairs {
		a, b := p[0], p[1]
		q, err := vm.BinaryOp(SlotFloordiv, "//", MakeInt(a), MakeInt(b))
		if err != nil {
			t.Fatal(err)
		}
		m, err := vm.BinaryOp(SlotMod, "%", MakeInt(a), MakeInt(b))
		if err != nil {
			t.Fatal(err)
		}
		if got := q.(int64)*b + m.(int64); got != a {
			t.Errorf("%d //%% %d: q=%v m=%v recombines to %d", a, b, q, m, got)
		}
	}
}
