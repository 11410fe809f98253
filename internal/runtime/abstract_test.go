package runtime

import (
	"strings"
	"testing"
)

func TestReprStrFallbacks(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", MakeInt(42), "42"},
		{"negative int", MakeInt(-3), "-3"},
		{"bool", MakeBool(true), "True"},
		{"none", None, "None"},
		{"str", "hi", "'hi'"},
		{"str with quote", "it's", `"it's"`},
		{"float", 2.5, "2.5"},
		{"integral float", 3.0, "3.0"},
		{"tuple", NewTuple(MakeInt(1), "x"), "(1, 'x')"},
		{"one-tuple", NewTuple(MakeInt(1)), "(1,)"},
		{"list", &PyList{Items: []Value{MakeInt(1), MakeInt(2)}}, "[1, 2]"},
		{"range", &PyRange{Start: 0, Stop: 5, Step: 1}, "range(0, 5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vm.Repr(tt.v)
			if err != nil {
				t.Fatalf("Repr: %v", err)
			}
			if got != tt.want {
				t.Errorf("repr = %q, want %q", got, tt.want)
			}
		})
	}

	// str of a plain string is the string itself, not its repr
	s, err := vm.Str("plain")
	if err != nil || s != "plain" {
		t.Errorf("Str = %q, %v", s, err)
	}
}

func TestIsTrueFallbacks(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"true", MakeBool(true), true},
		{"zero int", MakeInt(0), false},
		{"nonzero int", MakeInt(7), true},
		{"none", None, false},
		{"empty str", "", false},
		{"str", "x", true},
		{"empty list", &PyList{}, false},
		{"list", &PyList{Items: []Value{None}}, true},
		{"empty dict", NewDict(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vm.IsTrue(tt.v)
			if err != nil {
				t.Fatalf("IsTrue: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsTrue = %v, want %v", got, tt.want)
			}
		})
	}

	// No __bool__ and no __len__ defaults to true
	cls, _ := NewHeapType("Opaque", nil, map[string]Value{})
	got, err := vm.IsTrue(NewInstance(cls))
	if err != nil || !got {
		t.Errorf("instance truth = %v, %v", got, err)
	}
}

func TestBinaryOpReflectedDispatch(t *testing.T) {
	vm := NewVM()

	baseCalls, subCalls := 0, 0
	baseAdd := &PyBuiltinFunc{Name: "__add__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		baseCalls++
		return "base", nil
	}}
	base, err := NewHeapType("Base", nil, map[string]Value{"__add__": baseAdd})
	if err != nil {
		t.Fatal(err)
	}
	subRadd := &PyBuiltinFunc{Name: "__radd__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		subCalls++
		return "sub", nil
	}}
	sub, err := NewHeapType("Sub", []*Type{base}, map[string]Value{"__radd__": subRadd})
	if err != nil {
		t.Fatal(err)
	}

	// A strict subclass on the right with __radd__ goes first
	r, err := vm.BinaryOp(SlotAdd, "+", NewInstance(base), NewInstance(sub))
	if err != nil {
		t.Fatalf("BinaryOp: %v", err)
	}
	if r != "sub" || subCalls != 1 || baseCalls != 0 {
		t.Errorf("subclass-first rule violated: r=%v sub=%d base=%d", r, subCalls, baseCalls)
	}

	// Same types on both sides: the left operand wins
	r, err = vm.BinaryOp(SlotAdd, "+", NewInstance(base), NewInstance(base))
	if err != nil {
		t.Fatalf("BinaryOp: %v", err)
	}
	if r != "base" {
		t.Errorf("got %v, want base", r)
	}
}

func TestBinaryOpNotImplementedFallsBack(t *testing.T) {
	vm := NewVM()
	declines := &PyBuiltinFunc{Name: "__add__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return NotImplemented, nil
	}}
	accepts := &PyBuiltinFunc{Name: "__radd__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return "radd", nil
	}}
	a, _ := NewHeapType("A", nil, map[string]Value{"__add__": declines})
	b, _ := NewHeapType("B", nil, map[string]Value{"__radd__": accepts})

	r, err := vm.BinaryOp(SlotAdd, "+", NewInstance(a), NewInstance(b))
	if err != nil {
		t.Fatalf("BinaryOp: %v", err)
	}
	if r != "radd" {
		t.Errorf("got %v, want radd", r)
	}
}

func TestBinaryOpTypeErrorMessage(t *testing.T) {
	vm := NewVM()
	_, err := vm.BinaryOp(SlotSub, "-", "x", NewTuple())
	if err == nil {
		t.Fatal("expected TypeError")
	}
	want := "unsupported operand type(s) for -: 'str' and 'tuple'"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestRichCompareOrderingTypeError(t *testing.T) {
	vm := NewVM()
	_, err := vm.RichCompare(None, MakeInt(1), CompareLt)
	if err == nil {
		t.Fatal("expected TypeError")
	}
	if !strings.Contains(err.Error(), "'<' not supported between instances of 'NoneType' and 'int'") {
		t.Errorf("message = %q", err.Error())
	}

	// == falls back to identity, != negates it
	eq, err := vm.RichCompareBool(None, MakeInt(1), CompareEq)
	if err != nil || eq {
		t.Errorf("eq fallback = %v, %v", eq, err)
	}
	ne, err := vm.RichCompareBool(None, MakeInt(1), CompareNe)
	if err != nil || !ne {
		t.Errorf("ne fallback = %v, %v", ne, err)
	}
}

func TestGetAttrDescriptorPrecedence(t *testing.T) {
	vm := NewVM()

	getter := &PyBuiltinFunc{Name: "fget", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return "from property", nil
	}}
	cls, err := NewHeapType("Holder", nil, map[string]Value{
		"prop":  &PyProperty{Fget: getter},
		"plain": "class attr",
	})
	if err != nil {
		t.Fatal(err)
	}
	o := NewInstance(cls)
	o.Dict["prop"] = "instance shadow"
	o.Dict["plain"] = "instance attr"

	// A data descriptor beats the instance dict
	v, err := vm.GetAttr(o, "prop")
	if err != nil {
		t.Fatalf("GetAttr prop: %v", err)
	}
	if v != "from property" {
		t.Errorf("prop = %v", v)
	}

	// The instance dict beats plain class attributes
	v, err = vm.GetAttr(o, "plain")
	if err != nil {
		t.Fatalf("GetAttr plain: %v", err)
	}
	if v != "instance attr" {
		t.Errorf("plain = %v", v)
	}

	// Missing attributes use the canonical message
	_, err = vm.GetAttr(o, "nope")
	if err == nil || !strings.Contains(err.Error(), "'Holder' object has no attribute 'nope'") {
		t.Errorf("missing attr error = %v", err)
	}
}

func TestGetAttrDunderFallback(t *testing.T) {
	vm := NewVM()
	fallback := &PyBuiltinFunc{Name: "__getattr__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		name, _ := args[1].(string)
		return "computed:" + name, nil
	}}
	cls, err := NewHeapType("Lazy", nil, map[string]Value{"__getattr__": fallback})
	if err != nil {
		t.Fatal(err)
	}
	o := NewInstance(cls)
	o.Dict["real"] = MakeInt(1)

	if v, err := vm.GetAttr(o, "real"); err != nil || v != MakeInt(1) {
		t.Errorf("real = %v, %v", v, err)
	}
	v, err := vm.GetAttr(o, "virtual")
	if err != nil {
		t.Fatalf("GetAttr virtual: %v", err)
	}
	if v != "computed:virtual" {
		t.Errorf("virtual = %v", v)
	}
}

func TestSetAttrOnImmutableValue(t *testing.T) {
	vm := NewVM()
	err := vm.SetAttr(MakeInt(3), "x", None)
	if err == nil {
		t.Fatal("expected AttributeError")
	}
	exc, ok := err.(*PyException)
	if !ok || !exc.Matches(AttributeErrorType) {
		t.Errorf("error = %v, want AttributeError", err)
	}
}

func TestIsInstanceAndSubclass(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		name string
		v    Value
		cls  Value
		want bool
	}{
		{"int", MakeInt(1), IntType, true},
		{"big is int", ParseIntMust("123456789012345678901234567890"), IntType, true},
		{"bool is int subclass", MakeBool(true), IntType, true},
		{"int not str", MakeInt(1), StrType, false},
		{"everything is object", "s", ObjectType, true},
		{"tuple of classes", MakeInt(1), NewTuple(StrType, IntType), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vm.IsInstance(tt.v, tt.cls)
			if err != nil {
				t.Fatalf("IsInstance: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsInstance = %v, want %v", got, tt.want)
			}
		})
	}

	ok, err := vm.IsSubclass(BoolType, IntType)
	if err != nil || !ok {
		t.Errorf("issubclass(bool, int) = %v, %v", ok, err)
	}
	ok, err = vm.IsSubclass(IntType, BoolType)
	if err != nil || ok {
		t.Errorf("issubclass(int, bool) = %v, %v", ok, err)
	}
}

// ParseIntMust is a test helper for big literals
func ParseIntMust(s string) Value {
	v, err := ParseInt(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestTypeInvariant(t *testing.T) {
	vm := NewVM()
	values := []Value{
		MakeInt(1), MakeBool(false), 1.5, "s", None, NotImplemented, Ellipsis,
		NewTuple(), &PyList{}, NewDict(), &PyRange{Stop: 3, Step: 1},
		IntType, NewInstance(mustHeapType(t, "T")),
	}
	for _, v := range values {
		typ := TypeOf(v)
		if typ == nil {
			t.Fatalf("TypeOf(%T) = nil", v)
		}
		ok, err := vm.IsInstance(v, typ)
		if err != nil || !ok {
			t.Errorf("isinstance(%s, type(v)) = %v, %v", TypeName(v), ok, err)
		}
	}
}

func mustHeapType(t *testing.T, name string) *Type {
	t.Helper()
	typ, err := NewHeapType(name, nil, map[string]Value{})
	if err != nil {
		t.Fatal(err)
	}
	return typ
}

func TestGetMethodBypass(t *testing.T) {
	vm := NewVM()
	l := &PyList{}

	m, unbound, err := vm.GetMethod(l, "append")
	if err != nil {
		t.Fatalf("GetMethod: %v", err)
	}
	if !unbound {
		t.Fatal("expected the unbound fast path for list.append")
	}
	if _, ok := m.(*PyMethodDescr); !ok {
		t.Fatalf("method is %T", m)
	}
	// Invoking the pair mirrors l.append(7)
	if _, err := vm.Call(m, []Value{l, MakeInt(7)}, nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(l.Items) != 1 || l.Items[0] != MakeInt(7) {
		t.Errorf("append through fast path failed: %#v", l.Items)
	}

	// An instance-dict shadow disables the bypass
	cls := mustHeapType(t, "Shadowed")
	fn := &PyBuiltinFunc{Name: "m", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return "from class", nil
	}}
	if err := cls.SetDictItem("m", fn); err != nil {
		t.Fatal(err)
	}
	o := NewInstance(cls)
	o.Dict["m"] = "shadow"
	v, unbound, err := vm.GetMethod(o, "m")
	if err != nil {
		t.Fatalf("GetMethod: %v", err)
	}
	if unbound || v != "shadow" {
		t.Errorf("shadowed lookup = %v (unbound=%v)", v, unbound)
	}
}

func TestCallNotCallable(t *testing.T) {
	vm := NewVM()
	_, err := vm.Call(MakeInt(3), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "'int' object is not callable") {
		t.Errorf("error = %v", err)
	}
}

func TestRecursionGuard(t *testing.T) {
	vm := NewVM(WithRecursionLimit(32))
	var fn *PyBuiltinFunc
	fn = &PyBuiltinFunc{Name: "loop", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return vm.Call(fn, nil, nil)
	}}
	_, err := vm.Call(fn, nil, nil)
	exc, ok := err.(*PyException)
	if !ok || !exc.Matches(RecursionErrorType) {
		t.Errorf("error = %v, want RecursionError", err)
	}
}
