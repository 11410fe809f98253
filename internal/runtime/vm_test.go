package runtime

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewVMDefaults(t *testing.T) {
	vm := NewVM()
	if vm.Globals == nil {
		t.Error("Globals map should be initialized")
	}
	if vm.builtins == nil {
		t.Fatal("builtins map should be initialized")
	}

	required := []string{
		"print", "len", "repr", "hash", "isinstance", "issubclass",
		"getattr", "setattr", "hasattr", "iter", "next", "abs", "id",
		"range", "int", "str", "bool", "float", "tuple", "list", "dict",
		"type", "object", "__build_class__",
		"BaseException", "Exception", "TypeError", "ValueError", "KeyError",
		"IndexError", "AttributeError", "StopIteration", "NameError",
		"ZeroDivisionError", "OverflowError", "RecursionError",
	}
	for _, name := range required {
		if _, ok := vm.builtins[name]; !ok {
			t.Errorf("builtin %q not found", name)
		}
	}
}

func TestExceptionHierarchy(t *testing.T) {
	tests := []struct {
		derived, base *Type
	}{
		{TypeErrorType, ExceptionType},
		{ExceptionType, BaseExceptionType},
		{UnboundLocalErrorType, NameErrorType},
		{IndexErrorType, LookupErrorType},
		{KeyErrorType, LookupErrorType},
		{ZeroDivisionErrorType, ArithmeticErrorType},
		{OverflowErrorType, ArithmeticErrorType},
		{RecursionErrorType, RuntimeErrorType},
	}
	for _, tt := range tests {
		if !IsSubType(tt.derived, tt.base) {
			t.Errorf("%s should derive from %s", tt.derived.Name, tt.base.Name)
		}
	}
}

func TestVMPrintToStdout(t *testing.T) {
	var buf bytes.Buffer
	vm := NewVM(WithStdout(&buf))
	code := funcCode(t, CodeArgs{
		Names:  []string{"print"},
		Consts: []Value{"hello", MakeInt(42)},
		Bytecode: asm(
			int(OpLoadGlobal), 0,
			int(OpLoadConst), 0,
			int(OpLoadConst), 1,
			int(OpCallFunction), 2,
			int(OpReturnValue), 0,
		),
	})
	if _, err := runFunc(t, vm, code); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	if got := buf.String(); got != "hello 42\n" {
		t.Errorf("output = %q", got)
	}
}

func TestVMContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vm := NewVM(WithContext(ctx), WithCheckInterval(1))

	// An infinite loop must be cut off by the cancelled context
	code := funcCode(t, CodeArgs{
		Bytecode: asm(
			int(OpNop), 0,
			int(OpJumpAbsolute), 0,
		),
	})
	_, err := runFunc(t, vm, code)
	ie, ok := err.(*InterpreterError)
	if !ok {
		t.Fatalf("error = %T (%v), want InterpreterError", err, err)
	}
	if !strings.Contains(ie.Error(), "cancelled") {
		t.Errorf("message = %q", ie.Error())
	}
}

func TestRunCodeModuleSemantics(t *testing.T) {
	vm := NewVM()
	// Module-level code: no OPTIMIZED flag, names go to the locals mapping
	// which is the globals mapping.
	code := mustCode(t, CodeArgs{
		Name:   "<module>",
		Names:  []string{"x"},
		Consts: []Value{MakeInt(11), None},
		Stacksize: 4,
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpStoreName), 0,
			int(OpLoadConst), 1,
			int(OpReturnValue), 0,
		),
	})
	v, err := vm.Execute(code)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v != None {
		t.Errorf("module returned %v", v)
	}
	if vm.Globals["x"] != MakeInt(11) {
		t.Errorf("globals[x] = %v", vm.Globals["x"])
	}
}

func TestBuildClassThroughEval(t *testing.T) {
	vm := NewVM()
	// class C: pass  -- then instantiate it and check the type
	// Class bodies carry no NEWLOCALS: they run in the namespace the
	// builder supplies.
	body := mustCode(t, CodeArgs{
		Name:      "C",
		Consts:    []Value{None},
		Stacksize: 2,
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpReturnValue), 0,
		),
	})
	module := mustCode(t, CodeArgs{
		Name:      "<module>",
		Names:     []string{"C"},
		Consts:    []Value{body, "C", None},
		Stacksize: 8,
		Bytecode: asm(
			int(OpLoadBuildClass), 0,
			int(OpLoadConst), 0,
			int(OpLoadConst), 1,
			int(OpMakeFunction), 0,
			int(OpLoadConst), 1,
			int(OpCallFunction), 2,
			int(OpStoreName), 0,
			int(OpLoadConst), 2,
			int(OpReturnValue), 0,
		),
	})
	if _, err := vm.Execute(module); err != nil {
		t.Fatalf("class statement failed: %v", err)
	}
	cls, ok := vm.Globals["C"].(*Type)
	if !ok {
		t.Fatalf("C is %T", vm.Globals["C"])
	}
	if cls.Name != "C" || cls.Flags&FlagHeapType == 0 {
		t.Errorf("class = %+v", cls)
	}
	inst, err := vm.Call(cls, nil, nil)
	if err != nil {
		t.Fatalf("instantiation failed: %v", err)
	}
	if TypeOf(inst) != cls {
		t.Errorf("instance type = %v", TypeName(inst))
	}
}

func TestMROLinearization(t *testing.T) {
	a := mustHeapType(t, "A")
	b, err := NewHeapType("B", []*Type{a}, map[string]Value{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewHeapType("C", []*Type{a}, map[string]Value{})
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewHeapType("D", []*Type{b, c}, map[string]Value{})
	if err != nil {
		t.Fatal(err)
	}
	want := []*Type{d, b, c, a, ObjectType}
	if len(d.MRO) != len(want) {
		t.Fatalf("MRO length = %d, want %d", len(d.MRO), len(want))
	}
	for i, w := range want {
		if d.MRO[i] != w {
			t.Errorf("MRO[%d] = %s, want %s", i, d.MRO[i].Name, w.Name)
		}
	}
}

func TestMROAttributeResolution(t *testing.T) {
	vm := NewVM()
	a, _ := NewHeapType("A", nil, map[string]Value{"x": "from A", "y": "from A"})
	b, _ := NewHeapType("B", []*Type{a}, map[string]Value{"x": "from B"})

	o := NewInstance(b)
	if v, _ := vm.GetAttr(o, "x"); v != "from B" {
		t.Errorf("x = %v", v)
	}
	if v, _ := vm.GetAttr(o, "y"); v != "from A" {
		t.Errorf("y = %v", v)
	}
	if b.Lookup("x") != "from B" || b.Lookup("y") != "from A" {
		t.Error("Lookup does not follow the MRO")
	}
	if b.Lookup("z") != nil {
		t.Error("Lookup invented an attribute")
	}
}

func TestIsSubclassHelperAvoidsUserCode(t *testing.T) {
	called := false
	check := &PyBuiltinFunc{Name: "__subclasscheck__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		called = true
		return MakeBool(true), nil
	}}
	base, _ := NewHeapType("Base", nil, map[string]Value{"__subclasscheck__": check})
	sub, _ := NewHeapType("Sub", []*Type{base}, map[string]Value{})

	if !isSubclassHelper(sub, base) {
		t.Error("helper missed a real subclass")
	}
	if called {
		t.Error("isSubclassHelper invoked __subclasscheck__")
	}
}
