package runtime

import (
	"strings"
	"testing"
)

// asm packs (opcode, immediate) pairs into instruction words
func asm(pairs ...int) []byte {
	if len(pairs)%2 != 0 {
		panic("asm wants opcode/arg pairs")
	}
	out := make([]byte, len(pairs))
	for i := 0; i < len(pairs); i += 2 {
		out[i] = byte(pairs[i])
		out[i+1] = byte(pairs[i+1])
	}
	return out
}

// funcCode builds an optimized function-style code object
func funcCode(t *testing.T, a CodeArgs) *CodeObject {
	t.Helper()
	if a.Flags == 0 {
		a.Flags = int(FlagOptimized | FlagNewLocals)
	}
	if a.Stacksize == 0 {
		a.Stacksize = 16
	}
	if a.Name == "" {
		a.Name = "f"
	}
	return mustCode(t, a)
}

// runFunc wraps a code object in a function and calls it
func runFunc(t *testing.T, vm *VM, code *CodeObject, args ...Value) (Value, error) {
	t.Helper()
	fn := NewFunction(vm, code, vm.Globals, "")
	return vm.Call(fn, args, nil)
}

func TestEvalReturnConstant(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts:   []Value{MakeInt(42)},
		Bytecode: asm(int(OpLoadConst), 0, int(OpReturnValue), 0),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != MakeInt(42) {
		t.Errorf("got %v, want 42", v)
	}
}

func TestEvalAddition(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts: []Value{MakeInt(2), MakeInt(3)},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpLoadConst), 1,
			int(OpBinaryAdd), 0,
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != MakeInt(5) {
		t.Errorf("got %v, want 5", v)
	}
}

func TestEvalStrFallbackToDefaultRepr(t *testing.T) {
	vm := NewVM()
	cls, err := NewHeapType("Widget", nil, map[string]Value{})
	if err != nil {
		t.Fatalf("NewHeapType: %v", err)
	}
	obj, err := vm.Call(cls, nil, nil)
	if err != nil {
		t.Fatalf("instantiation: %v", err)
	}
	s, err := vm.Str(obj)
	if err != nil {
		t.Fatalf("Str: %v", err)
	}
	if s != "<Widget object>" {
		t.Errorf("str = %q, want %q", s, "<Widget object>")
	}
}

func TestEvalUnpackMismatch(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts: []Value{NewTuple(MakeInt(1), MakeInt(2), MakeInt(3))},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpUnpackSequence), 2,
			int(OpPopTop), 0,
			int(OpPopTop), 0,
			int(OpLoadConst), 0,
			int(OpReturnValue), 0,
		),
	})
	_, err := runFunc(t, vm, code)
	if err == nil {
		t.Fatal("expected ValueError")
	}
	exc, ok := err.(*PyException)
	if !ok || exc.ExcType != ValueErrorType {
		t.Fatalf("error = %v, want ValueError", err)
	}
	if got := exc.Error(); !strings.Contains(got, "too many values to unpack (expected 2)") {
		t.Errorf("message = %q", got)
	}
}

func TestEvalUnpackNotEnough(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts: []Value{NewTuple(MakeInt(1))},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpUnpackSequence), 2,
			int(OpReturnValue), 0,
		),
	})
	_, err := runFunc(t, vm, code)
	if err == nil || !strings.Contains(err.Error(), "not enough values to unpack (expected 2, got 1)") {
		t.Errorf("error = %v", err)
	}
}

// Closure scenario: the outer code stores a constant through a cell, builds
// an inner function capturing that cell, and returns the function. Mutating
// the cell afterwards must be visible through the closure.
func TestEvalClosure(t *testing.T) {
	vm := NewVM()
	inner := funcCode(t, CodeArgs{
		Name:            "inner",
		Flags:           int(FlagOptimized | FlagNewLocals | FlagNested),
		LocalsPlusNames: []string{"x"},
		LocalsPlusKinds: []byte{KindFree},
		Bytecode: asm(
			int(OpLoadDeref), 0,
			int(OpReturnValue), 0,
		),
	})
	outer := funcCode(t, CodeArgs{
		Name:            "outer",
		LocalsPlusNames: []string{"x"},
		LocalsPlusKinds: []byte{KindCell},
		Consts:          []Value{MakeInt(7), inner, "outer.<locals>.inner"},
		Bytecode: asm(
			int(OpLoadConst), 0, // 7
			int(OpStoreDeref), 0, // x = 7
			int(OpLoadClosure), 0,
			int(OpBuildTuple), 1,
			int(OpLoadConst), 1, // inner code
			int(OpLoadConst), 2, // qualname
			int(OpMakeFunction), 0x08,
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, outer)
	if err != nil {
		t.Fatalf("outer failed: %v", err)
	}
	fn, ok := v.(*PyFunction)
	if !ok {
		t.Fatalf("outer returned %T", v)
	}
	got, err := vm.Call(fn, nil, nil)
	if err != nil {
		t.Fatalf("inner failed: %v", err)
	}
	if got != MakeInt(7) {
		t.Errorf("inner returned %v, want 7", got)
	}

	// Mutation through the shared cell is visible to the closure
	fn.Closure[0].Set(MakeInt(9))
	got, err = vm.Call(fn, nil, nil)
	if err != nil {
		t.Fatalf("inner failed after mutation: %v", err)
	}
	if got != MakeInt(9) {
		t.Errorf("inner returned %v after mutation, want 9", got)
	}
}

func TestEvalIdentityEqualityShortcut(t *testing.T) {
	vm := NewVM()
	raising := &PyBuiltinFunc{Name: "__eq__", Fn: func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return nil, vm.Raise(RuntimeErrorType, "__eq__ must not run")
	}}
	cls, err := NewHeapType("Sour", nil, map[string]Value{"__eq__": raising})
	if err != nil {
		t.Fatalf("NewHeapType: %v", err)
	}
	o := NewInstance(cls)

	eq, err := vm.RichCompareBool(o, o, CompareEq)
	if err != nil {
		t.Fatalf("RichCompareBool raised: %v", err)
	}
	if !eq {
		t.Error("identity comparison returned false")
	}

	// A distinct object does invoke __eq__
	_, err = vm.RichCompareBool(o, NewInstance(cls), CompareEq)
	if err == nil || !strings.Contains(err.Error(), "__eq__ must not run") {
		t.Errorf("distinct-object comparison error = %v", err)
	}
}

func TestEvalForIterLoop(t *testing.T) {
	vm := NewVM()
	// total = 0; for x in (1,2,3,4): total += x; return total
	code := funcCode(t, CodeArgs{
		Consts:          []Value{MakeInt(0), NewTuple(MakeInt(1), MakeInt(2), MakeInt(3), MakeInt(4))},
		LocalsPlusNames: []string{"total", "x"},
		LocalsPlusKinds: []byte{KindLocal, KindLocal},
		Bytecode: asm(
			int(OpLoadConst), 0, // 0: total = 0
			int(OpStoreFast), 0, // 1
			int(OpLoadConst), 1, // 2
			int(OpGetIter), 0, // 3
			int(OpForIter), 12, // 4 -> jump to word 11 when exhausted
			int(OpStoreFast), 1, // 5
			int(OpLoadFast), 0, // 6
			int(OpLoadFast), 1, // 7
			int(OpInplaceAdd), 0, // 8
			int(OpStoreFast), 0, // 9
			int(OpJumpAbsolute), 8, // 10 -> word 4
			int(OpLoadFast), 0, // 11
			int(OpReturnValue), 0, // 12
		),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("loop failed: %v", err)
	}
	if v != MakeInt(10) {
		t.Errorf("got %v, want 10", v)
	}
}

func TestEvalExtendedArg(t *testing.T) {
	vm := NewVM()
	consts := make([]Value, 260)
	for i := range consts {
		consts[i] = MakeInt(int64(i))
	}
	code := funcCode(t, CodeArgs{
		Consts: consts,
		Bytecode: asm(
			int(OpExtendedArg), 1,
			int(OpLoadConst), 3, // 1<<8 | 3 = 259
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != MakeInt(259) {
		t.Errorf("got %v, want 259", v)
	}
}

func TestEvalCallFunctionKw(t *testing.T) {
	vm := NewVM()
	// def g(a, b): return (a, b) -- called as g(1, b=2)
	g := funcCode(t, CodeArgs{
		Name:            "g",
		Argcount:        2,
		LocalsPlusNames: []string{"a", "b"},
		LocalsPlusKinds: []byte{KindLocal, KindLocal},
		Bytecode: asm(
			int(OpLoadFast), 0,
			int(OpLoadFast), 1,
			int(OpBuildTuple), 2,
			int(OpReturnValue), 0,
		),
	})
	gfn := NewFunction(vm, g, vm.Globals, "")
	vm.Globals["g"] = gfn

	caller := funcCode(t, CodeArgs{
		Names:  []string{"g"},
		Consts: []Value{MakeInt(1), MakeInt(2), NewTuple("b")},
		Bytecode: asm(
			int(OpLoadGlobal), 0,
			int(OpLoadConst), 0,
			int(OpLoadConst), 1,
			int(OpLoadConst), 2,
			int(OpCallFunctionKw), 2,
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, caller)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	tup, ok := v.(*PyTuple)
	if !ok || len(tup.Items) != 2 || tup.Items[0] != MakeInt(1) || tup.Items[1] != MakeInt(2) {
		t.Errorf("got %#v", v)
	}
}

func TestEvalBuildConstKeyMap(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts: []Value{MakeInt(1), MakeInt(2), NewTuple("a", "b")},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpLoadConst), 1,
			int(OpLoadConst), 2,
			int(OpBuildConstKeyMap), 2,
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := v.(*PyDict)
	if !ok || d.Len() != 2 {
		t.Fatalf("got %#v", v)
	}
	got, found, err := d.Get(vm, "b")
	if err != nil || !found || got != MakeInt(2) {
		t.Errorf("d['b'] = %v (found=%v, err=%v)", got, found, err)
	}
}

func TestEvalBuildConstKeyMapBadTuple(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts: []Value{MakeInt(1), NewTuple("a", "b")},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpLoadConst), 1,
			int(OpBuildConstKeyMap), 1,
			int(OpReturnValue), 0,
		),
	})
	_, err := runFunc(t, vm, code)
	if _, ok := err.(*InterpreterError); !ok {
		t.Errorf("error = %T (%v), want InterpreterError", err, err)
	}
}

func TestEvalUnpackEx(t *testing.T) {
	vm := NewVM()
	// a, *b, c, d = (1, 2, 3, 4, 5)
	code := funcCode(t, CodeArgs{
		Consts:          []Value{NewTuple(MakeInt(1), MakeInt(2), MakeInt(3), MakeInt(4), MakeInt(5))},
		LocalsPlusNames: []string{"a", "b", "c", "d"},
		LocalsPlusKinds: []byte{KindLocal, KindLocal, KindLocal, KindLocal},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpExtendedArg), 2, // high byte: 2 after the star
			int(OpUnpackEx), 1, // low byte: 1 before the star
			int(OpStoreFast), 0,
			int(OpStoreFast), 1,
			int(OpStoreFast), 2,
			int(OpStoreFast), 3,
			int(OpLoadFast), 1,
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mid, ok := v.(*PyList)
	if !ok || len(mid.Items) != 2 || mid.Items[0] != MakeInt(2) || mid.Items[1] != MakeInt(3) {
		t.Errorf("starred middle = %#v", v)
	}
}

func TestEvalMakeFunctionDefaults(t *testing.T) {
	vm := NewVM()
	g := funcCode(t, CodeArgs{
		Name:            "g",
		Argcount:        2,
		LocalsPlusNames: []string{"a", "b"},
		LocalsPlusKinds: []byte{KindLocal, KindLocal},
		Bytecode: asm(
			int(OpLoadFast), 1,
			int(OpReturnValue), 0,
		),
	})
	maker := funcCode(t, CodeArgs{
		Consts: []Value{NewTuple(MakeInt(41)), g, "g"},
		Bytecode: asm(
			int(OpLoadConst), 0, // defaults tuple
			int(OpLoadConst), 1,
			int(OpLoadConst), 2,
			int(OpMakeFunction), 0x01,
			int(OpReturnValue), 0,
		),
	})
	v, err := runFunc(t, vm, maker)
	if err != nil {
		t.Fatalf("maker failed: %v", err)
	}
	fn := v.(*PyFunction)
	got, err := vm.Call(fn, []Value{MakeInt(1)}, nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if got != MakeInt(41) {
		t.Errorf("default value = %v, want 41", got)
	}
}

func TestEvalExceptionHandlerDispatch(t *testing.T) {
	vm := NewVM()
	// try: raise ValueError("boom")  except: return 99
	code := funcCode(t, CodeArgs{
		Names:  []string{"ValueError"},
		Consts: []Value{"boom", MakeInt(99)},
		Bytecode: asm(
			int(OpSetupFinally), 10, // 0 -> handler at word 6
			int(OpLoadGlobal), 0, // 1
			int(OpLoadConst), 0, // 2
			int(OpCallFunction), 1, // 3
			int(OpRaiseVarargs), 1, // 4
			int(OpPopBlock), 0, // 5 (skipped)
			int(OpPopTop), 0, // 6 handler: discard exception
			int(OpLoadConst), 1, // 7
			int(OpReturnValue), 0, // 8
		),
	})
	v, err := runFunc(t, vm, code)
	if err != nil {
		t.Fatalf("handler did not catch: %v", err)
	}
	if v != MakeInt(99) {
		t.Errorf("got %v, want 99", v)
	}
}

func TestEvalUncaughtExceptionPropagates(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Names: []string{"ValueError"},
		Bytecode: asm(
			int(OpLoadGlobal), 0,
			int(OpRaiseVarargs), 1,
			int(OpReturnValue), 0,
		),
	})
	_, err := runFunc(t, vm, code)
	exc, ok := err.(*PyException)
	if !ok || exc.ExcType != ValueErrorType {
		t.Errorf("error = %v, want ValueError", err)
	}
}

func TestEvalStackDepthAtReturn(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Consts: []Value{MakeInt(1)},
		Bytecode: asm(
			int(OpLoadConst), 0,
			int(OpDupTop), 0,
			int(OpPopTop), 0,
			int(OpReturnValue), 0,
		),
	})
	fn := NewFunction(vm, code, vm.Globals, "")
	f, err := NewFrame(code, vm.Globals, vm.Builtins(), nil, nil)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	_ = fn
	if _, err := vm.evalFrame(f); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if f.SP != 0 {
		t.Errorf("stack depth at return = %d, want 0", f.SP)
	}
}

func TestEvalUnknownOpcodeIsInternalError(t *testing.T) {
	vm := NewVM()
	code := funcCode(t, CodeArgs{
		Bytecode: asm(200, 0, int(OpReturnValue), 0),
	})
	_, err := runFunc(t, vm, code)
	ie, ok := err.(*InterpreterError)
	if !ok {
		t.Fatalf("error = %T (%v), want InterpreterError", err, err)
	}
	if !strings.Contains(ie.Error(), "unimplemented opcode") {
		t.Errorf("message = %q", ie.Error())
	}
}
