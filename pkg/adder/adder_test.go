package adder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ATSOTECK/adder/internal/runtime"
)

// returnGlobal builds module code that loads one global and returns it
func returnGlobal(t *testing.T, name string) *runtime.CodeObject {
	t.Helper()
	code, err := runtime.NewCode(runtime.CodeArgs{
		Name:      "<module>",
		Names:     []string{name},
		Stacksize: 2,
		Bytecode: []byte{
			116, 0, // LOAD_GLOBAL name
			83, 0, // RETURN_VALUE
		},
	})
	require.NoError(t, err)
	return code
}

func TestStateGlobals(t *testing.T) {
	state := NewState()
	defer state.Close()

	state.SetGlobal("answer", Int(42))
	v, ok := state.GetGlobal("answer")
	require.True(t, ok)
	n, ok := AsInt(v)
	require.True(t, ok)
	assert.Equal(t, int64(42), n)

	got, err := state.RunCode(returnGlobal(t, "answer"))
	require.NoError(t, err)
	n, ok = AsInt(got)
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestStateRunSetsGlobals(t *testing.T) {
	state := NewState()
	defer state.Close()

	code, err := runtime.NewCode(runtime.CodeArgs{
		Name:      "<module>",
		Names:     []string{"x"},
		Consts:    []runtime.Value{Int(7), None()},
		Stacksize: 2,
		Bytecode: []byte{
			100, 0, // LOAD_CONST 7
			90, 0, // STORE_NAME x
			100, 1, // LOAD_CONST None
			83, 0, // RETURN_VALUE
		},
	})
	require.NoError(t, err)

	_, err = state.RunCode(code)
	require.NoError(t, err)
	v, ok := state.GetGlobal("x")
	require.True(t, ok)
	assert.Equal(t, Int(7), v)
}

func TestValueConversions(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		typ  string
	}{
		{"int", Int(3), "int"},
		{"float", Float(1.5), "float"},
		{"string", String("s"), "str"},
		{"bool", Bool(true), "bool"},
		{"none", None(), "NoneType"},
		{"list", List(Int(1)), "list"},
		{"tuple", Tuple(Int(1), Int(2)), "tuple"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, TypeName(tt.v))
		})
	}

	n, ok := AsInt(Bool(true))
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	s, ok := AsString(String("x"))
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = AsFloat(Int(1))
	assert.False(t, ok)
}

func TestStateRepr(t *testing.T) {
	state := NewState()
	defer state.Close()
	s, err := state.Repr(Tuple(Int(1), String("a")))
	require.NoError(t, err)
	assert.Equal(t, "(1, 'a')", s)
}

func TestStateTimeout(t *testing.T) {
	state := NewState(WithTimeout(10 * time.Millisecond))
	defer state.Close()

	// JUMP_ABSOLUTE 0 forever
	code, err := runtime.NewCode(runtime.CodeArgs{
		Name:      "<module>",
		Stacksize: 1,
		Bytecode:  []byte{9, 0, 113, 0}, // NOP; JUMP_ABSOLUTE 0
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = state.RunCode(code)
	require.Error(t, err)
}

func TestUnknownGlobalIsNameError(t *testing.T) {
	state := NewState()
	defer state.Close()
	_, err := state.RunCode(returnGlobal(t, "missing"))
	require.Error(t, err)
	var exc *runtime.PyException
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, "NameError: name 'missing' is not defined", exc.Error())
}
