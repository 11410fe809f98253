package marshal

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ATSOTECK/adder/internal/runtime"
)

// streamWriter builds marshal streams for tests
type streamWriter struct {
	bytes.Buffer
}

func (w *streamWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func (w *streamWriter) shortAscii(s string) {
	w.WriteByte(typeShortAscii)
	w.WriteByte(byte(len(s)))
	w.WriteString(s)
}

func (w *streamWriter) bytesObj(b []byte) {
	w.WriteByte(typeString)
	w.u32(uint32(len(b)))
	w.Write(b)
}

func (w *streamWriter) smallTuple(n int) {
	w.WriteByte(typeSmallTuple)
	w.WriteByte(byte(n))
}

func (w *streamWriter) int32obj(v int32) {
	w.WriteByte(typeInt)
	w.u32(uint32(v))
}

func TestReadScalars(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *streamWriter)
		want  runtime.Value
	}{
		{"none", func(w *streamWriter) { w.WriteByte(typeNone) }, runtime.None},
		{"true", func(w *streamWriter) { w.WriteByte(typeTrue) }, runtime.MakeBool(true)},
		{"false", func(w *streamWriter) { w.WriteByte(typeFalse) }, runtime.MakeBool(false)},
		{"int", func(w *streamWriter) { w.int32obj(-7) }, runtime.MakeInt(-7)},
		{"short ascii", func(w *streamWriter) { w.shortAscii("hi") }, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w streamWriter
			tt.write(&w)
			v, err := NewReader(w.Bytes()).ReadObject()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestReadFloat(t *testing.T) {
	var w streamWriter
	w.WriteByte(typeBinaryFloat)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], 0x4004000000000000) // 2.5
	w.Write(b[:])
	v, err := NewReader(w.Bytes()).ReadObject()
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}

func TestReadLong(t *testing.T) {
	// 2**40 in 15-bit digits: [0, 0, 1024]
	var w streamWriter
	w.WriteByte(typeLong)
	w.u32(3)
	for _, d := range []uint16{0, 0, 1024} {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], d)
		w.Write(b[:])
	}
	v, err := NewReader(w.Bytes()).ReadObject()
	require.NoError(t, err)
	assert.Equal(t, runtime.MakeInt(1<<40), v)

	// A value past int64 stays big
	var w2 streamWriter
	w2.WriteByte(typeLong)
	w2.u32(5)
	for _, d := range []uint16{0, 0, 0, 0, 1024} {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], d)
		w2.Write(b[:])
	}
	v, err = NewReader(w2.Bytes()).ReadObject()
	require.NoError(t, err)
	want := new(big.Int).Lsh(big.NewInt(1024), 60)
	got, ok := v.(*big.Int)
	require.True(t, ok, "value is %T", v)
	assert.Zero(t, got.Cmp(want))
}

func TestReadRefs(t *testing.T) {
	// An interned string written with the ref flag, then referenced
	var w streamWriter
	w.smallTuple(2)
	w.WriteByte(typeShortAsciiInterned | flagRef)
	w.WriteByte(3)
	w.WriteString("abc")
	w.WriteByte(typeRef)
	w.u32(0)

	v, err := NewReader(w.Bytes()).ReadObject()
	require.NoError(t, err)
	tup, ok := v.(*runtime.PyTuple)
	require.True(t, ok)
	require.Len(t, tup.Items, 2)
	assert.Equal(t, "abc", tup.Items[0])
	assert.Equal(t, "abc", tup.Items[1])
}

// writeTestCode emits a code object: def f(x): return x  -- with one extra
// plain local, a cell parameter, a pure cell and a free variable to
// exercise the kind merge.
func writeTestCode(w *streamWriter) {
	w.WriteByte(typeCode)
	w.u32(1) // argcount
	w.u32(0) // posonlyargcount
	w.u32(0) // kwonlyargcount
	w.u32(2) // nlocals
	w.u32(2) // stacksize
	w.u32(0x13) // OPTIMIZED | NEWLOCALS | NESTED

	w.bytesObj([]byte{124, 0, 83, 0}) // LOAD_FAST 0; RETURN_VALUE

	w.smallTuple(1)
	w.WriteByte(typeNone) // consts = (None,)
	w.smallTuple(0)       // names

	w.smallTuple(2) // varnames = (x, y)
	w.shortAscii("x")
	w.shortAscii("y")

	w.smallTuple(1) // freevars = (outer,)
	w.shortAscii("outer")

	w.smallTuple(2) // cellvars = (x, box); x is a cell parameter
	w.shortAscii("x")
	w.shortAscii("box")

	w.shortAscii("t.py")
	w.shortAscii("f")
	w.u32(1)            // firstlineno
	w.bytesObj(nil)     // lnotab
}

func TestReadCodeMergesVariableKinds(t *testing.T) {
	var w streamWriter
	writeTestCode(&w)
	v, err := NewReader(w.Bytes()).ReadObject()
	require.NoError(t, err)
	code, ok := v.(*runtime.CodeObject)
	require.True(t, ok, "decoded %T", v)

	assert.Equal(t, "f", code.Name)
	assert.Equal(t, "t.py", code.Filename)
	assert.Equal(t, 1, code.Argcount)
	assert.Equal(t, 2, code.NLocals)
	assert.Equal(t, 2, code.NCellVars)
	assert.Equal(t, 1, code.NFreeVars)

	assert.Equal(t, []string{"x", "y", "box", "outer"}, code.LocalsPlusNames())
	assert.Equal(t, []byte{kindLocal | kindCell, kindLocal, kindCell, kindFree}, code.LocalsPlusKinds())
}

func TestReadCodeInsideConsts(t *testing.T) {
	// A module whose consts contain a function body
	var w streamWriter
	w.WriteByte(typeCode)
	for _, v := range []uint32{0, 0, 0, 0, 2, 0} {
		w.u32(v)
	}
	w.bytesObj([]byte{100, 0, 83, 0}) // LOAD_CONST 0; RETURN_VALUE
	w.smallTuple(1)
	writeTestCode(&w) // consts = (<code f>,)
	for i := 0; i < 3; i++ {
		w.smallTuple(0) // names, varnames, freevars
	}
	w.smallTuple(0) // cellvars
	w.shortAscii("t.py")
	w.shortAscii("<module>")
	w.u32(1)
	w.bytesObj(nil)

	v, err := NewReader(w.Bytes()).ReadObject()
	require.NoError(t, err)
	mod := v.(*runtime.CodeObject)
	require.Len(t, mod.Consts, 1)
	inner, ok := mod.Consts[0].(*runtime.CodeObject)
	require.True(t, ok)
	assert.Equal(t, "f", inner.Name)
}

func TestTruncatedStream(t *testing.T) {
	var w streamWriter
	w.WriteByte(typeInt)
	w.WriteByte(1) // only one of four bytes
	_, err := NewReader(w.Bytes()).ReadObject()
	require.Error(t, err)
	assert.ErrorContains(t, err, "truncated")
}

func TestPycHeader(t *testing.T) {
	var w streamWriter
	w.WriteByte(0x55) // magic 3413, little-endian, then the \r\n trailer
	w.WriteByte(0x0D)
	w.WriteByte('\r')
	w.WriteByte('\n')
	w.u32(0) // bit field: timestamp-based
	w.u32(123456)
	w.u32(99)
	writeModule(&w)

	code, h, err := LoadPyc(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(3413), h.Magic)
	assert.False(t, h.HashBased)
	assert.Equal(t, uint32(123456), h.Mtime)
	assert.Equal(t, "<module>", code.Name)
}

func writeModule(w *streamWriter) {
	w.WriteByte(typeCode)
	for _, v := range []uint32{0, 0, 0, 0, 2, 0} {
		w.u32(v)
	}
	w.bytesObj([]byte{100, 0, 83, 0})
	w.smallTuple(1)
	w.int32obj(42)
	for i := 0; i < 4; i++ {
		w.smallTuple(0)
	}
	w.shortAscii("m.py")
	w.shortAscii("<module>")
	w.u32(1)
	w.bytesObj(nil)
}

func TestPycHeaderErrors(t *testing.T) {
	_, err := ReadHeader([]byte{1, 2, 3})
	require.Error(t, err)

	bad := make([]byte, 16)
	bad[0], bad[1], bad[2], bad[3] = 0x42, 0x42, '\r', '\n'
	_, err = ReadHeader(bad)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported magic")
}

func TestLoadPycExecutes(t *testing.T) {
	var w streamWriter
	w.WriteByte(0x55)
	w.WriteByte(0x0D)
	w.WriteByte('\r')
	w.WriteByte('\n')
	for i := 0; i < 3; i++ {
		w.u32(0)
	}
	writeModule(&w)

	code, _, err := LoadPyc(w.Bytes())
	require.NoError(t, err)

	vm := runtime.NewVM()
	v, err := vm.Execute(code)
	require.NoError(t, err)
	assert.Equal(t, runtime.MakeInt(42), v)
}
