// Package marshal reads the CPython marshal container that carries
// compiled code objects, and lifts them into the runtime's code
// representation. The supported stream is the CPython 3.8 pyc layout;
// per-variable kind bytes are synthesized from the varnames, cellvars and
// freevars tuples.
package marshal

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/ATSOTECK/adder/internal/runtime"
)

// Marshal type codes
const (
	typeNull          = '0'
	typeNone          = 'N'
	typeFalse         = 'F'
	typeTrue          = 'T'
	typeStopIteration = 'S'
	typeEllipsis      = '.'
	typeInt           = 'i'
	typeInt64         = 'I'
	typeBinaryFloat   = 'g'
	typeLong          = 'l'
	typeString        = 's'
	typeInterned      = 't'
	typeRef           = 'r'
	typeTuple         = '('
	typeList          = '['
	typeDict          = '{'
	typeCode          = 'c'
	typeUnicode       = 'u'
	typeAscii         = 'a'
	typeAsciiInterned = 'A'
	typeSmallTuple    = ')'
	typeShortAscii    = 'z'
	typeShortAsciiInterned = 'Z'

	flagRef = 0x80
)

// Variable kind bits in the synthesized localspluskinds array
const (
	kindLocal = 0x20
	kindCell  = 0x40
	kindFree  = 0x80
)

// Error is a structural error in the marshal stream
type Error struct {
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("marshal: %s (offset %d)", e.Msg, e.Offset)
}

// Reader decodes one marshal stream. Back-references index every object
// that was written with the ref flag, in write order.
type Reader struct {
	data []byte
	pos  int
	refs []runtime.Value
}

// NewReader wraps a marshal stream
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fail(format string, a ...any) error {
	return &Error{Offset: r.pos, Msg: fmt.Sprintf(format, a...)}
}

func (r *Reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.fail("unexpected end of stream")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.fail("truncated %d-byte field", n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

// ReadObject decodes the next object from the stream
func (r *Reader) ReadObject() (runtime.Value, error) {
	tb, err := r.byte()
	if err != nil {
		return nil, err
	}
	addRef := tb&flagRef != 0
	t := tb &^ flagRef

	// Reserve the ref index before recursing, matching the writer's order
	refIdx := -1
	if addRef {
		refIdx = len(r.refs)
		r.refs = append(r.refs, nil)
	}
	v, err := r.readBody(t)
	if err != nil {
		return nil, err
	}
	if addRef {
		r.refs[refIdx] = v
	}
	return v, nil
}

func (r *Reader) readBody(t byte) (runtime.Value, error) {
	switch t {
	case typeNone:
		return runtime.None, nil
	case typeTrue:
		return runtime.MakeBool(true), nil
	case typeFalse:
		return runtime.MakeBool(false), nil
	case typeEllipsis:
		return runtime.Ellipsis, nil
	case typeStopIteration:
		return runtime.StopIterationType, nil
	case typeNull:
		return nil, r.fail("NULL in object position")

	case typeInt:
		n, err := r.int32()
		if err != nil {
			return nil, err
		}
		return runtime.MakeInt(int64(n)), nil

	case typeInt64:
		b, err := r.bytes(8)
		if err != nil {
			return nil, err
		}
		return runtime.MakeInt(int64(binary.LittleEndian.Uint64(b))), nil

	case typeBinaryFloat:
		b, err := r.bytes(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil

	case typeLong:
		return r.readLong()

	case typeString:
		n, err := r.int32()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return nil, err
		}
		return &runtime.PyBytes{B: append([]byte(nil), b...)}, nil

	case typeUnicode, typeAscii, typeAsciiInterned, typeInterned:
		n, err := r.int32()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil

	case typeShortAscii, typeShortAsciiInterned:
		n, err := r.byte()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil

	case typeSmallTuple:
		n, err := r.byte()
		if err != nil {
			return nil, err
		}
		return r.readTuple(int(n))

	case typeTuple:
		n, err := r.int32()
		if err != nil {
			return nil, err
		}
		return r.readTuple(int(n))

	case typeRef:
		i, err := r.int32()
		if err != nil {
			return nil, err
		}
		if i < 0 || int(i) >= len(r.refs) || r.refs[i] == nil {
			return nil, r.fail("bad object reference %d", i)
		}
		return r.refs[i], nil

	case typeCode:
		return r.readCode()
	}
	return nil, r.fail("unsupported marshal type %q", t)
}

// readLong decodes the variable-length integer format: a signed digit
// count, then 15-bit digits little-endian.
func (r *Reader) readLong() (runtime.Value, error) {
	n, err := r.int32()
	if err != nil {
		return nil, err
	}
	neg := n < 0
	if neg {
		n = -n
	}
	v := new(big.Int)
	shift := uint(0)
	for i := int32(0); i < n; i++ {
		b, err := r.bytes(2)
		if err != nil {
			return nil, err
		}
		d := big.NewInt(int64(binary.LittleEndian.Uint16(b)))
		v.Or(v, d.Lsh(d, shift))
		shift += 15
	}
	if neg {
		v.Neg(v)
	}
	return runtime.MakeBigInt(v), nil
}

func (r *Reader) readTuple(n int) (runtime.Value, error) {
	items := make([]runtime.Value, n)
	for i := range items {
		v, err := r.ReadObject()
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return runtime.NewTuple(items...), nil
}

// readCode decodes a 3.8 code object and computes the merged variable
// bundle. Cell parameters keep their fast-local slot and gain the cell bit;
// the compiler orders cellvars with parameters first, so cell indexes are
// preserved.
func (r *Reader) readCode() (runtime.Value, error) {
	var ints [6]int32
	for i := range ints {
		v, err := r.int32()
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}
	argcount, posonly, kwonly := ints[0], ints[1], ints[2]
	stacksize, flags := ints[4], ints[5]

	bytecode, err := r.expectBytes("bytecode")
	if err != nil {
		return nil, err
	}
	consts, err := r.expectTuple("consts")
	if err != nil {
		return nil, err
	}
	names, err := r.expectStrings("names")
	if err != nil {
		return nil, err
	}
	varnames, err := r.expectStrings("varnames")
	if err != nil {
		return nil, err
	}
	freevars, err := r.expectStrings("freevars")
	if err != nil {
		return nil, err
	}
	cellvars, err := r.expectStrings("cellvars")
	if err != nil {
		return nil, err
	}
	filename, err := r.expectString("filename")
	if err != nil {
		return nil, err
	}
	name, err := r.expectString("name")
	if err != nil {
		return nil, err
	}
	firstlineno, err := r.int32()
	if err != nil {
		return nil, err
	}
	lnotab, err := r.expectBytes("lnotab")
	if err != nil {
		return nil, err
	}

	plusNames, plusKinds := mergeVars(varnames, cellvars, freevars)
	code, cerr := runtime.NewCode(runtime.CodeArgs{
		Filename:        filename,
		Name:            name,
		Flags:           int(flags),
		Bytecode:        bytecode,
		Firstlineno:     int(firstlineno),
		Linetable:       lnotab,
		Consts:          consts,
		Names:           names,
		LocalsPlusNames: plusNames,
		LocalsPlusKinds: plusKinds,
		Argcount:        int(argcount),
		Posonlyargcount: int(posonly),
		Kwonlyargcount:  int(kwonly),
		Stacksize:       int(stacksize),
	})
	if cerr != nil {
		return nil, cerr
	}
	return code, nil
}

// mergeVars folds the three 3.8 variable tuples into the ordered
// names/kinds arrays.
func mergeVars(varnames, cellvars, freevars []string) ([]string, []byte) {
	cellSet := make(map[string]bool, len(cellvars))
	for _, c := range cellvars {
		cellSet[c] = true
	}
	names := make([]string, 0, len(varnames)+len(cellvars)+len(freevars))
	kinds := make([]byte, 0, cap(names))
	for _, v := range varnames {
		k := byte(kindLocal)
		if cellSet[v] {
			k |= kindCell
		}
		names = append(names, v)
		kinds = append(kinds, k)
	}
	seen := make(map[string]bool, len(varnames))
	for _, v := range varnames {
		seen[v] = true
	}
	for _, c := range cellvars {
		if seen[c] {
			continue
		}
		names = append(names, c)
		kinds = append(kinds, kindCell)
	}
	for _, fv := range freevars {
		names = append(names, fv)
		kinds = append(kinds, kindFree)
	}
	return names, kinds
}

func (r *Reader) expectBytes(what string) ([]byte, error) {
	v, err := r.ReadObject()
	if err != nil {
		return nil, err
	}
	b, ok := v.(*runtime.PyBytes)
	if !ok {
		return nil, r.fail("%s is %s, expected bytes", what, runtime.TypeName(v))
	}
	return b.B, nil
}

func (r *Reader) expectTuple(what string) ([]runtime.Value, error) {
	v, err := r.ReadObject()
	if err != nil {
		return nil, err
	}
	t, ok := v.(*runtime.PyTuple)
	if !ok {
		return nil, r.fail("%s is %s, expected tuple", what, runtime.TypeName(v))
	}
	return t.Items, nil
}

func (r *Reader) expectStrings(what string) ([]string, error) {
	items, err := r.expectTuple(what)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, v := range items {
		s, ok := v.(string)
		if !ok {
			return nil, r.fail("%s[%d] is %s, expected str", what, i, runtime.TypeName(v))
		}
		out[i] = s
	}
	return out, nil
}

func (r *Reader) expectString(what string) (string, error) {
	v, err := r.ReadObject()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", r.fail("%s is %s, expected str", what, runtime.TypeName(v))
	}
	return s, nil
}
