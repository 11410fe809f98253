package runtime

import "fmt"

// CodeFlags is the bitset of code object traits, numbered as CPython
// numbers them.
type CodeFlags int

const (
	FlagOptimized         CodeFlags = 0x0001 // locals live in the fast-local array
	FlagNewLocals         CodeFlags = 0x0002 // a fresh locals namespace per invocation
	FlagVarArgs           CodeFlags = 0x0004 // *args parameter
	FlagVarKeywords       CodeFlags = 0x0008 // **kwargs parameter
	FlagNested            CodeFlags = 0x0010 // nested function
	FlagGenerator         CodeFlags = 0x0020 // generator function
	FlagNoFree            CodeFlags = 0x0040 // no cell or free variables (3.8)
	FlagCoroutine         CodeFlags = 0x0080 // coroutine function
	FlagIterableCoroutine CodeFlags = 0x0100 // generator-based coroutine
	FlagAsyncGenerator    CodeFlags = 0x0200 // async generator

	knownCodeFlags = FlagOptimized | FlagNewLocals | FlagVarArgs | FlagVarKeywords |
		FlagNested | FlagGenerator | FlagNoFree | FlagCoroutine |
		FlagIterableCoroutine | FlagAsyncGenerator
)

// Per-variable kind bits from the marshal stream
const (
	KindLocal byte = 0x20
	KindCell  byte = 0x40
	KindFree  byte = 0x80
)

// VarKind classifies a layout entry
type VarKind int

const (
	// VarPlain is stored in the fast-local array at Index
	VarPlain VarKind = iota
	// VarCell is allocated by the frame and stored in the cell array
	VarCell
	// VarCellArg is initialized from fast-local slot ArgIndex, then exposed
	// through a cell
	VarCellArg
	// VarFree is supplied by the closure and referenced through the cell array
	VarFree
)

// Variable describes one named variable of a code object: where it lives
// and, for cell arguments, which argument slot seeds it.
type Variable struct {
	Name     string
	Kind     VarKind
	Index    int // index in the kind's storage array
	ArgIndex int // fast-local slot for cell arguments, else -1
}

// CodeObject is the immutable compiled body of a function or module
type CodeObject struct {
	Filename string
	Name     string
	Qualname string
	Flags    CodeFlags

	Bytecode    []byte // packed 16-bit instructions, little-endian
	Firstlineno int
	Linetable   []byte

	Consts []Value
	Names  []string

	Argcount       int
	Posonlyargcount int
	Kwonlyargcount int
	Stacksize      int

	Layout []Variable
	Exceptiontable []byte

	// Derived counts; cell arguments are counted both as locals and cells
	NLocals   int
	NCellVars int
	NFreeVars int

	kinds []byte // original per-variable kind bytes, for re-serialization
}

func (c *CodeObject) PyType() *Type { return CodeType }

// CodeArgs is the argument bundle a code object is constructed from,
// matching the marshal stream field for field.
type CodeArgs struct {
	Filename string
	Name     string
	Qualname string
	Flags    int

	Bytecode    []byte
	Firstlineno int
	Linetable   []byte

	Consts []Value
	Names  []string

	LocalsPlusNames []string
	LocalsPlusKinds []byte

	Argcount        int
	Posonlyargcount int
	Kwonlyargcount  int
	Stacksize       int

	Exceptiontable []byte
}

func codeError(format string, a ...any) error {
	return &PyException{ExcType: ValueErrorType, Args: []Value{"code: " + fmt.Sprintf(format, a...)}}
}

// NewCode validates the argument bundle and computes the variable layout
// and derived counts.
func NewCode(a CodeArgs) (*CodeObject, error) {
	if a.Flags&^int(knownCodeFlags) != 0 {
		return nil, codeError("unknown flag bits %#x in flags %#x", a.Flags&^int(knownCodeFlags), a.Flags)
	}
	if len(a.Bytecode)%2 != 0 {
		return nil, codeError("bytecode length %d is not a whole number of instruction words", len(a.Bytecode))
	}
	if len(a.LocalsPlusNames) != len(a.LocalsPlusKinds) {
		return nil, codeError("localsplusnames length %d != localspluskinds length %d",
			len(a.LocalsPlusNames), len(a.LocalsPlusKinds))
	}
	if a.Argcount < 0 || a.Posonlyargcount < 0 || a.Kwonlyargcount < 0 {
		return nil, codeError("negative argument count")
	}
	if a.Posonlyargcount > a.Argcount {
		return nil, codeError("posonlyargcount %d exceeds argcount %d", a.Posonlyargcount, a.Argcount)
	}
	if a.Stacksize < 0 {
		return nil, codeError("negative stacksize")
	}

	c := &CodeObject{
		Filename:        a.Filename,
		Name:            a.Name,
		Qualname:        a.Qualname,
		Flags:           CodeFlags(a.Flags),
		Bytecode:        a.Bytecode,
		Firstlineno:     a.Firstlineno,
		Linetable:       a.Linetable,
		Consts:          a.Consts,
		Names:           a.Names,
		Argcount:        a.Argcount,
		Posonlyargcount: a.Posonlyargcount,
		Kwonlyargcount:  a.Kwonlyargcount,
		Stacksize:       a.Stacksize,
		Exceptiontable:  a.Exceptiontable,
		kinds:           append([]byte(nil), a.LocalsPlusKinds...),
	}
	if c.Qualname == "" {
		c.Qualname = c.Name
	}

	// First pass assigns fast-local indexes, in marshal order
	nplain := 0
	localIndex := make([]int, len(a.LocalsPlusNames))
	for i, kind := range a.LocalsPlusKinds {
		localIndex[i] = -1
		if kind&KindLocal != 0 {
			localIndex[i] = nplain
			nplain++
		}
	}

	c.Layout = make([]Variable, len(a.LocalsPlusNames))
	ncell, nfree := 0, 0
	for i, name := range a.LocalsPlusNames {
		kind := a.LocalsPlusKinds[i]
		v := Variable{Name: name, ArgIndex: -1}
		switch {
		case kind&KindFree != 0:
			if kind != KindFree {
				return nil, codeError("variable %q mixes FREE with other kind bits %#x", name, kind)
			}
			v.Kind = VarFree
			v.Index = nfree
			nfree++
		case kind&KindCell != 0 && kind&KindLocal != 0:
			if localIndex[i] < 0 || localIndex[i] >= nplain {
				return nil, codeError("cell argument %q has no fast-local slot", name)
			}
			v.Kind = VarCellArg
			v.Index = ncell
			v.ArgIndex = localIndex[i]
			ncell++
		case kind&KindCell != 0:
			v.Kind = VarCell
			v.Index = ncell
			ncell++
		case kind&KindLocal != 0:
			v.Kind = VarPlain
			v.Index = localIndex[i]
		default:
			return nil, codeError("variable %q has no kind bits (%#x)", name, kind)
		}
		c.Layout[i] = v
	}

	c.NLocals = nplain
	c.NCellVars = ncell
	c.NFreeVars = nfree

	if c.Flags&FlagNoFree != 0 && (ncell > 0 || nfree > 0) {
		return nil, codeError("NOFREE set but code has %d cell and %d free variables", ncell, nfree)
	}
	if c.Argcount+boolToInt(c.Flags&FlagVarArgs != 0)+c.Kwonlyargcount+
		boolToInt(c.Flags&FlagVarKeywords != 0) > totalLocalSlots(c) {
		return nil, codeError("argument counts exceed local variable slots")
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// totalLocalSlots counts fast-local slots, including cell arguments which
// occupy one while being seeded.
func totalLocalSlots(c *CodeObject) int {
	n := 0
	for _, v := range c.Layout {
		if v.Kind == VarPlain || v.Kind == VarCellArg {
			n++
		}
	}
	return n
}

// InstrCount returns the number of instruction words
func (c *CodeObject) InstrCount() int { return len(c.Bytecode) / 2 }

// LocalsPlusNames re-serializes the ordered variable names
func (c *CodeObject) LocalsPlusNames() []string {
	out := make([]string, len(c.Layout))
	for i, v := range c.Layout {
		out[i] = v.Name
	}
	return out
}

// LocalsPlusKinds re-serializes the per-variable kind bytes
func (c *CodeObject) LocalsPlusKinds() []byte {
	return append([]byte(nil), c.kinds...)
}

// VarName returns the name of the fast-local at index i, for error messages
func (c *CodeObject) VarName(i int) string {
	for _, v := range c.Layout {
		if v.Kind == VarPlain && v.Index == i {
			return v.Name
		}
		if v.Kind == VarCellArg && v.ArgIndex == i {
			return v.Name
		}
	}
	return fmt.Sprintf("<local %d>", i)
}

// CellName returns the name of the cell-array entry at index i
func (c *CodeObject) CellName(i int) string {
	for _, v := range c.Layout {
		switch v.Kind {
		case VarCell, VarCellArg:
			if v.Index == i {
				return v.Name
			}
		case VarFree:
			if c.NCellVars+v.Index == i {
				return v.Name
			}
		}
	}
	return fmt.Sprintf("<cell %d>", i)
}

// ParamNames returns the names of the declared parameters in order:
// positional (including positional-only), *args if present, keyword-only,
// **kwargs if present.
func (c *CodeObject) ParamNames() []string {
	n := c.Argcount + c.Kwonlyargcount +
		boolToInt(c.Flags&FlagVarArgs != 0) + boolToInt(c.Flags&FlagVarKeywords != 0)
	out := make([]string, 0, n)
	for i := 0; i < n && i < len(c.Layout); i++ {
		out = append(out, c.Layout[i].Name)
	}
	return out
}

// LineForOffset maps a byte offset in the bytecode to a source line using
// the compact line table (pairs of byte-delta, line-delta as in 3.8 lnotab).
func (c *CodeObject) LineForOffset(off int) int {
	line := c.Firstlineno
	addr := 0
	for i := 0; i+1 < len(c.Linetable); i += 2 {
		addr += int(c.Linetable[i])
		if addr > off {
			return line
		}
		delta := int(int8(c.Linetable[i+1]))
		line += delta
	}
	return line
}
