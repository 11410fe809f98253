package runtime

import (
	"fmt"
	"strings"
)

// Disassemble renders a human-readable listing of the code object's
// instruction words, one per line, with resolved argument hints.
func (c *CodeObject) Disassemble() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d <%s>\n", c.Filename, c.Firstlineno, c.Qualname)
	oparg := 0
	for i := 0; i < c.InstrCount(); i++ {
		op := Opcode(c.Bytecode[i*2])
		arg := int(c.Bytecode[i*2+1]) | oparg<<8
		if op == OpExtendedArg {
			fmt.Fprintf(&b, "%5d  %-20s %d\n", i*2, op.Name(), arg&0xFF)
			oparg = arg
			continue
		}
		oparg = 0
		if !op.HasArg() {
			fmt.Fprintf(&b, "%5d  %s\n", i*2, op.Name())
			continue
		}
		fmt.Fprintf(&b, "%5d  %-20s %-4d %s\n", i*2, op.Name(), arg, c.argHint(op, arg, i))
	}
	return b.String()
}

// argHint resolves an instruction argument to its referent where that is
// cheap and unambiguous.
func (c *CodeObject) argHint(op Opcode, arg, instr int) string {
	switch op {
	case OpLoadConst:
		if arg < len(c.Consts) {
			if code, ok := c.Consts[arg].(*CodeObject); ok {
				return fmt.Sprintf("(<code %s>)", code.Qualname)
			}
			return fmt.Sprintf("(%v)", c.Consts[arg])
		}
	case OpLoadName, OpStoreName, OpDeleteName, OpLoadGlobal, OpStoreGlobal,
		OpDeleteGlobal, OpLoadAttr, OpStoreAttr, OpDeleteAttr, OpLoadMethod,
		OpImportName, OpImportFrom:
		if arg < len(c.Names) {
			return fmt.Sprintf("(%s)", c.Names[arg])
		}
	case OpLoadFast, OpStoreFast, OpDeleteFast:
		return fmt.Sprintf("(%s)", c.VarName(arg))
	case OpLoadDeref, OpStoreDeref, OpDeleteDeref, OpLoadClosure:
		return fmt.Sprintf("(%s)", c.CellName(arg))
	case OpCompareOp:
		names := []string{"<", "<=", "==", "!=", ">", ">=", "in", "not in", "is", "is not", "exception match"}
		if arg < len(names) {
			return fmt.Sprintf("(%s)", names[arg])
		}
	case OpJumpForward, OpForIter, OpSetupFinally:
		return fmt.Sprintf("(to %d)", (instr+1)*2+arg)
	case OpJumpAbsolute, OpPopJumpIfTrue, OpPopJumpIfFalse,
		OpJumpIfTrueOrPop, OpJumpIfFalseOrPop:
		return fmt.Sprintf("(to %d)", arg)
	}
	return ""
}
