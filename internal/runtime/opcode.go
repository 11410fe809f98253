package runtime

import "fmt"

// Opcode is a CPython bytecode operation. The numbering follows CPython
// 3.8; IS_OP and CONTAINS_OP are accepted at their 3.9 numbers, which 3.8
// leaves unassigned. The numbering is a wire-compatibility constraint, not
// a design choice.
type Opcode byte

const (
	OpPopTop     Opcode = 1
	OpRotTwo     Opcode = 2
	OpRotThree   Opcode = 3
	OpDupTop     Opcode = 4
	OpDupTopTwo  Opcode = 5
	OpRotFour    Opcode = 6
	OpNop        Opcode = 9
	OpUnaryPositive Opcode = 10
	OpUnaryNegative Opcode = 11
	OpUnaryNot      Opcode = 12
	OpUnaryInvert   Opcode = 15

	OpBinaryMatrixMultiply  Opcode = 16
	OpInplaceMatrixMultiply Opcode = 17
	OpBinaryPower           Opcode = 19
	OpBinaryMultiply        Opcode = 20
	OpBinaryModulo          Opcode = 22
	OpBinaryAdd             Opcode = 23
	OpBinarySubtract        Opcode = 24
	OpBinarySubscr          Opcode = 25
	OpBinaryFloorDivide     Opcode = 26
	OpBinaryTrueDivide      Opcode = 27
	OpInplaceFloorDivide    Opcode = 28
	OpInplaceTrueDivide     Opcode = 29

	OpGetIter Opcode = 68

	OpInplaceAdd      Opcode = 55
	OpInplaceSubtract Opcode = 56
	OpInplaceMultiply Opcode = 57
	OpInplaceModulo   Opcode = 59
	OpStoreSubscr     Opcode = 60
	OpDeleteSubscr    Opcode = 61
	OpBinaryLshift    Opcode = 62
	OpBinaryRshift    Opcode = 63
	OpBinaryAnd       Opcode = 64
	OpBinaryXor       Opcode = 65
	OpBinaryOr        Opcode = 66
	OpInplacePower    Opcode = 67
	OpLoadBuildClass  Opcode = 71
	OpInplaceLshift   Opcode = 75
	OpInplaceRshift   Opcode = 76
	OpInplaceAnd      Opcode = 77
	OpInplaceXor      Opcode = 78
	OpInplaceOr       Opcode = 79

	OpReturnValue Opcode = 83
	OpPopBlock    Opcode = 87
	OpEndFinally  Opcode = 88
	OpPopExcept   Opcode = 89

	// HaveArgument marks the first opcode that consumes its immediate
	HaveArgument Opcode = 90

	OpStoreName      Opcode = 90
	OpDeleteName     Opcode = 91
	OpUnpackSequence Opcode = 92
	OpForIter        Opcode = 93
	OpUnpackEx       Opcode = 94
	OpStoreAttr      Opcode = 95
	OpDeleteAttr     Opcode = 96
	OpStoreGlobal    Opcode = 97
	OpDeleteGlobal   Opcode = 98
	OpLoadConst      Opcode = 100
	OpLoadName       Opcode = 101
	OpBuildTuple     Opcode = 102
	OpBuildList      Opcode = 103
	OpBuildSet       Opcode = 104
	OpBuildMap       Opcode = 105
	OpLoadAttr       Opcode = 106
	OpCompareOp      Opcode = 107
	OpImportName     Opcode = 108
	OpImportFrom     Opcode = 109
	OpJumpForward    Opcode = 110
	OpJumpIfFalseOrPop Opcode = 111
	OpJumpIfTrueOrPop  Opcode = 112
	OpJumpAbsolute     Opcode = 113
	OpPopJumpIfFalse   Opcode = 114
	OpPopJumpIfTrue    Opcode = 115
	OpLoadGlobal       Opcode = 116
	OpIsOp             Opcode = 117 // 3.9 extension
	OpContainsOp       Opcode = 118 // 3.9 extension
	OpSetupFinally     Opcode = 122
	OpLoadFast         Opcode = 124
	OpStoreFast        Opcode = 125
	OpDeleteFast       Opcode = 126
	OpRaiseVarargs     Opcode = 130
	OpCallFunction     Opcode = 131
	OpMakeFunction     Opcode = 132
	OpBuildSlice       Opcode = 133
	OpLoadClosure      Opcode = 135
	OpLoadDeref        Opcode = 136
	OpStoreDeref       Opcode = 137
	OpDeleteDeref      Opcode = 138
	OpCallFunctionKw   Opcode = 141
	OpCallFunctionEx   Opcode = 142
	OpExtendedArg      Opcode = 144
	OpListAppend       Opcode = 145
	OpSetAdd           Opcode = 146
	OpMapAdd           Opcode = 147
	OpBuildListUnpack  Opcode = 149
	OpBuildMapUnpack   Opcode = 150
	OpBuildTupleUnpack Opcode = 152
	OpBuildConstKeyMap Opcode = 156
	OpBuildString      Opcode = 157
	OpLoadMethod       Opcode = 160
	OpCallMethod       Opcode = 161
)

// HasArg reports whether the opcode consumes its immediate
func (op Opcode) HasArg() bool { return op >= HaveArgument }

var opcodeNames = map[Opcode]string{
	OpPopTop: "POP_TOP", OpRotTwo: "ROT_TWO", OpRotThree: "ROT_THREE",
	OpDupTop: "DUP_TOP", OpDupTopTwo: "DUP_TOP_TWO", OpRotFour: "ROT_FOUR",
	OpNop: "NOP",
	OpUnaryPositive: "UNARY_POSITIVE", OpUnaryNegative: "UNARY_NEGATIVE",
	OpUnaryNot: "UNARY_NOT", OpUnaryInvert: "UNARY_INVERT",
	OpBinaryMatrixMultiply: "BINARY_MATRIX_MULTIPLY", OpInplaceMatrixMultiply: "INPLACE_MATRIX_MULTIPLY",
	OpBinaryPower: "BINARY_POWER", OpBinaryMultiply: "BINARY_MULTIPLY",
	OpBinaryModulo: "BINARY_MODULO", OpBinaryAdd: "BINARY_ADD",
	OpBinarySubtract: "BINARY_SUBTRACT", OpBinarySubscr: "BINARY_SUBSCR",
	OpBinaryFloorDivide: "BINARY_FLOOR_DIVIDE", OpBinaryTrueDivide: "BINARY_TRUE_DIVIDE",
	OpInplaceFloorDivide: "INPLACE_FLOOR_DIVIDE", OpInplaceTrueDivide: "INPLACE_TRUE_DIVIDE",
	OpInplaceAdd: "INPLACE_ADD", OpInplaceSubtract: "INPLACE_SUBTRACT",
	OpInplaceMultiply: "INPLACE_MULTIPLY", OpInplaceModulo: "INPLACE_MODULO",
	OpStoreSubscr: "STORE_SUBSCR", OpDeleteSubscr: "DELETE_SUBSCR",
	OpBinaryLshift: "BINARY_LSHIFT", OpBinaryRshift: "BINARY_RSHIFT",
	OpBinaryAnd: "BINARY_AND", OpBinaryXor: "BINARY_XOR", OpBinaryOr: "BINARY_OR",
	OpInplacePower: "INPLACE_POWER", OpGetIter: "GET_ITER",
	OpLoadBuildClass: "LOAD_BUILD_CLASS",
	OpInplaceLshift:  "INPLACE_LSHIFT", OpInplaceRshift: "INPLACE_RSHIFT",
	OpInplaceAnd: "INPLACE_AND", OpInplaceXor: "INPLACE_XOR", OpInplaceOr: "INPLACE_OR",
	OpReturnValue: "RETURN_VALUE", OpPopBlock: "POP_BLOCK",
	OpEndFinally: "END_FINALLY", OpPopExcept: "POP_EXCEPT",
	OpStoreName: "STORE_NAME", OpDeleteName: "DELETE_NAME",
	OpUnpackSequence: "UNPACK_SEQUENCE", OpForIter: "FOR_ITER", OpUnpackEx: "UNPACK_EX",
	OpStoreAttr: "STORE_ATTR", OpDeleteAttr: "DELETE_ATTR",
	OpStoreGlobal: "STORE_GLOBAL", OpDeleteGlobal: "DELETE_GLOBAL",
	OpLoadConst: "LOAD_CONST", OpLoadName: "LOAD_NAME",
	OpBuildTuple: "BUILD_TUPLE", OpBuildList: "BUILD_LIST",
	OpBuildSet: "BUILD_SET", OpBuildMap: "BUILD_MAP",
	OpLoadAttr: "LOAD_ATTR", OpCompareOp: "COMPARE_OP",
	OpImportName: "IMPORT_NAME", OpImportFrom: "IMPORT_FROM",
	OpJumpForward: "JUMP_FORWARD", OpJumpIfFalseOrPop: "JUMP_IF_FALSE_OR_POP",
	OpJumpIfTrueOrPop: "JUMP_IF_TRUE_OR_POP", OpJumpAbsolute: "JUMP_ABSOLUTE",
	OpPopJumpIfFalse: "POP_JUMP_IF_FALSE", OpPopJumpIfTrue: "POP_JUMP_IF_TRUE",
	OpLoadGlobal: "LOAD_GLOBAL", OpIsOp: "IS_OP", OpContainsOp: "CONTAINS_OP",
	OpSetupFinally: "SETUP_FINALLY",
	OpLoadFast:     "LOAD_FAST", OpStoreFast: "STORE_FAST", OpDeleteFast: "DELETE_FAST",
	OpRaiseVarargs: "RAISE_VARARGS", OpCallFunction: "CALL_FUNCTION",
	OpMakeFunction: "MAKE_FUNCTION", OpBuildSlice: "BUILD_SLICE",
	OpLoadClosure: "LOAD_CLOSURE", OpLoadDeref: "LOAD_DEREF",
	OpStoreDeref: "STORE_DEREF", OpDeleteDeref: "DELETE_DEREF",
	OpCallFunctionKw: "CALL_FUNCTION_KW", OpCallFunctionEx: "CALL_FUNCTION_EX",
	OpExtendedArg: "EXTENDED_ARG", OpListAppend: "LIST_APPEND",
	OpSetAdd: "SET_ADD", OpMapAdd: "MAP_ADD",
	OpBuildListUnpack: "BUILD_LIST_UNPACK", OpBuildMapUnpack: "BUILD_MAP_UNPACK",
	OpBuildTupleUnpack: "BUILD_TUPLE_UNPACK", OpBuildConstKeyMap: "BUILD_CONST_KEY_MAP",
	OpBuildString: "BUILD_STRING",
	OpLoadMethod:  "LOAD_METHOD", OpCallMethod: "CALL_METHOD",
}

// Name returns the CPython name of the opcode
func (op Opcode) Name() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("<op %d>", byte(op))
}

// binOpSlots maps binary opcodes to their slot and display symbol
var binOpSlots = map[Opcode]struct {
	slot   Slot
	symbol string
}{
	OpBinaryAdd:            {SlotAdd, "+"},
	OpBinarySubtract:       {SlotSub, "-"},
	OpBinaryMultiply:       {SlotMul, "*"},
	OpBinaryMatrixMultiply: {SlotMatmul, "@"},
	OpBinaryTrueDivide:     {SlotTruediv, "/"},
	OpBinaryFloorDivide:    {SlotFloordiv, "//"},
	OpBinaryModulo:         {SlotMod, "%"},
	OpBinaryPower:          {SlotPow, "** or pow()"},
	OpBinaryLshift:         {SlotLshift, "<<"},
	OpBinaryRshift:         {SlotRshift, ">>"},
	OpBinaryAnd:            {SlotAnd, "&"},
	OpBinaryOr:             {SlotOr, "|"},
	OpBinaryXor:            {SlotXor, "^"},
}

// inplaceOpSlots maps augmented opcodes to in-place slot, plain slot and symbol
var inplaceOpSlots = map[Opcode]struct {
	islot  Slot
	slot   Slot
	symbol string
}{
	OpInplaceAdd:            {SlotIadd, SlotAdd, "+="},
	OpInplaceSubtract:       {SlotIsub, SlotSub, "-="},
	OpInplaceMultiply:       {SlotImul, SlotMul, "*="},
	OpInplaceMatrixMultiply: {SlotImatmul, SlotMatmul, "@="},
	OpInplaceTrueDivide:     {SlotItruediv, SlotTruediv, "/="},
	OpInplaceFloorDivide:    {SlotIfloordiv, SlotFloordiv, "//="},
	OpInplaceModulo:         {SlotImod, SlotMod, "%="},
	OpInplacePower:          {SlotIpow, SlotPow, "**="},
	OpInplaceLshift:         {SlotIlshift, SlotLshift, "<<="},
	OpInplaceRshift:         {SlotIrshift, SlotRshift, ">>="},
	OpInplaceAnd:            {SlotIand, SlotAnd, "&="},
	OpInplaceOr:             {SlotIor, SlotOr, "|="},
	OpInplaceXor:            {SlotIxor, SlotXor, "^="},
}

// unaryOpSlots maps unary opcodes to slot and symbol
var unaryOpSlots = map[Opcode]struct {
	slot   Slot
	symbol string
}{
	OpUnaryPositive: {SlotPos, "+"},
	OpUnaryNegative: {SlotNeg, "-"},
	OpUnaryInvert:   {SlotInvert, "~"},
}
