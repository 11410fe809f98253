package runtime

import (
	"fmt"
	"math/big"
	"reflect"
)

// The built-in types. All are created exactly once, at package
// initialization, from specs describing their slots and accepted host
// representations; afterward they are sealed.
var (
	ObjectType         *Type
	TypeType           *Type
	NoneType           *Type
	NotImplementedType *Type
	EllipsisType       *Type

	BoolType  *Type
	IntType   *Type
	FloatType *Type
	StrType   *Type
	BytesType *Type

	TupleType    *Type
	ListType     *Type
	DictType     *Type
	SetType      *Type
	RangeType    *Type
	SliceType    *Type
	IteratorType *Type
	CellType     *Type

	CodeType        *Type
	FunctionType    *Type
	BoundMethodType *Type
	BuiltinFuncType *Type
	MethodDescrType *Type
	SlotWrapperType *Type
	ClassMethodType *Type
	StaticMethodType *Type
	PropertyType    *Type
	ModuleType      *Type
)

// Exception types
var (
	BaseExceptionType    *Type
	ExceptionType        *Type
	TypeErrorType        *Type
	ValueErrorType       *Type
	AttributeErrorType   *Type
	NameErrorType        *Type
	UnboundLocalErrorType *Type
	LookupErrorType      *Type
	IndexErrorType       *Type
	KeyErrorType         *Type
	ArithmeticErrorType  *Type
	OverflowErrorType    *Type
	ZeroDivisionErrorType *Type
	StopIterationType    *Type
	RuntimeErrorType     *Type
	RecursionErrorType   *Type
	ImportErrorType      *Type
	MemoryErrorType      *Type
)

func init() {
	initCoreTypes()
	initExceptionTypes()
}

// Object slot implementations. object deliberately defines __repr__ but not
// __str__, so the str-to-repr fallback stays observable.

func objectRepr(vm *VM, self Value) (Value, error) {
	return fmt.Sprintf("<%s object>", TypeName(self)), nil
}

func objectHash(vm *VM, self Value) (int64, error) {
	rv := reflect.ValueOf(self)
	switch rv.Kind() {
	case reflect.Pointer:
		h := int64(rv.Pointer()) % hashModulus
		if h == -1 {
			h = -2
		}
		return h, nil
	}
	// Adopted values hash by value through their own types; reaching here
	// with one is a bug.
	return 0, Fatal("object.__hash__ applied to adopted value %T", self)
}

func objectEq(vm *VM, self, other Value) (Value, error) {
	if sameValue(self, other) {
		return MakeBool(true), nil
	}
	return NotImplemented, nil
}

func objectNe(vm *VM, self, other Value) (Value, error) {
	r, err := vm.RichCompare(self, other, CompareEq)
	if err != nil {
		return nil, err
	}
	if r == NotImplemented {
		return NotImplemented, nil
	}
	b, err := vm.IsTrue(r)
	if err != nil {
		return nil, err
	}
	return MakeBool(!b), nil
}

func objectNew(vm *VM, t *Type, args []Value, kwargs map[string]Value) (Value, error) {
	return NewInstance(t), nil
}

func objectInit(vm *VM, self Value, args []Value, kwargs map[string]Value) error {
	return nil
}

// Type slot implementations

func typeRepr(vm *VM, self Value) (Value, error) {
	return fmt.Sprintf("<class '%s'>", self.(*Type).Name), nil
}

// typeCall implements calling a class: type(x), type(name, bases, dict),
// and instance construction through __new__ and __init__.
func typeCall(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
	t := self.(*Type)
	if t == TypeType {
		switch len(args) {
		case 1:
			return TypeOf(args[0]), nil
		case 3:
			return typeFromParts(vm, args)
		default:
			return nil, vm.RaiseTypeError("type() takes 1 or 3 arguments")
		}
	}
	nh := t.slot(SlotNew)
	if nh == nil {
		return nil, vm.RaiseTypeError("cannot create '%.100s' instances", trimType(t.Name))
	}
	obj, err := nh.fn.(newFunc)(vm, t, args, kwargs)
	if err != nil {
		return nil, err
	}
	if !IsSubType(TypeOf(obj), t) {
		return obj, nil
	}
	if ih := TypeOf(obj).slot(SlotInit); ih != nil {
		if err := ih.fn.(initFunc)(vm, obj, args, kwargs); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// typeFromParts builds a class from type(name, bases, dict)
func typeFromParts(vm *VM, args []Value) (Value, error) {
	name, ok := args[0].(string)
	if !ok {
		return nil, vm.RaiseTypeError("type() argument 1 must be str, not %.200s", trimType(TypeName(args[0])))
	}
	basesTuple, ok := args[1].(*PyTuple)
	if !ok {
		return nil, vm.RaiseTypeError("type() argument 2 must be tuple, not %.200s", trimType(TypeName(args[1])))
	}
	ns, ok := args[2].(*PyDict)
	if !ok {
		return nil, vm.RaiseTypeError("type() argument 3 must be dict, not %.200s", trimType(TypeName(args[2])))
	}
	bases := make([]*Type, len(basesTuple.Items))
	for i, b := range basesTuple.Items {
		bt, ok := b.(*Type)
		if !ok {
			return nil, vm.RaiseTypeError("bases must be types")
		}
		bases[i] = bt
	}
	dict := make(map[string]Value, ns.Len())
	err := ns.Each(func(k, v Value) error {
		ks, ok := k.(string)
		if !ok {
			return vm.RaiseTypeError("type() dict keys must be strings")
		}
		dict[ks] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	t, herr := NewHeapType(name, bases, dict)
	if herr != nil {
		return nil, herr
	}
	return t, nil
}

// Callable-kind slot implementations

func functionCall(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
	return vm.callFunction(self.(*PyFunction), args, kwargs)
}

func functionDescrGet(vm *VM, self, obj Value, owner *Type) (Value, error) {
	if obj == nil || obj == None {
		return self, nil
	}
	return &PyBoundMethod{Self: obj, Func: self}, nil
}

func functionRepr(vm *VM, self Value) (Value, error) {
	return self.(*PyFunction).String(), nil
}

func boundMethodCall(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
	m := self.(*PyBoundMethod)
	all := make([]Value, 1+len(args))
	all[0] = m.Self
	copy(all[1:], args)
	switch fn := m.Func.(type) {
	case *PyFunction:
		return vm.callFunction(fn, all, kwargs)
	case *PyMethodDescr:
		return fn.Fn(vm, all, kwargs)
	case *PySlotWrapper:
		return fn.invoke(vm, all[0], all[1:])
	default:
		return vm.Call(m.Func, all, kwargs)
	}
}

func boundMethodRepr(vm *VM, self Value) (Value, error) {
	m := self.(*PyBoundMethod)
	name := "?"
	switch fn := m.Func.(type) {
	case *PyFunction:
		name = fn.Qualname
	case *PyMethodDescr:
		name = fn.Name
	case *PySlotWrapper:
		name = fn.Name
	}
	return fmt.Sprintf("<bound method %s>", name), nil
}

func builtinFuncCall(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
	return self.(*PyBuiltinFunc).Fn(vm, args, kwargs)
}

func builtinFuncRepr(vm *VM, self Value) (Value, error) {
	return fmt.Sprintf("<built-in function %s>", self.(*PyBuiltinFunc).Name), nil
}

func methodDescrCall(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
	d := self.(*PyMethodDescr)
	if len(args) == 0 {
		return nil, vm.RaiseTypeError("descriptor '%s' of '%s' object needs an argument", d.Name, d.DefType.Name)
	}
	return d.Fn(vm, args, kwargs)
}

func methodDescrGet(vm *VM, self, obj Value, owner *Type) (Value, error) {
	if obj == nil || obj == None {
		return self, nil
	}
	return &PyBoundMethod{Self: obj, Func: self}, nil
}

func methodDescrRepr(vm *VM, self Value) (Value, error) {
	d := self.(*PyMethodDescr)
	return fmt.Sprintf("<method '%s' of '%s' objects>", d.Name, d.DefType.Name), nil
}

func slotWrapperCall(vm *VM, self Value, args []Value, kwargs map[string]Value) (Value, error) {
	w := self.(*PySlotWrapper)
	if len(args) == 0 {
		return nil, vm.RaiseTypeError("descriptor '%s' of '%s' object needs an argument", w.Name, w.DefType.Name)
	}
	return w.invoke(vm, args[0], args[1:])
}

func slotWrapperGet(vm *VM, self, obj Value, owner *Type) (Value, error) {
	if obj == nil || obj == None {
		return self, nil
	}
	return &PyBoundMethod{Self: obj, Func: self}, nil
}

func slotWrapperRepr(vm *VM, self Value) (Value, error) {
	w := self.(*PySlotWrapper)
	return fmt.Sprintf("<slot wrapper '%s' of '%s' objects>", w.Name, w.DefType.Name), nil
}

func classMethodGet(vm *VM, self, obj Value, owner *Type) (Value, error) {
	cm := self.(*PyClassMethod)
	if owner == nil {
		owner = TypeOf(obj)
	}
	return &PyBoundMethod{Self: owner, Func: cm.Func}, nil
}

func staticMethodGet(vm *VM, self, obj Value, owner *Type) (Value, error) {
	return self.(*PyStaticMethod).Func, nil
}

func propertyGet(vm *VM, self, obj Value, owner *Type) (Value, error) {
	p := self.(*PyProperty)
	if obj == nil || obj == None {
		return self, nil
	}
	if p.Fget == nil {
		return nil, vm.Raise(AttributeErrorType, "unreadable attribute")
	}
	return vm.Call(p.Fget, []Value{obj}, nil)
}

func propertySet(vm *VM, self, obj, v Value) error {
	p := self.(*PyProperty)
	if p.Fset == nil {
		return vm.Raise(AttributeErrorType, "can't set attribute")
	}
	_, err := vm.Call(p.Fset, []Value{obj, v}, nil)
	return err
}

func propertyDel(vm *VM, self, obj Value) error {
	p := self.(*PyProperty)
	if p.Fdel == nil {
		return vm.Raise(AttributeErrorType, "can't delete attribute")
	}
	_, err := vm.Call(p.Fdel, []Value{obj}, nil)
	return err
}

// Singleton and small-object slots

func noneRepr(vm *VM, self Value) (Value, error) { return "None", nil }

func noneBool(vm *VM, self Value) (bool, error) { return false, nil }

func noneHash(vm *VM, self Value) (int64, error) { return 0x6a5f, nil }

func notImplementedRepr(vm *VM, self Value) (Value, error) { return "NotImplemented", nil }

func ellipsisRepr(vm *VM, self Value) (Value, error) { return "Ellipsis", nil }

func cellRepr(vm *VM, self Value) (Value, error) {
	c := self.(*PyCell)
	if c.Value == nil {
		return "<cell (empty)>", nil
	}
	return fmt.Sprintf("<cell containing %s>", TypeName(c.Value)), nil
}

func codeRepr(vm *VM, self Value) (Value, error) {
	c := self.(*CodeObject)
	return fmt.Sprintf("<code object %s, file \"%s\", line %d>", c.Name, c.Filename, c.Firstlineno), nil
}

func moduleRepr(vm *VM, self Value) (Value, error) {
	return fmt.Sprintf("<module '%s'>", self.(*PyModule).Name), nil
}

func initCoreTypes() {
	ObjectType = NewTypeFromSpec(&TypeSpec{
		Name: "object",
		Slots: map[Slot]any{
			SlotRepr:         unaryFunc(objectRepr),
			SlotHash:         lenFunc(objectHash),
			SlotEq:           binaryFunc(objectEq),
			SlotNe:           binaryFunc(objectNe),
			SlotGetattribute: getattrFunc(genericGetAttr),
			SlotSetattr:      setattrFunc(genericSetAttr),
			SlotDelattr:      delattrFunc(genericDelAttr),
			SlotInit:         initFunc(objectInit),
			SlotNew:          newFunc(objectNew),
		},
	})
	TypeType = NewTypeFromSpec(&TypeSpec{
		Name:  "type",
		Bases: []*Type{ObjectType},
		Slots: map[Slot]any{
			SlotRepr:         unaryFunc(typeRepr),
			SlotCall:         callFunc(typeCall),
			SlotGetattribute: getattrFunc(typeGetAttr),
			SlotSetattr:      setattrFunc(typeSetAttr),
			SlotDelattr:      delattrFunc(typeDelAttr),
		},
	})

	NoneType = NewTypeFromSpec(&TypeSpec{
		Name:  "NoneType",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotRepr: unaryFunc(noneRepr),
			SlotBool: predicateFunc(noneBool),
			SlotHash: lenFunc(noneHash),
		},
	})
	NotImplementedType = NewTypeFromSpec(&TypeSpec{
		Name:  "NotImplementedType",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotRepr: unaryFunc(notImplementedRepr)},
	})
	EllipsisType = NewTypeFromSpec(&TypeSpec{
		Name:  "ellipsis",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotRepr: unaryFunc(ellipsisRepr)},
	})

	IntType = NewTypeFromSpec(&TypeSpec{
		Name:     "int",
		Accepted: []reflect.Type{reflect.TypeOf(int64(0)), reflect.TypeOf(&big.Int{})},
		Slots: map[Slot]any{
			SlotNew:      newFunc(intNew),
			SlotRepr:     unaryFunc(intRepr),
			SlotHash:     lenFunc(intHash),
			SlotBool:     predicateFunc(intBool),
			SlotIndex:    unaryFunc(intIndex),
			SlotInt:      unaryFunc(intIndex),
			SlotFloat:    unaryFunc(intFloatConv),
			SlotAdd:      binaryFunc(intAdd),
			SlotRadd:     binaryFunc(intAdd),
			SlotSub:      binaryFunc(intSub),
			SlotRsub:     binaryFunc(intRsub),
			SlotMul:      binaryFunc(intMul),
			SlotRmul:     binaryFunc(intMul),
			SlotTruediv:  binaryFunc(intTruediv),
			SlotRtruediv: binaryFunc(intRtruediv),
			SlotFloordiv: binaryFunc(intFloordiv),
			SlotRfloordiv: binaryFunc(intRfloordiv),
			SlotMod:      binaryFunc(intMod),
			SlotRmod:     binaryFunc(intRmod),
			SlotPow:      ternaryFunc(intPowOp),
			SlotRpow:     ternaryFunc(intRpow),
			SlotNeg:      unaryFunc(intNeg),
			SlotPos:      unaryFunc(intPos),
			SlotAbs:      unaryFunc(intAbs),
			SlotInvert:   unaryFunc(intInvert),
			SlotLshift:   binaryFunc(intLshift),
			SlotRlshift:  binaryFunc(intRlshift),
			SlotRshift:   binaryFunc(intRshift),
			SlotRrshift:  binaryFunc(intRrshift),
			SlotAnd:      intBitop(func(z, x, y *big.Int) *big.Int { return z.And(x, y) }, func(a, b int64) int64 { return a & b }),
			SlotRand:     intBitop(func(z, x, y *big.Int) *big.Int { return z.And(x, y) }, func(a, b int64) int64 { return a & b }),
			SlotOr:       intBitop(func(z, x, y *big.Int) *big.Int { return z.Or(x, y) }, func(a, b int64) int64 { return a | b }),
			SlotRor:      intBitop(func(z, x, y *big.Int) *big.Int { return z.Or(x, y) }, func(a, b int64) int64 { return a | b }),
			SlotXor:      intBitop(func(z, x, y *big.Int) *big.Int { return z.Xor(x, y) }, func(a, b int64) int64 { return a ^ b }),
			SlotRxor:     intBitop(func(z, x, y *big.Int) *big.Int { return z.Xor(x, y) }, func(a, b int64) int64 { return a ^ b }),
			SlotEq:       cmpSlot(intCmp, func(c int) bool { return c == 0 }),
			SlotNe:       cmpSlot(intCmp, func(c int) bool { return c != 0 }),
			SlotLt:       cmpSlot(intCmp, func(c int) bool { return c < 0 }),
			SlotLe:       cmpSlot(intCmp, func(c int) bool { return c <= 0 }),
			SlotGt:       cmpSlot(intCmp, func(c int) bool { return c > 0 }),
			SlotGe:       cmpSlot(intCmp, func(c int) bool { return c >= 0 }),
		},
	})
	BoolType = NewTypeFromSpec(&TypeSpec{
		Name:     "bool",
		Bases:    []*Type{IntType},
		Flags:    FlagGenericGetattr,
		Accepted: []reflect.Type{reflect.TypeOf(false)},
		Slots: map[Slot]any{
			SlotNew:  newFunc(boolNew),
			SlotRepr: unaryFunc(boolRepr),
			SlotStr:  unaryFunc(boolRepr),
		},
	})
	FloatType = NewTypeFromSpec(&TypeSpec{
		Name:     "float",
		Accepted: []reflect.Type{reflect.TypeOf(float64(0))},
		Slots: map[Slot]any{
			SlotNew:       newFunc(floatNew),
			SlotRepr:      unaryFunc(floatRepr),
			SlotHash:      lenFunc(floatHash),
			SlotBool:      predicateFunc(floatBool),
			SlotInt:       unaryFunc(floatIntConv),
			SlotFloat:     unaryFunc(floatPos),
			SlotAdd:       floatBinop(floatAddOp, false),
			SlotRadd:      floatBinop(floatAddOp, false),
			SlotSub:       floatBinop(floatSubOp, false),
			SlotRsub:      floatBinop(floatSubOp, true),
			SlotMul:       floatBinop(floatMulOp, false),
			SlotRmul:      floatBinop(floatMulOp, false),
			SlotTruediv:   floatBinop(floatDivOp, false),
			SlotRtruediv:  floatBinop(floatDivOp, true),
			SlotFloordiv:  floatBinop(floatFloordivOp, false),
			SlotRfloordiv: floatBinop(floatFloordivOp, true),
			SlotMod:       floatBinop(floatModOp, false),
			SlotRmod:      floatBinop(floatModOp, true),
			SlotPow:       ternaryFunc(floatPow),
			SlotRpow:      ternaryFunc(floatRpow),
			SlotNeg:       unaryFunc(floatNeg),
			SlotPos:       unaryFunc(floatPos),
			SlotAbs:       unaryFunc(floatAbs),
			SlotEq:        cmpSlot(floatCmp, func(c int) bool { return c == 0 }),
			SlotNe:        cmpSlot(floatCmp, func(c int) bool { return c != 0 }),
			SlotLt:        cmpSlot(floatCmp, func(c int) bool { return c < 0 }),
			SlotLe:        cmpSlot(floatCmp, func(c int) bool { return c <= 0 }),
			SlotGt:        cmpSlot(floatCmp, func(c int) bool { return c > 0 }),
			SlotGe:        cmpSlot(floatCmp, func(c int) bool { return c >= 0 }),
		},
	})
	StrType = NewTypeFromSpec(&TypeSpec{
		Name:     "str",
		Accepted: []reflect.Type{reflect.TypeOf("")},
		Slots: map[Slot]any{
			SlotNew:      newFunc(strNew),
			SlotRepr:     unaryFunc(strRepr),
			SlotStr:      unaryFunc(strStr),
			SlotHash:     lenFunc(strHash),
			SlotLen:      lenFunc(strLen),
			SlotGetitem:  binaryFunc(strGetitem),
			SlotContains: binaryPredFunc(strContains),
			SlotAdd:      binaryFunc(strAdd),
			SlotMul:      binaryFunc(strMul),
			SlotRmul:     binaryFunc(strRmul),
			SlotIter:     unaryFunc(strIter),
			SlotEq:       cmpSlot(strCmp, func(c int) bool { return c == 0 }),
			SlotNe:       cmpSlot(strCmp, func(c int) bool { return c != 0 }),
			SlotLt:       cmpSlot(strCmp, func(c int) bool { return c < 0 }),
			SlotLe:       cmpSlot(strCmp, func(c int) bool { return c <= 0 }),
			SlotGt:       cmpSlot(strCmp, func(c int) bool { return c > 0 }),
			SlotGe:       cmpSlot(strCmp, func(c int) bool { return c >= 0 }),
		},
	})
	BytesType = NewTypeFromSpec(&TypeSpec{
		Name: "bytes",
		Slots: map[Slot]any{
			SlotRepr:    unaryFunc(bytesRepr),
			SlotLen:     lenFunc(bytesLen),
			SlotGetitem: binaryFunc(bytesGetitem),
		},
	})

	TupleType = NewTypeFromSpec(&TypeSpec{
		Name: "tuple",
		Slots: map[Slot]any{
			SlotNew:      newFunc(tupleNew),
			SlotRepr:     unaryFunc(tupleRepr),
			SlotHash:     lenFunc(tupleHash),
			SlotLen:      lenFunc(tupleLen),
			SlotGetitem:  binaryFunc(tupleGetitem),
			SlotContains: binaryPredFunc(tupleContains),
			SlotIter:     unaryFunc(tupleIter),
			SlotEq:       binaryFunc(tupleEq),
			SlotAdd:      binaryFunc(tupleAdd),
		},
	})
	ListType = NewTypeFromSpec(&TypeSpec{
		Name: "list",
		Slots: map[Slot]any{
			SlotNew:      newFunc(listNew),
			SlotRepr:     unaryFunc(listRepr),
			SlotLen:      lenFunc(listLen),
			SlotGetitem:  binaryFunc(listGetitem),
			SlotSetitem:  setitemFunc(listSetitem),
			SlotDelitem:  delitemFunc(listDelitem),
			SlotContains: binaryPredFunc(listContains),
			SlotIter:     unaryFunc(listIter),
			SlotEq:       binaryFunc(listEq),
			SlotAdd:      binaryFunc(listAdd),
		},
		Methods: map[string]*PyBuiltinFunc{
			"append": {Name: "append", Fn: listAppendMethod},
			"extend": {Name: "extend", Fn: listExtendMethod},
			"pop":    {Name: "pop", Fn: listPopMethod},
		},
		Members: map[string]Value{"__hash__": None},
	})
	DictType = NewTypeFromSpec(&TypeSpec{
		Name: "dict",
		Slots: map[Slot]any{
			SlotNew:      newFunc(dictNew),
			SlotRepr:     unaryFunc(dictRepr),
			SlotLen:      lenFunc(dictLen),
			SlotGetitem:  binaryFunc(dictGetitem),
			SlotSetitem:  setitemFunc(dictSetitem),
			SlotDelitem:  delitemFunc(dictDelitem),
			SlotContains: binaryPredFunc(dictContains),
			SlotIter:     unaryFunc(dictIter),
			SlotEq:       binaryFunc(dictEq),
		},
		Methods: map[string]*PyBuiltinFunc{
			"get":    {Name: "get", Fn: dictGetMethod},
			"keys":   {Name: "keys", Fn: dictKeysMethod},
			"items":  {Name: "items", Fn: dictItemsMethod},
			"values": {Name: "values", Fn: dictValuesMethod},
		},
		Members: map[string]Value{"__hash__": None},
	})
	SetType = NewTypeFromSpec(&TypeSpec{
		Name: "set",
		Slots: map[Slot]any{
			SlotNew:      newFunc(setNew),
			SlotRepr:     unaryFunc(setRepr),
			SlotLen:      lenFunc(setLen),
			SlotContains: binaryPredFunc(setContains),
			SlotIter:     unaryFunc(setIter),
		},
		Members: map[string]Value{"__hash__": None},
	})
	RangeType = NewTypeFromSpec(&TypeSpec{
		Name:  "range",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotNew:      newFunc(rangeNew),
			SlotRepr:     unaryFunc(rangeRepr),
			SlotLen:      lenFunc(rangeLen),
			SlotGetitem:  binaryFunc(rangeGetitem),
			SlotContains: binaryPredFunc(rangeContains),
			SlotIter:     unaryFunc(rangeIter),
		},
	})
	SliceType = NewTypeFromSpec(&TypeSpec{
		Name:  "slice",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotRepr: unaryFunc(sliceRepr)},
		Members: map[string]Value{"__hash__": None},
	})
	IteratorType = NewTypeFromSpec(&TypeSpec{
		Name:  "iterator",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotIter: unaryFunc(iterIter),
			SlotNext: unaryFunc(iterNext),
		},
	})
	CellType = NewTypeFromSpec(&TypeSpec{
		Name:  "cell",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotRepr: unaryFunc(cellRepr)},
	})

	CodeType = NewTypeFromSpec(&TypeSpec{
		Name:  "code",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotRepr: unaryFunc(codeRepr)},
	})
	FunctionType = NewTypeFromSpec(&TypeSpec{
		Name:  "function",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotRepr: unaryFunc(functionRepr),
			SlotCall: callFunc(functionCall),
			SlotGet:  descrGetFunc(functionDescrGet),
		},
	})
	BoundMethodType = NewTypeFromSpec(&TypeSpec{
		Name:  "method",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotRepr: unaryFunc(boundMethodRepr),
			SlotCall: callFunc(boundMethodCall),
		},
	})
	BuiltinFuncType = NewTypeFromSpec(&TypeSpec{
		Name:  "builtin_function_or_method",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotRepr: unaryFunc(builtinFuncRepr),
			SlotCall: callFunc(builtinFuncCall),
		},
	})
	MethodDescrType = NewTypeFromSpec(&TypeSpec{
		Name:  "method_descriptor",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotRepr: unaryFunc(methodDescrRepr),
			SlotCall: callFunc(methodDescrCall),
			SlotGet:  descrGetFunc(methodDescrGet),
		},
	})
	SlotWrapperType = NewTypeFromSpec(&TypeSpec{
		Name:  "slot wrapper",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotRepr: unaryFunc(slotWrapperRepr),
			SlotCall: callFunc(slotWrapperCall),
			SlotGet:  descrGetFunc(slotWrapperGet),
		},
	})
	ClassMethodType = NewTypeFromSpec(&TypeSpec{
		Name:  "classmethod",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotGet: descrGetFunc(classMethodGet)},
	})
	StaticMethodType = NewTypeFromSpec(&TypeSpec{
		Name:  "staticmethod",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{SlotGet: descrGetFunc(staticMethodGet)},
	})
	PropertyType = NewTypeFromSpec(&TypeSpec{
		Name:  "property",
		Flags: FlagGenericGetattr,
		Slots: map[Slot]any{
			SlotGet:    descrGetFunc(propertyGet),
			SlotSet:    descrSetFunc(propertySet),
			SlotDelete: descrDelFunc(propertyDel),
		},
	})
	ModuleType = NewTypeFromSpec(&TypeSpec{
		Name: "module",
		Slots: map[Slot]any{
			SlotRepr:         unaryFunc(moduleRepr),
			SlotGetattribute: getattrFunc(genericGetAttr),
			SlotSetattr:      setattrFunc(genericSetAttr),
			SlotDelattr:      delattrFunc(genericDelAttr),
		},
	})
}
