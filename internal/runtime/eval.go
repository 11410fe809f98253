package runtime

import "fmt"

// evalFrame is the instruction-dispatch loop. Instructions are 16-bit
// words, opcode in the high byte; EXTENDED_ARG accumulates into the
// argument of the following instruction. Jump targets arrive as byte
// offsets and are halved into word units.
//
// Errors are sorted into three classes at each opcode boundary: Python
// exceptions go to the innermost handler block or propagate out;
// InterpreterError propagates unchanged; any other host failure is wrapped
// as an InterpreterError with the current opcode and instruction pointer.
func (vm *VM) evalFrame(f *Frame) (result Value, rerr error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			rerr = &InterpreterError{Msg: fmt.Sprintf("host panic in dispatch: %v", r), IP: f.IP}
		}
	}()
	code := f.Code.Bytecode
	nInstr := f.Code.InstrCount()
	oparg := 0

	for f.IP < nInstr {
		if err := vm.checkInterrupt(); err != nil {
			return nil, err
		}

		op := Opcode(code[f.IP*2])
		arg := int(code[f.IP*2+1]) | oparg<<8
		ip := f.IP
		f.IP++
		if op == OpExtendedArg {
			oparg = arg
			continue
		}
		oparg = 0

		var err error
		switch op {

		// Stack manipulation
		case OpNop:
		case OpPopTop:
			f.pop()
		case OpRotTwo:
			a, b := f.pop(), f.pop()
			f.push(a)
			f.push(b)
		case OpRotThree:
			a, b, c := f.pop(), f.pop(), f.pop()
			f.push(a)
			f.push(c)
			f.push(b)
		case OpRotFour:
			a, b, c, d := f.pop(), f.pop(), f.pop(), f.pop()
			f.push(a)
			f.push(d)
			f.push(c)
			f.push(b)
		case OpDupTop:
			f.push(f.top())
		case OpDupTopTwo:
			b, a := f.top(), f.peek(1)
			f.push(a)
			f.push(b)

		// Constants and variables
		case OpLoadConst:
			f.push(f.Code.Consts[arg])
		case OpLoadFast:
			v := f.Fast[arg]
			if v == nil {
				err = vm.Raise(UnboundLocalErrorType,
					"local variable '%s' referenced before assignment", f.Code.VarName(arg))
				break
			}
			f.push(v)
		case OpStoreFast:
			f.Fast[arg] = f.pop()
		case OpDeleteFast:
			if f.Fast[arg] == nil {
				err = vm.Raise(UnboundLocalErrorType,
					"local variable '%s' referenced before assignment", f.Code.VarName(arg))
				break
			}
			f.Fast[arg] = nil

		case OpLoadName:
			name := f.Code.Names[arg]
			v, ok := f.Locals[name]
			if !ok {
				v, ok = f.Globals[name]
			}
			if !ok {
				v, ok = f.Builtins[name]
			}
			if !ok {
				err = vm.Raise(NameErrorType, "name '%s' is not defined", name)
				break
			}
			f.push(v)
		case OpStoreName:
			if f.Locals == nil {
				err = Fatal("STORE_NAME with no locals mapping")
				break
			}
			f.Locals[f.Code.Names[arg]] = f.pop()
		case OpDeleteName:
			name := f.Code.Names[arg]
			if _, ok := f.Locals[name]; !ok {
				err = vm.Raise(NameErrorType, "name '%s' is not defined", name)
				break
			}
			delete(f.Locals, name)

		case OpLoadGlobal:
			name := f.Code.Names[arg]
			v, ok := f.Globals[name]
			if !ok {
				v, ok = f.Builtins[name]
			}
			if !ok {
				err = vm.Raise(NameErrorType, "name '%s' is not defined", name)
				break
			}
			f.push(v)
		case OpStoreGlobal:
			f.Globals[f.Code.Names[arg]] = f.pop()
		case OpDeleteGlobal:
			name := f.Code.Names[arg]
			if _, ok := f.Globals[name]; !ok {
				err = vm.Raise(NameErrorType, "name '%s' is not defined", name)
				break
			}
			delete(f.Globals, name)

		case OpLoadDeref:
			c := f.Cells[arg]
			if c == nil || c.Value == nil {
				err = vm.raiseUnboundCell(f, arg)
				break
			}
			f.push(c.Value)
		case OpStoreDeref:
			f.Cells[arg].Set(f.pop())
		case OpDeleteDeref:
			c := f.Cells[arg]
			if c == nil || c.Value == nil {
				err = vm.raiseUnboundCell(f, arg)
				break
			}
			c.Clear()
		case OpLoadClosure:
			f.push(f.Cells[arg])

		// Attributes
		case OpLoadAttr:
			var v Value
			v, err = vm.GetAttr(f.pop(), f.Code.Names[arg])
			if err == nil {
				f.push(v)
			}
		case OpStoreAttr:
			o := f.pop()
			v := f.pop()
			err = vm.SetAttr(o, f.Code.Names[arg], v)
		case OpDeleteAttr:
			err = vm.DelAttr(f.pop(), f.Code.Names[arg])

		// Subscripts
		case OpBinarySubscr:
			k := f.pop()
			o := f.pop()
			var v Value
			v, err = vm.GetItem(o, k)
			if err == nil {
				f.push(v)
			}
		case OpStoreSubscr:
			k := f.pop()
			o := f.pop()
			v := f.pop()
			err = vm.SetItem(o, k, v)
		case OpDeleteSubscr:
			k := f.pop()
			o := f.pop()
			err = vm.DelItem(o, k)

		// Unary operators
		case OpUnaryPositive, OpUnaryNegative, OpUnaryInvert:
			u := unaryOpSlots[op]
			var v Value
			v, err = vm.UnaryOp(u.slot, u.symbol, f.pop())
			if err == nil {
				f.push(v)
			}
		case OpUnaryNot:
			var b bool
			b, err = vm.IsTrue(f.pop())
			if err == nil {
				f.push(MakeBool(!b))
			}

		// Binary and in-place operators
		case OpBinaryAdd, OpBinarySubtract, OpBinaryMultiply, OpBinaryMatrixMultiply,
			OpBinaryTrueDivide, OpBinaryFloorDivide, OpBinaryModulo, OpBinaryPower,
			OpBinaryLshift, OpBinaryRshift, OpBinaryAnd, OpBinaryOr, OpBinaryXor:
			b := binOpSlots[op]
			w := f.pop()
			v := f.pop()
			var r Value
			r, err = vm.BinaryOp(b.slot, b.symbol, v, w)
			if err == nil {
				f.push(r)
			}
		case OpInplaceAdd, OpInplaceSubtract, OpInplaceMultiply, OpInplaceMatrixMultiply,
			OpInplaceTrueDivide, OpInplaceFloorDivide, OpInplaceModulo, OpInplacePower,
			OpInplaceLshift, OpInplaceRshift, OpInplaceAnd, OpInplaceOr, OpInplaceXor:
			io := inplaceOpSlots[op]
			w := f.pop()
			v := f.pop()
			var r Value
			r, err = vm.InplaceOp(io.islot, io.slot, io.symbol, v, w)
			if err == nil {
				f.push(r)
			}

		// Comparisons
		case OpCompareOp:
			w := f.pop()
			v := f.pop()
			var r Value
			r, err = vm.compareOp(CompareOp(arg), v, w)
			if err == nil {
				f.push(r)
			}
		case OpIsOp:
			w := f.pop()
			v := f.pop()
			same := sameValue(v, w)
			if arg == 1 {
				same = !same
			}
			f.push(MakeBool(same))
		case OpContainsOp:
			container := f.pop()
			item := f.pop()
			var in bool
			in, err = vm.Contains(container, item)
			if err == nil {
				if arg == 1 {
					in = !in
				}
				f.push(MakeBool(in))
			}

		// Control flow
		case OpJumpAbsolute:
			f.IP = arg / 2
		case OpJumpForward:
			f.IP += arg / 2
		case OpPopJumpIfTrue:
			var b bool
			b, err = vm.IsTrue(f.pop())
			if err == nil && b {
				f.IP = arg / 2
			}
		case OpPopJumpIfFalse:
			var b bool
			b, err = vm.IsTrue(f.pop())
			if err == nil && !b {
				f.IP = arg / 2
			}
		case OpJumpIfTrueOrPop:
			var b bool
			b, err = vm.IsTrue(f.top())
			if err == nil {
				if b {
					f.IP = arg / 2
				} else {
					f.pop()
				}
			}
		case OpJumpIfFalseOrPop:
			var b bool
			b, err = vm.IsTrue(f.top())
			if err == nil {
				if !b {
					f.IP = arg / 2
				} else {
					f.pop()
				}
			}
		case OpReturnValue:
			return f.pop(), nil

		// Iteration
		case OpGetIter:
			var it Value
			it, err = vm.Iter(f.pop())
			if err == nil {
				f.push(it)
			}
		case OpForIter:
			var v Value
			v, err = vm.Next(f.top())
			if err != nil {
				if exc, ok := asPyException(err); ok && exc.Matches(StopIterationType) {
					err = nil
					f.pop()
					f.IP += arg / 2
				}
				break
			}
			f.push(v)

		// Builders
		case OpBuildTuple:
			f.push(NewTuple(f.popN(arg)...))
		case OpBuildList:
			f.push(&PyList{Items: f.popN(arg)})
		case OpBuildSet:
			s := &PySet{}
			for _, v := range f.popN(arg) {
				if err = s.Add(vm, v); err != nil {
					break
				}
			}
			if err == nil {
				f.push(s)
			}
		case OpBuildMap:
			d := NewDict()
			kv := f.popN(2 * arg)
			for i := 0; i < len(kv); i += 2 {
				if err = d.Set(vm, kv[i], kv[i+1]); err != nil {
					break
				}
			}
			if err == nil {
				f.push(d)
			}
		case OpBuildConstKeyMap:
			names, ok := f.pop().(*PyTuple)
			if !ok || len(names.Items) != arg {
				err = Fatal("BUILD_CONST_KEY_MAP keys tuple does not match oparg %d", arg)
				break
			}
			values := f.popN(arg)
			d := NewDict()
			for i, k := range names.Items {
				if err = d.Set(vm, k, values[i]); err != nil {
					break
				}
			}
			if err == nil {
				f.push(d)
			}
		case OpBuildString:
			parts := f.popN(arg)
			s := ""
			for _, p := range parts {
				ps, ok := p.(string)
				if !ok {
					err = Fatal("BUILD_STRING operand is %s, not str", TypeName(p))
					break
				}
				s += ps
			}
			if err == nil {
				f.push(s)
			}
		case OpBuildSlice:
			var step Value = None
			if arg == 3 {
				step = f.pop()
			}
			stop := f.pop()
			start := f.pop()
			f.push(&PySlice{Start: start, Stop: stop, Step: step})
		case OpBuildTupleUnpack, OpBuildListUnpack:
			parts := f.popN(arg)
			items := []Value{}
			for _, p := range parts {
				var sub []Value
				sub, err = vm.Unpack(p, -1)
				if err != nil {
					break
				}
				items = append(items, sub...)
			}
			if err == nil {
				if op == OpBuildTupleUnpack {
					f.push(NewTuple(items...))
				} else {
					f.push(&PyList{Items: items})
				}
			}
		case OpBuildMapUnpack:
			parts := f.popN(arg)
			d := NewDict()
			for _, p := range parts {
				src, ok := p.(*PyDict)
				if !ok {
					err = vm.RaiseTypeError("'%.200s' object is not a mapping", trimType(TypeName(p)))
					break
				}
				if err = src.Each(func(k, v Value) error { return d.Set(vm, k, v) }); err != nil {
					break
				}
			}
			if err == nil {
				f.push(d)
			}
		case OpListAppend:
			v := f.pop()
			l, ok := f.peek(arg - 1).(*PyList)
			if !ok {
				err = Fatal("LIST_APPEND target is not a list")
				break
			}
			l.Append(v)
		case OpSetAdd:
			v := f.pop()
			s, ok := f.peek(arg - 1).(*PySet)
			if !ok {
				err = Fatal("SET_ADD target is not a set")
				break
			}
			err = s.Add(vm, v)
		case OpMapAdd:
			v := f.pop()
			k := f.pop()
			d, ok := f.peek(arg - 1).(*PyDict)
			if !ok {
				err = Fatal("MAP_ADD target is not a dict")
				break
			}
			err = d.Set(vm, k, v)

		// Unpacking
		case OpUnpackSequence:
			var items []Value
			items, err = vm.Unpack(f.pop(), arg)
			if err == nil {
				for i := len(items) - 1; i >= 0; i-- {
					f.push(items[i])
				}
			}
		case OpUnpackEx:
			before := arg & 0xFF
			after := arg >> 8
			var items []Value
			items, err = vm.Unpack(f.pop(), -1)
			if err != nil {
				break
			}
			if len(items) < before+after {
				err = vm.Raise(ValueErrorType,
					"not enough values to unpack (expected at least %d, got %d)", before+after, len(items))
				break
			}
			tail := items[len(items)-after:]
			mid := items[before : len(items)-after]
			for i := after - 1; i >= 0; i-- {
				f.push(tail[i])
			}
			f.push(&PyList{Items: append([]Value(nil), mid...)})
			for i := before - 1; i >= 0; i-- {
				f.push(items[i])
			}

		// Functions and calls
		case OpMakeFunction:
			err = vm.makeFunction(f, arg)
		case OpCallFunction:
			args := f.popN(arg)
			callable := f.pop()
			var r Value
			r, err = vm.Call(callable, args, nil)
			if err == nil {
				f.push(r)
			}
		case OpCallFunctionKw:
			names, ok := f.pop().(*PyTuple)
			if !ok {
				err = Fatal("CALL_FUNCTION_KW without keyword names tuple")
				break
			}
			all := f.popN(arg)
			callable := f.pop()
			nkw := len(names.Items)
			kwargs := make(map[string]Value, nkw)
			for i, kn := range names.Items {
				name, ok := kn.(string)
				if !ok {
					err = Fatal("keyword name is %s, not str", TypeName(kn))
					break
				}
				kwargs[name] = all[arg-nkw+i]
			}
			if err != nil {
				break
			}
			var r Value
			r, err = vm.Call(callable, all[:arg-nkw], kwargs)
			if err == nil {
				f.push(r)
			}
		case OpCallFunctionEx:
			var kwargs map[string]Value
			if arg&1 != 0 {
				kd, ok := f.pop().(*PyDict)
				if !ok {
					err = vm.RaiseTypeError("argument after ** must be a mapping")
					break
				}
				kwargs = make(map[string]Value, kd.Len())
				err = kd.Each(func(k, v Value) error {
					name, ok := k.(string)
					if !ok {
						return vm.RaiseTypeError("keywords must be strings")
					}
					kwargs[name] = v
					return nil
				})
				if err != nil {
					break
				}
			}
			var args []Value
			args, err = vm.Unpack(f.pop(), -1)
			if err != nil {
				break
			}
			callable := f.pop()
			var r Value
			r, err = vm.Call(callable, args, kwargs)
			if err == nil {
				f.push(r)
			}
		case OpLoadMethod:
			o := f.pop()
			var m Value
			var unbound bool
			m, unbound, err = vm.GetMethod(o, f.Code.Names[arg])
			if err == nil {
				if unbound {
					f.push(m)
					f.push(o)
				} else {
					f.push(nil)
					f.push(m)
				}
			}
		case OpCallMethod:
			args := f.popN(arg)
			selfOrBound := f.pop()
			callable := f.pop()
			var r Value
			if callable != nil {
				all := make([]Value, 1+len(args))
				all[0] = selfOrBound
				copy(all[1:], args)
				r, err = vm.Call(callable, all, nil)
			} else {
				r, err = vm.Call(selfOrBound, args, nil)
			}
			if err == nil {
				f.push(r)
			}

		case OpLoadBuildClass:
			f.push(f.Builtins["__build_class__"])

		// Exceptions
		case OpSetupFinally:
			f.pushBlock(blockFinally, f.IP+arg/2)
		case OpPopBlock:
			if _, ok := f.popBlock(); !ok {
				err = Fatal("POP_BLOCK with empty block stack")
			}
		case OpPopExcept:
			f.currentExc = nil
		case OpEndFinally:
			v := f.pop()
			switch x := v.(type) {
			case *PyNone:
			case *PyException:
				err = x
			default:
				err = Fatal("END_FINALLY found %s on the stack", TypeName(v))
			}
		case OpRaiseVarargs:
			err = vm.raiseVarargs(f, arg)

		case OpImportName, OpImportFrom:
			err = vm.Raise(ImportErrorType, "imports are not available in this interpreter core")

		default:
			err = &InterpreterError{Msg: "unimplemented opcode", Opcode: op, IP: ip}
		}

		if err == nil {
			continue
		}

		// Error policy: Python exceptions unwind to the innermost handler
		// block; internal errors propagate untouched; anything else is a
		// host failure wrapped with dispatch context.
		exc, isPy := asPyException(err)
		if !isPy {
			if ie, ok := err.(*InterpreterError); ok {
				return nil, ie
			}
			return nil, &InterpreterError{Msg: "host error during dispatch", Opcode: op, IP: ip, Err: err}
		}
		if exc.Context == nil && f.currentExc != nil && exc != f.currentExc {
			exc.Context = f.currentExc
		}
		handled := false
		for {
			b, ok := f.popBlock()
			if !ok {
				break
			}
			f.unwindTo(b.level)
			f.push(exc)
			f.currentExc = exc
			f.IP = b.handler
			handled = true
			break
		}
		if !handled {
			return nil, exc
		}
	}
	return nil, &InterpreterError{Msg: "fell off the end of the bytecode", IP: f.IP}
}

// raiseUnboundCell reports reading an empty cell, distinguishing cell
// variables from closure-supplied free variables.
func (vm *VM) raiseUnboundCell(f *Frame, idx int) error {
	name := f.Code.CellName(idx)
	if idx < f.Code.NCellVars {
		return vm.Raise(UnboundLocalErrorType, "local variable '%s' referenced before assignment", name)
	}
	return vm.Raise(NameErrorType,
		"free variable '%s' referenced before assignment in enclosing scope", name)
}

// compareOp evaluates COMPARE_OP across the full 3.8 operand range
func (vm *VM) compareOp(op CompareOp, v, w Value) (Value, error) {
	switch {
	case op >= CompareLt && op <= CompareGe:
		return vm.RichCompare(v, w, op)
	case op == CompareIn, op == CompareNotIn:
		in, err := vm.Contains(w, v)
		if err != nil {
			return nil, err
		}
		if op == CompareNotIn {
			in = !in
		}
		return MakeBool(in), nil
	case op == CompareIs:
		return MakeBool(sameValue(v, w)), nil
	case op == CompareIsNot:
		return MakeBool(!sameValue(v, w)), nil
	case op == CompareExcMatch:
		exc, ok := v.(*PyException)
		if !ok {
			return nil, Fatal("exception match against %s", TypeName(v))
		}
		return MakeBool(vm.excMatchesValue(exc, w)), nil
	}
	return nil, Fatal("COMPARE_OP with invalid operand %d", int(op))
}

// excMatchesValue matches an exception against a class or tuple of classes
func (vm *VM) excMatchesValue(exc *PyException, cls Value) bool {
	switch c := cls.(type) {
	case *Type:
		return exc.Matches(c)
	case *PyTuple:
		for _, item := range c.Items {
			if vm.excMatchesValue(exc, item) {
				return true
			}
		}
	}
	return false
}

// makeFunction implements MAKE_FUNCTION: qualname and code from the stack,
// then closure, annotations, kwdefaults and defaults as selected by the
// flag bits. Taking qualname from the stack is the pre-3.11 behavior and is
// kept deliberately.
func (vm *VM) makeFunction(f *Frame, flags int) error {
	qualname, ok := f.pop().(string)
	if !ok {
		return Fatal("MAKE_FUNCTION qualname is not a string")
	}
	code, ok := f.pop().(*CodeObject)
	if !ok {
		return Fatal("MAKE_FUNCTION code operand is not a code object")
	}
	fn := NewFunction(vm, code, f.Globals, qualname)

	if flags&0x08 != 0 {
		closureTuple, ok := f.pop().(*PyTuple)
		if !ok {
			return Fatal("MAKE_FUNCTION closure is not a tuple")
		}
		cells := make([]*PyCell, len(closureTuple.Items))
		for i, c := range closureTuple.Items {
			cell, ok := c.(*PyCell)
			if !ok {
				return Fatal("MAKE_FUNCTION closure item %d is %s, not a cell", i, TypeName(c))
			}
			cells[i] = cell
		}
		fn.Closure = cells
	}
	if len(fn.Closure) != code.NFreeVars {
		return Fatal("function %s expects %d free variables, closure has %d",
			code.Qualname, code.NFreeVars, len(fn.Closure))
	}
	if flags&0x04 != 0 {
		ann, ok := f.pop().(*PyDict)
		if !ok {
			return Fatal("MAKE_FUNCTION annotations is not a dict")
		}
		fn.Annotations = make(map[string]Value, ann.Len())
		if err := ann.Each(func(k, v Value) error {
			if ks, ok := k.(string); ok {
				fn.Annotations[ks] = v
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if flags&0x02 != 0 {
		kwd, ok := f.pop().(*PyDict)
		if !ok {
			return Fatal("MAKE_FUNCTION kwdefaults is not a dict")
		}
		fn.KwDefaults = make(map[string]Value, kwd.Len())
		if err := kwd.Each(func(k, v Value) error {
			if ks, ok := k.(string); ok {
				fn.KwDefaults[ks] = v
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if flags&0x01 != 0 {
		defaults, ok := f.pop().(*PyTuple)
		if !ok {
			return Fatal("MAKE_FUNCTION defaults is not a tuple")
		}
		fn.Defaults = defaults.Items
	}
	f.push(fn)
	return nil
}

// raiseVarargs implements RAISE_VARARGS: re-raise, raise value, or raise
// with cause.
func (vm *VM) raiseVarargs(f *Frame, argc int) error {
	var cause Value
	var excVal Value
	switch argc {
	case 0:
		if f.currentExc == nil {
			return vm.Raise(RuntimeErrorType, "No active exception to re-raise")
		}
		return f.currentExc
	case 2:
		cause = f.pop()
		excVal = f.pop()
	case 1:
		excVal = f.pop()
	default:
		return Fatal("RAISE_VARARGS with argc %d", argc)
	}
	exc, err := vm.makeException(excVal)
	if err != nil {
		return err
	}
	if cause != nil && cause != None {
		c, err := vm.makeException(cause)
		if err != nil {
			return err
		}
		exc.Cause = c
	}
	return exc
}

// makeException normalizes a raise operand into an exception instance
func (vm *VM) makeException(v Value) (*PyException, error) {
	switch x := v.(type) {
	case *PyException:
		return x, nil
	case *Type:
		if !IsSubType(x, BaseExceptionType) {
			return nil, vm.RaiseTypeError("exceptions must derive from BaseException")
		}
		inst, err := typeCall(vm, x, nil, nil)
		if err != nil {
			return nil, err
		}
		exc, ok := inst.(*PyException)
		if !ok {
			return nil, Fatal("instantiating %s produced %s", x.Name, TypeName(inst))
		}
		return exc, nil
	default:
		return nil, vm.RaiseTypeError("exceptions must derive from BaseException")
	}
}
