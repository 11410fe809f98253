package runtime

import "fmt"

// PyFunction is a code object closed over globals, defaults and cells.
// The argument parser is materialized once, at construction, from the
// code's layout and the function's defaults.
type PyFunction struct {
	Code        *CodeObject
	Globals     map[string]Value
	Builtins    map[string]Value
	Defaults    []Value
	KwDefaults  map[string]Value
	Annotations map[string]Value
	Closure     []*PyCell
	Name        string
	Qualname    string
	Dict        map[string]Value

	parser argParser
}

func (f *PyFunction) PyType() *Type { return FunctionType }

// NewFunction builds a function value. Builtins are derived from the
// globals mapping's __builtins__ entry when present, else from the VM's
// default builtins.
func NewFunction(vm *VM, code *CodeObject, globals map[string]Value, qualname string) *PyFunction {
	builtins := vm.builtins
	if b, ok := globals["__builtins__"]; ok {
		if m, ok := b.(*PyModule); ok {
			builtins = m.Dict
		}
	}
	if qualname == "" {
		qualname = code.Qualname
	}
	f := &PyFunction{
		Code:     code,
		Globals:  globals,
		Builtins: builtins,
		Name:     code.Name,
		Qualname: qualname,
	}
	f.parser = makeArgParser(code)
	return f
}

// argParser is the materialized argument-binding plan for one code object
type argParser struct {
	code       *CodeObject
	posNames   []string // positional parameter names, including pos-only
	kwNames    []string // keyword-only parameter names
	varArgs    bool
	varKw      bool
	varArgsIdx int // fast-local slot of *args
	varKwIdx   int // fast-local slot of **kwargs
}

func makeArgParser(code *CodeObject) argParser {
	p := argParser{
		code:    code,
		varArgs: code.Flags&FlagVarArgs != 0,
		varKw:   code.Flags&FlagVarKeywords != 0,
	}
	params := code.ParamNames()
	p.posNames = params[:code.Argcount]
	i := code.Argcount
	if p.varArgs {
		p.varArgsIdx = i
		i++
	}
	p.kwNames = params[i : i+code.Kwonlyargcount]
	i += code.Kwonlyargcount
	if p.varKw {
		p.varKwIdx = i
	}
	return p
}

// bind fills a frame's fast locals from call arguments, applying defaults,
// keyword-only defaults, *args and **kwargs. Error messages follow the
// interpreter's fixed templates.
func (p *argParser) bind(vm *VM, fn *PyFunction, f *Frame, args []Value, kwargs map[string]Value) error {
	code := p.code
	n := len(args)
	npos := code.Argcount

	// Positional arguments into their slots
	bound := n
	if bound > npos {
		bound = npos
	}
	for i := 0; i < bound; i++ {
		f.Fast[i] = args[i]
	}

	// Excess positionals go to *args or are an error
	if n > npos {
		if !p.varArgs {
			return vm.RaiseTypeError("%s() takes %d positional argument%s but %d %s given",
				fn.Name, npos, plural(npos), n, wasWere(n))
		}
		f.Fast[p.varArgsIdx] = NewTuple(append([]Value(nil), args[npos:]...)...)
	} else if p.varArgs {
		f.Fast[p.varArgsIdx] = NewTuple()
	}

	var kwDict *PyDict
	if p.varKw {
		kwDict = NewDict()
	}

	// Keyword arguments: positional-or-keyword slots, keyword-only slots,
	// then **kwargs
	for name, v := range kwargs {
		idx := -1
		for i, pn := range p.posNames {
			if pn == name {
				if i < code.Posonlyargcount {
					idx = -2
					break
				}
				idx = i
				break
			}
		}
		if idx == -1 {
			for i, kn := range p.kwNames {
				if kn == name {
					idx = npos + boolToInt(p.varArgs) + i
					break
				}
			}
		}
		switch {
		case idx >= 0:
			if f.Fast[idx] != nil {
				return vm.RaiseTypeError("%s() got multiple values for argument '%s'", fn.Name, name)
			}
			f.Fast[idx] = v
		case idx == -2 && !p.varKw:
			return vm.RaiseTypeError("%s() got some positional-only arguments passed as keyword arguments: '%s'",
				fn.Name, name)
		case kwDict != nil:
			if err := kwDict.Set(vm, name, v); err != nil {
				return err
			}
		default:
			return vm.RaiseTypeError("%s() got an unexpected keyword argument '%s'", fn.Name, name)
		}
	}
	if p.varKw {
		f.Fast[p.varKwIdx] = kwDict
	}

	// Defaults for unfilled positionals
	firstDefault := npos - len(fn.Defaults)
	missing := []string{}
	for i := 0; i < npos; i++ {
		if f.Fast[i] != nil {
			continue
		}
		if i >= firstDefault {
			f.Fast[i] = fn.Defaults[i-firstDefault]
			continue
		}
		missing = append(missing, "'"+p.posNames[i]+"'")
	}
	if len(missing) > 0 {
		return vm.RaiseTypeError("%s() missing %d required positional argument%s: %s",
			fn.Name, len(missing), plural(len(missing)), joinAnd(missing))
	}

	// Keyword-only defaults
	kwBase := npos + boolToInt(p.varArgs)
	missing = missing[:0]
	for i, name := range p.kwNames {
		if f.Fast[kwBase+i] != nil {
			continue
		}
		if d, ok := fn.KwDefaults[name]; ok {
			f.Fast[kwBase+i] = d
			continue
		}
		missing = append(missing, "'"+name+"'")
	}
	if len(missing) > 0 {
		return vm.RaiseTypeError("%s() missing %d required keyword-only argument%s: %s",
			fn.Name, len(missing), plural(len(missing)), joinAnd(missing))
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		s := ""
		for i := 0; i < len(items)-1; i++ {
			s += items[i] + ", "
		}
		return s + "and " + items[len(items)-1]
	}
}

// callFunction invokes a Python function: bind arguments, create the frame,
// seed argument cells, and run the evaluation loop.
func (vm *VM) callFunction(fn *PyFunction, args []Value, kwargs map[string]Value) (Value, error) {
	code := fn.Code
	if code.Flags&(FlagGenerator|FlagCoroutine|FlagIterableCoroutine|FlagAsyncGenerator) != 0 {
		return nil, Fatal("generator and coroutine code objects are not supported (%s)", code.Qualname)
	}
	f, err := NewFrame(code, fn.Globals, fn.Builtins, nil, fn.Closure)
	if err != nil {
		return nil, err
	}
	if err := fn.parser.bind(vm, fn, f, args, kwargs); err != nil {
		return nil, err
	}
	f.initCellArgs()
	return vm.evalFrame(f)
}

// RunCode executes a code object at module level: no arguments, the given
// globals as both globals and locals.
func (vm *VM) RunCode(code *CodeObject, globals map[string]Value) (Value, error) {
	if globals == nil {
		globals = vm.Globals
	}
	if _, ok := globals["__builtins__"]; !ok {
		globals["__builtins__"] = &PyModule{Name: "builtins", Dict: vm.builtins}
	}
	f, err := NewFrame(code, globals, vm.builtins, globals, nil)
	if err != nil {
		return nil, err
	}
	return vm.evalFrame(f)
}

func (f *PyFunction) String() string {
	return fmt.Sprintf("<function %s>", f.Qualname)
}
