package runtime

import (
	"context"
	"io"
	"os"
)

// DefaultRecursionLimit bounds nested calls and the __instancecheck__/
// __subclasscheck__ recursion.
const DefaultRecursionLimit = 1000

// defaultCheckInterval is how many instructions run between context checks
const defaultCheckInterval = 1024

// VM hosts evaluation: globals, builtins, recursion accounting and the
// cancellation context. Types and their slot tables are process-wide;
// everything on the VM itself belongs to one interpreter instance.
type VM struct {
	Globals  map[string]Value
	Stdout   io.Writer
	builtins map[string]Value

	ctx           context.Context
	checkCounter  int
	checkInterval int

	recursionLimit int
	depth          int
	dunderDepth    int
}

// Option configures a VM at construction
type Option func(*VM)

// WithContext attaches a cancellation context, checked between opcode
// dispatches.
func WithContext(ctx context.Context) Option {
	return func(vm *VM) { vm.ctx = ctx }
}

// WithRecursionLimit overrides the default recursion limit
func WithRecursionLimit(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.recursionLimit = n
		}
	}
}

// WithCheckInterval overrides how many instructions run between
// cancellation checks.
func WithCheckInterval(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.checkInterval = n
		}
	}
}

// WithStdout redirects print output
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.Stdout = w }
}

// NewVM creates an interpreter with a fresh globals namespace and the
// default builtins.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		Globals:        make(map[string]Value),
		Stdout:         os.Stdout,
		recursionLimit: DefaultRecursionLimit,
		checkInterval:  defaultCheckInterval,
	}
	vm.checkCounter = vm.checkInterval
	vm.builtins = defaultBuiltins()
	for _, o := range opts {
		o(vm)
	}
	return vm
}

// Builtins exposes the default builtins namespace
func (vm *VM) Builtins() map[string]Value { return vm.builtins }

// Execute runs a module-level code object against the VM's globals
func (vm *VM) Execute(code *CodeObject) (Value, error) {
	return vm.RunCode(code, vm.Globals)
}

// enterCall charges one level of call depth
func (vm *VM) enterCall() error {
	vm.depth++
	if vm.depth > vm.recursionLimit {
		vm.depth--
		return vm.Raise(RecursionErrorType, "maximum recursion depth exceeded")
	}
	return nil
}

func (vm *VM) leaveCall() { vm.depth-- }

// enterRecursive guards recursion through __instancecheck__ and
// __subclasscheck__, which can loop through user code.
func (vm *VM) enterRecursive(what string) error {
	vm.dunderDepth++
	if vm.dunderDepth > vm.recursionLimit {
		vm.dunderDepth--
		return vm.Raise(RecursionErrorType, "maximum recursion depth exceeded while calling a Python object (%s)", what)
	}
	return nil
}

func (vm *VM) leaveRecursive() { vm.dunderDepth-- }

// checkInterrupt polls the cancellation context. Called only between opcode
// dispatches, never inside one.
func (vm *VM) checkInterrupt() error {
	if vm.ctx == nil {
		return nil
	}
	vm.checkCounter--
	if vm.checkCounter > 0 {
		return nil
	}
	vm.checkCounter = vm.checkInterval
	select {
	case <-vm.ctx.Done():
		return &InterpreterError{Msg: "execution cancelled", Err: vm.ctx.Err()}
	default:
		return nil
	}
}
