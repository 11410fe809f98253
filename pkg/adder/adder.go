// Package adder provides a public API for embedding the adder Python
// bytecode interpreter in Go applications.
//
// The interpreter consumes compiled CPython modules (.pyc files); there is
// no source compiler in this module.
//
//	state := adder.NewState()
//	defer state.Close()
//	state.SetGlobal("greeting", adder.String("hello"))
//	result, err := state.RunFile("module.pyc")
//
// The API shape is inspired by gopher-lua for familiarity.
package adder

import (
	"context"
	"time"

	"github.com/ATSOTECK/adder/internal/config"
	"github.com/ATSOTECK/adder/internal/marshal"
	"github.com/ATSOTECK/adder/internal/runtime"
)

// Value is an opaque Python value held by a State
type Value = runtime.Value

// State is one interpreter instance: a VM plus its globals namespace
type State struct {
	vm     *runtime.VM
	cancel context.CancelFunc
}

// StateOption configures a State at construction
type StateOption func(*stateConfig)

type stateConfig struct {
	limits  config.Limits
	timeout time.Duration
}

// WithLimits applies a limits configuration
func WithLimits(l config.Limits) StateOption {
	return func(c *stateConfig) { c.limits = l }
}

// WithTimeout aborts any Run call after d
func WithTimeout(d time.Duration) StateOption {
	return func(c *stateConfig) { c.timeout = d }
}

// NewState creates a fresh interpreter state
func NewState(opts ...StateOption) *State {
	var cfg stateConfig
	for _, o := range opts {
		o(&cfg)
	}
	vmOpts := []runtime.Option{
		runtime.WithRecursionLimit(cfg.limits.RecursionLimit),
		runtime.WithCheckInterval(cfg.limits.CheckInterval),
	}
	s := &State{}
	timeout := cfg.timeout
	if timeout == 0 && cfg.limits.TimeoutMS > 0 {
		timeout = time.Duration(cfg.limits.TimeoutMS) * time.Millisecond
	}
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		s.cancel = cancel
		vmOpts = append(vmOpts, runtime.WithContext(ctx))
	}
	s.vm = runtime.NewVM(vmOpts...)
	return s
}

// Close releases the state. Further use is undefined.
func (s *State) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.vm = nil
}

// RunCode executes a module-level code object against the state's globals
func (s *State) RunCode(code *runtime.CodeObject) (Value, error) {
	return s.vm.Execute(code)
}

// RunFile loads a compiled module file and executes it
func (s *State) RunFile(path string) (Value, error) {
	code, _, err := marshal.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.vm.Execute(code)
}

// SetGlobal binds a name in the state's globals namespace
func (s *State) SetGlobal(name string, v Value) {
	s.vm.Globals[name] = v
}

// GetGlobal reads a name from the state's globals namespace
func (s *State) GetGlobal(name string) (Value, bool) {
	v, ok := s.vm.Globals[name]
	return v, ok
}

// VM exposes the underlying interpreter for advanced embedding
func (s *State) VM() *runtime.VM { return s.vm }
