package vm

import (
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/continuation"
	"github.com/smoynes/idio/internal/value"
)

// RegisterCoreForms installs the primitives the compiler's generated code depends on directly
// (rather than through a module import), mirroring how the original core predefines call/cc as
// part of the VM's own primitive table rather than as library code (spec.md §4.4 "call/cc").
func (rt *Runtime) RegisterCoreForms() {
	rt.DefinePrimitive("call/cc", 1, false,
		"invoke proc with the current continuation, captured as a full, non-delimited escape procedure",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			k := continuation.New(rt.Heap, th.PC, th.Unit, th.Stack, th.Frame, th.Module, th.Environ,
				th.Holes, false)

			return Apply(rt, th, args[0], []value.Value{k})
		})

	rt.DefinePrimitive("apply", 2, true,
		"call proc with args, the last of which must be a list supplying the remaining arguments",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			rest, _ := container.Slice(rt.Heap, args[len(args)-1])
			final := append(append([]value.Value{}, args[1:len(args)-1]...), rest...)

			return Apply(rt, th, args[0], final)
		})
}
