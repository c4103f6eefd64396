// Package vm implements the byte-code virtual machine: threads, frames, closures, the three
// parallel global-value tables, module symbol tables, and the instruction executor (spec.md §3.4,
// §4.2). Instructions are decoded from a bytecode.CodeUnit and dispatched through the same
// fetch/decode/execute cycle and operation-interface staging as a hardware CPU simulator, adapted
// to a stack machine: there is no memory-mapped addressable/fetchable/storable staging here
// because this VM has no separate memory bus, only a single operand/control stack per thread.
package vm
