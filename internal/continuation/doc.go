// Open question: nested `load` and continuations.
//
// A full continuation captured inside one `load`d file may be invoked after that `load` has
// returned, including from a sibling top-level form loaded afterwards. The original resolves
// this with nested sigsetjmp/siglongjmp buffers, one per `load` level; a Go port has neither
// primitive.
//
// Decision: this port has no `load` driver. Code units from a byte-code image run directly on a
// thread, and nothing pushes entries onto a thread's Holes list, so no `load` boundary is
// recorded anywhere. A continuation copies the thread's Holes slice when captured and restores it,
// together with the stack, frame, module and PC, when invoked (internal/vm Apply); one invoked
// after the code that captured it has finished resumes from that snapshot like any other.
package continuation
