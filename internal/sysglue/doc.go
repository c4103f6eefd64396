// Package sysglue is the thin POSIX layer internal/jobcontrol is built on: errno and signal
// naming tables, stat-based file-type predicates, and the pipe/fork-group/wait primitives a job
// control implementation needs beyond what os/exec exposes directly (spec.md §4.6, §6.6).
//
// Everything here is grounded on _examples/original_source/src/libc-wrap.c, the C library wrapper
// module the original interpreter used for the same purpose; this package keeps only the slice of
// it job control actually calls, built on golang.org/x/sys/unix rather than cgo.
package sysglue
