// Package jobcontrol implements POSIX job control for the shell (spec.md §4.6): pipelines of
// external processes launched as one job, process-group/terminal handoff between foreground and
// background jobs, and the SIGCHLD-driven bookkeeping that keeps job status current.
//
// It is a straightforward port of _examples/original_source/src/job-control.c, itself (per that
// file's own doc comment) "a straight-forward port from the GNU libc info pages: 'Job Control'
// then 'Implementing a Shell'" -- so this package is two steps removed from that chapter, with
// golang.org/x/sys/unix and internal/sysglue standing in for the raw POSIX calls, internal/tty's
// Console standing in for the controlling terminal job-control.c manipulates directly, and
// os/exec's SysProcAttr standing in for the original's own setpgid/tcsetpgrp race-avoidance pipe
// (see [sysglue.ProcessGroupAttr]).
//
// This package has no dependency on internal/vm or internal/condition: job failures are reported
// as plain Go errors ([ErrJobFailed], [ExecError]); a caller that needs them as conditions (a VM
// primitive, or the CLI's top-level error handler) wraps them with the condition registry it
// already holds.
package jobcontrol
