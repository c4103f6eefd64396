package sysglue

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pipe creates a pipe, returning the read and write ends as *os.File so callers (internal/jobcontrol's
// pipeline launcher) can hand them straight to exec.Cmd.Stdin/Stdout.
func Pipe() (r, w *os.File, err error) {
	r, w, err = os.Pipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, "sysglue: pipe")
	}

	return r, w, nil
}

// ProcessGroupAttr builds the *syscall.SysProcAttr a pipeline launcher attaches to each
// exec.Cmd: put the new process in process group pgid (creating one, when pgid is 0, from the
// child's own pid — setpgid(0,0)) and, if foreground, hand the child the controlling terminal in
// the same fork+exec window the kernel gives os/exec, avoiding the separate-syscall race
// idio_job_control_prep_process takes a synchronization pipe to close (job-control.c lines
// 1461-1502): os/exec applies Setpgid/Foreground/Ctty before the traced exec, atomically from the
// shell's point of view.
func ProcessGroupAttr(pgid int, foreground bool, ctty int) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:    true,
		Pgid:       pgid,
		Foreground: foreground,
		Ctty:       ctty,
	}
}

// Getpid, Getpgrp and Getpgid wrap the identically named syscalls (job-control.c uses getpid(),
// getpgrp(), and getpgid() throughout initialization and process bookkeeping).
func Getpid() int  { return unix.Getpid() }
func Getpgrp() int { return unix.Getpgrp() }

func Getpgid(pid int) (int, error) { return unix.Getpgid(pid) }

// Getppid, Getuid, Getgid and Getgroups wrap the identically named syscalls, used by the CLI entry
// point to expose pid/ppid/uid/gid/groups as toplevel bindings (libc-wrap.c installs the same
// family as Idio primitives).
func Getppid() int { return unix.Getppid() }
func Getuid() int  { return unix.Getuid() }
func Getgid() int  { return unix.Getgid() }

func Getgroups() ([]int, error) { return unix.Getgroups() }

// Setpgid puts pid into process group pgid (idio_job_control_prep_process's setpgid call, made
// redundantly by both parent and child to close the race window the kernel itself doesn't).
func Setpgid(pid, pgid int) error { return unix.Setpgid(pid, pgid) }

// Kill sends signal sig to pid, or to every process in the process group -pid when pid is
// negative -- exactly os/x/sys/unix's own semantics, matching kill(-job_pgid, SIGCONT) etc.
// throughout job-control.c.
func Kill(pid int, sig syscall.Signal) error { return unix.Kill(pid, sig) }

// TcGetPgrp and TcSetPgrp read and write the foreground process group of the controlling terminal
// given by fd (tcgetpgrp(3)/tcsetpgrp(3), used throughout job-control.c's foreground/background
// handoff). Go's x/sys/unix has no direct wrapper for either, so both go through the TIOCGPGRP/
// TIOCSPGRP ioctls tcsetpgrp/tcgetpgrp are themselves implemented with on Linux and BSD.
func TcGetPgrp(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCGPGRP)
}

func TcSetPgrp(fd int, pgid int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
}

// WaitStatus is the decoded status a wait call reports for one child, mirroring the
// WIFEXITED/WIFSIGNALED/WIFSTOPPED family of macros job-control.c tests throughout
// idio_job_control_mark_process_status and idio_job_control_job_detail.
type WaitStatus struct {
	raw unix.WaitStatus
}

func (s WaitStatus) Exited() bool       { return s.raw.Exited() }
func (s WaitStatus) ExitStatus() int    { return s.raw.ExitStatus() }
func (s WaitStatus) Signaled() bool     { return s.raw.Signaled() }
func (s WaitStatus) Signal() syscall.Signal { return s.raw.Signal() }
func (s WaitStatus) Stopped() bool      { return s.raw.Stopped() }
func (s WaitStatus) StopSignal() syscall.Signal { return s.raw.StopSignal() }

// WaitAny is the moral equivalent of job-control.c's "waitpid(WAIT_ANY, &status, WUNTRACED |
// flags)": it reports the next status change from any child of this process, optionally
// non-blocking. pid is 0 (only with nonblocking: children exist but none has a status change to
// report) or the reporting child's pid; err wraps ECHILD the same way the original's mark_process_status
// special-cases it.
func WaitAny(nonblocking bool) (pid int, status WaitStatus, err error) {
	options := unix.WUNTRACED
	if nonblocking {
		options |= unix.WNOHANG
	}

	var ws unix.WaitStatus

	pid, err = unix.Wait4(-1, &ws, options, nil)
	if err != nil {
		return pid, WaitStatus{raw: ws}, errors.Wrap(err, "sysglue: wait4")
	}

	return pid, WaitStatus{raw: ws}, nil
}

// IsNoChildren reports whether err is ECHILD -- "no processes to report" in
// idio_job_control_mark_process_status -- rather than a genuine wait(2) failure.
func IsNoChildren(err error) bool {
	errno, ok := Errno(err)
	return ok && errno == unix.ECHILD
}
