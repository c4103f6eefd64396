package sysglue

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NSig is the highest standard (non-realtime) POSIX signal number this table names, mirroring
// IDIO_LIBC_NSIG (libc-wrap.c).
const NSig = 31

// signalNames mirrors idio_libc_set_signal_names's table: the symbolic C name for each signal,
// keyed by number. The original builds this at runtime from <signal.h>'s SIG* macros; Go has no
// portable way to enumerate those, so this is the fixed POSIX.1 + common extensions list shared
// by every target platform of this port.
var signalNames = map[int]string{
	int(unix.SIGHUP):    "SIGHUP",
	int(unix.SIGINT):    "SIGINT",
	int(unix.SIGQUIT):   "SIGQUIT",
	int(unix.SIGILL):    "SIGILL",
	int(unix.SIGTRAP):   "SIGTRAP",
	int(unix.SIGABRT):   "SIGABRT",
	int(unix.SIGBUS):    "SIGBUS",
	int(unix.SIGFPE):    "SIGFPE",
	int(unix.SIGKILL):   "SIGKILL",
	int(unix.SIGUSR1):   "SIGUSR1",
	int(unix.SIGSEGV):   "SIGSEGV",
	int(unix.SIGUSR2):   "SIGUSR2",
	int(unix.SIGPIPE):   "SIGPIPE",
	int(unix.SIGALRM):   "SIGALRM",
	int(unix.SIGTERM):   "SIGTERM",
	int(unix.SIGCHLD):   "SIGCHLD",
	int(unix.SIGCONT):   "SIGCONT",
	int(unix.SIGSTOP):   "SIGSTOP",
	int(unix.SIGTSTP):   "SIGTSTP",
	int(unix.SIGTTIN):   "SIGTTIN",
	int(unix.SIGTTOU):   "SIGTTOU",
	int(unix.SIGURG):    "SIGURG",
	int(unix.SIGXCPU):   "SIGXCPU",
	int(unix.SIGXFSZ):   "SIGXFSZ",
	int(unix.SIGVTALRM): "SIGVTALRM",
	int(unix.SIGPROF):   "SIGPROF",
	int(unix.SIGWINCH):  "SIGWINCH",
	int(unix.SIGIO):     "SIGIO",
	int(unix.SIGSYS):    "SIGSYS",
}

// SignalName returns the symbolic C name of signum ("signal-name" in libc-wrap.c), falling back
// to "SIG%d" for an unrecognized or real-time signal number.
func SignalName(signum int) string {
	if name, ok := signalNames[signum]; ok {
		return name
	}

	return fmt.Sprintf("SIG%d", signum)
}

// SignalNames returns every (number, name) pair this table knows about, for the equivalent of
// libc-wrap.c's signal-names primitive.
func SignalNames() map[int]string {
	out := make(map[int]string, len(signalNames))
	for num, name := range signalNames {
		out[num] = name
	}

	return out
}
