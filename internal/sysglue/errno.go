package sysglue

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errnoNames mirrors idio_libc_set_errno_names's table (libc-wrap.c): the symbolic C name for
// every errno this platform defines, keyed by its numeric value. Unlike the original, which
// builds the table at startup by probing strerror(3) for duplicates, Go has no portable way to
// enumerate "every errno the kernel headers define", so this is a fixed table of the POSIX.1
// codes every target platform of this port shares.
var errnoNames = map[unix.Errno]string{
	unix.EPERM:   "EPERM",
	unix.ENOENT:  "ENOENT",
	unix.ESRCH:   "ESRCH",
	unix.EINTR:   "EINTR",
	unix.EIO:     "EIO",
	unix.ENXIO:   "ENXIO",
	unix.E2BIG:   "E2BIG",
	unix.ENOEXEC: "ENOEXEC",
	unix.EBADF:   "EBADF",
	unix.ECHILD:  "ECHILD",
	unix.EAGAIN:  "EAGAIN",
	unix.ENOMEM:  "ENOMEM",
	unix.EACCES:  "EACCES",
	unix.EFAULT:  "EFAULT",
	unix.EBUSY:   "EBUSY",
	unix.EEXIST:  "EEXIST",
	unix.EXDEV:   "EXDEV",
	unix.ENODEV:  "ENODEV",
	unix.ENOTDIR: "ENOTDIR",
	unix.EISDIR:  "EISDIR",
	unix.EINVAL:  "EINVAL",
	unix.ENFILE:  "ENFILE",
	unix.EMFILE:  "EMFILE",
	unix.ENOTTY:  "ENOTTY",
	unix.ETXTBSY: "ETXTBSY",
	unix.EFBIG:   "EFBIG",
	unix.ENOSPC:  "ENOSPC",
	unix.ESPIPE:  "ESPIPE",
	unix.EROFS:   "EROFS",
	unix.EMLINK:  "EMLINK",
	unix.EPIPE:   "EPIPE",
	unix.EDOM:    "EDOM",
	unix.ERANGE:  "ERANGE",
	unix.EDEADLK: "EDEADLK",
	unix.ENAMETOOLONG: "ENAMETOOLONG",
	unix.ENOLCK:       "ENOLCK",
	unix.ENOSYS:       "ENOSYS",
	unix.ENOTEMPTY:    "ENOTEMPTY",
	unix.ELOOP:        "ELOOP",
	unix.ENOMSG:       "ENOMSG",
	unix.EOVERFLOW:    "EOVERFLOW",
	unix.ENOTSOCK:     "ENOTSOCK",
	unix.ECONNRESET:   "ECONNRESET",
	unix.ECONNREFUSED: "ECONNREFUSED",
	unix.ETIMEDOUT:    "ETIMEDOUT",
	unix.EALREADY:     "EALREADY",
	unix.EINPROGRESS:  "EINPROGRESS",
}

// ErrnoName returns the symbolic C name of err's underlying errno, ("errno-name" in libc-wrap.c),
// or "" if err does not wrap a recognized unix.Errno.
func ErrnoName(err error) string {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return ""
	}

	if name, ok := errnoNames[errno]; ok {
		return name
	}

	return ""
}

// ErrnoNames returns every (number, name) pair this table knows about, for the equivalent of
// libc-wrap.c's errno-names primitive.
func ErrnoNames() map[int]string {
	out := make(map[int]string, len(errnoNames))
	for errno, name := range errnoNames {
		out[int(errno)] = name
	}

	return out
}

// Errno extracts the underlying unix.Errno from err, if any.
func Errno(err error) (unix.Errno, bool) {
	var errno unix.Errno
	ok := errors.As(err, &errno)

	return errno, ok
}
