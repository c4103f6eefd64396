package sysglue

import (
	"os"

	"golang.org/x/sys/unix"
)

// Exists reports whether path names something on disk, following symlinks (libc-wrap.c's "e?").
func Exists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}

// Readable, Writable and Executable report whether the calling process can access path
// accordingly, using the real (not effective) uid/gid, matching access(2)'s semantics and
// libc-wrap.c's "r?"/"w?"/"x?".
func Readable(path string) bool   { return unix.Access(path, unix.R_OK) == nil }
func Writable(path string) bool   { return unix.Access(path, unix.W_OK) == nil }
func Executable(path string) bool { return unix.Access(path, unix.X_OK) == nil }

// IsRegularFile reports whether path is a regular file, following symlinks ("f?").
func IsRegularFile(path string) bool { return statMode(path, false).IsRegular() }

// IsDirectory reports whether path is a directory, following symlinks ("d?").
func IsDirectory(path string) bool { return statMode(path, false).IsDir() }

// IsSymlink reports whether path is itself a symlink, i.e. without following it ("l?").
func IsSymlink(path string) bool { return statMode(path, true)&os.ModeSymlink != 0 }

// IsFIFO reports whether path is a named pipe ("p?").
func IsFIFO(path string) bool { return statMode(path, false)&os.ModeNamedPipe != 0 }

// IsCharDevice reports whether path is a character device ("c?").
func IsCharDevice(path string) bool { return statMode(path, false)&os.ModeCharDevice != 0 }

// IsBlockDevice reports whether path is a block device ("b?").
func IsBlockDevice(path string) bool {
	m := statMode(path, false)
	return m&os.ModeDevice != 0 && m&os.ModeCharDevice == 0
}

// IsSocket reports whether path is a Unix domain socket ("S?").
func IsSocket(path string) bool { return statMode(path, false)&os.ModeSocket != 0 }

// statMode stats (or lstats) path, returning 0 on any error so the predicates above read as plain
// booleans the way the originals return #f rather than raising on, e.g., a dangling symlink.
func statMode(path string, lstat bool) os.FileMode {
	var (
		fi  os.FileInfo
		err error
	)

	if lstat {
		fi, err = os.Lstat(path)
	} else {
		fi, err = os.Stat(path)
	}

	if err != nil {
		return 0
	}

	return fi.Mode()
}
