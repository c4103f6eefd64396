// Package tty owns the file descriptor of a shell's controlling terminal: saved/restored terminal
// state and foreground-process-group queries. It plays the same role for the interactive shell
// that the teacher's package of the same name played for the simulator's serial console -- "owns
// the terminal" -- adapted here from "feed a virtual keyboard/display device" to "read and hand
// back the controlling tty's foreground process group and termios state" for
// [github.com/smoynes/idio/internal/jobcontrol].
//
// The teacher's VMIN/VTIME non-blocking-read plumbing and its linux/darwin termios ioctl constants
// are dropped: golang.org/x/term's GetState/Restore/MakeRaw/GetSize already give portable access to
// everything a shell's terminal handling needs, without a build-tagged ioctl number per platform.
package tty
