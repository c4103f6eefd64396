package tty

import (
	"errors"
	"fmt"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/smoynes/idio/internal/sysglue"
)

// ErrNoTTY is returned when the requested file descriptor is not a terminal, so job control has no
// controlling tty to take ownership of.
var ErrNoTTY = errors.New("tty: not a terminal")

// Console owns one file descriptor naming a controlling terminal. It is the layer
// [github.com/smoynes/idio/internal/jobcontrol]'s Shell calls directly for terminal state and
// foreground-process-group handoff, itself built on [sysglue]'s raw ioctl/termios wrappers -- the
// same two-layer split as job-control.c sitting on top of libc-wrap.c.
type Console struct {
	fd int
}

// Open wraps fd as a Console, failing with [ErrNoTTY] if fd does not refer to a terminal. The
// interactive-vs-batch check itself is go-isatty's (not golang.org/x/term's IsTerminal), the way
// the CLI entry point decides whether to claim the controlling terminal at all (spec.md §4.6).
func Open(fd int) (*Console, error) {
	if !isatty.IsTerminal(uintptr(fd)) {
		return nil, ErrNoTTY
	}

	return &Console{fd: fd}, nil
}

// Fd returns the underlying file descriptor.
func (c *Console) Fd() int { return c.fd }

// State captures the terminal's current termios settings, to be handed back later via Restore
// (idio_job_control_set_interactive's tcgetattr, job-control.c's per-Job "tcattrs" field).
func (c *Console) State() (*term.State, error) {
	state, err := term.GetState(c.fd)
	if err != nil {
		return nil, fmt.Errorf("tty: tcgetattr: %w", err)
	}

	return state, nil
}

// Restore applies a previously captured State.
func (c *Console) Restore(state *term.State) error {
	if state == nil {
		return nil
	}

	if err := term.Restore(c.fd, state); err != nil {
		return fmt.Errorf("tty: tcsetattr: %w", err)
	}

	return nil
}

// ForegroundPgrp returns the terminal's current foreground process group (tcgetpgrp).
func (c *Console) ForegroundPgrp() (int, error) {
	pgrp, err := sysglue.TcGetPgrp(c.fd)
	if err != nil {
		return 0, fmt.Errorf("tty: tcgetpgrp: %w", err)
	}

	return pgrp, nil
}

// SetForegroundPgrp hands the terminal to pgid (tcsetpgrp) -- the handoff
// idio_job_control_foreground_job/..._background_job perform around launching and waiting for a
// job.
func (c *Console) SetForegroundPgrp(pgid int) error {
	if err := sysglue.TcSetPgrp(c.fd, pgid); err != nil {
		return fmt.Errorf("tty: tcsetpgrp: %w", err)
	}

	return nil
}

// Size reports the terminal's current width and height in character cells (TIOCGWINSZ).
func (c *Console) Size() (width, height int, err error) {
	width, height, err = term.GetSize(c.fd)
	if err != nil {
		return 0, 0, fmt.Errorf("tty: ioctl TIOCGWINSZ: %w", err)
	}

	return width, height, nil
}
