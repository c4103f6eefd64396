// Package tty_test exercises [tty.Console] against the test binary's own standard input.
//
// Most of these checks are skipped when stdin is not a terminal (ErrNoTTY), which is always true
// under "go test" since it redirects standard streams. Run a built test binary directly against a
// real tty to exercise the skipped assertions:
//
//	$ go test -c && ./tty.test
package tty_test

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/tty"
)

func TestOpenNotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	defer r.Close()
	defer w.Close()

	_, err = tty.Open(int(r.Fd()))
	require.ErrorIs(t, err, tty.ErrNoTTY)
}

func TestOpenStdin(t *testing.T) {
	console, err := tty.Open(int(os.Stdin.Fd()))
	if errors.Is(err, tty.ErrNoTTY) {
		t.Skipf("stdin is not a terminal: %s", err)
	}

	require.NoError(t, err)
	require.Equal(t, int(os.Stdin.Fd()), console.Fd())

	state, err := console.State()
	require.NoError(t, err)
	require.NoError(t, console.Restore(state))

	width, height, err := console.Size()
	require.NoError(t, err)
	require.Positive(t, width)
	require.Positive(t, height)

	pgrp, err := console.ForegroundPgrp()
	require.NoError(t, err)
	require.Positive(t, pgrp)
}
