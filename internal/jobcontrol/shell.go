package jobcontrol

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/smoynes/idio/internal/sysglue"
	"github.com/smoynes/idio/internal/tty"
)

// Shell owns the state job-control.c keeps in its own process globals
// (idio_job_control_pid/_pgid/_terminal/_tcattrs): the controlling terminal, the shell's own
// process group, and its saved terminal state, plus the Registry of jobs it has launched.
type Shell struct {
	*Registry

	Pid        int
	Pgid       int
	Terminal   *tty.Console
	SavedState *term.State

	sigCh chan os.Signal
	done  chan struct{}
}

// NewShell creates a Shell using console as the controlling terminal, with job notification not
// yet interactive -- call [Shell.SetInteractive] to claim the terminal (idio_init_job_control
// followed by idio_job_control_set_interactive).
func NewShell(console *tty.Console) *Shell {
	return &Shell{
		Registry: NewRegistry(false),
		Pid:      sysglue.Getpid(),
		Terminal: console,
	}
}

// SetInteractive claims (or releases) the controlling terminal for this shell
// (idio_job_control_set_interactive). Claiming loops sending itself SIGTTIN until it is in the
// terminal's foreground process group -- which, started from an interactive parent shell, it
// already should be -- gives up after a few attempts the way the original does, puts itself in
// its own process group, ignores the job-control signals a foreground shell must not be stopped
// or interrupted by, and takes ownership of the terminal.
func (s *Shell) SetInteractive(interactive bool) error {
	s.Interactive = interactive

	if !interactive {
		return nil
	}

	for attempt := 0; ; attempt++ {
		fg, err := s.Terminal.ForegroundPgrp()
		if err != nil {
			return err
		}

		pgrp := sysglue.Getpgrp()
		if fg == pgrp {
			break
		}

		if attempt > 2 {
			os.Exit(128 + int(syscall.SIGTERM))
		}

		if err := sysglue.Kill(-pgrp, syscall.SIGTTIN); err != nil {
			return errors.Wrap(err, "jobcontrol: kill SIGTTIN")
		}
	}

	signal.Ignore(syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU)

	s.Pgid = s.Pid

	if err := sysglue.Setpgid(s.Pgid, s.Pgid); err != nil {
		return errors.Wrap(err, "jobcontrol: setpgid")
	}

	if err := s.Terminal.SetForegroundPgrp(s.Pgid); err != nil {
		return err
	}

	saved, err := s.Terminal.State()
	if err != nil {
		return err
	}

	s.SavedState = saved

	return nil
}

// WatchSignals starts a goroutine bridging SIGCHLD to [Registry.DoJobNotification] and SIGHUP to
// hanging up every tracked job (idio_job_control_SIGCHLD_signal_handler,
// idio_job_control_SIGHUP_signal_handler). Call the returned stop function to tear it down.
func (s *Shell) WatchSignals() (stop func()) {
	s.sigCh = make(chan os.Signal, 4)
	s.done = make(chan struct{})

	signal.Notify(s.sigCh, syscall.SIGCHLD, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-s.done:
				return
			case sig := <-s.sigCh:
				switch sig {
				case syscall.SIGCHLD:
					s.DoJobNotification()
				case syscall.SIGHUP:
					s.hangupAll()
				}
			}
		}
	}()

	return func() {
		signal.Stop(s.sigCh)
		close(s.done)
	}
}

func (s *Shell) hangupAll() {
	for _, job := range s.Jobs() {
		HangupJob(job)
	}
}

// Close restores the shell's terminal state, reports any still-outstanding jobs, and hangs them
// up (idio_final_job_control).
func (s *Shell) Close() {
	if s.Interactive {
		_ = s.Terminal.Restore(s.SavedState)
	}

	s.Interactive = false
	s.DoJobNotification()
	s.hangupAll()
}
