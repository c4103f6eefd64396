package jobcontrol

import (
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/smoynes/idio/internal/sysglue"
)

// ForegroundJob puts job in the foreground: hand it the terminal, optionally send it SIGCONT
// (restoring its own saved terminal state first, if it has one from a previous stop), wait for it
// to stop or complete, then take the terminal back and save/restore terminal state around the
// handoff (idio_job_control_foreground_job).
func (s *Shell) ForegroundJob(job *Job, cont bool) error {
	if err := s.Terminal.SetForegroundPgrp(job.Pgid); err != nil {
		return err
	}

	if cont {
		if err := s.Terminal.Restore(job.TCAttrs); err != nil {
			return err
		}

		if err := sysglue.Kill(-job.Pgid, syscall.SIGCONT); err != nil {
			return errors.Wrap(err, "jobcontrol: kill SIGCONT")
		}
	}

	waitErr := s.WaitForJob(job)

	if err := s.Terminal.SetForegroundPgrp(s.Pgid); err != nil {
		return err
	}

	if saved, err := s.Terminal.State(); err == nil {
		job.TCAttrs = saved
	}

	_ = s.Terminal.Restore(s.SavedState)

	return waitErr
}

// BackgroundJob puts job in the background, optionally sending SIGCONT
// (idio_job_control_background_job). Backgrounding never fails on its own account: any eventual
// failure is reported later, when the job is waited on or notified.
func (s *Shell) BackgroundJob(job *Job, cont bool) error {
	if cont {
		if err := sysglue.Kill(-job.Pgid, syscall.SIGCONT); err != nil {
			return errors.Wrap(err, "jobcontrol: kill SIGCONT")
		}
	}

	return nil
}

// ContinueJob marks job as running again and foregrounds or backgrounds it
// (idio_job_control_continue_job) -- the "fg"/"bg" builtins' shared implementation.
func (s *Shell) ContinueJob(job *Job, foreground bool) error {
	job.MarkAsRunning()

	if foreground {
		return s.ForegroundJob(job, true)
	}

	return s.BackgroundJob(job, true)
}

// HangupJob sends job's process group SIGCONT then SIGHUP, ignoring ESRCH (the group has already
// exited) the way idio_job_control_hangup_job does.
func HangupJob(job *Job) error {
	if job.Pgid == 0 {
		return nil
	}

	if err := sysglue.Kill(-job.Pgid, syscall.SIGCONT); err != nil && !isESRCH(err) {
		return errors.Wrap(err, "jobcontrol: kill SIGCONT")
	}

	if err := sysglue.Kill(-job.Pgid, syscall.SIGHUP); err != nil && !isESRCH(err) {
		return errors.Wrap(err, "jobcontrol: kill SIGHUP")
	}

	return nil
}

func isESRCH(err error) bool {
	errno, ok := sysglue.Errno(err)
	return ok && errno == unix.ESRCH
}
