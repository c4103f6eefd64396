package jobcontrol

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"

	"github.com/smoynes/idio/internal/sysglue"
)

// Launch starts every process in job, connecting stage N's stdout to stage N+1's stdin with a
// pipe, the way %launch-job/%launch-pipeline's shared idio_job_control_launch_job does. foreground
// controls whether the new process group is given the terminal as it starts (avoiding the
// separate setpgid/tcsetpgrp race the original closes with a synchronization pipe -- see
// [sysglue.ProcessGroupAttr]).
//
// Once every stage has started, Launch waits for or backgrounds the job exactly as
// idio_job_control_launch_job does: non-interactively it always waits; interactively it
// foregrounds or backgrounds job per the foreground argument.
func (s *Shell) Launch(job *Job, foreground bool) error {
	if len(job.Procs) == 0 {
		return nil
	}

	jobStdin := fdOrDefault(job.Stdin, os.Stdin)
	jobStdout := fdOrDefault(job.Stdout, os.Stdout)

	// stageIn is the read end this stage inherits as stdin; it is either the job's own stdin
	// (stage 0) or the previous stage's pipe read end.
	stageIn := jobStdin

	for i, proc := range job.Procs {
		path, err := exec.LookPath(proc.Argv[0])
		if err != nil {
			return &ExecError{Argv: proc.Argv, Errno: syscall.ENOENT}
		}

		last := i == len(job.Procs)-1

		var (
			stageOut                *os.File
			nextIn, thisStageWriter *os.File
		)

		if last {
			stageOut = jobStdout
		} else {
			r, w, perr := sysglue.Pipe()
			if perr != nil {
				return errors.Wrap(perr, "jobcontrol: pipe")
			}

			stageOut, thisStageWriter, nextIn = w, w, r
		}

		ctty := 0
		if s.Terminal != nil {
			ctty = s.Terminal.Fd()
		}

		cmd := &exec.Cmd{
			Path:   path,
			Args:   proc.Argv,
			Stdin:  stageIn,
			Stdout: stageOut,
			Stderr: fdOrDefault(job.Stderr, os.Stderr),
			SysProcAttr: sysglue.ProcessGroupAttr(job.Pgid,
				s.Interactive && foreground, ctty),
		}

		if err := cmd.Start(); err != nil {
			return errors.Wrapf(err, "jobcontrol: fork/exec %s", proc.Argv[0])
		}

		proc.Pid = cmd.Process.Pid

		if s.Interactive && job.Pgid == 0 {
			job.Pgid = proc.Pid
			cmd.SysProcAttr.Pgid = job.Pgid
		}

		// The child has its own copy of every descriptor it needs; the parent's copies of
		// this stage's pipe ends (but never the job's own stdin/stdout) are now redundant.
		if stageIn != jobStdin {
			_ = stageIn.Close()
		}

		if thisStageWriter != nil {
			_ = thisStageWriter.Close()
		}

		stageIn = nextIn

		// Status comes via SIGCHLD/WaitAny; cmd.Wait is not called, as it would reap the child.
	}

	s.Add(job)

	if !s.Interactive {
		return s.WaitForJob(job)
	}

	if foreground {
		return s.ForegroundJob(job, false)
	}

	return s.BackgroundJob(job, false)
}

func fdOrDefault(fd *int, def *os.File) *os.File {
	if fd == nil {
		return def
	}

	return os.NewFile(uintptr(*fd), "")
}
