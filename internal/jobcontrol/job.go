package jobcontrol

import (
	"fmt"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/smoynes/idio/internal/sysglue"
)

// Process is one command in a pipeline (IDIO_PROCESS_TYPE_* in job-control.c: argv, pid,
// completed, stopped, status).
type Process struct {
	Argv      []string
	Pid       int
	Completed bool
	Stopped   bool
	Status    sysglue.WaitStatus
	hasStatus bool
}

func (p *Process) String() string { return strings.Join(p.Argv, " ") }

// Job is a pipeline of Processes launched, waited on, and foregrounded/backgrounded as a unit
// (IDIO_JOB_TYPE_* in job-control.c).
type Job struct {
	Pipeline []string // one string per pipeline stage, for display (job-control.c's "pipeline" field)
	Procs    []*Process
	Pgid     int
	Notified bool
	Raised   bool

	Stdin, Stdout, Stderr *int // file descriptors; nil means "inherit this job's default"

	// TCAttrs is the job's own saved terminal state, captured the first time it is
	// foregrounded and restored the next time it is continued (job-control.c's "tcattrs"
	// field).
	TCAttrs *term.State

	mu sync.Mutex
}

// NewJob builds a Job for a pipeline of commands, one []string argv per stage, mirroring
// %launch-pipeline's construction of the process list (job-control.c lines 1628-1677).
func NewJob(stages [][]string) *Job {
	job := &Job{
		Pipeline: make([]string, len(stages)),
		Procs:    make([]*Process, len(stages)),
	}

	for i, argv := range stages {
		job.Pipeline[i] = strings.Join(argv, " ")
		job.Procs[i] = &Process{Argv: argv, Pid: -1}
	}

	return job
}

// IsStopped reports whether every process in job is either stopped or completed
// (idio_job_control_job_is_stopped).
func (j *Job) IsStopped() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, p := range j.Procs {
		if !p.Completed && !p.Stopped {
			return false
		}
	}

	return true
}

// IsCompleted reports whether every process in job has completed (idio_job_control_job_is_completed).
func (j *Job) IsCompleted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, p := range j.Procs {
		if !p.Completed {
			return false
		}
	}

	return true
}

// Failed reports whether job completed with any process exiting non-zero or dying from a signal
// (idio_job_control_job_failed).
func (j *Job) Failed() bool {
	if !j.IsCompleted() {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, p := range j.Procs {
		if !p.hasStatus {
			continue
		}

		if p.Status.Exited() && p.Status.ExitStatus() != 0 {
			return true
		}

		if p.Status.Signaled() {
			return true
		}
	}

	return false
}

// Successful reports job's overall success, the inverted-sense boolean job-status returns in
// job-control.c ("Note that this is the inverse behaviour you might expect").
func (j *Job) Successful() bool { return !j.Failed() }

// DetailKind and Detail describe how job finished, mirroring idio_job_control_job_detail's
// ('exit N) / ('killed SIG) result.
type DetailKind int

const (
	DetailExit DetailKind = iota
	DetailKilled
)

type Detail struct {
	Kind  DetailKind
	Value int // exit status, or signal number
}

// Detail reports the first non-default completion reason among job's processes, or a clean exit
// if job exited normally throughout (idio_job_control_job_detail).
func (j *Job) Detail() Detail {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, p := range j.Procs {
		if !p.hasStatus {
			continue
		}

		if p.Status.Exited() && p.Status.ExitStatus() != 0 {
			return Detail{Kind: DetailExit, Value: p.Status.ExitStatus()}
		}

		if p.Status.Signaled() {
			return Detail{Kind: DetailKilled, Value: int(p.Status.Signal())}
		}
	}

	return Detail{Kind: DetailExit, Value: 0}
}

// markProcessStatus records status against whichever of job's processes has pid, mirroring
// idio_job_control_mark_process_status's per-job scan. It reports whether pid belonged to this
// job.
func (j *Job) markProcessStatus(pid int, status sysglue.WaitStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, p := range j.Procs {
		if p.Pid != pid {
			continue
		}

		p.Status = status
		p.hasStatus = true

		if status.Stopped() {
			p.Stopped = true
		} else {
			p.Completed = true
			if status.Signaled() {
				fmt.Printf("Job Terminated: kill -%s %d: %s\n",
					sysglue.SignalName(int(status.Signal())), pid, j.describe())
			}
		}

		return true
	}

	return false
}

func (j *Job) describe() string { return strings.Join(j.Pipeline, " | ") }

// MarkAsRunning clears every process's stopped flag and job's notified flag
// (idio_job_control_mark_job_as_running), the first step of resuming a stopped job.
func (j *Job) MarkAsRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, p := range j.Procs {
		p.Stopped = false
	}

	j.Notified = false
}

// ErrJobFailed is returned by [Registry.WaitForJob] the first time a job is observed to have
// failed, mirroring idio_job_control_wait_for_job's ^rt-command-status-error raise (only once per
// job: job-control.c's "Raised" field prevents a second report on a later wait).
type ErrJobFailed struct {
	Job    *Job
	Detail Detail
}

func (e *ErrJobFailed) Error() string {
	switch e.Detail.Kind {
	case DetailKilled:
		return fmt.Sprintf("job failed: %s: killed by signal %d (%s)", e.Job.describe(), e.Detail.Value,
			sysglue.SignalName(e.Detail.Value))
	default:
		return fmt.Sprintf("job failed: %s: exit %d", e.Job.describe(), e.Detail.Value)
	}
}

// ExecError reports a failed execve, mirroring idio_job_control_error_exec / ^rt-command-exec-error.
type ExecError struct {
	Argv  []string
	Errno syscall.Errno
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec: %s: %s", strings.Join(e.Argv, " "), e.Errno)
}

func (e *ExecError) Unwrap() error { return e.Errno }
