package jobcontrol

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/smoynes/idio/internal/sysglue"
)

var defaultOutput io.Writer = os.Stderr

// Registry is the process-wide job list and notification state, replacing job-control.c's module
// globals (idio_job_control_jobs_sym / "%idio-jobs", idio_job_control_last_job) with an owning
// struct along the same lines [vm.Runtime] replaces the VM's own process globals.
type Registry struct {
	Interactive bool
	Output      io.Writer // where job-status lines are printed; nil means os.Stderr

	mu      sync.Mutex
	jobs    []*Job
	lastJob *Job
}

// NewRegistry creates an empty job registry. interactive controls whether job-status lines are
// printed at all (idio_job_control_format_job_info checks idio_job_control_interactive first).
func NewRegistry(interactive bool) *Registry {
	return &Registry{Interactive: interactive}
}

// Add registers job as running, replacing the last-job pointer (job-control.c's idio_pair onto
// %idio-jobs plus the %%last-job set, done together in launch_1proc_job and %launch-pipeline).
func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = append(r.jobs, job)
	r.lastJob = job
}

// Jobs returns a snapshot of the currently-tracked jobs.
func (r *Registry) Jobs() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Job, len(r.jobs))
	copy(out, r.jobs)

	return out
}

// LastJob returns the most recently added job, or nil.
func (r *Registry) LastJob() *Job { return r.lastJob }

// MarkProcessStatus records a wait(2) result against whichever tracked job owns pid
// (idio_job_control_mark_process_status). It reports whether pid belonged to a known job.
func (r *Registry) MarkProcessStatus(pid int, status sysglue.WaitStatus) bool {
	for _, job := range r.Jobs() {
		if job.markProcessStatus(pid, status) {
			return true
		}
	}

	return false
}

// UpdateStatus drains every outstanding, non-blocking child-status change
// (idio_job_control_update_status's WNOHANG loop).
func (r *Registry) UpdateStatus() {
	for {
		pid, status, err := sysglue.WaitAny(true)
		if err != nil || pid <= 0 {
			return
		}

		if !r.MarkProcessStatus(pid, status) {
			return
		}
	}
}

// WaitForJob blocks until job is stopped or completed, updating every process's status as reports
// arrive (idio_job_control_wait_for_job). It returns [ErrJobFailed] the first time job is
// observed to have failed.
func (r *Registry) WaitForJob(job *Job) error {
	for {
		pid, status, err := sysglue.WaitAny(false)
		if err != nil {
			if sysglue.IsNoChildren(err) {
				break
			}

			return errors.Wrap(err, "jobcontrol: waitpid")
		}

		r.MarkProcessStatus(pid, status)

		if job.IsStopped() || job.IsCompleted() {
			break
		}
	}

	if job.Failed() {
		job.mu.Lock()
		alreadyRaised := job.Raised
		job.Raised = true
		job.mu.Unlock()

		if !alreadyRaised {
			return &ErrJobFailed{Job: job, Detail: job.Detail()}
		}
	}

	return nil
}

// DoJobNotification reports completed and newly-stopped jobs and drops completed ones from the
// registry (idio_job_control_do_job_notification): "Scheduling the failed-jobs code here...
// breaks the stack in hard to debug ways. Leave it in Idio-land" -- so, as in the original, this
// only reports; raising on failure is WaitForJob's job, called separately by whoever is
// foregrounding the job.
func (r *Registry) DoJobNotification() {
	r.UpdateStatus()

	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.jobs[:0]

	for _, job := range r.jobs {
		switch {
		case job.IsCompleted():
			r.formatJobInfo(job, "completed")
		case job.IsStopped():
			job.mu.Lock()
			notified := job.Notified
			job.Notified = true
			job.mu.Unlock()

			if !notified {
				r.formatJobInfo(job, "stopped")
			}

			remaining = append(remaining, job)
		default:
			remaining = append(remaining, job)
		}
	}

	r.jobs = remaining
}

// FormatJobInfo prints msg alongside job's pgid and pipeline, when interactive
// (idio_job_control_format_job_info).
func (r *Registry) FormatJobInfo(job *Job, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.formatJobInfo(job, msg)
}

func (r *Registry) formatJobInfo(job *Job, msg string) {
	if !r.Interactive {
		return
	}

	out := r.Output
	if out == nil {
		out = defaultOutput
	}

	fmt.Fprintf(out, "job %5d (%s): %s\n", job.Pgid, msg, job.describe())
}
