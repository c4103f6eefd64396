package vm

import (
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/jobcontrol"
	"github.com/smoynes/idio/internal/value"
)

// RegisterJobControl installs the primitive compiled code uses to run pipelines of external
// commands to completion, bound to shell (spec.md §4.6, §5, §7). A pipeline is a list of stages;
// each stage is a list of strings, its argv. Job control itself (internal/jobcontrol) knows
// nothing of the VM; this is the one place the two are wired together.
func (rt *Runtime) RegisterJobControl(shell *jobcontrol.Shell) {
	rt.DefinePrimitive("%run-pipeline", 1, false,
		"run a pipeline of external commands, given as a list of argv lists, to completion",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			stages, err := pipelineArgv(rt.Heap, args[0])
			if err != nil {
				return value.Nil, err
			}

			job := jobcontrol.NewJob(stages)

			if err := shell.Launch(job, true); err != nil {
				if _, failed := err.(*jobcontrol.ErrJobFailed); !failed {
					return value.Nil, err
				}
			}

			detail := job.Detail()

			return value.Fixnum(int64(detail.Value)), nil
		})
}

// pipelineArgv converts a list-of-lists-of-strings Idio value into the [][]string [jobcontrol.NewJob]
// wants.
func pipelineArgv(h *gc.Heap, v value.Value) ([][]string, error) {
	stageVals, _ := container.Slice(h, v)
	stages := make([][]string, len(stageVals))

	for i, sv := range stageVals {
		argVals, _ := container.Slice(h, sv)
		argv := make([]string, len(argVals))

		for j, av := range argVals {
			argv[j] = string(container.Runes(h, av))
		}

		stages[i] = argv
	}

	return stages, nil
}
