package jobcontrol_test

import (
	"io"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/jobcontrol"
)

func skipIfMissing(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not found in PATH", name)
	}
}

func TestLaunchSingleStageSuccess(t *testing.T) {
	skipIfMissing(t, "true")

	shell := jobcontrol.NewShell(nil)
	job := jobcontrol.NewJob([][]string{{"true"}})

	require.NoError(t, shell.Launch(job, true))
	require.True(t, job.Successful())
	require.Equal(t, jobcontrol.Detail{Kind: jobcontrol.DetailExit, Value: 0}, job.Detail())
}

func TestLaunchSingleStageFailure(t *testing.T) {
	skipIfMissing(t, "false")

	shell := jobcontrol.NewShell(nil)
	job := jobcontrol.NewJob([][]string{{"false"}})

	err := shell.Launch(job, true)

	var failed *jobcontrol.ErrJobFailed
	require.ErrorAs(t, err, &failed)
	require.True(t, job.Failed())
	require.Equal(t, 1, job.Detail().Value)
}

func TestLaunchPipeline(t *testing.T) {
	skipIfMissing(t, "printf")
	skipIfMissing(t, "cat")

	r, w, err := os.Pipe()
	require.NoError(t, err)

	shell := jobcontrol.NewShell(nil)
	job := jobcontrol.NewJob([][]string{{"printf", "hello\n"}, {"cat"}})

	wfd := int(w.Fd())
	job.Stdout = &wfd

	require.NoError(t, shell.Launch(job, true))
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(out))
}

func TestLaunchEmptyJob(t *testing.T) {
	shell := jobcontrol.NewShell(nil)
	job := jobcontrol.NewJob(nil)

	require.NoError(t, shell.Launch(job, true))
}
