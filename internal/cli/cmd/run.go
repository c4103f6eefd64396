package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/smoynes/idio/internal/bytecode"
	"github.com/smoynes/idio/internal/cli"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/jobcontrol"
	"github.com/smoynes/idio/internal/log"
	"github.com/smoynes/idio/internal/sysglue"
	"github.com/smoynes/idio/internal/tty"
	"github.com/smoynes/idio/internal/value"
	"github.com/smoynes/idio/internal/vm"
)

// Run is the "run" sub-command: load a compiled byte-code image and execute its first unit to
// completion, batch-style (spec.md §6.1, §6.5; this spec's Non-goals exclude interactive REPL line
// editing, so there is no read-eval-print loop here, only "load an image and run it").
func Run() cli.Command {
	return new(run)
}

type run struct {
	entry int
}

func (run) Description() string { return "run a compiled byte-code image" }

func (run) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-entry unit] image.idioc

Load a compiled byte-code image and run it to completion.`)

	return err
}

func (r *run) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.IntVar(&r.entry, "entry", -1, "unit index to start at (default: first unit loaded)")

	return fs
}

// Run loads the named image, binds the process environment the way a shell's own entry point
// does, runs it to completion, hangs up any jobs still outstanding, and returns the value of
// *exit-status* as the process exit code (spec.md §6.1, §6.5).
func (r *run) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		logger.Error("run: missing image file")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("run: open failed", "file", args[0], "err", err)
		return 1
	}
	defer f.Close()

	img, err := bytecode.Read(f)
	if err != nil {
		logger.Error("run: decode failed", "file", args[0], "err", err)
		return 1
	}

	rt := vm.NewRuntime()
	rt.RegisterCoreForms()
	rt.RegisterStandardPrimitives()

	shell, err := jobControlShell()
	if err != nil {
		logger.Error("run: terminal setup failed", "err", err)
		return 1
	}

	stop := shell.WatchSignals()
	defer stop()
	defer shell.Close()

	rt.RegisterJobControl(shell)
	bindEnvironment(rt)

	unitBase, err := rt.LoadImage(img)
	if err != nil {
		logger.Error("run: load failed", "file", args[0], "err", err)
		return 1
	}

	entry := unitBase
	if r.entry >= 0 {
		entry = r.entry
	}

	th := vm.AsThread(rt.Heap, rt.NewThread(entry, 0))

	defer rt.Shutdown()

	if err := rt.Run(th); err != nil {
		logger.Error("run: execution error", "err", err)
		return 1
	}

	if status, ok := rt.ToplevelValue("*exit-status*"); ok && status.IsFixnum() {
		return int(status.Fixnum())
	}

	return 0
}

// bindEnvironment exposes the process environment the way a shell's own entry point does:
// IDIOLIB/PATH/PWD/HOSTNAME as string-valued toplevel bindings, process identity as fixnum-valued
// ones, and a zero-valued *exit-status* a running program may overwrite before halting.
func bindEnvironment(rt *vm.Runtime) {
	for _, name := range []string{"IDIOLIB", "PATH", "PWD", "HOSTNAME"} {
		rt.DefineToplevel(name, container.NewStringFromUTF8(rt.Heap, []byte(os.Getenv(name))))
	}

	rt.DefineToplevel("pid", value.Fixnum(int64(sysglue.Getpid())))
	rt.DefineToplevel("ppid", value.Fixnum(int64(sysglue.Getppid())))
	rt.DefineToplevel("uid", value.Fixnum(int64(sysglue.Getuid())))
	rt.DefineToplevel("gid", value.Fixnum(int64(sysglue.Getgid())))

	if groups, err := sysglue.Getgroups(); err == nil {
		gs := make([]value.Value, len(groups))
		for i, g := range groups {
			gs[i] = value.Fixnum(int64(g))
		}

		rt.DefineToplevel("groups", container.List(rt.Heap, gs...))
	}

	rt.DefineToplevel("*exit-status*", value.Fixnum(0))
}

// jobControlShell builds the Shell a run would use to launch external-command pipelines, claiming
// the controlling terminal only when standard input actually is one (idio_job_control_set_
// interactive's own tty check) -- a batch run piped from a file or another process is simply
// non-interactive, the way the original distinguishes a login shell from a script.
func jobControlShell() (*jobcontrol.Shell, error) {
	console, err := tty.Open(int(os.Stdin.Fd()))
	if err != nil {
		return jobcontrol.NewShell(nil), nil
	}

	shell := jobcontrol.NewShell(console)
	if err := shell.SetInteractive(true); err != nil {
		return nil, err
	}

	return shell, nil
}
