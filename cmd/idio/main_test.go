package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/bytecode"
	"github.com/smoynes/idio/internal/cli/cmd"
	"github.com/smoynes/idio/internal/log"
	"github.com/smoynes/idio/internal/vm"
)

// answerImage builds a minimal byte-code image: one module, one unit whose code loads a fixnum
// constant and returns it at top-level, which is the natural program-termination point (RETURN
// with an empty call stack halts the thread and stashes the value as its result -- see
// internal/vm's returnOp).
func answerImage(t *testing.T, answer int64) string {
	t.Helper()

	img := bytecode.New()
	img.Constants = []bytecode.ConstantEntry{{Kind: bytecode.ConstFixnum, Fixnum: answer}}
	img.Modules = []bytecode.ModuleMeta{{Name: "idio"}}

	var code []byte
	code = vm.Encode(code, vm.OpConstant, 0)
	code = vm.Encode(code, vm.OpReturn)

	img.Units = []bytecode.CodeUnit{{ModuleIndex: 0, Code: code}}

	path := filepath.Join(t.TempDir(), "answer.idioc")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, img.Write(f))

	return path
}

func TestRunImage(t *testing.T) {
	path := answerImage(t, 42)

	var out bytes.Buffer
	logger := log.NewFormattedLogger(&out)

	status := cmd.Run().Run(context.Background(), []string{path}, &out, logger)

	require.Equal(t, 0, status, "output: %s", out.String())
}

func TestRunMissingFile(t *testing.T) {
	var out bytes.Buffer
	logger := log.NewFormattedLogger(&out)

	status := cmd.Run().Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope.idioc")}, &out, logger)

	require.Equal(t, 1, status)
}

func TestDisasmImage(t *testing.T) {
	path := answerImage(t, 7)

	var out bytes.Buffer
	logger := log.NewFormattedLogger(&out)

	status := cmd.Disasm().Run(context.Background(), []string{path}, &out, logger)

	require.Equal(t, 0, status)
	require.True(t, strings.Contains(out.String(), "CONSTANT"))
	require.True(t, strings.Contains(out.String(), "RETURN"))
}
