package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/smoynes/idio/internal/bytecode"
	"github.com/smoynes/idio/internal/cli"
	"github.com/smoynes/idio/internal/log"
	"github.com/smoynes/idio/internal/vm"
)

// Disasm is the "disasm" sub-command: print a human-readable listing of every code unit in a
// byte-code image, one instruction per line (spec.md §6.1, §6.5's "run/repl-less-batch/disasm"
// sub-commands).
func Disasm() cli.Command {
	return new(disasm)
}

type disasm struct{}

func (disasm) Description() string { return "disassemble a compiled byte-code image" }

func (disasm) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `disasm image.idioc

Print a listing of every code unit in a byte-code image.`)

	return err
}

func (disasm) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("disasm", flag.ExitOnError)
}

func (disasm) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		logger.Error("disasm: missing image file")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("disasm: open failed", "file", args[0], "err", err)
		return 1
	}
	defer f.Close()

	img, err := bytecode.Read(f)
	if err != nil {
		logger.Error("disasm: decode failed", "file", args[0], "err", err)
		return 1
	}

	fmt.Fprintf(out, "; fixnum-bits %d, %d constant(s), %d module(s), %d unit(s)\n",
		img.FixnumBits, len(img.Constants), len(img.Modules), len(img.Units))

	for i, m := range img.Modules {
		fmt.Fprintf(out, "; module %d: %s (imports %v, exports %v)\n", i, m.Name, m.Imports, m.Exports)
	}

	for i, u := range img.Units {
		fmt.Fprintf(out, "\n; unit %d: module %d, %d byte(s)\n", i, u.ModuleIndex, len(u.Code))

		pc := 0
		for pc < len(u.Code) {
			inst, next, err := vm.Decode(u.Code, pc)
			if err != nil {
				fmt.Fprintf(out, "%6d\t; decode error: %s\n", pc, err)
				break
			}

			fmt.Fprintf(out, "%6d\t%s\n", pc, inst)
			pc = next
		}
	}

	return 0
}
