// cmd/idio is the command-line entry point to idio's execution core: loading compiled byte-code
// images and running or disassembling them.
package main

import (
	"context"
	"os"

	"github.com/smoynes/idio/internal/cli"
	"github.com/smoynes/idio/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Run(),
	cmd.Disasm(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
