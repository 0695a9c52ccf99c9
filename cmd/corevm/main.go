// Command corevm is a thin runner/disassembler for the bytecode artifact
// format: it never compiles source, it only loads an already-assembled
// chunk.json and either executes it or prints its disassembly, so the
// execution core has a runnable host within this repository.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "corevm",
		Usage: "runs and disassembles compiled bytecode artifacts",
		Commands: []*cli.Command{
			runCommand,
			disasmCommand,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "corevm: %v\n", err)
		os.Exit(1)
	}
}
