package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wudi/corelang/internal/bytecode"
)

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "print a linear disassembly of a chunk.json artifact",
	ArgsUsage: "<chunk.json>",
	Action:    disasmAction,
}

func disasmAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: corevm disasm <chunk.json>")
	}
	chunk, err := loadChunk(path)
	if err != nil {
		return err
	}
	for _, line := range bytecode.Disassemble(chunk) {
		fmt.Println(line)
	}
	return nil
}
