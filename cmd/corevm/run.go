package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/values"
	"github.com/wudi/corelang/internal/vm"
	"github.com/wudi/corelang/internal/vtable"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "execute a chunk.json artifact to halt",
	ArgsUsage: "<chunk.json>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "locale", Value: "en", Usage: "locale catalog tag to load (fault messages are not localized)"},
		&cli.IntFlag{Name: "max-frames", Value: 0, Usage: "frame stack limit (0 = default)"},
		&cli.BoolFlag{Name: "trace", Usage: "enable per-instruction debug logging"},
	},
	Action: runAction,
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: corevm run <chunk.json>")
	}
	chunk, err := loadChunk(path)
	if err != nil {
		return err
	}

	registry := vtable.NewRegistry()
	for _, ti := range chunk.Types {
		registry.Register(ti)
	}
	for _, tr := range chunk.Traits {
		registry.RegisterTrait(tr)
	}

	debugLevel := vm.DebugNone
	if cmd.Bool("trace") {
		debugLevel = vm.DebugDetailed
	}

	v := vm.New(chunk, registry, vm.Options{
		MaxFrames:   int(cmd.Int("max-frames")),
		Locale:      cmd.String("locale"),
		DebugLevel:  debugLevel,
		DebugWriter: os.Stderr,
	})

	if err := v.Run(); err != nil {
		fmt.Fprintln(os.Stderr, describeFault(err))
		return cli.Exit("", 1)
	}

	fmt.Println(values.Stringify(v.Result()))
	return nil
}

func loadChunk(path string) (*bytecode.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	chunk, err := bytecode.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return chunk, nil
}

func describeFault(err error) string {
	if f, ok := err.(*vm.Fault); ok {
		return fmt.Sprintf("fault at line %d: %s", f.Line, f.Error())
	}
	return err.Error()
}
