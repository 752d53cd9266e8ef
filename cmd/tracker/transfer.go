package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"brokerage_tracker/internal/infrastructure/storage"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace stored data with a JSON snapshot" }
func (*importCmd) Usage() string {
	return `tracker import <file>

  Reads a snapshot of the form {version, accounts, positions, prices} and
  replaces everything stored. Malformed sections are imported as empty;
  an invalid position or a duplicate id rejects the whole file.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	state, err := storage.DecodeSnapshot(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v; importing an empty portfolio is refused\n", err)
		return subcommands.ExitFailure
	}

	app, err := newApplication(true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := app.service.Import(ctx, state); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d accounts, %d positions, %d prices\n",
		len(state.Accounts), len(state.Positions), len(state.Prices))
	return subcommands.ExitSuccess
}

type exportCmd struct{}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write stored data as a JSON snapshot" }
func (*exportCmd) Usage() string {
	return `tracker export [file]

  Writes accounts, positions and the last-known prices to file, or to
  stdout when no file is given.
`
}

func (*exportCmd) SetFlags(*flag.FlagSet) {}

func (*exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	app, err := newApplication(true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	state, err := app.service.Export(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	data, err := storage.EncodeSnapshot(state)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	data = append(data, '\n')

	if f.NArg() == 0 {
		_, _ = os.Stdout.Write(data)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(f.Arg(0), data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Exported %d positions to %s\n", len(state.Positions), f.Arg(0))
	return subcommands.ExitSuccess
}
