package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "path to the YAML config file (default $CONFIG_PATH or config/config.yml)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "")
	commander.Register(&refreshCmd{}, "prices")
	commander.Register(&summaryCmd{}, "prices")
	commander.Register(&importCmd{}, "data")
	commander.Register(&exportCmd{}, "data")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
