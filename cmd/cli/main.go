// Command cli manages properties from the terminal against the configured
// entry store.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range propertyCommands {
		commander.Register(c, "properties")
	}
	for _, c := range editCommands {
		commander.Register(c, "editing")
	}
	for _, c := range exportCommands {
		commander.Register(c, "exports")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
