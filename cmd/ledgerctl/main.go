// Command ledgerctl administers a papertrade data directory from the shell.
// It opens the same databases as the server, so stop the server before
// running commands that change accounts.
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
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range accountCommands {
		commander.Register(c, "accounts")
	}
	for _, c := range reportCommands {
		commander.Register(c, "reports")
	}
	for _, c := range adminCommands {
		commander.Register(c, "admin")
	}

	flag.BoolVar(&plain, "plain", false, "Print raw markdown instead of rendering it for the terminal.")
	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
