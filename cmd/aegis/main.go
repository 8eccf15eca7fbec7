package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "aegis failed: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "aegis",
		Usage: "terminal calendar, tasks and schedule insights",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Value:   defaultConfigPath(),
				Sources: cli.EnvVars("AEGIS_CONFIG"),
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			agendaCommand(),
			analyzeCommand(),
			icsCommand(),
			tasksCommand(),
			caldavCommand(),
			feedsCommand(),
		},
	}
}
