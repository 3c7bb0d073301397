package main

import (
	"github.com/urfave/cli/v3"

	"github.com/allisson/docvault/internal/app"
	"github.com/allisson/docvault/internal/config"
)

func getCommands(version string) []*cli.Command {
	var cmds []*cli.Command
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getBatchCommands()...)
	cmds = append(cmds, getAuthCommands()...)
	return cmds
}

// newContainer loads and validates configuration for a one-shot command. The caller
// shuts the container down.
func newContainer() (*app.Container, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.NewContainer(cfg), nil
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
