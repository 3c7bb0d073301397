package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/docvault/cmd/app/commands"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				cfg := container.Config()
				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "verify-audit",
			Usage: "Recompute audit hash chains and report broken streams",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "stream",
					Aliases: []string{"s"},
					Usage:   "Stream key to verify (default: every stream)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				auditUseCase, err := container.AuditUseCase()
				if err != nil {
					return err
				}
				return commands.RunVerifyAudit(
					commands.CLIContext(ctx),
					auditUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("stream"),
					cmd.String("format"),
				)
			},
		},
	}
}
