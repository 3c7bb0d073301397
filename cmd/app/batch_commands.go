package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/allisson/docvault/cmd/app/commands"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

func getBatchCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "rotate-doc-keys",
			Usage: "Re-wrap document data keys from a retiring master key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "from",
					Required: true,
					Usage:    "Master key ID being retired",
				},
				&cli.StringFlag{
					Name:  "to",
					Usage: "Target master key ID (default: the active key)",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Usage:   "Documents per pass (default: ROTATION_BATCH_SIZE)",
				},
				&cli.BoolFlag{
					Name:  "once",
					Usage: "Run a single pass instead of draining the retiring key",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}
				return commands.RunRotateDocKeys(
					commands.CLIContext(ctx),
					rotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.RotateOptions{
						FromKeyID: cmd.String("from"),
						ToKeyID:   cmd.String("to"),
						Limit:     int(cmd.Int("limit")),
						Once:      cmd.Bool("once"),
						Format:    cmd.String("format"),
					},
				)
			},
		},
		{
			Name:  "migrate-legacy",
			Usage: "Encrypt plaintext legacy documents with envelope encryption",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Usage:   "Documents per pass (default: MIGRATION_BATCH_SIZE)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Usage:   "Report what would be migrated without writing",
				},
				&cli.Int64Flag{
					Name:  "max-bytes",
					Usage: "Skip legacy documents larger than this (default: MIGRATION_MAX_BYTES)",
				},
				&cli.StringFlag{
					Name:  "after-id",
					Usage: "Resume behind this document id (the last id a previous run reported)",
				},
				&cli.BoolFlag{
					Name:  "once",
					Usage: "Run a single pass instead of walking every legacy document",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				var afterID uuid.UUID
				if raw := cmd.String("after-id"); raw != "" {
					if afterID, err = uuid.Parse(raw); err != nil {
						return fmt.Errorf("invalid --after-id: %w", err)
					}
				}

				migrationUseCase, err := container.MigrationUseCase()
				if err != nil {
					return err
				}
				return commands.RunMigrateLegacy(
					commands.CLIContext(ctx),
					migrationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.MigrateOptions{
						Limit:    int(cmd.Int("limit")),
						DryRun:   cmd.Bool("dry-run"),
						MaxBytes: cmd.Int64("max-bytes"),
						AfterID:  afterID,
						Once:     cmd.Bool("once"),
						Format:   cmd.String("format"),
					},
				)
			},
		},
		{
			Name:  "scan-heal",
			Usage: "Requeue stale and errored scan jobs and flag jobs that hit the attempt limit",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "running-timeout",
					Usage: "Age after which a running job is requeued (default: SCAN_RUNNING_TIMEOUT)",
				},
				&cli.IntFlag{
					Name:  "max-attempts",
					Usage: "Attempts before a job needs manual review (default: SCAN_MAX_ATTEMPTS)",
				},
				&cli.DurationFlag{
					Name:  "retry-delay",
					Usage: "Delay before an errored job is retried (default: SCAN_RETRY_DELAY)",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Usage:   "Total candidate jobs examined in one pass (default: SCAN_HEAL_LIMIT)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				scanUseCase, err := container.ScanUseCase()
				if err != nil {
					return err
				}
				return commands.RunScanHeal(
					commands.CLIContext(ctx),
					scanUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					scanDomain.HealInput{
						RunningTimeout: cmd.Duration("running-timeout"),
						MaxAttempts:    int(cmd.Int("max-attempts")),
						RetryDelay:     cmd.Duration("retry-delay"),
						Limit:          int(cmd.Int("limit")),
					},
					cmd.String("format"),
				)
			},
		},
	}
}
