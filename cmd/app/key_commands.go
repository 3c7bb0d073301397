package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/docvault/cmd/app/commands"
	"github.com/allisson/docvault/internal/app"
)

func masterKeyStateCommand(name, usage string, run func(ctx context.Context, c *app.Container, id, reason, format string) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Aliases:  []string{"i"},
				Required: true,
				Usage:    "Master key ID",
			},
			&cli.StringFlag{
				Name:    "reason",
				Aliases: []string{"r"},
				Usage:   "Reason recorded in the audit ledger",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			container, err := newContainer()
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(ctx) }()

			return run(commands.CLIContext(ctx), container, cmd.String("id"), cmd.String("reason"), cmd.String("format"))
		},
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key and print its MASTER_KEYS entry",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Master key ID (e.g., prod-master-key-2026)",
				},
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "list-master-keys",
			Usage: "List configured master keys and their registry state",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				masterKeyUseCase, err := container.MasterKeyUseCase()
				if err != nil {
					return err
				}
				return commands.RunListMasterKeys(ctx, masterKeyUseCase, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
		masterKeyStateCommand(
			"activate-master-key",
			"Make a master key the single active key for new documents",
			func(ctx context.Context, c *app.Container, id, reason, format string) error {
				masterKeyUseCase, err := c.MasterKeyUseCase()
				if err != nil {
					return err
				}
				return commands.RunActivateMasterKey(
					ctx, masterKeyUseCase, c.Logger(), commands.DefaultIO().Writer, id, reason, format,
				)
			},
		),
		masterKeyStateCommand(
			"revoke-master-key",
			"Revoke a master key so it can no longer wrap new data keys",
			func(ctx context.Context, c *app.Container, id, reason, format string) error {
				masterKeyUseCase, err := c.MasterKeyUseCase()
				if err != nil {
					return err
				}
				return commands.RunRevokeMasterKey(
					ctx, masterKeyUseCase, c.Logger(), commands.DefaultIO().Writer, id, reason, format,
				)
			},
		),
	}
}
