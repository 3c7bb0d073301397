package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/docvault/cmd/app/commands"
)

func roleFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "role",
		Aliases:  []string{"r"},
		Required: required,
		Usage:    "Role: viewer, admin or owner",
	}
}

func permissionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "permission",
		Aliases:  []string{"p"},
		Required: true,
		Usage:    "Permission name (e.g., documents.read, keys.rotate)",
	}
}

func getAuthCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-client",
			Usage: "Create an API client and print its one-time secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable client name",
				},
				roleFlag(true),
				&cli.BoolFlag{
					Name:    "active",
					Aliases: []string{"a"},
					Value:   true,
					Usage:   "Whether the client can authenticate immediately",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				clientUseCase, err := container.ClientUseCase()
				if err != nil {
					return err
				}
				return commands.RunCreateClient(
					commands.CLIContext(ctx),
					clientUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("role"),
					cmd.Bool("active"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "set-permission-override",
			Usage: "Grant or deny a permission for a role regardless of its default",
			Flags: []cli.Flag{
				roleFlag(true),
				permissionFlag(),
				&cli.BoolFlag{
					Name:  "allowed",
					Value: true,
					Usage: "Grant (true) or deny (false) the permission",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				resolver, err := container.PermissionResolver()
				if err != nil {
					return err
				}
				return commands.RunSetPermissionOverride(
					commands.CLIContext(ctx),
					resolver,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("role"),
					cmd.String("permission"),
					cmd.Bool("allowed"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "delete-permission-override",
			Usage: "Remove a permission override so the default applies again",
			Flags: []cli.Flag{
				roleFlag(true),
				permissionFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				resolver, err := container.PermissionResolver()
				if err != nil {
					return err
				}
				return commands.RunDeletePermissionOverride(
					commands.CLIContext(ctx),
					resolver,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("role"),
					cmd.String("permission"),
				)
			},
		},
	}
}
