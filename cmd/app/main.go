// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tokenvault/tokenvault/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "tokenvault",
		Usage:   "Payment card tokenization vault",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the token server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "export",
				Usage: "Export the card-token registry as a text report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "by",
						Aliases: []string{"b"},
						Value:   "card",
						Usage:   "Report orientation: 'card' or 'token'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunExport(cmd.String("by"), commands.DefaultIO())
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
