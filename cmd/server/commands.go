package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-planner/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

// newRootCommand returns the scry-planner command tree. Running the root
// command without a subcommand starts the server.
func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	root := &cobra.Command{
		Use:           "scry-planner",
		Short:         "Study plan and quiz generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the job workers",
		Long: `Start the HTTP API and the job workers.

Configuration is read from config.yaml and SCRY_* environment variables.
The server drains HTTP requests and in-flight jobs on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate <" + strings.Join(append(postgres.MigrationCommands, "create"), "|") + "> [name]",
		Short: "Manage the database schema",
		Long: `Apply or inspect the embedded goose migrations.

"create <name>" writes a new empty SQL migration to --dir instead of
touching the database.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "create" {
				if len(args) != 2 {
					return errors.New("migrate create requires a migration name")
				}
				return goose.Create(nil, dir, args[1], "sql")
			}
			if len(args) != 1 {
				return fmt.Errorf("migrate %s takes no arguments", args[0])
			}
			return runMigrations(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "internal/platform/postgres/migrations",
		"directory new migrations are written to")
	return cmd
}
