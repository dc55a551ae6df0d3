package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"authd/cmd/internal/app"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply or inspect the embedded schema migrations for the configured
database (AUTHD_DATABASE_URL or AUTHD_SQLITE_PATH).`,
	}
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			n, err := app.MigrateUp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return err
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			states, err := app.MigrateStatus(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("migrate status: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "VERSION\tSTATE\tFILE")
			for _, s := range states {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Path)
			}
			return tw.Flush()
		},
	}
}
