package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/msgpo/kalliope-app/internal/infrastructure/database"
)

func newMigrateCmd(setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or change the local database schema",
		Long: `Every command that uses the local database applies pending migrations
first. migrate reports or reverts them explicitly.`,
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			st, err := db.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printMigrations(cmd.OutOrStdout(), st)
		},
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			st, err := db.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printMigrations(cmd.OutOrStdout(), st)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			m, err := db.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if m == nil {
				_, err = fmt.Fprintln(out, "no migrations applied")
				return err
			}
			_, err = fmt.Fprintf(out, "reverted %s %s\n", m.Version, m.Name)
			return err
		},
	}

	cmd.AddCommand(status, up, down)
	return cmd
}

func printMigrations(w io.Writer, st database.MigrationStatus) error {
	for _, m := range st.Applied {
		fmt.Fprintf(w, "applied  %s  %s\n", m.Version, m.AppliedAt.Local().Format("2006-01-02 15:04:05"))
	}
	for _, m := range st.Pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	_, err := fmt.Fprintf(w, "%d applied, %d pending\n", len(st.Applied), len(st.Pending))
	return err
}
