package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-server/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	run := func(action string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !m.GetDatabaseConfig().Enabled {
				return fmt.Errorf("database.enabled is false; nothing to migrate")
			}
			logger, err := newLogger(cmd, m)
			if err != nil {
				return err
			}

			runner, err := database.NewMigrationRunner(m.GetDatabaseURL(), m.GetDatabaseConfig().MigrationsPath, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			switch action {
			case "up":
				err = runner.Up(cmd.Context())
			case "down":
				err = runner.Down(cmd.Context())
			}
			if err != nil {
				return err
			}

			version, dirty, err := runner.Version()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty=%t)\n", version, dirty)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  run("up"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE:  run("down"),
	})
	return cmd
}
