package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-server/internal/config"
	"github.com/diabetes-risk-server/internal/feedback"
)

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Export or import outcome feedback",
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write all feedback as labelled JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openFeedbackStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			out, _ := cmd.Flags().GetString("out")
			if out == "" || out == "-" {
				return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			if err := store.ExportJSON(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported feedback to %s\n", out)
			return nil
		},
	}
	export.Flags().StringP("out", "o", "-", "Output file (- for stdout)")

	imp := &cobra.Command{
		Use:   "import",
		Short: "Load feedback from an export; existing entries are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			data, err := readInput(cmd, in)
			if err != nil {
				return err
			}

			store, err := openFeedbackStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), bytes.NewReader(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries, skipped %d existing\n", imported, skipped)
			return nil
		},
	}
	imp.Flags().StringP("in", "i", "-", "Input file (- for stdin)")

	cmd.AddCommand(export, imp)
	return cmd
}

func openFeedbackStore(cmd *cobra.Command) (feedback.Store, error) {
	m, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return feedback.Open(m.GetConfig().Feedback, databaseURL(m))
}

func databaseURL(m *config.Manager) string {
	if !m.GetDatabaseConfig().Enabled {
		return ""
	}
	return m.GetDatabaseURL()
}
