package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-server/internal/model"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect classifier artifacts",
	}

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Validate an artifact and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				m, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = m.GetModelConfig().Path
			}

			artifact, err := model.LoadArtifact(path)
			if err != nil {
				return err
			}
			classifier, err := artifact.Classifier()
			if err != nil {
				return fmt.Errorf("build classifier: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Path:       %s\n", path)
			fmt.Fprintf(w, "Name:       %s\n", artifact.Name)
			fmt.Fprintf(w, "Kind:       %s\n", artifact.Kind)
			if !artifact.TrainedAt.IsZero() {
				fmt.Fprintf(w, "Trained at: %s\n", artifact.TrainedAt.Format(time.RFC3339))
			}
			switch artifact.Kind {
			case model.KindRandomForest:
				fmt.Fprintf(w, "Trees:      %d\n", len(artifact.Trees))
			case model.KindLogisticRegression:
				fmt.Fprintf(w, "Intercept:  %g\n", artifact.Intercept)
			}
			fmt.Fprintf(w, "Classifier: %s\n", classifier.Name())
			fmt.Fprintf(w, "Features:   %s\n", strings.Join(artifact.FeatureNames, ", "))
			return nil
		},
	}
	inspect.Flags().StringP("path", "p", "", "Artifact path (defaults to model.path)")

	cmd.AddCommand(inspect)
	return cmd
}
