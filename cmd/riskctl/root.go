package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/diabetes-risk-server/internal/config"
	"github.com/diabetes-risk-server/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Diabetes risk scoring tools",
		Long:          "riskctl scores patient records, inspects model artifacts and manages outcome feedback and database migrations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to config file (defaults to config.yaml search paths)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log at info level instead of warn")

	root.AddCommand(newPredictCmd())
	root.AddCommand(newModelCmd())
	root.AddCommand(newFeedbackCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// loadConfig reads and validates configuration, honouring --config.
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	m, err := config.NewManager(config.WithConfigFile(path))
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return m, nil
}

// newLogger logs to stderr so command output stays machine-readable.
func newLogger(cmd *cobra.Command, m *config.Manager) (*logrus.Logger, error) {
	cfg := m.GetConfig().Logging
	cfg.Output = logging.OutputStderr
	cfg.Format = "text"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Level = "info"
	} else {
		cfg.Level = "warn"
	}
	return logging.New(cfg)
}
