package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/model"
	"github.com/diabetes-risk-server/internal/service"
)

type predictOutput struct {
	domain.PredictionResponse
	Method        domain.ScoringMethod `json:"method"`
	Model         string               `json:"model,omitempty"`
	MissingFields []string             `json:"missingFields,omitempty"`
	Breakdown     service.Breakdown    `json:"fallbackBreakdown"`
}

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a patient record",
		Long:  "Score a patient record in the /predict JSON format using the configured model, or the fallback rule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}

			record, err := domain.DecodePatientRecord(data)
			if err != nil {
				return err
			}

			m, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, m)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			modelCfg := *m.GetModelConfig()
			engine := service.NewRuleEngine(service.DefaultRuleWeights())
			classifier, loadErr := model.NewLoader(modelCfg, logger).Load(ctx)
			strategy := service.SelectStrategy(classifier, loadErr, engine, modelCfg, logger)

			prediction, err := service.NewPredictor(strategy, logger).Evaluate(ctx, record)
			if err != nil {
				return err
			}

			out := predictOutput{
				PredictionResponse: prediction.Result.Response(),
				Method:             prediction.Result.Method,
				MissingFields:      prediction.Extraction.MissingFields,
				Breakdown:          engine.Breakdown(prediction.Extraction),
			}
			if out.Method == domain.MethodModel {
				out.Model = strategy.ModelName()
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}
	cmd.Flags().StringP("file", "f", "-", "Patient record JSON file (- for stdin)")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
