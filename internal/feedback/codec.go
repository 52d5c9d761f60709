package feedback

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/diabetes-risk-server/internal/features"
)

// FeatureNames lists the column names of the exported feature vectors.
func FeatureNames() []string {
	names := features.FeatureNames()
	return names[:]
}

func encodeExport(writer io.Writer, export *FeedbackExport) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func decodeExport(reader io.Reader) (*FeedbackExport, error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	if len(export.FeatureNames) > 0 {
		expected := FeatureNames()
		if len(export.FeatureNames) != len(expected) {
			return nil, fmt.Errorf("export has %d features, expected %d", len(export.FeatureNames), len(expected))
		}
		for i, name := range export.FeatureNames {
			if name != expected[i] {
				return nil, fmt.Errorf("export feature %d is %q, expected %q", i, name, expected[i])
			}
		}
	}
	return &export, nil
}
