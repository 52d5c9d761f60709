package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/diabetes-risk-server/internal/features"
)

// Artifact kinds
const (
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
)

const artifactSchemaURL = "https://diabetes-risk-server/schemas/model-artifact.json"

//go:embed schema/artifact.schema.json
var artifactSchemaJSON []byte

var (
	schemaOnce     sync.Once
	artifactSchema *jsonschema.Schema
	schemaErr      error
)

// Artifact is the JSON export of a trained classifier.
type Artifact struct {
	FormatVersion int       `json:"format_version"`
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	TrainedAt     time.Time `json:"trained_at,omitempty"`
	NFeatures     int       `json:"n_features"`
	FeatureNames  []string  `json:"feature_names"`
	Classes       []int     `json:"classes"`

	Trees        []Tree    `json:"trees,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`
}

func compiledArtifactSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(artifactSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse artifact schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(artifactSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add artifact schema: %w", err)
			return
		}
		artifactSchema, schemaErr = c.Compile(artifactSchemaURL)
	})
	return artifactSchema, schemaErr
}

// ParseArtifact validates raw artifact JSON against the artifact schema and
// the feature order contract, then decodes it.
func ParseArtifact(data []byte) (*Artifact, error) {
	schema, err := compiledArtifactSchema()
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid artifact JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("artifact schema validation failed: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	expected := features.FeatureNames()
	for i, name := range artifact.FeatureNames {
		if name != expected[i] {
			return nil, fmt.Errorf("feature %d is %q, expected %q", i, name, expected[i])
		}
	}

	return &artifact, nil
}

// LoadArtifact reads and parses an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return artifact, nil
}

// Classifier builds the classifier described by the artifact.
func (a *Artifact) Classifier() (Classifier, error) {
	switch a.Kind {
	case KindRandomForest:
		return NewRandomForest(a.Name, a.Trees)
	case KindLogisticRegression:
		return NewLogisticRegression(a.Name, a.Coefficients, a.Intercept)
	default:
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
}
