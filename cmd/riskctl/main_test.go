package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPredictCommand_Fallback(t *testing.T) {
	cfg := writeConfig(t, "model:\n  source: none\n")
	record := `{"personalInfo": {"age": 50}, "symptoms": {"fatigue": true}, "riskFactors": {"familyHistory": true}, "bloodGlucose": 150}`

	out, err := runCmd(t, record, "predict", "--config", cfg)
	require.NoError(t, err)

	var resp predictOutput
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	// 1/9*40 + 1/5*40 + 10
	assert.Equal(t, 22.44, resp.Prediction)
	assert.Equal(t, "Low risk", resp.RiskLevel)
	assert.Equal(t, "fallback", string(resp.Method))
	assert.Equal(t, []string{"weight", "height"}, resp.MissingFields)
}

func TestPredictCommand_Model(t *testing.T) {
	artifact, err := filepath.Abs(filepath.Join("..", "..", "internal", "model", "testdata", "forest.json"))
	require.NoError(t, err)
	cfg := writeConfig(t, "model:\n  source: file\n  path: "+artifact+"\n")
	record := `{"personalInfo": {}, "symptoms": {"increasedThirst": true}, "riskFactors": {}, "bloodGlucose": 180}`

	out, err := runCmd(t, record, "predict", "--config", cfg)
	require.NoError(t, err)

	var resp predictOutput
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "model", string(resp.Method))
	assert.Equal(t, 82.5, resp.Prediction)
	assert.Equal(t, "High risk", resp.RiskLevel)
}

func TestPredictCommand_Malformed(t *testing.T) {
	cfg := writeConfig(t, "model:\n  source: none\n")

	_, err := runCmd(t, `{"personalInfo": {}}`, "predict", "--config", cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "symptoms")
}

func TestModelInspect(t *testing.T) {
	out, err := runCmd(t, "", "model", "inspect", "--path", filepath.Join("..", "..", "internal", "model", "testdata", "forest.json"))
	require.NoError(t, err)

	assert.Contains(t, out, "Kind:       random_forest")
	assert.Contains(t, out, "Trees:      2")
	assert.Contains(t, out, "bloodGlucose")

	_, err = runCmd(t, "", "model", "inspect", "--path", filepath.Join("..", "..", "internal", "model", "testdata", "wrong_order.json"))
	assert.Error(t, err)
}

func TestFeedbackExportImport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, "feedback:\n  driver: sqlite\n  sqlite_path: "+filepath.Join(dir, "fb.db")+"\n")
	payload := `{
		"version": "1.0",
		"feedback": [{
			"assessment_id": "a1",
			"predicted_score": 82.5,
			"predicted_tier": "High",
			"method": "model",
			"features": [50,80,175,1,0,0,0,0,0,0,0,0,0,0,0,0,0,180],
			"outcome": "diabetes"
		}]
	}`

	out, err := runCmd(t, payload, "feedback", "import", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 entries, skipped 0 existing")

	out, err = runCmd(t, payload, "feedback", "import", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 entries, skipped 1 existing")

	exportPath := filepath.Join(dir, "export.json")
	_, err = runCmd(t, "", "feedback", "export", "--config", cfg, "--out", exportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"concordant": true`)
	assert.Contains(t, string(data), `"feature_names"`)
}

func TestMigrateRequiresDatabase(t *testing.T) {
	cfg := writeConfig(t, "model:\n  source: none\n")

	_, err := runCmd(t, "", "migrate", "up", "--config", cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.enabled is false")
}
