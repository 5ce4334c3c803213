//go:build !windows

package integration_tests

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: the YAML workflow format drives the same engine as HCL, matrix
// interpolation included.
func TestPipelineBehavior_YAMLWorkflowInterpolatesMatrix(t *testing.T) {
	// --- Arrange ---
	workflowYAML := `
matrix:
  platforms: [linux-a]
  versions: ["1.0", "2.0"]
manifests:
  - requirements.txt
install:
  run: "true"
stages:
  - name: announce
    run: echo running ${matrix.platform} ${matrix.version}
`
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"pipeline.yml":     workflowYAML,
		"requirements.txt": "requests==2.31.0\n",
	})

	// --- Act ---
	reportJSON, err := runOnce(t, dir, "pipeline.yml", "json")

	// --- Assert ---
	require.NoError(t, err)

	var report struct {
		Success bool `json:"success"`
		Lanes   []struct {
			Version string `json:"version"`
			Stages  []struct {
				Stage  string `json:"stage"`
				Output string `json:"output"`
			} `json:"stages"`
		} `json:"lanes"`
	}
	require.NoError(t, json.Unmarshal([]byte(reportJSON), &report))

	assert.True(t, report.Success)
	require.Len(t, report.Lanes, 2)
	for _, lane := range report.Lanes {
		require.Len(t, lane.Stages, 2)
		announce := lane.Stages[1]
		assert.Equal(t, "announce", announce.Stage)
		assert.Contains(t, announce.Output, "running linux-a "+lane.Version)
	}
}
