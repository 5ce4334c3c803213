//go:build !windows

package integration_tests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/testutil"
)

// Test for: a healthy pipeline runs every lane and every stage and exits clean.
func TestPipelineBehavior_AllStagesPass(t *testing.T) {
	// --- Arrange ---
	pipelineHCL := `
		matrix {
		  platforms = ["linux-a", "linux-b"]
		  versions  = ["1.0", "2.0"]
		}
		manifests = ["requirements.txt"]
		install {
		  run = "true"
		}
		stage "lint" {
		  run = "true"
		}
		stage "test" {
		  run = "echo testing on ${matrix.platform} with ${matrix.version}"
		}
	`
	files := map[string]string{
		"pipeline.hcl":     pipelineHCL,
		"requirements.txt": "requests==2.31.0\n",
	}

	// --- Act ---
	result := testutil.RunPipelineTest(t, files, "pipeline.hcl")

	// --- Assert ---
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	assert.Contains(t, result.Report, "Overall: PASS")

	for _, lane := range []string{"linux-a/1.0", "linux-a/2.0", "linux-b/1.0", "linux-b/2.0"} {
		assert.Contains(t, result.Report, "lane "+lane+": PASS")
	}
	assert.Equal(t, 4, strings.Count(result.Report, "\nlane "))
	assert.NotContains(t, result.Report, "FAIL")
}
