package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PositionalPipelinePath(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"pipeline.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.ReportFormat)
	assert.Equal(t, ".", cfg.WorkDir)
}

func TestParse_FlagsOverrideDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"--pipeline", "ci/pipeline.yml",
		"--settings", "ops.toml",
		"--workdir", "/repo",
		"--log-format", "text",
		"--log-level", "debug",
		"--report-format", "json",
		"--workers", "2",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "ci/pipeline.yml", cfg.PipelinePath)
	assert.Equal(t, "ops.toml", cfg.SettingsPath)
	assert.Equal(t, "/repo", cfg.WorkDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.ReportFormat)
	assert.Equal(t, 2, cfg.Workers)
}

func TestParse_ShorthandFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-p", "pipeline.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
}

func TestParse_NoPathPrintsUsageAndExits(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidValuesAreExitErrors(t *testing.T) {
	cases := [][]string{
		{"--log-format", "xml", "pipeline.hcl"},
		{"--log-level", "verbose", "pipeline.hcl"},
		{"--report-format", "html", "pipeline.hcl"},
	}
	for _, args := range cases {
		var out bytes.Buffer
		_, _, err := Parse(args, &out)
		require.Error(t, err)
		exitErr, ok := err.(*ExitError)
		require.True(t, ok)
		assert.Equal(t, 2, exitErr.Code)
	}
}
