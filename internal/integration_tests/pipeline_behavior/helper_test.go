//go:build !windows

package integration_tests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/app"
)

// writeFiles lays out the pipeline definition and fixtures in dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// runOnce executes the pipeline in dir and returns the rendered report and
// run error. Unlike testutil.RunPipelineTest it can be called repeatedly
// against the same directory, which is what the snapshot reuse scenarios
// need: the second run must see the cache the first run populated.
func runOnce(t *testing.T, dir, pipelineFile, reportFormat string) (string, error) {
	t.Helper()

	settingsPath := filepath.Join(dir, "gridci-settings.toml")
	settingsTOML := "[cache]\ndir = \"" + filepath.ToSlash(filepath.Join(dir, "snapshot-cache")) + "\"\n"
	require.NoError(t, os.WriteFile(settingsPath, []byte(settingsTOML), 0o644))

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: filepath.Join(dir, pipelineFile),
		SettingsPath: settingsPath,
		WorkDir:      dir,
		LogFormat:    "text",
		LogLevel:     "debug",
		ReportFormat: reportFormat,
		Workers:      4,
	})
	require.NoError(t, err)

	loader, err := app.LoaderFor(appConfig.PipelinePath)
	require.NoError(t, err)

	var reportBuf, logBuf bytes.Buffer
	testApp, err := app.NewApp(&reportBuf, &logBuf, appConfig, loader)
	require.NoError(t, err)

	runErr := testApp.Run(context.Background())
	if os.Getenv("GRIDCI_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuf.String())
	}
	return reportBuf.String(), runErr
}
