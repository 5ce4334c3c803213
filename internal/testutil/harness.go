// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Report    string
	Err       error
	App       *app.App
	Dir       string
}

// RunPipelineTest provides a standardized harness for running a pipeline
// end to end. files maps relative paths (the pipeline definition, manifests,
// any fixtures) to their content; pipelineFile names the definition inside
// files. The cache is rooted inside the test's temp directory, so repeated
// runs within one test share it and separate tests never collide.
func RunPipelineTest(t *testing.T, files map[string]string, pipelineFile string) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, files, pipelineFile)
}

// RunPipelineTestWithContext is RunPipelineTest with a caller-provided
// context.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, files map[string]string, pipelineFile string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	// Point the local snapshot store inside the test directory.
	settingsPath := filepath.Join(tmpDir, "gridci-settings.toml")
	settingsTOML := "[cache]\ndir = \"" + filepath.ToSlash(filepath.Join(tmpDir, "snapshot-cache")) + "\"\n"
	require.NoError(t, os.WriteFile(settingsPath, []byte(settingsTOML), 0o644))

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: filepath.Join(tmpDir, pipelineFile),
		SettingsPath: settingsPath,
		WorkDir:      tmpDir,
		LogFormat:    "text",
		LogLevel:     "debug",
		Workers:      4,
	})
	require.NoError(t, err)

	loader, err := app.LoaderFor(appConfig.PipelinePath)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	reportBuffer := &SafeBuffer{}

	testApp, err := app.NewApp(reportBuffer, logBuffer, appConfig, loader)
	if err != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: err, Dir: tmpDir}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("GRIDCI_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Report:    reportBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Dir:       tmpDir,
	}
}
