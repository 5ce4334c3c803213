package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gridci/internal/config"
)

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func evalCommand(t *testing.T, expr hcl.Expression, platform, version string) string {
	t.Helper()
	val, diags := expr.Value(&hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix": cty.ObjectVal(map[string]cty.Value{
				"platform": cty.StringVal(platform),
				"version":  cty.StringVal(version),
			}),
		},
	})
	require.False(t, diags.HasErrors(), diags.Error())
	return val.AsString()
}

const fullPipelineHCL = `
matrix {
  platforms = ["ubuntu-latest", "windows-latest"]
  versions  = ["3.9", "3.10"]
  fail_fast = false
}

manifests = ["requirements.txt", "script/requirements.txt"]

cache {
  dir = ".gridci-cache"
}

install {
  run = "pip install -r requirements.txt"
}

stage "lint" {
  run = "flake8"
}

stage "typecheck" {
  run     = "mypy --python-version ${matrix.version} ."
  timeout = "5m"
}

stage "test" {
  run                 = "python -m unittest discover"
  continue_on_failure = true
}
`

func TestLoad_FullPipeline(t *testing.T) {
	path := writePipeline(t, fullPipelineHCL)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	require.NotNil(t, model.Matrix)
	assert.Equal(t, []string{"ubuntu-latest", "windows-latest"}, model.Matrix.Platforms)
	assert.Equal(t, []string{"3.9", "3.10"}, model.Matrix.Versions)
	assert.False(t, model.Matrix.FailFast)

	assert.Equal(t, []string{"requirements.txt", "script/requirements.txt"}, model.Manifests)
	require.NotNil(t, model.Cache)
	assert.Equal(t, ".gridci-cache", model.Cache.Dir)

	require.NotNil(t, model.Install)
	assert.Equal(t, config.Strict, model.Install.Policy)
	assert.Equal(t, "pip install -r requirements.txt", evalCommand(t, model.Install.Run, "ubuntu-latest", "3.9"))

	require.Len(t, model.Gates, 3)
	assert.Equal(t, "lint", model.Gates[0].Name)
	assert.Equal(t, config.Strict, model.Gates[0].Policy)

	typecheck := model.Gates[1]
	assert.Equal(t, 5*time.Minute, typecheck.Timeout)
	assert.Equal(t, "mypy --python-version 3.10 .", evalCommand(t, typecheck.Run, "ubuntu-latest", "3.10"))

	assert.Equal(t, config.ContinueOnFailure, model.Gates[2].Policy)
}

func TestLoad_DuplicateStageFails(t *testing.T) {
	path := writePipeline(t, `
matrix {
  platforms = ["a"]
  versions  = ["1"]
}
install { run = "true" }
stage "lint" { run = "flake8" }
stage "lint" { run = "flake8 --select E" }
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	var cfgErr *config.Error
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestLoad_InvalidTimeoutFails(t *testing.T) {
	path := writePipeline(t, `
install { run = "true" }
stage "test" {
  run     = "true"
  timeout = "yesterday"
}
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := writePipeline(t, `matrix { platforms = `)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	var cfgErr *config.Error
	assert.ErrorAs(t, err, &cfgErr)
}
