// Package yamlcfg implements the config.Loader interface for workflow-style
// YAML pipeline definitions, so that a matrix declared the way hosted CI
// systems declare one can drive the orchestrator directly.
package yamlcfg

import (
	"context"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"gopkg.in/yaml.v3"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
)

// Loader parses .yml/.yaml pipeline files into the format-agnostic model.
type Loader struct{}

// NewLoader creates a new YAML workflow loader.
func NewLoader() *Loader {
	return &Loader{}
}

type yamlPipelineFile struct {
	Matrix    *yamlMatrix  `yaml:"matrix"`
	Manifests []string     `yaml:"manifests"`
	Cache     *yamlCache   `yaml:"cache"`
	Install   *yamlStage   `yaml:"install"`
	Stages    []*yamlStage `yaml:"stages"`
}

type yamlMatrix struct {
	Platforms []string `yaml:"platforms"`
	Versions  []string `yaml:"versions"`
	FailFast  bool     `yaml:"fail-fast"`
}

type yamlCache struct {
	Dir string `yaml:"dir"`
}

type yamlStage struct {
	Name              string `yaml:"name"`
	Run               string `yaml:"run"`
	ContinueOnFailure bool   `yaml:"continue-on-failure"`
	Timeout           string `yaml:"timeout"`
}

// Load parses one workflow file and translates it into the unified model.
// Run commands are parsed as HCL templates, so "${matrix.version}"
// interpolation behaves identically across both formats.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading YAML pipeline definition.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, config.Errorf("failed to read %s: %v", path, err)
	}
	var parsed yamlPipelineFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, config.Errorf("failed to decode %s: %v", path, err)
	}

	model := &config.Model{Manifests: parsed.Manifests}
	if parsed.Matrix != nil {
		model.Matrix = &config.Matrix{
			Platforms: parsed.Matrix.Platforms,
			Versions:  parsed.Matrix.Versions,
			FailFast:  parsed.Matrix.FailFast,
		}
	}
	if parsed.Cache != nil {
		model.Cache = &config.CacheConfig{Dir: parsed.Cache.Dir}
	}
	if parsed.Install != nil {
		install, err := translateStage(parsed.Install, "install", path)
		if err != nil {
			return nil, err
		}
		install.Policy = config.Strict
		model.Install = install
	}

	seen := make(map[string]struct{}, len(parsed.Stages))
	for _, st := range parsed.Stages {
		if st.Name == "" {
			return nil, config.Errorf("a stage in %s has no name", path)
		}
		if _, dup := seen[st.Name]; dup {
			return nil, config.Errorf("stage %q is declared twice", st.Name)
		}
		seen[st.Name] = struct{}{}

		gate, err := translateStage(st, st.Name, path)
		if err != nil {
			return nil, err
		}
		model.Gates = append(model.Gates, gate)
	}

	return model, nil
}

func translateStage(st *yamlStage, name, path string) (*config.Stage, error) {
	if st.Run == "" {
		return nil, config.Errorf("stage %q has no run command", name)
	}
	expr, err := commandExpression(st.Run, path)
	if err != nil {
		return nil, config.Errorf("stage %q run command: %v", name, err)
	}

	var timeout time.Duration
	if st.Timeout != "" {
		timeout, err = time.ParseDuration(st.Timeout)
		if err != nil {
			return nil, config.Errorf("stage %q has invalid timeout %q: %v", name, st.Timeout, err)
		}
	}
	policy := config.Strict
	if st.ContinueOnFailure {
		policy = config.ContinueOnFailure
	}
	return &config.Stage{Name: name, Run: expr, Policy: policy, Timeout: timeout}, nil
}

// commandExpression turns a raw command string into an HCL template
// expression.
func commandExpression(command, filename string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(command), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	return expr, nil
}
