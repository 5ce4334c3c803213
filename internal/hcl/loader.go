package hcl

import (
	"context"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
)

// Loader parses .hcl pipeline files into the format-agnostic model.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// hclPipelineFile is the top-level structure of a pipeline file for decoding.
type hclPipelineFile struct {
	Matrix    *hclMatrix  `hcl:"matrix,block"`
	Manifests []string    `hcl:"manifests,optional"`
	Cache     *hclCache   `hcl:"cache,block"`
	Install   *hclInstall `hcl:"install,block"`
	Stages    []*hclStage `hcl:"stage,block"`
}

type hclMatrix struct {
	Platforms []string `hcl:"platforms"`
	Versions  []string `hcl:"versions"`
	FailFast  *bool    `hcl:"fail_fast,optional"`
}

type hclCache struct {
	Dir string `hcl:"dir,optional"`
}

type hclInstall struct {
	Run     hcl.Expression `hcl:"run"`
	Timeout *string        `hcl:"timeout,optional"`
}

type hclStage struct {
	Name              string         `hcl:"name,label"`
	Run               hcl.Expression `hcl:"run"`
	ContinueOnFailure *bool          `hcl:"continue_on_failure,optional"`
	Timeout           *string        `hcl:"timeout,optional"`
}

// Load parses one pipeline file and translates it into the unified model.
// Stage commands stay unevaluated expressions; the coordinator resolves
// them once per lane.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL pipeline definition.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, config.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var parsed hclPipelineFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, config.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	return translate(&parsed)
}

// translate converts the HCL-specific schema into the agnostic model.
func translate(parsed *hclPipelineFile) (*config.Model, error) {
	model := &config.Model{Manifests: parsed.Manifests}

	if parsed.Matrix != nil {
		model.Matrix = &config.Matrix{
			Platforms: parsed.Matrix.Platforms,
			Versions:  parsed.Matrix.Versions,
		}
		if parsed.Matrix.FailFast != nil {
			model.Matrix.FailFast = *parsed.Matrix.FailFast
		}
	}
	if parsed.Cache != nil {
		model.Cache = &config.CacheConfig{Dir: parsed.Cache.Dir}
	}
	if parsed.Install != nil {
		timeout, err := parseTimeout("install", parsed.Install.Timeout)
		if err != nil {
			return nil, err
		}
		model.Install = &config.Stage{
			Name:    "install",
			Run:     parsed.Install.Run,
			Policy:  config.Strict,
			Timeout: timeout,
		}
	}

	seen := make(map[string]struct{}, len(parsed.Stages))
	for _, st := range parsed.Stages {
		if _, dup := seen[st.Name]; dup {
			return nil, config.Errorf("stage %q is declared twice", st.Name)
		}
		seen[st.Name] = struct{}{}

		timeout, err := parseTimeout(st.Name, st.Timeout)
		if err != nil {
			return nil, err
		}
		policy := config.Strict
		if st.ContinueOnFailure != nil && *st.ContinueOnFailure {
			policy = config.ContinueOnFailure
		}
		model.Gates = append(model.Gates, &config.Stage{
			Name:    st.Name,
			Run:     st.Run,
			Policy:  policy,
			Timeout: timeout,
		})
	}

	return model, nil
}

func parseTimeout(stageName string, raw *string) (time.Duration, error) {
	if raw == nil || *raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return 0, config.Errorf("stage %q has invalid timeout %q: %v", stageName, *raw, err)
	}
	if d < 0 {
		return 0, config.Errorf("stage %q has negative timeout %q", stageName, *raw)
	}
	return d, nil
}
