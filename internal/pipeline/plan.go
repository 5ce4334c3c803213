package pipeline

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/matrix"
	"github.com/vk/gridci/internal/stage"
)

// lanePlan is one lane's fully resolved stage sequence: every command
// expression has been evaluated against the lane's matrix variables.
type lanePlan struct {
	install stage.Spec
	gates   []stage.Spec
}

// resolvePlan evaluates the stage definitions for one environment. Plans
// for all lanes are resolved before any lane starts, so an unresolvable
// expression aborts the run as a configuration error.
func resolvePlan(cfg *config.Model, env matrix.Environment) (*lanePlan, error) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix": cty.ObjectVal(map[string]cty.Value{
				"platform": cty.StringVal(env.Platform),
				"version":  cty.StringVal(env.Version),
			}),
		},
	}

	if cfg.Install == nil {
		return nil, config.Errorf("install stage is missing")
	}
	install, err := resolveStage(cfg.Install, evalCtx)
	if err != nil {
		return nil, err
	}
	// A failed install leaves nothing for the gates to run against, so its
	// policy is always strict regardless of configuration.
	install.Policy = config.Strict

	plan := &lanePlan{install: install}
	for _, gate := range cfg.Gates {
		spec, err := resolveStage(gate, evalCtx)
		if err != nil {
			return nil, err
		}
		plan.gates = append(plan.gates, spec)
	}
	return plan, nil
}

func resolveStage(st *config.Stage, evalCtx *hcl.EvalContext) (stage.Spec, error) {
	if st.Run == nil {
		return stage.Spec{}, config.Errorf("stage %q has no run command", st.Name)
	}
	val, diags := st.Run.Value(evalCtx)
	if diags.HasErrors() {
		return stage.Spec{}, config.Errorf("stage %q run expression: %s", st.Name, diags.Error())
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil || val.IsNull() {
		return stage.Spec{}, config.Errorf("stage %q run expression must produce a string", st.Name)
	}

	policy := st.Policy
	if policy == "" {
		policy = config.Strict
	}
	return stage.Spec{
		Name:    st.Name,
		Command: val.AsString(),
		Policy:  policy,
		Timeout: st.Timeout,
	}, nil
}
