package stage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/matrix"
)

// Runner executes stage commands for a lane. The zero value is not usable;
// construct with NewRunner.
type Runner struct {
	shell Shell
	dir   string
	env   []string
	now   func() time.Time
}

// NewRunner builds a runner for the given environment. dir is the working
// directory of every stage subprocess; extraEnv entries ("KEY=value") are
// appended to the inherited environment, after the lane identity variables.
func NewRunner(env matrix.Environment, dir string, extraEnv []string) *Runner {
	laneEnv := []string{
		"GRIDCI_PLATFORM=" + env.Platform,
		"GRIDCI_VERSION=" + env.Version,
	}
	return &Runner{
		shell: ShellFor(env.Family()),
		dir:   dir,
		env:   append(laneEnv, extraEnv...),
		now:   time.Now,
	}
}

// Run executes one stage command and captures its outcome. A nonzero exit
// status or a per-stage timeout produces a failed Result, not an error; an
// error is returned only when the command cannot be run at all
// (InfrastructureError) or the surrounding run was cancelled.
func (r *Runner) Run(ctx context.Context, spec Spec, env matrix.Environment) (Result, error) {
	logger := ctxlog.FromContext(ctx).With("stage", spec.Name, "lane", env.ID())

	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := r.shell.Command(runCtx, spec.Command)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), r.env...)
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	result := Result{
		Stage:       spec.Name,
		Environment: env,
		StartedAt:   r.now(),
	}

	logger.Debug("Starting stage command.", "command", spec.Command)
	err := cmd.Run()
	result.Duration = r.now().Sub(result.StartedAt)
	result.Output = strings.TrimSpace(output.String())

	switch {
	case err == nil:
		result.Status = StatusSucceeded
		logger.Debug("Stage command succeeded.", "duration", result.Duration)
		return result, nil

	case ctx.Err() != nil:
		// The whole run was cancelled; this is not the stage's own verdict.
		return Result{}, ctx.Err()

	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = StatusFailed
		result.ExitCode = -1
		result.Reason = fmt.Sprintf("timeout after %s", spec.Timeout)
		logger.Warn("Stage command timed out.", "timeout", spec.Timeout)
		return result, nil

	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Status = StatusFailed
			result.ExitCode = exitErr.ExitCode()
			result.Reason = fmt.Sprintf("exit status %d", exitErr.ExitCode())
			logger.Debug("Stage command failed.", "exitCode", result.ExitCode)
			return result, nil
		}
		// The command never produced an exit status: missing shell, missing
		// binary, unreadable working directory.
		return Result{}, &InfrastructureError{Stage: spec.Name, Err: err}
	}
}

// Skipped builds the record for a stage that was not executed because an
// earlier strict stage failed.
func Skipped(spec Spec, env matrix.Environment, after string) Result {
	return Result{
		Stage:       spec.Name,
		Environment: env,
		Status:      StatusSkipped,
		Reason:      fmt.Sprintf("skipped after %s failed", after),
	}
}
