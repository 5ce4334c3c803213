// Package stage runs one named quality-gate step against one environment
// and captures the outcome. Stage commands are opaque subprocesses; a
// nonzero exit is a normal, representable result, not an error.
package stage

import (
	"fmt"
	"time"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/matrix"
)

// Spec is one stage resolved for a concrete lane: the command expression
// has already been evaluated against the lane's matrix variables.
type Spec struct {
	Name    string
	Command string
	Policy  config.Policy
	Timeout time.Duration
}

// Status is the terminal state of a stage within a lane.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusErrored   Status = "errored"
)

// Result records the outcome of one stage invocation. It is immutable once
// produced.
type Result struct {
	Stage       string             `json:"stage"`
	Environment matrix.Environment `json:"environment"`
	Status      Status             `json:"status"`
	ExitCode    int                `json:"exit_code"`
	Output      string             `json:"output,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	Duration    time.Duration      `json:"duration"`
}

// InfrastructureError reports a stage that could not be run at all, e.g.
// the shell or command binary is missing. It is fatal to the affected lane
// only.
type InfrastructureError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("stage %s could not be run: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *InfrastructureError) Unwrap() error {
	return e.Err
}
