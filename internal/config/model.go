package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of the entire
// pipeline definition: the execution matrix, the tracked dependency
// manifests, the cache location, and the ordered stage sequence.
type Model struct {
	Matrix    *Matrix
	Manifests []string
	Cache     *CacheConfig
	Install   *Stage
	Gates     []*Stage
}

// Matrix declares the axes of the execution matrix. The cross product of
// Platforms and Versions yields one independent lane per combination.
type Matrix struct {
	Platforms []string
	Versions  []string
	FailFast  bool
}

// CacheConfig declares where dependency snapshots are kept. An empty Dir
// defers to the operator settings file.
type CacheConfig struct {
	Dir string
}

// Policy controls how a stage failure propagates within its lane.
type Policy string

const (
	// Strict skips the remaining stages of the lane when the stage fails.
	Strict Policy = "strict"
	// ContinueOnFailure records the failure and proceeds to the next stage.
	ContinueOnFailure Policy = "continue_on_failure"
)

// Stage is the format-agnostic representation of one quality-gate step.
// Run is kept as an unevaluated expression so that a single definition can
// be resolved once per lane against the matrix variables.
type Stage struct {
	Name    string
	Run     hcl.Expression
	Policy  Policy
	Timeout time.Duration
}
