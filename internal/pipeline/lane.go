package pipeline

import (
	"github.com/vk/gridci/internal/cache"
	"github.com/vk/gridci/internal/matrix"
	"github.com/vk/gridci/internal/stage"
)

// State is the position of a lane in its life cycle.
type State string

const (
	StatePending     State = "pending"
	StateCachingDeps State = "caching-deps"
	StateInstalling  State = "installing"
	StateRunning     State = "running"
	StateDone        State = "done"
)

// Lane is one environment's independent path through the pipeline. It is
// written only by the worker that owns it and read after the run completes.
type Lane struct {
	Environment matrix.Environment
	State       State
	Key         cache.Key
	CacheHit    bool
	Results     []stage.Result

	// Err is set when the lane hit an infrastructure failure or was
	// cancelled. It never aborts sibling lanes.
	Err error
}

// Success reports the lane verdict: every executed stage succeeded and no
// infrastructure failure occurred. Skipped stages do not count against the
// lane; the strict failure that caused them already does.
func (l *Lane) Success() bool {
	if l.Err != nil {
		return false
	}
	for _, r := range l.Results {
		if r.Status == stage.StatusFailed || r.Status == stage.StatusErrored {
			return false
		}
	}
	return true
}

// Verdict is the aggregated outcome of a pipeline run. Success is the
// conjunction of every lane's verdict; it is derived, never set directly.
type Verdict struct {
	RunID   string
	Lanes   []*Lane
	Success bool
}
