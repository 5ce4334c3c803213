package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/gridci/internal/cache"
	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/stage"
)

// worker is the processing loop for a single concurrent lane worker.
func (c *Coordinator) worker(ctx context.Context, jobs <-chan *laneJob, wg *sync.WaitGroup, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for job := range jobs {
		if ctx.Err() != nil {
			job.lane.Err = ctx.Err()
			job.lane.State = StateDone
			wg.Done()
			continue
		}

		workerLogger := logger.With("workerID", workerID, "lane", job.lane.Environment.ID())
		workerLogger.Debug("Worker picked up lane.")
		c.runLane(ctxlog.WithLogger(ctx, workerLogger), job)

		if !job.lane.Success() && c.cfg.Matrix.FailFast {
			workerLogger.Warn("Lane failed with fail_fast enabled, cancelling remaining lanes.")
			cancel()
		}
		wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// runLane drives one lane through its full state machine:
// Pending -> CachingDeps -> Installing (skipped on cache hit) -> gates -> Done.
func (c *Coordinator) runLane(ctx context.Context, job *laneJob) {
	lane := job.lane
	logger := ctxlog.FromContext(ctx)
	defer func() { lane.State = StateDone }()

	depsDir := filepath.Join(c.opts.ScratchDir, c.opts.RunID, laneDirName(lane.Environment))
	if err := os.MkdirAll(depsDir, 0o755); err != nil {
		lane.Err = fmt.Errorf("creating lane dependency directory: %w", err)
		return
	}
	runner := c.opts.NewRunner(lane.Environment, []string{
		"GRIDCI_RUN_ID=" + c.opts.RunID,
		"GRIDCI_DEPS_DIR=" + depsDir,
	})

	lane.State = StateCachingDeps
	restored := c.restoreDeps(ctx, lane, depsDir)
	if lane.Err != nil {
		return
	}

	if restored {
		lane.CacheHit = true
		lane.Results = append(lane.Results, stage.Result{
			Stage:       job.plan.install.Name,
			Environment: lane.Environment,
			Status:      stage.StatusSkipped,
			Reason:      "dependencies restored from cache",
		})
	} else {
		lane.State = StateInstalling
		res, err := runner.Run(ctx, job.plan.install, lane.Environment)
		if err != nil {
			lane.Err = err
			return
		}
		lane.Results = append(lane.Results, res)
		if res.Status != stage.StatusSucceeded {
			// Nothing to gate without installed dependencies.
			for _, gate := range job.plan.gates {
				lane.Results = append(lane.Results, stage.Skipped(gate, lane.Environment, job.plan.install.Name))
			}
			return
		}
		if _, err := c.store.Store(ctx, lane.Key, depsDir); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				lane.Err = err
				return
			}
			// Storage trouble degrades the cache, never the lane.
			logger.Warn("Failed to store dependency snapshot.", "key", lane.Key, "error", err)
		}
	}

	lane.State = StateRunning
	failedStrict := ""
	for _, gate := range job.plan.gates {
		if failedStrict != "" {
			lane.Results = append(lane.Results, stage.Skipped(gate, lane.Environment, failedStrict))
			continue
		}
		res, err := runner.Run(ctx, gate, lane.Environment)
		if err != nil {
			lane.Err = err
			lane.Results = append(lane.Results, stage.Result{
				Stage:       gate.Name,
				Environment: lane.Environment,
				Status:      stage.StatusErrored,
				Reason:      err.Error(),
			})
			return
		}
		lane.Results = append(lane.Results, res)
		if res.Status == stage.StatusFailed && gate.Policy == config.Strict {
			failedStrict = gate.Name
		}
	}
}

// restoreDeps attempts a cache lookup and materialization for the lane.
// Every cache-side problem short of run cancellation degrades to a miss: a
// corrupt or unreachable entry must trigger a full install, never fail the
// lane.
func (c *Coordinator) restoreDeps(ctx context.Context, lane *Lane, depsDir string) bool {
	logger := ctxlog.FromContext(ctx)

	_, ok, err := c.store.Lookup(ctx, lane.Key)
	if err != nil {
		if ctx.Err() != nil {
			lane.Err = ctx.Err()
			return false
		}
		logger.Warn("Cache lookup failed, treating as miss.", "key", lane.Key, "error", err)
		return false
	}
	if !ok {
		logger.Debug("Cache miss.", "key", lane.Key)
		return false
	}

	if err := c.store.Materialize(ctx, lane.Key, depsDir); err != nil {
		if ctx.Err() != nil {
			lane.Err = ctx.Err()
			return false
		}
		var corrupt *cache.CorruptionError
		if errors.As(err, &corrupt) {
			logger.Warn("Cache entry is corrupt, falling back to full install.", "key", lane.Key, "error", err)
		} else {
			logger.Warn("Cache restore failed, falling back to full install.", "key", lane.Key, "error", err)
		}
		return false
	}

	logger.Info("Dependencies restored from cache.", "key", lane.Key)
	return true
}
