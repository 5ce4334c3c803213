package pipeline

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/gridci/internal/cache"
	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/manifest"
	"github.com/vk/gridci/internal/matrix"
	"github.com/vk/gridci/internal/stage"
)

// Runner abstracts stage execution so that tests can substitute command
// invocation. The production implementation is stage.Runner.
type Runner interface {
	Run(ctx context.Context, spec stage.Spec, env matrix.Environment) (stage.Result, error)
}

// RunnerFactory builds the Runner for one lane. extraEnv entries are
// injected into every stage subprocess of that lane.
type RunnerFactory func(env matrix.Environment, extraEnv []string) Runner

// Options tunes a Coordinator. Zero values select sensible defaults.
type Options struct {
	// Workers caps how many lanes execute concurrently. Default 4.
	Workers int
	// WorkDir is the directory manifests are resolved against and stage
	// commands run in. Default: current directory.
	WorkDir string
	// ScratchDir holds the per-lane dependency directories for this run.
	// Default: the OS temp directory.
	ScratchDir string
	// RunID identifies this run in logs and reports. Default: a new UUID.
	RunID string
	// NewRunner overrides stage execution; used by tests.
	NewRunner RunnerFactory
}

// Coordinator drives one pipeline run end to end: matrix expansion,
// fingerprinting, cache traffic, and stage sequencing per lane.
type Coordinator struct {
	cfg   *config.Model
	store cache.Store
	opts  Options
}

// New builds a Coordinator for the given pipeline definition and cache
// store.
func New(cfg *config.Model, store cache.Store, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	c := &Coordinator{cfg: cfg, store: store, opts: opts}
	if c.opts.NewRunner == nil {
		c.opts.NewRunner = func(env matrix.Environment, extraEnv []string) Runner {
			return stage.NewRunner(env, opts.WorkDir, extraEnv)
		}
	}
	return c
}

type laneJob struct {
	lane *Lane
	plan *lanePlan
}

// Run executes the whole pipeline and returns its verdict. The returned
// error is non-nil only for configuration errors, which abort before any
// lane starts; every per-lane failure surfaces as data inside the verdict.
func (c *Coordinator) Run(ctx context.Context) (*Verdict, error) {
	logger := ctxlog.FromContext(ctx).With("runID", c.opts.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	envs, err := matrix.Expand(c.cfg.Matrix)
	if err != nil {
		return nil, err
	}
	set, err := manifest.Load(c.opts.WorkDir, c.cfg.Manifests)
	if err != nil {
		return nil, err
	}

	// Resolve every lane's plan up front so that a broken stage expression
	// is caught before a single command runs.
	jobs := make([]*laneJob, 0, len(envs))
	for _, env := range envs {
		plan, err := resolvePlan(c.cfg, env)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &laneJob{
			lane: &Lane{Environment: env, State: StatePending, Key: set.Fingerprint(env)},
			plan: plan,
		})
	}
	logger.Info("Matrix expanded.", "lanes", len(jobs))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := c.opts.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobChan := make(chan *laneJob, len(jobs))
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i := 0; i < workers; i++ {
		go c.worker(runCtx, jobChan, &wg, cancel, i)
	}
	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()

	verdict := &Verdict{RunID: c.opts.RunID, Success: true}
	for _, job := range jobs {
		verdict.Lanes = append(verdict.Lanes, job.lane)
		if !job.lane.Success() {
			verdict.Success = false
		}
	}
	logger.Info("Pipeline finished.", "success", verdict.Success, "lanes", len(verdict.Lanes))
	return verdict, nil
}

// laneDirName flattens an environment ID into a filesystem-safe directory
// name.
func laneDirName(env matrix.Environment) string {
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-").Replace(env.ID())
}
