package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vk/gridci/internal/cache"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/pipeline"
	"github.com/vk/gridci/internal/report"
)

// ErrPipelineFailed reports a run that completed but whose overall verdict
// is false. Callers map it to a nonzero exit code; it is not a crash.
var ErrPipelineFailed = errors.New("pipeline failed")

// Run executes the pipeline end to end and renders the report.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	store, err := a.buildStore(ctx)
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "gridci-run-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	workers := a.config.Workers
	if workers <= 0 {
		workers = a.settings.WorkersOrDefault()
	}

	a.logger.Info("Starting pipeline run.", "pipeline", a.config.PipelinePath, "workers", workers)
	coordinator := pipeline.New(a.model, store, pipeline.Options{
		Workers:    workers,
		WorkDir:    a.config.WorkDir,
		ScratchDir: scratch,
	})
	verdict, err := coordinator.Run(ctx)
	if err != nil {
		return fmt.Errorf("execution aborted: %w", err)
	}

	if a.config.ReportFormat == "json" {
		err = report.RenderJSON(a.outW, verdict)
	} else {
		err = report.Render(a.outW, verdict)
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if !verdict.Success {
		return ErrPipelineFailed
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// buildStore selects the snapshot store: the remote S3 store when the
// operator settings enable one, otherwise the local filesystem store. The
// pipeline definition's cache block takes precedence for the local
// directory.
func (a *App) buildStore(ctx context.Context) (cache.Store, error) {
	if a.settings.S3.Enabled() {
		a.logger.Debug("Using S3 snapshot store.", "endpoint", a.settings.S3.Endpoint)
		store, err := cache.NewS3Store(ctx, a.settings.S3.CacheConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize remote cache: %w", err)
		}
		return store, nil
	}

	dir := a.settings.CacheDirOrDefault()
	if a.model.Cache != nil && a.model.Cache.Dir != "" {
		dir = a.model.Cache.Dir
	}
	a.logger.Debug("Using local snapshot store.", "dir", dir)
	store, err := cache.NewLocalStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local cache: %w", err)
	}
	return store, nil
}
