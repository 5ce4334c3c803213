package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/fsutil"
	"github.com/vk/gridci/internal/hcl"
	"github.com/vk/gridci/internal/settings"
	"github.com/vk/gridci/internal/yamlcfg"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Reports go to outW; logs go to logW.
type App struct {
	outW     io.Writer
	logW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	settings settings.Settings
}

// ResolvePipelinePath accepts either a pipeline definition file or a
// directory holding exactly one. Directories with zero or several candidate
// definitions are ambiguous and rejected.
func ResolvePipelinePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", config.Errorf("pipeline definition not found: %v", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	found, err := fsutil.FindFilesByExtension(path, ".hcl", ".yml", ".yaml")
	if err != nil {
		return "", config.Errorf("searching %s for a pipeline definition: %v", path, err)
	}
	switch len(found) {
	case 0:
		return "", config.Errorf("no pipeline definition (.hcl, .yml, .yaml) found under %s", path)
	case 1:
		return found[0], nil
	default:
		return "", config.Errorf("multiple pipeline definitions found under %s, pass one explicitly", path)
	}
}

// LoaderFor selects the configuration loader matching the pipeline file's
// extension.
func LoaderFor(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".yml", ".yaml":
		return yamlcfg.NewLoader(), nil
	default:
		return nil, config.Errorf("unsupported pipeline definition format: %s", path)
	}
}

// NewApp is the constructor for the main application. It loads the pipeline
// definition and the operator settings and returns a fully initialized App
// instance with its own isolated logger.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline definition: %w", err)
	}
	logger.Debug("Pipeline definition loaded and translated into unified model.",
		"gates", len(model.Gates), "manifests", len(model.Manifests))

	settingsPath := appConfig.SettingsPath
	if settingsPath == "" {
		settingsPath = settings.DefaultPath()
	}
	opSettings, err := settings.LoadFrom(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	logger.Debug("Operator settings loaded.", "path", settingsPath, "s3", opSettings.S3.Enabled())

	return &App{
		outW:     outW,
		logW:     logW,
		logger:   logger,
		config:   appConfig,
		model:    model,
		settings: opSettings,
	}, nil
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
