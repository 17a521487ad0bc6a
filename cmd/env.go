package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/smeup/signmeup-client/internal/config"
	"github.com/smeup/signmeup-client/internal/logging"
	"github.com/smeup/signmeup-client/internal/updater"
	"github.com/smeup/signmeup-client/internal/version"
)

// appEnv is what the long-running commands share: resolved config and the
// diagnostic logger.
type appEnv struct {
	cfg    *config.Config
	logger *log.Logger
	closer io.Closer
}

func loadEnv(prefix string) (*appEnv, error) {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  level,
		File:   cfg.Log.File,
		Prefix: prefix,
	})
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return &appEnv{cfg: cfg, logger: logger, closer: closer}, nil
}

func (e *appEnv) Close() error {
	return e.closer.Close()
}

// newUpdater builds the update source for the configured release repository.
func (e *appEnv) newUpdater(ctx context.Context) (*updater.Updater, error) {
	u := e.cfg.Update
	source, err := updater.NewGitHubSource(u.Token, u.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create release source: %w", err)
	}
	return updater.New(updater.Config{
		Owner:           u.Owner,
		Repo:            u.Repo,
		CurrentVersion:  version.BuildVersion,
		AllowPrerelease: u.AllowPrerelease,
		CacheDir:        u.CacheDir,
		Source:          source,
		HTTPClient:      updater.NewHTTPClient(ctx, u.Token),
		Logger:          e.logger.WithPrefix("updater"),
	})
}

// resourcesDir is where a packaged install keeps its resources: the
// configured directory, or the directory holding the executable.
func (e *appEnv) resourcesDir() string {
	if e.cfg.ResourcesDir != "" {
		return e.cfg.ResourcesDir
	}
	exe, err := getCurrentBinaryPath()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func getCurrentBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}
