// Package config loads shell and updater settings from defaults, an optional
// config.yaml and SIGNMEUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName names the config and cache directories.
	AppName = "signmeup"
	// EnvPrefix prefixes environment overrides, e.g. SIGNMEUP_UPDATE_REPO.
	EnvPrefix = "SIGNMEUP"

	DefaultOwner = "smeup"
	DefaultRepo  = "signmeup-client-electron-binaries"
)

// Config is the resolved configuration.
type Config struct {
	DevServerURL string        `mapstructure:"dev_server_url"`
	ResourcesDir string        `mapstructure:"resources_dir"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	OpenBrowser  bool          `mapstructure:"open_browser"`
	WindowGrace  time.Duration `mapstructure:"window_grace"`

	Update UpdateConfig `mapstructure:"update"`
	Log    LogConfig    `mapstructure:"log"`
}

// UpdateConfig configures the update source.
type UpdateConfig struct {
	Owner           string        `mapstructure:"owner"`
	Repo            string        `mapstructure:"repo"`
	Token           string        `mapstructure:"token"`
	APIURL          string        `mapstructure:"api_url"`
	CheckTimeout    time.Duration `mapstructure:"check_timeout"`
	CacheDir        string        `mapstructure:"cache_dir"`
	AllowPrerelease bool          `mapstructure:"allow_prerelease"`
}

// LogConfig configures the diagnostic logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LoadOptions overrides where configuration is read from.
type LoadOptions struct {
	// ConfigFile, when set, must exist and is used exclusively.
	ConfigFile string
	// ConfigDir replaces Dir() when looking for config.yaml.
	ConfigDir string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DevServerURL: "http://localhost:5173",
		ListenAddr:   "127.0.0.1:0",
		OpenBrowser:  true,
		WindowGrace:  5 * time.Second,
		Update: UpdateConfig{
			Owner:        DefaultOwner,
			Repo:         DefaultRepo,
			CheckTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Dir returns the per-user config directory. SIGNMEUP_CONFIG_DIR overrides it.
func Dir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Load resolves the configuration and returns it with the path of the file
// that was read, or "" when only defaults and environment applied.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("dev_server_url", d.DevServerURL)
	v.SetDefault("resources_dir", d.ResourcesDir)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("open_browser", d.OpenBrowser)
	v.SetDefault("window_grace", d.WindowGrace)
	v.SetDefault("update.owner", d.Update.Owner)
	v.SetDefault("update.repo", d.Update.Repo)
	v.SetDefault("update.token", d.Update.Token)
	v.SetDefault("update.api_url", d.Update.APIURL)
	v.SetDefault("update.check_timeout", d.Update.CheckTimeout)
	v.SetDefault("update.cache_dir", d.Update.CacheDir)
	v.SetDefault("update.allow_prerelease", d.Update.AllowPrerelease)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	switch {
	case opts.ConfigFile != "":
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFile)
		}
		path = opts.ConfigFile
	default:
		dir := opts.ConfigDir
		if dir == "" {
			var err error
			if dir, err = Dir(); err != nil {
				return nil, "", err
			}
		}
		candidate := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Update.Token == "" {
		cfg.Update.Token = TokenFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// TokenFromEnv returns GITHUB_TOKEN, falling back to GH_TOKEN.
func TokenFromEnv() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Update.Owner == "" || c.Update.Repo == "" {
		errs = append(errs, errors.New("update.owner and update.repo are required"))
	}
	if c.Update.CheckTimeout <= 0 {
		errs = append(errs, fmt.Errorf("update.check_timeout must be positive, got %s", c.Update.CheckTimeout))
	}
	if c.WindowGrace < 0 {
		errs = append(errs, fmt.Errorf("window_grace must not be negative, got %s", c.WindowGrace))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	return errors.Join(errs...)
}
