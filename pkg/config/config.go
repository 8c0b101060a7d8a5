package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"unsafelinks/pkg/clipboard"
	"unsafelinks/pkg/errors"
	"unsafelinks/pkg/watcher"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "unsafelinks"
	ConfigFileName = "config.yaml"

	MaxPollInterval = 10 * time.Second
)

// Config is the optional on-disk configuration. Every field has a working
// default, so running without a file is the normal case.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	SafeLinks SafeLinksConfig `yaml:"safelinks"`
}

type ServiceConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ClipboardConfig struct {
	WriteAttempts int           `yaml:"write_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type SafeLinksConfig struct {
	// ExtraDomains are matched in addition to safelinks.protection.outlook.com.
	ExtraDomains []string `yaml:"extra_domains,omitempty"`
}

func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			PollInterval: watcher.DefaultInterval,
		},
		Clipboard: ClipboardConfig{
			WriteAttempts: clipboard.DefaultWriteAttempts,
			RetryDelay:    clipboard.DefaultRetryDelay,
		},
	}
}

// GetConfigPath returns the default config file location
// ($XDG_CONFIG_HOME/unsafelinks/config.yaml on Linux).
func GetConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load reads the config file at path, or the default location when path is
// empty. Only an explicitly requested file has to exist.
func Load(path string) (*Config, error) {
	required := path != ""
	if !required {
		path = GetConfigPath()
	}
	cfg, err := loadFromPath(path, required)
	if err != nil {
		return nil, loadError(err, path)
	}
	return cfg, nil
}

// loadError names the file that was actually consulted, since the default
// location depends on the platform.
func loadError(err error, path string) error {
	wrapped := errors.Wrap(err, errors.ErrMsgConfigLoad)
	wrapped.Suggestion = fmt.Sprintf("Check %s or the UNSAFELINKS_* environment variables.", path)
	return wrapped
}

func loadFromPath(path string, required bool) (*Config, error) {
	cfg := Default()

	if err := loadConfigFile(path, required, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadConfigFile(path string, required bool, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.NewWithError(errors.ExitCodeConfig, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.NewWithError(errors.ExitCodeConfig, "failed to parse config file "+path, err)
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config
func applyEnvironmentOverrides(cfg *Config) error {
	if value := os.Getenv("UNSAFELINKS_POLL_INTERVAL"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid UNSAFELINKS_POLL_INTERVAL %q: %v", value, err))
		}
		cfg.Service.PollInterval = d
	}
	return nil
}

// Validate ensures the configured values are usable.
func (c *Config) Validate() error {
	if c.Service.PollInterval <= 0 || c.Service.PollInterval > MaxPollInterval {
		return errors.ConfigError(fmt.Sprintf("service.poll_interval must be between 0 and %s, got %s", MaxPollInterval, c.Service.PollInterval))
	}
	if c.Clipboard.WriteAttempts < 1 {
		return errors.ConfigError(fmt.Sprintf("clipboard.write_attempts must be at least 1, got %d", c.Clipboard.WriteAttempts))
	}
	if c.Clipboard.RetryDelay < 0 {
		return errors.ConfigError(fmt.Sprintf("clipboard.retry_delay must not be negative, got %s", c.Clipboard.RetryDelay))
	}
	for _, domain := range c.SafeLinks.ExtraDomains {
		domain = strings.Trim(strings.TrimSpace(domain), ".")
		if domain == "" || strings.ContainsAny(domain, "/:?#@ ") || !strings.Contains(domain, ".") {
			return errors.ConfigError(fmt.Sprintf("safelinks.extra_domains entry %q is not a host name", domain))
		}
	}
	return nil
}
