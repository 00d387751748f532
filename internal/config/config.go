// Package config loads glmirror settings from YAML files, environment
// variables and built-in defaults, in that order of precedence (flags
// are layered on top by the CLI).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals YAML values like "15m" or "1h30m".
type Duration time.Duration

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the full set of tunables for a mirror run.
type Config struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	RootDir string `yaml:"root_dir"`

	CloneMethod     string `yaml:"clone_method"` // http or ssh
	UpdateExisting  bool   `yaml:"update_existing"`
	SmartUpdate     bool   `yaml:"smart_update"`
	SkipRecentHours int    `yaml:"skip_recent_hours"`
	Jobs            int    `yaml:"jobs"`

	GitTimeout Duration `yaml:"git_timeout"`
	APITimeout Duration `yaml:"api_timeout"`

	Exclude []string `yaml:"exclude"`
	Include []string `yaml:"include"`

	CloneDepth   int  `yaml:"clone_depth"`
	SingleBranch bool `yaml:"single_branch"`
	FilterBlobs  bool `yaml:"filter_blobs"`
	Prune        bool `yaml:"prune"`

	IncludeArchived bool `yaml:"include_archived"`
	SinceDays       int  `yaml:"since_days"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no file or flag says
// otherwise.
func Default() Config {
	return Config{
		URL:             "https://gitlab.com",
		RootDir:         ".",
		CloneMethod:     "http",
		UpdateExisting:  true,
		SmartUpdate:     true,
		SkipRecentHours: 1,
		Jobs:            4,
		GitTimeout:      Duration(10 * time.Minute),
		APITimeout:      Duration(30 * time.Second),
		Prune:           true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// SearchPaths lists the config file locations probed by Load, in
// order. The first file that exists wins.
func SearchPaths() []string {
	paths := []string{".glmirror.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "glmirror", "config.yaml"))
	}
	return paths
}

// Load builds the effective config: defaults, then the first config
// file found, then environment overrides. Returns the path of the file
// that was loaded, or "" when running on defaults.
func Load() (Config, string, error) {
	cfg := Default()
	var loaded string
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := cfg.mergeFile(p); err != nil {
			return cfg, "", err
		}
		loaded = p
		break
	}
	cfg.ApplyEnv()
	return cfg, loaded, nil
}

// LoadFromPath builds the effective config from an explicit file.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. Token via env is
// the recommended way to keep credentials out of files.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GITLAB_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("GITLAB_ROOT_DIR"); v != "" {
		c.RootDir = v
	}
}

// Validate reports configuration errors a run cannot proceed with.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("instance URL is required")
	}
	if c.CloneMethod != "http" && c.CloneMethod != "ssh" {
		return fmt.Errorf("clone_method must be http or ssh, got %q", c.CloneMethod)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.SkipRecentHours < 0 {
		return fmt.Errorf("skip_recent_hours must not be negative, got %d", c.SkipRecentHours)
	}
	if c.SinceDays < 0 {
		return fmt.Errorf("since_days must not be negative, got %d", c.SinceDays)
	}
	return nil
}

// EnsureToken reports an error when no API token is configured.
func (c *Config) EnsureToken() error {
	if c.Token == "" {
		return errors.New("no GitLab token configured; set GITLAB_TOKEN or the token key in the config file")
	}
	return nil
}

// FreshnessWindow is the smart-update skip window.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.SkipRecentHours) * time.Hour
}

// ActiveSince converts SinceDays into an activity cutoff. Zero time
// means no cutoff.
func (c *Config) ActiveSince(now time.Time) time.Time {
	if c.SinceDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -c.SinceDays)
}
