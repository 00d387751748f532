package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glmirror/internal/config"
	"glmirror/internal/filter"
	"glmirror/internal/format"
	"glmirror/internal/gitlab"
	"glmirror/internal/logging"
	"glmirror/internal/model"
)

// inventoryFlags are shared by every command that talks to the API.
type inventoryFlags struct {
	groups      []string
	instanceURL string
	token       string
	rootDir     string
	exclude     []string
	include     []string
	archived    bool
	sinceDays   int
}

func addInventoryFlags(cmd *cobra.Command, f *inventoryFlags) {
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.groups, "group", "g", nil, "Group ID or full path; repeatable (required)")
	fl.StringVar(&f.instanceURL, "instance-url", "", "GitLab instance URL")
	fl.StringVar(&f.token, "token", "", "API token (prefer GITLAB_TOKEN)")
	fl.StringVar(&f.rootDir, "root-dir", "", "Local sync root directory")
	fl.StringArrayVarP(&f.exclude, "exclude", "e", nil, "Glob pattern to skip; repeatable, wins over --include")
	fl.StringArrayVarP(&f.include, "include", "i", nil, "Glob pattern to keep; repeatable, others are skipped")
	fl.BoolVar(&f.archived, "archived", false, "Include archived projects")
	fl.IntVar(&f.sinceDays, "since", 0, "Only projects active in the last N days")

	_ = cmd.MarkFlagRequired("group")
}

// loadConfig layers file, env and flag values into the effective
// config. Flags override only when set on the command line.
func loadConfig(cmd *cobra.Command, f *inventoryFlags) (config.Config, error) {
	var cfg config.Config
	var err error
	if rootFlags.configPath != "" {
		cfg, err = config.LoadFromPath(rootFlags.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	if f.instanceURL != "" {
		cfg.URL = f.instanceURL
	}
	if f.token != "" {
		cfg.Token = f.token
	}
	if f.rootDir != "" {
		cfg.RootDir = f.rootDir
	}
	if len(f.exclude) > 0 {
		cfg.Exclude = f.exclude
	}
	if len(f.include) > 0 {
		cfg.Include = f.include
	}
	if fl.Changed("archived") {
		cfg.IncludeArchived = f.archived
	}
	if fl.Changed("since") {
		cfg.SinceDays = f.sinceDays
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.LogFormat = rootFlags.logFormat
	}
	return cfg, cfg.Validate()
}

func initLogging(cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat, os.Stderr)
	return nil
}

func newAPIClient(cfg config.Config) *gitlab.Client {
	return gitlab.NewClient(gitlab.Config{
		BaseURL: cfg.URL,
		Token:   cfg.Token,
		Timeout: cfg.APITimeout.Std(),
	})
}

func filterPolicy(cfg config.Config) filter.Policy {
	pol := filter.Policy{
		Include:         cfg.Include,
		Exclude:         cfg.Exclude,
		IncludeArchived: cfg.IncludeArchived,
	}
	if cfg.SinceDays > 0 {
		pol.MaxAge = time.Duration(cfg.SinceDays) * 24 * time.Hour
	}
	return pol
}

func listOptions(cfg config.Config, now time.Time) gitlab.ListOptions {
	return gitlab.ListOptions{
		IncludeArchived: cfg.IncludeArchived,
		ActiveSince:     cfg.ActiveSince(now),
	}
}

// discover fetches the project inventory for the requested groups.
func discover(ctx context.Context, cfg config.Config, groups []string, now time.Time) ([]model.RemoteProject, error) {
	client := newAPIClient(cfg)
	projects, err := client.DiscoverProjects(ctx, groups, listOptions(cfg, now))
	if err != nil {
		return nil, fmt.Errorf("discover projects: %w", err)
	}
	return projects, nil
}

func tableMode() format.Mode {
	if rootFlags.markdown {
		return format.Markdown
	}
	return format.ASCII
}

// maskToken hides all but a short prefix of a credential.
func maskToken(tok string) string {
	if tok == "" {
		return "(not set)"
	}
	if len(tok) <= 8 {
		return strings.Repeat("*", len(tok))
	}
	return tok[:4] + strings.Repeat("*", len(tok)-4)
}
