package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"glmirror/internal/config"
	"glmirror/internal/report"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration and where it came from",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, _ []string) error {
	var cfg config.Config
	var loaded string
	var err error
	if rootFlags.configPath != "" {
		cfg, err = config.LoadFromPath(rootFlags.configPath)
		loaded = rootFlags.configPath
	} else {
		cfg, loaded, err = config.Load()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if loaded != "" {
		fmt.Fprintf(out, "Config file:  %s\n", loaded)
	} else {
		fmt.Fprintf(out, "Config file:  (none found; searched %s)\n", strings.Join(config.SearchPaths(), ", "))
	}
	fmt.Fprintf(out, "Instance:     %s\n", cfg.URL)
	fmt.Fprintf(out, "Token:        %s\n", maskToken(cfg.Token))
	fmt.Fprintf(out, "Root dir:     %s\n", cfg.RootDir)
	fmt.Fprintf(out, "Clone method: %s\n", cfg.CloneMethod)
	fmt.Fprintf(out, "Jobs:         %d\n", cfg.Jobs)
	fmt.Fprintf(out, "Git timeout:  %s\n", report.FormatDuration(cfg.GitTimeout.Std()))
	fmt.Fprintf(out, "API timeout:  %s\n", report.FormatDuration(cfg.APITimeout.Std()))
	fmt.Fprintf(out, "Smart update: %t (skip window %dh)\n", cfg.SmartUpdate, cfg.SkipRecentHours)
	if len(cfg.Include) > 0 {
		fmt.Fprintf(out, "Include:      %s\n", strings.Join(cfg.Include, ", "))
	}
	if len(cfg.Exclude) > 0 {
		fmt.Fprintf(out, "Exclude:      %s\n", strings.Join(cfg.Exclude, ", "))
	}
	return cfg.Validate()
}
