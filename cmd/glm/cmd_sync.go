package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"glmirror/internal/config"
	"glmirror/internal/execute"
	"glmirror/internal/gitcli"
	"glmirror/internal/logging"
	"glmirror/internal/reconcile"
	"glmirror/internal/report"
	"glmirror/internal/scan"
	"glmirror/internal/store"
)

var syncFlags struct {
	inventoryFlags
	cloneMethod  string
	dryRun       bool
	noUpdate     bool
	noSmart      bool
	skipRecent   int
	jobs         int
	depth        int
	singleBranch bool
	filterBlobs  bool
	prune        bool
	timeout      time.Duration
	jsonOut      bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone missing projects and update existing working copies",
	RunE:  runSync,
}

func init() {
	addInventoryFlags(syncCmd, &syncFlags.inventoryFlags)
	f := syncCmd.Flags()
	f.StringVar(&syncFlags.cloneMethod, "clone-method", "", "Clone transport: http or ssh")
	f.BoolVar(&syncFlags.dryRun, "dry-run", false, "Plan and report without touching the filesystem")
	f.BoolVar(&syncFlags.noUpdate, "no-update", false, "Only clone missing projects, never fetch existing ones")
	f.BoolVar(&syncFlags.noSmart, "no-smart", false, "Fetch even recently synchronized working copies")
	f.IntVar(&syncFlags.skipRecent, "skip-recent", 0, "Skip working copies synchronized within the last N hours")
	f.IntVarP(&syncFlags.jobs, "jobs", "j", 0, "Max concurrent git operations")
	f.IntVar(&syncFlags.depth, "depth", 0, "Shallow clone depth (0 = full history)")
	f.BoolVar(&syncFlags.singleBranch, "single-branch", false, "Clone only the default branch")
	f.BoolVar(&syncFlags.filterBlobs, "filter", false, "Partial clone: fetch blobs on demand")
	f.BoolVar(&syncFlags.prune, "prune", true, "Prune deleted remote branches on fetch")
	f.DurationVar(&syncFlags.timeout, "timeout", 0, "Per-project git timeout (e.g. 5m)")
	f.BoolVar(&syncFlags.jsonOut, "json", false, "Emit the run report as JSON")
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &syncFlags.inventoryFlags)
	if err != nil {
		return err
	}
	fl := cmd.Flags()
	if syncFlags.cloneMethod != "" {
		cfg.CloneMethod = syncFlags.cloneMethod
	}
	if syncFlags.noUpdate {
		cfg.UpdateExisting = false
	}
	if syncFlags.noSmart {
		cfg.SmartUpdate = false
	}
	if fl.Changed("skip-recent") {
		cfg.SkipRecentHours = syncFlags.skipRecent
	}
	if syncFlags.jobs > 0 {
		cfg.Jobs = syncFlags.jobs
	}
	if fl.Changed("depth") {
		cfg.CloneDepth = syncFlags.depth
	}
	if fl.Changed("single-branch") {
		cfg.SingleBranch = syncFlags.singleBranch
	}
	if fl.Changed("filter") {
		cfg.FilterBlobs = syncFlags.filterBlobs
	}
	if fl.Changed("prune") {
		cfg.Prune = syncFlags.prune
	}
	if fl.Changed("timeout") {
		cfg.GitTimeout = config.Duration(syncFlags.timeout)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureToken(); err != nil && cfg.CloneMethod != "ssh" {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	if syncFlags.jsonOut {
		// keep the structured report the only output
		logging.Discard()
	}
	log := logging.New("sync")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	projects, err := discover(ctx, cfg, syncFlags.groups, start)
	if err != nil {
		return err
	}
	log.Info("inventory fetched", "projects", len(projects), "groups", len(syncFlags.groups))

	st, err := store.Open(store.DefaultPath(cfg.RootDir))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer st.Close()

	locals, err := scan.Scan(cfg.RootDir, st)
	if err != nil {
		return err
	}

	plan := reconcile.Reconcile(projects, locals, reconcile.Policy{
		Filter:         filterPolicy(cfg),
		UpdateExisting: cfg.UpdateExisting,
		SmartUpdate:    cfg.SmartUpdate,
		FreshWindow:    cfg.FreshnessWindow(),
	}, start)

	git := gitcli.New(cfg.Token, gitcli.CloneOptions{
		Depth:        cfg.CloneDepth,
		SingleBranch: cfg.SingleBranch,
		FilterBlobs:  cfg.FilterBlobs,
	}, cfg.Prune)

	exec := execute.New(git, st, execute.Options{
		Root:    cfg.RootDir,
		Method:  cfg.CloneMethod,
		Limit:   cfg.Jobs,
		Timeout: cfg.GitTimeout.Std(),
		DryRun:  syncFlags.dryRun,
	})

	out := cmd.OutOrStdout()
	onProgress := func(ev execute.Event) {
		if syncFlags.jsonOut {
			return
		}
		fmt.Fprintln(out, report.ProgressLine(ev.Seq, ev.Total, ev.Outcome))
	}
	outcomes := exec.Execute(ctx, plan, onProgress)

	summary := report.Aggregate(outcomes, len(plan.Orphans), time.Since(start))
	if syncFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report.JSONView(summary, cfg.RootDir, outcomes)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.SummaryTable(summary, tableMode()))
		if ft := report.FailureTable(outcomes, tableMode()); ft != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, ft)
		}
		if len(plan.Orphans) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, report.OrphanTable(plan.Orphans, tableMode()))
			fmt.Fprintln(out, "Run 'glm clean' to review orphaned working copies.")
		}
	}

	if ctx.Err() == context.Canceled {
		return fmt.Errorf("sync interrupted")
	}
	if summary.Errors > 0 {
		log.Warn("sync finished with errors", "errors", summary.Errors)
		return fmt.Errorf("%w: %d of %d projects failed", errProjectFailures, summary.Errors, summary.TotalProjects)
	}
	return nil
}
