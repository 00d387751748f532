package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"glmirror/internal/format"
	"glmirror/internal/logging"
	"glmirror/internal/reconcile"
	"glmirror/internal/report"
	"glmirror/internal/scan"
	"glmirror/internal/store"
)

var statusFlags struct {
	inventoryFlags
	jsonOut bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show drift between the local tree and the remote inventory",
	Long: "status compares the local tree against the remote inventory without\n" +
		"running any git operation: which projects are synced, missing,\n" +
		"conflicting or orphaned.",
	RunE: runStatus,
}

func init() {
	addInventoryFlags(statusCmd, &statusFlags.inventoryFlags)
	statusCmd.Flags().BoolVar(&statusFlags.jsonOut, "json", false, "Emit drift as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &statusFlags.inventoryFlags)
	if err != nil {
		return err
	}
	if err := cfg.EnsureToken(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	if statusFlags.jsonOut {
		logging.Discard()
	}

	now := time.Now()
	projects, err := discover(cmd.Context(), cfg, statusFlags.groups, now)
	if err != nil {
		return err
	}

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
		UpdateExisting: true,
		SmartUpdate:    false,
	}, now)
	drift := report.Classify(plan)

	out := cmd.OutOrStdout()
	if statusFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(drift)
	}

	t := format.New(tableMode())
	t.Header("State", "Count")
	t.Row("Synced", len(drift.Synced))
	t.Row("Missing locally", len(drift.Missing))
	t.Row("Conflicts", len(drift.Conflicts))
	t.Row("Excluded", len(drift.Excluded))
	t.Row("Orphaned", len(drift.Orphaned))
	t.Columns(format.Column{Number: 2, Align: format.AlignRight})
	fmt.Fprintln(out, t.String())

	printPaths := func(title string, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(out, "\n%s:\n", title)
		for _, p := range paths {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	printPaths("Missing locally", drift.Missing)
	printPaths("Conflicts", drift.Conflicts)
	if len(drift.Orphaned) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.OrphanTable(drift.Orphaned, tableMode()))
	}
	return nil
}
