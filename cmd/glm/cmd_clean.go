package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"glmirror/internal/gitcli"
	"glmirror/internal/logging"
	"glmirror/internal/model"
	"glmirror/internal/reconcile"
	"glmirror/internal/scan"
	"glmirror/internal/store"
)

var cleanFlags struct {
	inventoryFlags
	force      bool
	forceDirty bool
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove local working copies with no remote counterpart",
	Long: "clean lists working copies under the sync root that no longer map to\n" +
		"a remote project. Nothing is deleted unless --force is given, and\n" +
		"copies with uncommitted or unpushed work are kept unless --force-dirty\n" +
		"is given as well.",
	RunE: runClean,
}

func init() {
	addInventoryFlags(cleanCmd, &cleanFlags.inventoryFlags)
	f := cleanCmd.Flags()
	f.BoolVar(&cleanFlags.force, "force", false, "Actually delete orphaned working copies")
	f.BoolVar(&cleanFlags.forceDirty, "force-dirty", false, "Delete even copies with uncommitted or unpushed work")
}

func runClean(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &cleanFlags.inventoryFlags)
	if err != nil {
		return err
	}
	if err := cfg.EnsureToken(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	log := logging.New("clean")

	now := time.Now()
	projects, err := discover(cmd.Context(), cfg, cleanFlags.groups, now)
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
		Filter: filterPolicy(cfg),
	}, now)

	out := cmd.OutOrStdout()
	if len(plan.Orphans) == 0 {
		fmt.Fprintln(out, "No orphaned working copies.")
		return nil
	}

	if !cleanFlags.force {
		fmt.Fprintf(out, "%d orphaned working cop%s (use --force to delete):\n",
			len(plan.Orphans), plural(len(plan.Orphans), "y", "ies"))
		for _, o := range plan.Orphans {
			fmt.Fprintf(out, "  %s\n", o.RelPath)
		}
		return nil
	}

	git := gitcli.New(cfg.Token, gitcli.CloneOptions{}, false)
	removed, kept := 0, 0
	for _, o := range plan.Orphans {
		abs := filepath.Join(cfg.RootDir, filepath.FromSlash(o.RelPath))
		if o.Validity == model.ValidRepo && !cleanFlags.forceDirty {
			dirty, err := git.HasLocalChanges(cmd.Context(), abs)
			if err != nil {
				log.Warn("cannot verify local changes, keeping", "path", o.RelPath, "error", err)
				kept++
				continue
			}
			if dirty {
				fmt.Fprintf(out, "  kept %s: uncommitted or unpushed work (use --force-dirty)\n", o.RelPath)
				kept++
				continue
			}
		}
		if err := os.RemoveAll(abs); err != nil {
			log.Warn("delete failed", "path", o.RelPath, "error", err)
			kept++
			continue
		}
		if err := st.Delete(o.RelPath); err != nil {
			log.Warn("state record not removed", "path", o.RelPath, "error", err)
		}
		fmt.Fprintf(out, "  removed %s\n", o.RelPath)
		removed++
	}
	fmt.Fprintf(out, "Removed %d, kept %d.\n", removed, kept)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
