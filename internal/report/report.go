// Package report folds task outcomes into the run summary and renders
// it. The structured (JSON) and tabular representations are both views
// over the same RunSummary, never computed independently.
package report

import (
	"fmt"
	"time"

	"glmirror/internal/display"
	"glmirror/internal/format"
	"glmirror/internal/model"
	"glmirror/internal/reconcile"
)

// Aggregate folds outcomes into a RunSummary. The fold is commutative
// over outcome order, so arrival order does not matter; callers pass
// outcomes in plan order for reproducible detail listings.
func Aggregate(outcomes []model.TaskOutcome, orphans int, elapsed time.Duration) model.RunSummary {
	s := model.RunSummary{TotalProjects: len(outcomes), Orphans: orphans, Elapsed: elapsed}
	for _, o := range outcomes {
		switch o.Kind {
		case model.ActionClone:
			s.Cloned++
		case model.ActionUpdate:
			s.Updated++
		case model.ActionUpToDate:
			s.UpToDate++
		case model.ActionExcluded:
			s.Excluded++
		default:
			s.Errors++
		}
	}
	return s
}

// JSONReport is the machine-readable run result, shaped for CI
// consumption.
type JSONReport struct {
	RootDir        string              `json:"root_dir"`
	TotalProjects  int                 `json:"total_projects"`
	Cloned         int                 `json:"cloned"`
	Updated        int                 `json:"updated"`
	UpToDate       int                 `json:"up_to_date"`
	Excluded       int                 `json:"excluded"`
	Orphans        int                 `json:"orphans"`
	Errors         int                 `json:"errors"`
	SuccessRate    float64             `json:"success_rate"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	Results        []model.TaskOutcome `json:"results,omitempty"`
}

// JSONView projects a RunSummary (plus per-task detail) into the
// structured report.
func JSONView(s model.RunSummary, rootDir string, outcomes []model.TaskOutcome) JSONReport {
	return JSONReport{
		RootDir:        rootDir,
		TotalProjects:  s.TotalProjects,
		Cloned:         s.Cloned,
		Updated:        s.Updated,
		UpToDate:       s.UpToDate,
		Excluded:       s.Excluded,
		Orphans:        s.Orphans,
		Errors:         s.Errors,
		SuccessRate:    s.SuccessRate(),
		ElapsedSeconds: s.Elapsed.Seconds(),
		Results:        outcomes,
	}
}

// SummaryTable renders the run summary for humans.
func SummaryTable(s model.RunSummary, mode format.Mode) string {
	t := format.New(mode)
	t.Header("Result", "Count")
	t.Row(display.Symbol(model.ActionClone)+" Cloned", s.Cloned)
	t.Row(display.Symbol(model.ActionUpdate)+" Updated", s.Updated)
	t.Row(display.Symbol(model.ActionUpToDate)+" Up to date", s.UpToDate)
	t.Row(display.Symbol(model.ActionExcluded)+" Excluded", s.Excluded)
	t.Row(display.Symbol(model.ActionOrphan)+" Orphans", s.Orphans)
	t.Row(display.Symbol(model.ActionError)+" Errors", s.Errors)
	t.Footer(fmt.Sprintf("%.1f%% success", s.SuccessRate()), FormatDuration(s.Elapsed))
	t.Columns(format.Column{Number: 2, Align: format.AlignRight})
	return t.String()
}

// FailureTable lists error outcomes with their diagnostics. Empty
// string when there are none.
func FailureTable(outcomes []model.TaskOutcome, mode format.Mode) string {
	t := format.New(mode)
	t.Header("Project", "Error")
	t.Columns(format.Column{Number: 2, MaxWidth: 80})
	n := 0
	for _, o := range outcomes {
		if o.Kind == model.ActionError {
			t.Row(o.Path, o.Message)
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return t.String()
}

// OrphanTable lists local paths with no remote counterpart.
func OrphanTable(orphans []model.LocalEntry, mode format.Mode) string {
	if len(orphans) == 0 {
		return ""
	}
	t := format.New(mode)
	t.Header("Local path", "State")
	for _, e := range orphans {
		t.Row(e.RelPath, display.Validity(e.Validity))
	}
	return t.String()
}

// ProgressLine formats the one-line live status for a completed task.
func ProgressLine(seq, total int, o model.TaskOutcome) string {
	return fmt.Sprintf("%s [%d/%d] %s", display.Symbol(o.Kind), seq, total, o.Path)
}

// FormatDuration renders a wall-clock duration the way the summary
// table expects: sub-minute with one decimal, otherwise minutes and
// seconds.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// Drift is the status view: per-project classification without
// execution, for inspecting how far the tree has drifted.
type Drift struct {
	Synced    []string           `json:"synced"`
	Missing   []string           `json:"missing"`
	Conflicts []string           `json:"conflicts"`
	Excluded  []string           `json:"excluded"`
	Orphaned  []model.LocalEntry `json:"orphaned"`
}

// Classify reduces a plan to drift buckets. Update and UpToDate both
// mean a working copy exists and tracks the right upstream.
func Classify(plan reconcile.Plan) Drift {
	var d Drift
	for _, a := range plan.Actions {
		switch a.Kind {
		case model.ActionUpdate, model.ActionUpToDate:
			d.Synced = append(d.Synced, a.Path())
		case model.ActionClone:
			d.Missing = append(d.Missing, a.Path())
		case model.ActionError:
			d.Conflicts = append(d.Conflicts, a.Path())
		case model.ActionExcluded:
			d.Excluded = append(d.Excluded, a.Path())
		}
	}
	d.Orphaned = plan.Orphans
	return d
}
