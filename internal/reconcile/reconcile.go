// Package reconcile computes the per-project action plan that converges
// the local tree toward the remote inventory. It only decides; it never
// touches the filesystem or the network.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"glmirror/internal/filter"
	"glmirror/internal/model"
)

// Policy collects every decision input for one run. It is built once
// from configuration and passed in; nothing here reads process-wide
// state.
type Policy struct {
	Filter         filter.Policy
	UpdateExisting bool          // false = never fetch existing copies
	SmartUpdate    bool          // enable freshness-window skipping
	FreshWindow    time.Duration // window for ShouldFetch
}

// Plan is the ordered action list plus the orphan set. Actions preserve
// the remote inventory's listing order, so repeated runs over an
// unchanged inventory produce a stable, diffable report. Orphans are
// local entries with no remote counterpart; they are reported, never
// acted on here.
type Plan struct {
	Actions []model.Action
	Orphans []model.LocalEntry
}

// Reconcile merges the remote inventory with the local scan under the
// given policy. Every non-filtered remote project maps to exactly one
// action; the mapping is computed once and not revised during
// execution.
func Reconcile(projects []model.RemoteProject, locals []model.LocalEntry, pol Policy, now time.Time) Plan {
	byPath := make(map[string]*model.LocalEntry, len(locals))
	for i := range locals {
		byPath[locals[i].RelPath] = &locals[i]
	}
	matched := make(map[string]bool, len(projects))

	plan := Plan{Actions: make([]model.Action, 0, len(projects))}
	for i := range projects {
		p := &projects[i]
		entry := byPath[p.PathWithNamespace]
		if entry != nil {
			matched[p.PathWithNamespace] = true
		}
		plan.Actions = append(plan.Actions, decide(p, entry, pol, now))
	}

	for i := range locals {
		if !matched[locals[i].RelPath] {
			plan.Orphans = append(plan.Orphans, locals[i])
		}
	}
	sort.Slice(plan.Orphans, func(i, j int) bool {
		return plan.Orphans[i].RelPath < plan.Orphans[j].RelPath
	})
	return plan
}

// decide classifies a single remote project against its expected local
// path.
func decide(p *model.RemoteProject, entry *model.LocalEntry, pol Policy, now time.Time) model.Action {
	if d := filter.Decide(*p, pol.Filter, now); d.Excluded {
		return model.Action{Kind: model.ActionExcluded, Project: p, Entry: entry, Reason: d.Reason}
	}

	if entry == nil || entry.Validity == model.EmptyDir {
		return model.Action{Kind: model.ActionClone, Project: p, Entry: entry}
	}

	if entry.Validity == model.InvalidNonRepo {
		reason := "path occupied by non-repository content"
		if entry.Diagnostic != "" {
			reason = fmt.Sprintf("%s (%s)", reason, entry.Diagnostic)
		}
		return model.Action{Kind: model.ActionError, Project: p, Entry: entry, Reason: reason}
	}

	// Valid working copy. Existing unrelated content is never touched:
	// a repository cloned from somewhere else stays untouched and is
	// reported instead.
	if !upstreamMatches(entry.Upstream, p) {
		reason := "existing repository has no origin remote"
		if entry.Upstream != "" {
			reason = fmt.Sprintf("existing repository points elsewhere (origin: %s)", entry.Upstream)
		}
		return model.Action{Kind: model.ActionError, Project: p, Entry: entry, Reason: reason}
	}

	if !pol.UpdateExisting {
		return model.Action{Kind: model.ActionUpToDate, Project: p, Entry: entry, Reason: "updates disabled"}
	}
	if !ShouldFetch(*entry, now, pol.FreshWindow, pol.SmartUpdate) {
		age := now.Sub(entry.LastSync).Round(time.Minute)
		return model.Action{
			Kind: model.ActionUpToDate, Project: p, Entry: entry,
			Reason: fmt.Sprintf("synchronized %s ago", age),
		}
	}
	return model.Action{Kind: model.ActionUpdate, Project: p, Entry: entry}
}

func upstreamMatches(upstream string, p *model.RemoteProject) bool {
	if upstream == "" {
		return false
	}
	got := model.NormalizeCloneURL(upstream)
	return got == model.NormalizeCloneURL(p.HTTPURL) || got == model.NormalizeCloneURL(p.SSHURL)
}
