package reconcile

import (
	"time"

	"glmirror/internal/model"
)

// ShouldFetch decides whether a network fetch may be skipped for a
// local working copy. It returns false (skip, treat as up to date) only
// when skipping is enabled, the entry is a valid repository, and its
// last synchronization is younger than the freshness window.
//
// This is a pure time comparison against the locally recorded
// timestamp; the remote is never consulted. The trade-off is explicit:
// a project pushed to moments after a sync stays stale until the window
// elapses, in exchange for no network or API traffic on repositories
// synchronized recently. Disabling the feature is the escape hatch.
func ShouldFetch(e model.LocalEntry, now time.Time, window time.Duration, enabled bool) bool {
	if !enabled || window <= 0 {
		return true
	}
	if e.Validity != model.ValidRepo {
		return true
	}
	if e.LastSync.IsZero() {
		return true
	}
	return now.Sub(e.LastSync) >= window
}
