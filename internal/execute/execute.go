// Package execute runs a reconciliation plan across a bounded worker
// pool. Each task drives the external git process for one project;
// one project's failure or timeout never touches its siblings.
package execute

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"glmirror/internal/logging"
	"glmirror/internal/model"
	"glmirror/internal/reconcile"
)

// GitClient is the external version-control executor. Implementations
// must honor context cancellation by terminating the child process.
type GitClient interface {
	Clone(ctx context.Context, url, dest string) error
	FetchPrune(ctx context.Context, repoPath string) error
}

// StateWriter records a successful synchronization. May be nil.
type StateWriter interface {
	RecordSync(relPath, upstream string, at time.Time) error
}

// Options configure one run of the executor.
type Options struct {
	Root    string        // sync root directory
	Method  string        // "ssh" selects SSH clone URLs, anything else HTTP
	Limit   int           // max concurrently running tasks
	Timeout time.Duration // per-task budget, 0 = none
	DryRun  bool          // plan only; no git invocation, no state writes
}

// Event is one progress notification, emitted once per completed task
// in completion order.
type Event struct {
	Seq     int // 1-based completion sequence
	Total   int
	Outcome model.TaskOutcome
}

// Executor executes plans. Construct once per run via New.
type Executor struct {
	git   GitClient
	state StateWriter
	opts  Options
}

// New returns an Executor. state may be nil when no timestamps should
// be recorded.
func New(git GitClient, state StateWriter, opts Options) *Executor {
	if opts.Limit <= 0 {
		opts.Limit = 1
	}
	return &Executor{git: git, state: state, opts: opts}
}

// Execute runs every plan action and returns the outcomes in plan
// order. UpToDate, Excluded and pre-assigned Error actions short-
// circuit to an outcome without touching git. onProgress, if non-nil,
// is called once per outcome as it completes. When ctx is canceled,
// in-flight tasks are terminated and only their outcomes are returned;
// tasks never started produce no outcome.
func (e *Executor) Execute(ctx context.Context, plan reconcile.Plan, onProgress func(Event)) []model.TaskOutcome {
	total := len(plan.Actions)
	outcomes := make([]model.TaskOutcome, total) // one slot per task index, no shared appends

	var mu sync.Mutex // serializes progress callbacks and the sequence counter
	seq := 0
	logger := logging.New("execute")

	g := &errgroup.Group{}
	g.SetLimit(e.opts.Limit)
	for i := range plan.Actions {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			out := e.runTask(ctx, i, plan.Actions[i])
			outcomes[i] = out

			mu.Lock()
			seq++
			s := seq
			if onProgress != nil {
				onProgress(Event{Seq: s, Total: total, Outcome: out})
			}
			mu.Unlock()

			if out.Kind == model.ActionError {
				logger.Warn("task failed", "path", out.Path, "error", out.Message, "timed_out", out.TimedOut)
			}
			return nil
		})
	}
	_ = g.Wait() // failures live in the outcomes, not in errors

	// Drop slots for tasks that never started (canceled run).
	done := outcomes[:0]
	for _, o := range outcomes {
		if o.Kind != "" {
			done = append(done, o)
		}
	}
	return done
}

// runTask executes one action to its terminal outcome. Any internal
// fault is converted into an error outcome rather than escaping and
// taking down the pool.
func (e *Executor) runTask(ctx context.Context, index int, a model.Action) (out model.TaskOutcome) {
	start := time.Now()
	out = model.TaskOutcome{Index: index, Path: a.Path(), Kind: a.Kind}

	defer func() {
		if r := recover(); r != nil {
			out.Kind = model.ActionError
			out.Message = fmt.Sprintf("internal fault: %v", r)
		}
		out.Elapsed = time.Since(start)
	}()

	switch a.Kind {
	case model.ActionClone, model.ActionUpdate:
		// actionable; fall through below
	default:
		out.Message = a.Reason
		return out
	}

	if e.opts.DryRun {
		out.Message = "dry-run"
		return out
	}

	taskCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	url := e.cloneURL(a.Project)
	dest := filepath.Join(e.opts.Root, a.Project.LocalPath())

	var err error
	switch a.Kind {
	case model.ActionClone:
		err = e.git.Clone(taskCtx, url, dest)
	case model.ActionUpdate:
		err = e.git.FetchPrune(taskCtx, dest)
	}

	if err != nil {
		out.Kind = model.ActionError
		if taskCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			out.TimedOut = true
			out.Message = fmt.Sprintf("timed out after %s", e.opts.Timeout)
		} else {
			out.Message = err.Error()
		}
		return out
	}

	if e.state != nil {
		if serr := e.state.RecordSync(a.Project.PathWithNamespace, url, time.Now()); serr != nil {
			// The working copy is fine; only the bookkeeping failed.
			logging.New("execute").Warn("record sync time", "path", out.Path, "error", serr)
		}
	}
	return out
}

func (e *Executor) cloneURL(p *model.RemoteProject) string {
	if e.opts.Method == "ssh" {
		return p.SSHURL
	}
	return p.HTTPURL
}
