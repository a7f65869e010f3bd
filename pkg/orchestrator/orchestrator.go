// Package orchestrator sequences one sync run: credential check, optional
// sweeps, the reconciliation pass and last-sync bookkeeping. Only one run may
// be in flight at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/gradesync/pkg/auth"
	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/reconcile"
	"github.com/harrisonrobin/gradesync/pkg/store"
	"golang.org/x/sync/semaphore"
)

// ErrSyncInProgress is returned when SyncNow is called while a run is active.
var ErrSyncInProgress = errors.New("sync already in progress")

type Options struct {
	Force          bool
	CleanupOrphans bool
	Dedupe         bool
}

type Config struct {
	Engine      *reconcile.Engine
	Store       store.Store
	Credentials auth.CredentialProvider
	TaskList    string
	Logger      *log.Logger
	Now         func() time.Time
}

// Status is a read-only snapshot for display.
type Status struct {
	SyncedCount     int        `json:"syncedCount" yaml:"syncedCount"`
	LastSyncTime    *time.Time `json:"lastSyncTime,omitempty" yaml:"lastSyncTime,omitempty"`
	LastRunID       string     `json:"lastRunId,omitempty" yaml:"lastRunId,omitempty"`
	IsAuthenticated bool       `json:"isAuthenticated" yaml:"isAuthenticated"`
	InProgress      bool       `json:"inProgress" yaml:"inProgress"`
	TaskList        string     `json:"taskList" yaml:"taskList"`
}

type Orchestrator struct {
	engine   *reconcile.Engine
	store    store.Store
	creds    auth.CredentialProvider
	taskList string
	logger   *log.Logger
	now      func() time.Time

	gate    *semaphore.Weighted
	running atomic.Bool

	mu        sync.Mutex
	lastRunID string
	lastSync  time.Time
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		engine:   cfg.Engine,
		store:    cfg.Store,
		creds:    cfg.Credentials,
		taskList: cfg.TaskList,
		logger:   cfg.Logger,
		now:      cfg.Now,
		gate:     semaphore.NewWeighted(1),
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// SyncNow runs one sync over assignments. It returns ErrSyncInProgress if
// another run holds the gate, and a credential error before any remote call
// when no usable credential can be obtained. Per-assignment failures are
// reported in the results only.
func (o *Orchestrator) SyncNow(ctx context.Context, assignments []model.Assignment, opts Options) ([]model.SyncResult, error) {
	if !o.gate.TryAcquire(1) {
		return nil, ErrSyncInProgress
	}
	defer o.gate.Release(1)
	o.running.Store(true)
	defer o.running.Store(false)

	runID := uuid.NewString()
	start := o.now()

	if _, err := o.creds.Token(ctx); err != nil {
		return nil, fmt.Errorf("sync %s aborted: %w", runID, err)
	}

	if opts.CleanupOrphans {
		o.sweepOrphans(ctx, runID, assignments)
	}
	if opts.Dedupe {
		report, err := o.engine.SweepDuplicates(ctx, assignments)
		if err != nil {
			o.logger.Printf("[%s] Warning: %v", runID, err)
		} else if len(report.Deleted) > 0 {
			o.logger.Printf("[%s] Removed %d duplicate task(s)", runID, len(report.Deleted))
		}
	}

	results := o.engine.Reconcile(ctx, assignments, reconcile.Options{Force: opts.Force})

	finished := o.now()
	if meta, ok := o.store.(store.Meta); ok {
		meta.SetLastSync(finished)
	}
	o.mu.Lock()
	o.lastRunID = runID
	o.lastSync = finished
	o.mu.Unlock()

	s := Summarize(results)
	o.logger.Printf("[%s] Sync finished in %s: %d created, %d updated, %d skipped, %d failed",
		runID, finished.Sub(start).Round(time.Millisecond), s.Created, s.Updated, s.Skipped, s.Failed)
	return results, nil
}

func (o *Orchestrator) sweepOrphans(ctx context.Context, runID string, assignments []model.Assignment) {
	if len(assignments) == 0 {
		o.logger.Printf("[%s] Skipping orphan cleanup: no assignments in this batch", runID)
		return
	}
	report, err := o.engine.SweepOrphans(ctx, assignments)
	if err != nil {
		o.logger.Printf("[%s] Warning: %v", runID, err)
		return
	}
	if len(report.Deleted) > 0 {
		o.logger.Printf("[%s] Removed %d orphaned task(s)", runID, len(report.Deleted))
	}
}

// Status returns the current snapshot.
func (o *Orchestrator) Status() Status {
	st := Status{
		SyncedCount: len(o.store.All()),
		InProgress:  o.running.Load(),
		TaskList:    o.taskList,
	}

	o.mu.Lock()
	st.LastRunID = o.lastRunID
	last := o.lastSync
	o.mu.Unlock()

	if meta, ok := o.store.(store.Meta); ok {
		if t, ok := meta.LastSync(); ok {
			last = t
		}
	}
	if !last.IsZero() {
		st.LastSyncTime = &last
	}

	if a, ok := o.creds.(interface{ Authenticated() bool }); ok {
		st.IsAuthenticated = a.Authenticated()
	}
	return st
}

// Summary counts results by outcome.
type Summary struct {
	Created, Updated, Skipped, Failed int
}

func Summarize(results []model.SyncResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Action {
		case model.ActionCreated, model.ActionRecreated:
			s.Created++
		case model.ActionUpdated:
			s.Updated++
		case model.ActionSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
