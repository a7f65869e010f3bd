// Package reconcile maps locally scraped assignments onto remote tasks. It
// decides per assignment whether to skip, create, update or recreate, keeps
// the sync store in line with what it wrote, and heals drift between the two.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/store"
)

// Config holds the collaborators of an Engine.
type Config struct {
	Gateway gateway.Gateway
	Store   store.Store
	Payload PayloadBuilder
	Logger  *log.Logger // nil uses the standard logger
	Verbose bool        // log every per-assignment decision
	Now     func() time.Time
}

// Options are per-pass switches.
type Options struct {
	// Force bypasses the staleness check for every assignment with a due date.
	Force bool
}

// Engine runs reconciliation passes. It processes assignments strictly one at
// a time and owns no timers.
type Engine struct {
	gw      gateway.Gateway
	store   store.Store
	payload PayloadBuilder
	logger  *log.Logger
	verbose bool
	now     func() time.Time
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		gw:      cfg.Gateway,
		store:   cfg.Store,
		payload: cfg.Payload,
		logger:  cfg.Logger,
		verbose: cfg.Verbose,
		now:     cfg.Now,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func (e *Engine) debugf(format string, args ...any) {
	if e.verbose {
		e.logger.Printf(format, args...)
	}
}

// Reconcile runs one pass over assignments and returns one result per
// assignment, in input order. Failures are reported in the results; nothing
// aborts the pass. Cancelling ctx stops the pass between assignments, never
// in the middle of a write.
func (e *Engine) Reconcile(ctx context.Context, assignments []model.Assignment, opts Options) []model.SyncResult {
	results := make([]model.SyncResult, 0, len(assignments))
	b := &batch{gw: e.gw}

	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(a, fmt.Errorf("sync cancelled: %w", err)))
			continue
		}
		results = append(results, e.syncOne(ctx, b, a, opts))
	}
	return results
}

func (e *Engine) syncOne(ctx context.Context, b *batch, a model.Assignment, opts Options) model.SyncResult {
	if !a.HasDueDate() {
		e.debugf("Skipping assignment %q - no due date", a.DisplayTitle())
		return skipped(a, model.SkipNoDueDate)
	}

	if !opts.Force && !e.NeedsSync(ctx, a) {
		e.debugf("Skipping assignment %q - up to date", a.DisplayTitle())
		return skipped(a, model.SkipUpToDate)
	}

	payload, err := e.payload.Build(a)
	if err != nil {
		return failed(a, err)
	}

	e.removeDuplicates(ctx, b, a, payload.Title)

	task, action, err := e.createOrUpdate(ctx, b, a, payload)
	if err != nil {
		e.logger.Printf("Failed to sync assignment %q: %v", a.DisplayTitle(), err)
		return failed(a, err)
	}
	e.debugf("Assignment %q %s as task %s", a.DisplayTitle(), action, task.ID)
	return model.SyncResult{
		AssignmentID:    a.ID,
		AssignmentTitle: a.DisplayTitle(),
		Success:         true,
		Action:          action,
		RemoteTask:      task,
	}
}

// NeedsSync is the staleness check. The remote list is treated as ground
// truth: a mapping that cannot be confirmed remotely is cleared.
func (e *Engine) NeedsSync(ctx context.Context, a model.Assignment) bool {
	if a.ID == "" {
		return true
	}
	entry, ok := e.store.Get(a.ID)
	switch {
	case !ok:
		return true
	case entry.LastStatus == "":
		return true
	case entry.LastStatus != a.StatusAbbr:
		return true
	case entry.RemoteTaskID == "":
		return true
	}

	if _, err := e.gw.Get(ctx, entry.RemoteTaskID); err != nil {
		if gateway.IsNotFound(err) {
			e.logger.Printf("Task %s for assignment %q no longer exists, will recreate", entry.RemoteTaskID, a.DisplayTitle())
		} else {
			e.logger.Printf("Could not verify task %s for assignment %q (%v), will re-sync", entry.RemoteTaskID, a.DisplayTitle(), err)
		}
		e.store.Delete(a.ID)
		return true
	}
	return false
}

// createOrUpdate writes the payload, preferring to update the mapped task and
// falling back to creating a new one whenever the mapping cannot be used.
func (e *Engine) createOrUpdate(ctx context.Context, b *batch, a model.Assignment, payload model.TaskPayload) (*model.RemoteTask, model.Action, error) {
	var remoteID string
	if a.ID != "" {
		if entry, ok := e.store.Get(a.ID); ok {
			remoteID = entry.RemoteTaskID
		}
	}

	if remoteID == "" {
		return e.create(ctx, b, a, payload, model.ActionCreated)
	}

	if !ValidRemoteID(remoteID) {
		e.logger.Printf("Discarding malformed task id %q for assignment %q", remoteID, a.DisplayTitle())
		e.store.Delete(a.ID)
		return e.create(ctx, b, a, payload, model.ActionRecreated)
	}

	if _, err := e.gw.Get(ctx, remoteID); err != nil {
		if !gateway.IsNotFound(err) {
			return nil, model.ActionFailed, err
		}
		e.debugf("Task %s vanished, recreating assignment %q", remoteID, a.DisplayTitle())
		e.store.Delete(a.ID)
		return e.create(ctx, b, a, payload, model.ActionRecreated)
	}

	task, err := e.update(ctx, b, a, remoteID, payload)
	if err != nil {
		e.logger.Printf("Update of task %s failed (%v), creating a new task for %q", remoteID, err, a.DisplayTitle())
		e.store.Delete(a.ID)
		return e.create(ctx, b, a, payload, model.ActionRecreated)
	}
	return task, model.ActionUpdated, nil
}

func (e *Engine) create(ctx context.Context, b *batch, a model.Assignment, payload model.TaskPayload, action model.Action) (*model.RemoteTask, model.Action, error) {
	task, err := e.gw.Create(context.WithoutCancel(ctx), payload)
	if err != nil {
		return nil, model.ActionFailed, err
	}
	e.record(a, task.ID)
	b.add(*task)
	return task, action, nil
}

func (e *Engine) update(ctx context.Context, b *batch, a model.Assignment, remoteID string, payload model.TaskPayload) (*model.RemoteTask, error) {
	task, err := e.gw.Update(context.WithoutCancel(ctx), remoteID, payload)
	if err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = remoteID
	}
	e.record(a, task.ID)
	b.replace(*task)
	return task, nil
}

// record stores the mapping after a successful write. Assignments without an
// id cannot be tracked and are always treated as new.
func (e *Engine) record(a model.Assignment, remoteID string) {
	if a.ID == "" {
		return
	}
	e.store.Set(a.ID, store.Entry{
		RemoteTaskID: remoteID,
		LastStatus:   a.StatusAbbr,
		LastSync:     e.now(),
	})
}

func skipped(a model.Assignment, reason model.SkipReason) model.SyncResult {
	return model.SyncResult{
		AssignmentID:    a.ID,
		AssignmentTitle: a.DisplayTitle(),
		Success:         true,
		Action:          model.ActionSkipped,
		SkippedReason:   reason,
	}
}

func failed(a model.Assignment, err error) model.SyncResult {
	return model.SyncResult{
		AssignmentID:    a.ID,
		AssignmentTitle: a.DisplayTitle(),
		Success:         false,
		Action:          model.ActionFailed,
		ErrorMessage:    err.Error(),
		Err:             err,
	}
}

// batch caches the remote listing for the length of one pass and keeps it in
// step with the writes the pass makes.
type batch struct {
	gw     gateway.Gateway
	tasks  []model.RemoteTask
	loaded bool
}

func (b *batch) listing(ctx context.Context) ([]model.RemoteTask, error) {
	if b.loaded {
		return b.tasks, nil
	}
	tasks, err := b.gw.List(ctx)
	if err != nil {
		return nil, err
	}
	b.tasks = tasks
	b.loaded = true
	return b.tasks, nil
}

func (b *batch) add(t model.RemoteTask) {
	if b.loaded {
		b.tasks = append(b.tasks, t)
	}
}

func (b *batch) replace(t model.RemoteTask) {
	if !b.loaded {
		return
	}
	for i := range b.tasks {
		if b.tasks[i].ID == t.ID {
			b.tasks[i] = t
			return
		}
	}
	b.tasks = append(b.tasks, t)
}

func (b *batch) remove(id string) {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			return
		}
	}
}
