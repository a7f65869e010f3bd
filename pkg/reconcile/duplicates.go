package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/store"
)

// FindDuplicates lists the remote tasks carrying a's title that are not the
// task a is currently mapped to.
func (e *Engine) FindDuplicates(ctx context.Context, a model.Assignment) ([]model.RemoteTask, error) {
	b := &batch{gw: e.gw}
	return e.findDuplicates(ctx, b, a, e.payload.Title(a))
}

func (e *Engine) findDuplicates(ctx context.Context, b *batch, a model.Assignment, title string) ([]model.RemoteTask, error) {
	if title == "" {
		return nil, nil
	}
	tasks, err := b.listing(ctx)
	if err != nil {
		return nil, err
	}

	mapped := e.mappedID(a)
	var dups []model.RemoteTask
	for _, t := range tasks {
		if t.Title == title && t.ID != mapped {
			dups = append(dups, t)
		}
	}
	return dups, nil
}

// removeDuplicates deletes every duplicate of a before a write. It is best
// effort: listing or deletion failures are logged and never block the write.
func (e *Engine) removeDuplicates(ctx context.Context, b *batch, a model.Assignment, title string) {
	dups, err := e.findDuplicates(ctx, b, a, title)
	if err != nil {
		e.logger.Printf("Warning: duplicate check for %q failed: %v", a.DisplayTitle(), err)
		return
	}
	for _, dup := range dups {
		if err := e.gw.Delete(context.WithoutCancel(ctx), dup.ID); err != nil {
			e.logger.Printf("Warning: could not delete duplicate task %s (%q): %v", dup.ID, dup.Title, err)
			continue
		}
		e.debugf("Deleted duplicate task %s (%q)", dup.ID, dup.Title)
		b.remove(dup.ID)
		store.DeleteByRemoteID(e.store, dup.ID)
	}
}

func (e *Engine) mappedID(a model.Assignment) string {
	if a.ID == "" {
		return ""
	}
	entry, ok := e.store.Get(a.ID)
	if !ok {
		return ""
	}
	return entry.RemoteTaskID
}

// SweepReport summarizes a duplicate or orphan sweep.
type SweepReport struct {
	Deleted        []model.RemoteTask
	ClearedEntries int
	Err            error // joined deletion failures
}

// SweepDuplicates collapses every group of same-titled remote tasks belonging
// to assignments down to one. The mapped task is kept when it is in the
// group; otherwise the first one listed is kept and mapped with an empty last
// status, so the next pass refreshes it.
func (e *Engine) SweepDuplicates(ctx context.Context, assignments []model.Assignment) (SweepReport, error) {
	var report SweepReport
	tasks, err := e.gw.List(ctx)
	if err != nil {
		return report, fmt.Errorf("duplicate sweep: %w", err)
	}

	byTitle := make(map[string][]model.RemoteTask)
	for _, t := range tasks {
		byTitle[t.Title] = append(byTitle[t.Title], t)
	}

	var errs []error
	seen := make(map[string]bool)
	for _, a := range assignments {
		title := e.payload.Title(a)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true

		group := byTitle[title]
		if len(group) < 2 {
			continue
		}

		keep := group[0].ID
		mapped := e.mappedID(a)
		for _, t := range group {
			if t.ID == mapped {
				keep = mapped
				break
			}
		}
		if keep != mapped && a.ID != "" {
			e.store.Set(a.ID, store.Entry{RemoteTaskID: keep, LastSync: e.now()})
		}

		for _, t := range group {
			if t.ID == keep {
				continue
			}
			if err := e.gw.Delete(context.WithoutCancel(ctx), t.ID); err != nil {
				e.logger.Printf("Warning: could not delete duplicate task %s (%q): %v", t.ID, t.Title, err)
				errs = append(errs, err)
				continue
			}
			report.Deleted = append(report.Deleted, t)
			report.ClearedEntries += len(store.DeleteByRemoteID(e.store, t.ID))
		}
	}
	report.Err = errors.Join(errs...)
	return report, nil
}
