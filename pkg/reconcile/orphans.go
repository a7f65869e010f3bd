package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/store"
)

// SweepOrphans deletes every task carrying the provenance marker whose title
// matches none of the current assignments, and scrubs mappings that pointed
// at the deleted tasks.
//
// Matching is by exact title. Two assignments rendering to the same title are
// indistinguishable here.
func (e *Engine) SweepOrphans(ctx context.Context, current []model.Assignment) (SweepReport, error) {
	var report SweepReport
	tasks, err := e.gw.List(ctx)
	if err != nil {
		return report, fmt.Errorf("orphan sweep: %w", err)
	}

	valid := make(map[string]bool, len(current))
	for _, a := range current {
		if title := e.payload.Title(a); title != "" {
			valid[title] = true
		}
	}

	var errs []error
	for _, t := range tasks {
		if !strings.Contains(t.Notes, ProvenanceMarker) || valid[t.Title] {
			continue
		}
		if err := e.gw.Delete(context.WithoutCancel(ctx), t.ID); err != nil {
			e.logger.Printf("Warning: could not delete orphaned task %s (%q): %v", t.ID, t.Title, err)
			errs = append(errs, err)
			continue
		}
		e.debugf("Deleted orphaned task %s (%q)", t.ID, t.Title)
		report.Deleted = append(report.Deleted, t)
		report.ClearedEntries += len(store.DeleteByRemoteID(e.store, t.ID))
	}
	report.Err = errors.Join(errs...)
	return report, nil
}
