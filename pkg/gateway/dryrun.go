package gateway

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/harrisonrobin/gradesync/pkg/model"
)

// DryRun snapshots the real task list on first use and applies every write to
// that in-memory copy, so a full pass can be previewed without touching the remote.
type DryRun struct {
	real   Gateway
	once   sync.Once
	err    error
	memory *Memory
}

func NewDryRun(real Gateway) *DryRun {
	return &DryRun{real: real}
}

func (d *DryRun) load(ctx context.Context) error {
	d.once.Do(func() {
		tasks, err := d.real.List(ctx)
		if err != nil {
			d.err = err
			return
		}
		d.memory = NewMemory(tasks...)
	})
	return d.err
}

func (d *DryRun) List(ctx context.Context) ([]model.RemoteTask, error) {
	if err := d.load(ctx); err != nil {
		return nil, err
	}
	return d.memory.List(ctx)
}

func (d *DryRun) Get(ctx context.Context, id string) (*model.RemoteTask, error) {
	if err := d.load(ctx); err != nil {
		return nil, err
	}
	return d.memory.Get(ctx, id)
}

func (d *DryRun) Create(ctx context.Context, payload model.TaskPayload) (*model.RemoteTask, error) {
	if err := d.load(ctx); err != nil {
		return nil, err
	}
	log.Printf("[dry-run] would create task %q", payload.Title)
	return d.memory.Create(ctx, payload)
}

func (d *DryRun) Update(ctx context.Context, id string, payload model.TaskPayload) (*model.RemoteTask, error) {
	if err := d.load(ctx); err != nil {
		return nil, err
	}
	log.Printf("[dry-run] would update task %s to %q", id, payload.Title)
	return d.memory.Update(ctx, id, payload)
}

func (d *DryRun) Delete(ctx context.Context, id string) error {
	if err := d.load(ctx); err != nil {
		return err
	}
	log.Printf("[dry-run] would delete task %s", id)
	return d.memory.Delete(ctx, id)
}

// ListTaskLists is read-only and goes straight to the real gateway.
func (d *DryRun) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	l, ok := d.real.(ListLister)
	if !ok {
		return nil, errors.New("dry-run: gateway cannot list task lists")
	}
	return l.ListTaskLists(ctx)
}
