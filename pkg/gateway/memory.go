package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrisonrobin/gradesync/pkg/model"
)

// Memory is an in-process task list. It backs dry runs and tests; Fail lets a
// caller inject an error for a specific operation.
type Memory struct {
	mu     sync.Mutex
	tasks  map[string]model.RemoteTask
	order  []string
	nextID int

	// Fail, when set, is consulted before every operation. A non-nil return
	// is reported instead of performing the call.
	Fail func(op string, id string, payload *model.TaskPayload) error

	Calls map[string]int

	// Lists is what ListTaskLists reports.
	Lists []model.TaskList
}

func NewMemory(seed ...model.RemoteTask) *Memory {
	m := &Memory{
		tasks: make(map[string]model.RemoteTask),
		Calls: make(map[string]int),
	}
	for _, t := range seed {
		m.put(t)
	}
	return m
}

func (m *Memory) put(t model.RemoteTask) {
	if _, exists := m.tasks[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.tasks[t.ID] = t
}

func (m *Memory) check(op, id string, payload *model.TaskPayload) error {
	m.Calls[op]++
	if m.Fail != nil {
		return m.Fail(op, id, payload)
	}
	return nil
}

func (m *Memory) List(ctx context.Context) ([]model.RemoteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("list", "", nil); err != nil {
		return nil, err
	}
	out := make([]model.RemoteTask, 0, len(m.order))
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (*model.RemoteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("get", id, nil); err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, NewError("get task "+id, 404, "")
	}
	return &t, nil
}

func (m *Memory) Create(ctx context.Context, payload model.TaskPayload) (*model.RemoteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("create", "", &payload); err != nil {
		return nil, err
	}
	m.nextID++
	t := model.RemoteTask{
		ID:     fmt.Sprintf("memtask%08d", m.nextID),
		Title:  payload.Title,
		Notes:  payload.Notes,
		Status: payload.Status,
		Due:    payload.Due,
	}
	m.put(t)
	return &t, nil
}

func (m *Memory) Update(ctx context.Context, id string, payload model.TaskPayload) (*model.RemoteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("update", id, &payload); err != nil {
		return nil, err
	}
	if _, ok := m.tasks[id]; !ok {
		return nil, NewError("update task "+id, 404, "")
	}
	t := model.RemoteTask{
		ID:     id,
		Title:  payload.Title,
		Notes:  payload.Notes,
		Status: payload.Status,
		Due:    payload.Due,
	}
	m.put(t)
	return &t, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete", id, nil); err != nil {
		return err
	}
	if _, ok := m.tasks[id]; !ok {
		return NewError("delete task "+id, 404, "")
	}
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("lists", "", nil); err != nil {
		return nil, err
	}
	return append([]model.TaskList(nil), m.Lists...), nil
}

// Len returns the number of tasks currently held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Task returns a copy of the task with the given id.
func (m *Memory) Task(id string) (model.RemoteTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Remove deletes a task without counting a call, simulating an external deletion.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// CallCount returns how often op was invoked.
func (m *Memory) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}
