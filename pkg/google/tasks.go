package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/gradesync/pkg/auth"
	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"
)

const pageSize = 100

// TasksClient is a Google Tasks API client bound to one task list.
type TasksClient struct {
	srv    *tasks.Service
	listID string
	creds  auth.CredentialProvider
}

var (
	_ gateway.Gateway    = (*TasksClient)(nil)
	_ gateway.ListLister = (*TasksClient)(nil)
)

// NewTasksClient creates a client for listID. creds, when non-nil, is
// invalidated whenever Google answers 401.
func NewTasksClient(srv *tasks.Service, listID string, creds auth.CredentialProvider) *TasksClient {
	return &TasksClient{srv: srv, listID: listID, creds: creds}
}

func (c *TasksClient) ListID() string {
	return c.listID
}

// List fetches every task in the list, following pagination. Completed and
// hidden tasks are included so that duplicates among them are visible too.
func (c *TasksClient) List(ctx context.Context) ([]model.RemoteTask, error) {
	var out []model.RemoteTask
	pageToken := ""
	for {
		call := c.srv.Tasks.List(c.listID).
			MaxResults(pageSize).
			ShowCompleted(true).
			ShowHidden(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, c.classify("list tasks", err)
		}
		for _, item := range page.Items {
			if item.Deleted {
				continue
			}
			out = append(out, fromAPI(item))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *TasksClient) Get(ctx context.Context, id string) (*model.RemoteTask, error) {
	item, err := c.srv.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("get task "+id, err)
	}
	if item.Deleted {
		return nil, gateway.NewError("get task "+id, 404, "task is deleted")
	}
	t := fromAPI(item)
	return &t, nil
}

func (c *TasksClient) Create(ctx context.Context, payload model.TaskPayload) (*model.RemoteTask, error) {
	item, err := c.srv.Tasks.Insert(c.listID, toAPI("", payload)).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("create task", err)
	}
	t := fromAPI(item)
	return &t, nil
}

func (c *TasksClient) Update(ctx context.Context, id string, payload model.TaskPayload) (*model.RemoteTask, error) {
	item, err := c.srv.Tasks.Update(c.listID, id, toAPI(id, payload)).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("update task "+id, err)
	}
	t := fromAPI(item)
	return &t, nil
}

func (c *TasksClient) Delete(ctx context.Context, id string) error {
	if err := c.srv.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return c.classify("delete task "+id, err)
	}
	return nil
}

// ListTaskLists returns every task list of the authenticated user.
func (c *TasksClient) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	return listTaskLists(ctx, c.srv)
}

func listTaskLists(ctx context.Context, srv *tasks.Service) ([]model.TaskList, error) {
	var out []model.TaskList
	pageToken := ""
	for {
		call := srv.Tasklists.List().MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve task lists: %w", classifyError("list task lists", err))
		}
		for _, item := range page.Items {
			out = append(out, model.TaskList{ID: item.Id, Title: item.Title})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// classify maps an API error onto the gateway taxonomy and invalidates the
// credential on 401.
func (c *TasksClient) classify(op string, err error) error {
	classified := classifyError(op, err)
	if errors.Is(classified, gateway.ErrCredentialExpired) && c.creds != nil {
		c.creds.Invalidate()
	}
	return classified
}

func classifyError(op string, err error) error {
	if errors.Is(err, auth.ErrCredentialMissing) || errors.Is(err, auth.ErrCredentialExpired) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Message
		if body == "" {
			body = gerr.Body
		}
		return gateway.NewError(op, gerr.Code, body)
	}
	return &gateway.Error{Op: op, Kind: gateway.ErrTransient, Body: err.Error()}
}

func fromAPI(item *tasks.Task) model.RemoteTask {
	return model.RemoteTask{
		ID:      item.Id,
		Title:   item.Title,
		Notes:   item.Notes,
		Status:  item.Status,
		Due:     item.Due,
		Updated: item.Updated,
	}
}

func toAPI(id string, payload model.TaskPayload) *tasks.Task {
	t := &tasks.Task{
		Id:     id,
		Title:  payload.Title,
		Notes:  payload.Notes,
		Status: payload.Status,
		Due:    payload.Due,
	}
	// A replaced task must drop a stale due date explicitly.
	if payload.Due == "" && id != "" {
		t.NullFields = append(t.NullFields, "Due")
	}
	// Reopening a task requires clearing its completion time.
	if payload.Status == model.TaskNeedsAction && id != "" {
		t.NullFields = append(t.NullFields, "Completed")
	}
	return t
}
