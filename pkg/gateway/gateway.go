// Package gateway defines the contract the sync engine uses to talk to a remote
// task store, together with the error taxonomy every implementation reports.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/harrisonrobin/gradesync/pkg/model"
)

var (
	ErrNotFound          = errors.New("remote task not found")
	ErrCredentialExpired = errors.New("credential expired")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrTransient         = errors.New("transient remote failure")
)

// Gateway is the capability set the engine needs from a remote task list.
type Gateway interface {
	List(ctx context.Context) ([]model.RemoteTask, error)
	Get(ctx context.Context, id string) (*model.RemoteTask, error)
	Create(ctx context.Context, payload model.TaskPayload) (*model.RemoteTask, error)
	Update(ctx context.Context, id string, payload model.TaskPayload) (*model.RemoteTask, error)
	Delete(ctx context.Context, id string) error
}

// ListLister lists the task lists available to the account. It is kept
// apart from Gateway because the engine works inside one list and never
// needs it.
type ListLister interface {
	ListTaskLists(ctx context.Context) ([]model.TaskList, error)
}

// Error carries the HTTP details of a failed remote call. It unwraps to one of
// the package sentinels so callers can use errors.Is.
type Error struct {
	Op     string
	Status int
	Body   string
	Kind   error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Body)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: %v (HTTP %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %v (HTTP %d): %s", e.Op, e.Kind, e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// KindForStatus maps an HTTP status code onto the error taxonomy.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return ErrNotFound
	case status == http.StatusUnauthorized:
		return ErrCredentialExpired
	case status >= 400 && status < 500:
		return ErrInvalidPayload
	default:
		return ErrTransient
	}
}

// NewError builds an Error classified by status. A zero status means the call
// never got a response and is treated as transient.
func NewError(op string, status int, body string) *Error {
	return &Error{Op: op, Status: status, Body: body, Kind: KindForStatus(status)}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
