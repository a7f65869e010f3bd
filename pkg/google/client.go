// Package google implements the remote task gateway on top of the Google Tasks API.
package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/gradesync/pkg/auth"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// DefaultList is the Tasks API alias for the user's default list.
const DefaultList = "@default"

// NewClient creates a Google Tasks client bound to the list titled listName.
func NewClient(ctx context.Context, creds auth.CredentialProvider, listName string, opts ...option.ClientOption) (*TasksClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(auth.HTTPClient(ctx, creds))}, opts...)
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Tasks client: %w", err)
	}

	listID, err := resolveList(ctx, srv, listName)
	if err != nil {
		return nil, err
	}
	return NewTasksClient(srv, listID, creds), nil
}

func resolveList(ctx context.Context, srv *tasks.Service, listName string) (string, error) {
	if listName == "" || listName == DefaultList {
		return DefaultList, nil
	}

	lists, err := listTaskLists(ctx, srv)
	if err != nil {
		return "", err
	}
	for _, item := range lists {
		if item.Title == listName || item.ID == listName {
			return item.ID, nil
		}
	}
	return "", fmt.Errorf("task list '%s' not found", listName)
}
