package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/harrisonrobin/gradesync/pkg/auth"
	"github.com/harrisonrobin/gradesync/pkg/config"
	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/google"
	"github.com/harrisonrobin/gradesync/pkg/gradescope"
	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/orchestrator"
	"github.com/harrisonrobin/gradesync/pkg/reconcile"
	"github.com/harrisonrobin/gradesync/pkg/store"
)

// app bundles everything a sync needs.
type app struct {
	creds      *auth.TokenCache
	client     *google.TasksClient
	store      store.Store
	closeStore func() error
	orch       *orchestrator.Orchestrator
}

// newApp authenticates, resolves the task list and wires the engine. With
// dryRun set, writes go to an in-memory copy of the list and the store.
func newApp(ctx context.Context, c *config.Config, dryRun bool) (*app, error) {
	creds, err := auth.Load(c.Dir, false)
	if err != nil {
		return nil, err
	}
	if _, err := creds.Token(ctx); err != nil {
		return nil, fmt.Errorf("not authenticated: %w", err)
	}

	client, err := google.NewClient(ctx, creds, c.TaskList)
	if err != nil {
		return nil, err
	}

	st, closeStore, err := openStore(c)
	if err != nil {
		return nil, err
	}

	loc, err := c.Location()
	if err != nil {
		closeStore()
		return nil, err
	}

	var gw gateway.Gateway = client
	var engineStore store.Store = st
	if dryRun {
		gw = gateway.NewDryRun(client)
		engineStore = store.Snapshot(st)
	}

	engine := reconcile.NewEngine(reconcile.Config{
		Gateway: gw,
		Store:   engineStore,
		Payload: reconcile.PayloadBuilder{Location: loc},
		Verbose: verbose,
	})
	orch := orchestrator.New(orchestrator.Config{
		Engine:      engine,
		Store:       engineStore,
		Credentials: creds,
		TaskList:    c.TaskList,
	})

	return &app{
		creds:      creds,
		client:     client,
		store:      st,
		closeStore: closeStore,
		orch:       orch,
	}, nil
}

func (a *app) Close() {
	if err := a.closeStore(); err != nil {
		log.Printf("Warning: closing sync store: %v", err)
	}
}

func openStore(c *config.Config) (store.Store, func() error, error) {
	switch c.Store.Backend {
	case config.BackendSQLite:
		s, err := store.OpenSQLite(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := store.OpenFile(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

// readAssignments reads the scraper export from path, or stdin for "-".
func readAssignments(path string) ([]model.Assignment, error) {
	r := gradescope.NewReader()
	if path == "-" {
		return r.Parse(stdin)
	}
	return r.ReadFile(path)
}
