// Package watch triggers sync runs on a fixed interval and whenever the
// scraper export file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/harrisonrobin/gradesync/pkg/orchestrator"
)

const DefaultDebounce = 2 * time.Second

// Reasons passed to the trigger.
const (
	ReasonStartup  = "startup"
	ReasonInterval = "interval"
	ReasonFile     = "file"
)

// Trigger runs one sync. reason says what caused it.
type Trigger func(ctx context.Context, reason string) error

type Config struct {
	Interval time.Duration // zero disables the ticker
	File     string        // export file to watch; empty disables watching
	Debounce time.Duration
	Trigger  Trigger
	Logger   *log.Logger
}

// Scheduler owns the timers. Triggers run on their own goroutine, so an
// interval tick and a file change may overlap; the orchestrator gate rejects
// the second one.
type Scheduler struct {
	cfg     Config
	logger  *log.Logger
	watcher *fsnotify.Watcher
	file    string
	wg      sync.WaitGroup
}

// New validates cfg and, when a file is configured, starts watching its
// directory. Editors and scrapers often replace the file by rename, so the
// directory is watched rather than the file itself.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Trigger == nil {
		return nil, errors.New("watch: no trigger configured")
	}
	if cfg.Interval <= 0 && cfg.File == "" {
		return nil, errors.New("watch: neither an interval nor a file to watch is configured")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	s := &Scheduler{cfg: cfg, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = log.Default()
	}

	if cfg.File != "" {
		abs, err := filepath.Abs(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", cfg.File, err)
		}
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
		}
		if err := w.Add(filepath.Dir(abs)); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(abs), err)
		}
		s.watcher = w
		s.file = abs
	}
	return s, nil
}

// Run fires an initial trigger and then blocks, firing on every tick and on
// every debounced change to the watched file, until ctx is cancelled. It waits
// for in-flight triggers before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.wg.Wait()
	if s.watcher != nil {
		defer s.watcher.Close()
	}

	s.fire(ctx, ReasonStartup)

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if s.watcher != nil {
		events = s.watcher.Events
		watchErrs = s.watcher.Errors
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			s.fire(ctx, ReasonInterval)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if s.relevant(ev) {
				debounce.Reset(s.cfg.Debounce)
			}
		case <-debounce.C:
			s.fire(ctx, ReasonFile)
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			s.logger.Printf("Warning: file watcher error: %v", err)
		}
	}
}

func (s *Scheduler) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != s.file {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (s *Scheduler) fire(ctx context.Context, reason string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.cfg.Trigger(ctx, reason)
		switch {
		case err == nil:
		case errors.Is(err, orchestrator.ErrSyncInProgress):
			s.logger.Printf("Skipping %s sync: a sync is already running", reason)
		case errors.Is(err, context.Canceled):
		default:
			s.logger.Printf("Scheduled sync (%s) failed: %v", reason, err)
		}
	}()
}
