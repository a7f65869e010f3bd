package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileDocument struct {
	Mappings map[string]Entry `json:"mappings"`
	LastSync *time.Time       `json:"lastSync,omitempty"`
}

// FileStore keeps the mappings in memory and mirrors every change to a JSON file.
type FileStore struct {
	Path string

	mu       sync.RWMutex
	mappings map[string]Entry
	lastSync *time.Time
	dirty    bool
}

// OpenFile loads path if it exists; a missing file starts an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{
		Path:     path,
		mappings: make(map[string]Entry),
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewMemory returns a store that never touches disk.
func NewMemory() *FileStore {
	return &FileStore{mappings: make(map[string]Entry)}
}

// Clone returns a disk-less copy of s.
func (s *FileStore) Clone() *FileStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := NewMemory()
	for k, v := range s.mappings {
		c.mappings[k] = v
	}
	if s.lastSync != nil {
		t := *s.lastSync
		c.lastSync = &t
	}
	return c
}

func (s *FileStore) Load() error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var doc fileDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode sync store %s: %w", s.Path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = doc.Mappings
	if s.mappings == nil {
		s.mappings = make(map[string]Entry)
	}
	s.lastSync = doc.LastSync
	s.dirty = false
	return nil
}

// Save writes the store when it has unsaved changes. The file is replaced
// atomically so a crash never leaves a half-written mapping.
func (s *FileStore) Save() error {
	s.mu.RLock()
	if !s.dirty || s.Path == "" {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".syncstore-*.json")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileDocument{Mappings: s.mappings, LastSync: s.lastSync}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	s.dirty = false
	return nil
}

// persist is the save-on-write path. Failures are logged only.
func (s *FileStore) persist() {
	if err := s.Save(); err != nil {
		log.Printf("Warning: failed to save sync store %s: %v", s.Path, err)
	}
}

func (s *FileStore) Get(assignmentID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.mappings[assignmentID]
	return e, ok
}

func (s *FileStore) Set(assignmentID string, entry Entry) {
	s.mu.Lock()
	if s.mappings[assignmentID] != entry {
		s.mappings[assignmentID] = entry
		s.dirty = true
	}
	s.mu.Unlock()
	s.persist()
}

func (s *FileStore) Delete(assignmentID string) {
	s.mu.Lock()
	if _, exists := s.mappings[assignmentID]; exists {
		delete(s.mappings, assignmentID)
		s.dirty = true
	}
	s.mu.Unlock()
	s.persist()
}

func (s *FileStore) All() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out
}

func (s *FileStore) LastSync() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSync == nil {
		return time.Time{}, false
	}
	return *s.lastSync, true
}

func (s *FileStore) SetLastSync(t time.Time) {
	s.mu.Lock()
	s.lastSync = &t
	s.dirty = true
	s.mu.Unlock()
	s.persist()
}
