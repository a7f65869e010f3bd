// Package store persists the mapping from assignment ids to remote task ids
// together with the metadata of the last successful write.
package store

import (
	"time"
)

// Entry is the persisted sync state of one assignment.
type Entry struct {
	RemoteTaskID string    `json:"remoteTaskId"`
	LastStatus   string    `json:"lastStatus,omitempty"`
	LastSync     time.Time `json:"lastSync"`
}

// Store is the mapping contract the sync engine depends on. Each method is
// atomic with respect to the others.
type Store interface {
	Get(assignmentID string) (Entry, bool)
	Set(assignmentID string, entry Entry)
	Delete(assignmentID string)
	All() map[string]Entry
}

// Meta records run-level bookkeeping next to the mappings.
type Meta interface {
	LastSync() (time.Time, bool)
	SetLastSync(t time.Time)
}

// DeleteByRemoteID removes every entry that points at remoteID and returns the
// assignment ids it cleared.
func DeleteByRemoteID(s Store, remoteID string) []string {
	var cleared []string
	for assignmentID, entry := range s.All() {
		if entry.RemoteTaskID == remoteID {
			s.Delete(assignmentID)
			cleared = append(cleared, assignmentID)
		}
	}
	return cleared
}

// Snapshot copies s into a store that never touches disk.
func Snapshot(s Store) *FileStore {
	if fs, ok := s.(*FileStore); ok {
		return fs.Clone()
	}
	c := NewMemory()
	for k, v := range s.All() {
		c.mappings[k] = v
	}
	if meta, ok := s.(Meta); ok {
		if t, ok := meta.LastSync(); ok {
			c.lastSync = &t
		}
	}
	return c
}
