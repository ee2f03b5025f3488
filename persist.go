package main

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Store is the durable key-value collaborator. The byte-level mechanics
// live behind this interface; the device ships a JSON file, tests inject a
// fake.
type Store interface {
	Load() (StatusState, error)
	Save(StatusState) error
}

// fileStore keeps the persisted fields in one JSON file, read once at boot
// and rewritten whole on every flush.
type fileStore struct {
	path string
}

func NewFileStore(path string) Store { return &fileStore{path: path} }

func (f *fileStore) Load() (StatusState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultStatusState(), nil
		}
		return defaultStatusState(), err
	}
	st := defaultStatusState()
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt state file falls back to defaults rather than
		// wedging boot.
		return defaultStatusState(), err
	}
	st.Text = NewBoundedText(string(st.Text))
	for i := range st.Slots {
		st.Slots[i].Text = NewBoundedText(string(st.Slots[i].Text))
	}
	return st, nil
}

func (f *fileStore) Save(st StatusState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

// persistDebouncer coalesces status writes: however many mutations land
// inside one tick window, at most one flush goes to the store, and the
// last write before the flush wins.
type persistDebouncer struct {
	status   *SharedStatus
	store    Store
	interval time.Duration
}

func newPersistDebouncer(status *SharedStatus, store Store, interval time.Duration) *persistDebouncer {
	return &persistDebouncer{status: status, store: store, interval: interval}
}

// flushIfDirty performs one flush if anything changed since the last tick.
// Returns whether a flush was attempted.
func (d *persistDebouncer) flushIfDirty() bool {
	st, dirty := d.status.TakeDirty()
	if !dirty {
		return false
	}
	if err := d.store.Save(st); err != nil {
		log.Printf("state flush failed: %v", err)
		d.status.MarkDirty() // retry next tick
	}
	return true
}

func (d *persistDebouncer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for range ticker.C {
		d.flushIfDirty()
	}
}
