package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type fakeStore struct {
	saves  int
	last   StatusState
	failGo bool
}

func (f *fakeStore) Load() (StatusState, error) { return defaultStatusState(), nil }

func (f *fakeStore) Save(st StatusState) error {
	if f.failGo {
		return errors.New("medium is grumpy")
	}
	f.saves++
	f.last = st
	return nil
}

// N mutations inside one tick window must coalesce into exactly one
// durable write, and the last one wins.
func TestDebouncerCoalesces(t *testing.T) {
	s := NewSharedStatus(defaultStatusState())
	store := &fakeStore{}
	d := newPersistDebouncer(s, store, time.Second)

	for i := 0; i < 25; i++ {
		s.Mutate(func(st *StatusState) { st.Text = NewBoundedText("EDIT") })
	}
	s.Mutate(func(st *StatusState) { st.Text = "FINAL" })

	if !d.flushIfDirty() {
		t.Fatal("tick with dirty state should flush")
	}
	if store.saves != 1 {
		t.Errorf("26 mutations flushed %d times, want 1", store.saves)
	}
	if store.last.Text != "FINAL" {
		t.Errorf("flush lost the last write: got %q", store.last.Text)
	}

	if d.flushIfDirty() {
		t.Error("clean state should not flush")
	}
	if store.saves != 1 {
		t.Errorf("extra flush on clean state: %d", store.saves)
	}
}

func TestDebouncerRetriesAfterFailedSave(t *testing.T) {
	s := NewSharedStatus(defaultStatusState())
	store := &fakeStore{failGo: true}
	d := newPersistDebouncer(s, store, time.Second)

	s.Mutate(func(st *StatusState) { st.Text = "X" })
	d.flushIfDirty()
	if store.saves != 0 {
		t.Fatal("save should have failed")
	}

	store.failGo = false
	if !d.flushIfDirty() {
		t.Error("failed save should leave the state dirty for the next tick")
	}
	if store.saves != 1 {
		t.Errorf("retry flushed %d times, want 1", store.saves)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	st, err := store.Load()
	if err != nil {
		t.Fatalf("missing file should load defaults, got %v", err)
	}
	if st.Mode != ModeAvailable {
		t.Errorf("default mode: got %d", st.Mode)
	}

	st.Mode = ModeCustom2
	st.Slots[1] = CustomSlot{Text: "LUNCH", Color: GS_WHITE}
	st.Rotation = LandscapeFlipped
	if err := store.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != st {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, st)
	}
}
