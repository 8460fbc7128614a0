package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"greenlight/internal/export"
	"greenlight/internal/pipeline"
	"greenlight/internal/project"
	"greenlight/internal/services"
)

func savedProject(t *testing.T, store *memStore) *project.Project {
	t.Helper()
	p := project.New("autosaved", sourceText)
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestDebounceCoalescesRapidMutations(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, 30*time.Millisecond, 0)
	defer saver.Close()

	p := savedProject(t, store)
	base := store.updateCount()

	p.Name = "first"
	saver.Notify(p)
	p.Name = "second"
	saver.Notify(p)
	p.Name = "final"
	saver.Notify(p)

	deadline := time.Now().Add(2 * time.Second)
	for store.updateCount() == base && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Give a potential second write time to land before counting.
	time.Sleep(60 * time.Millisecond)

	if got := store.updateCount() - base; got != 1 {
		t.Fatalf("expected exactly 1 coalesced write, got %d", got)
	}
	if store.last.Name != "final" {
		t.Fatalf("write must reflect the final state, got %q", store.last.Name)
	}
}

func TestNotifyIgnoresUnsavedAndReadOnlyProjects(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, 10*time.Millisecond, 0)
	defer saver.Close()

	saver.Notify(project.New("unsaved", sourceText))

	locked := savedProject(t, store)
	locked.ReadOnly = true
	base := store.updateCount()
	saver.Notify(locked)

	time.Sleep(50 * time.Millisecond)
	if got := store.updateCount(); got != base {
		t.Fatalf("no auto-save expected, got %d extra writes", got-base)
	}
}

func TestSaveNowCreatesThenUpdates(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, time.Second, 0)
	defer saver.Close()

	p := project.New("explicit", sourceText)
	if err := saver.SaveNow(context.Background(), p); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if !p.Saved() {
		t.Fatal("first save must assign an id")
	}
	if err := saver.SaveNow(context.Background(), p); err != nil {
		t.Fatalf("SaveNow update: %v", err)
	}
	if store.creates != 1 || store.updates != 1 {
		t.Fatalf("expected 1 create and 1 update, got %d and %d", store.creates, store.updates)
	}
}

func TestSaveNowRequiresNameOnFirstSave(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, time.Second, 0)
	defer saver.Close()

	err := saver.SaveNow(context.Background(), project.New("  ", sourceText))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.creates != 0 {
		t.Fatal("no create expected without a name")
	}
}

func TestSaveNowWritesMirrorBestEffort(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, time.Second, 0)
	defer saver.Close()

	mirror := filepath.Join(t.TempDir(), "mirrors", "copy.json")
	p := project.New("mirrored", sourceText)
	p.MirrorPath = mirror
	if err := saver.SaveNow(context.Background(), p); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	copied, err := export.ReadJSON(mirror)
	if err != nil {
		t.Fatalf("mirror not written: %v", err)
	}
	if copied.Name != "mirrored" {
		t.Fatalf("unexpected mirror content %q", copied.Name)
	}

	// An unwritable mirror must not fail the save itself.
	p.MirrorPath = filepath.Join(mirror, "impossible", "copy.json")
	if err := saver.SaveNow(context.Background(), p); err != nil {
		t.Fatalf("SaveNow with bad mirror: %v", err)
	}
}

func TestCloseFlushesPendingWrite(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, time.Hour, 0)

	p := savedProject(t, store)
	base := store.updateCount()
	p.Name = "flushed"
	saver.Notify(p)
	saver.Close()

	if got := store.updateCount() - base; got != 1 {
		t.Fatalf("expected the pending snapshot flushed on close, got %d writes", got)
	}
	if store.last.Name != "flushed" {
		t.Fatalf("unexpected flushed state %q", store.last.Name)
	}
}

func TestPeriodicSaveWritesOnInterval(t *testing.T) {
	store := &memStore{}
	saver := pipeline.NewAutosaver(store, nil, time.Hour, 25*time.Millisecond)
	defer saver.Close()

	p := savedProject(t, store)
	base := store.updateCount()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		saver.RunPeriodic(ctx, func() *project.Project { return p })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.updateCount() == base && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if store.updateCount() == base {
		t.Fatal("expected at least one periodic write")
	}
}
