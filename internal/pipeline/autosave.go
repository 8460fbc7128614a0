package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"greenlight/internal/export"
	"greenlight/internal/logging"
	"greenlight/internal/project"
	"greenlight/internal/services"
)

// Autosaver persists project snapshots across three triggers: explicit save,
// debounced auto-save after a mutation, and a periodic interval save. Rapid
// mutations inside the debounce window coalesce into a single write carrying
// the final state. Auto-save never creates a project; until the first explicit
// save, edits live in memory only. Read-only projects are never written.
type Autosaver struct {
	store    Store
	logger   *slog.Logger
	debounce time.Duration
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *project.Project
	closed  bool
}

// NewAutosaver builds a coordinator with the given debounce window and
// periodic interval. An interval of zero disables the periodic trigger.
func NewAutosaver(store Store, logger *slog.Logger, debounce, interval time.Duration) *Autosaver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	return &Autosaver{
		store:    store,
		logger:   logger,
		debounce: debounce,
		interval: interval,
	}
}

// Notify schedules a debounced save of the supplied snapshot. A newer
// notification within the window replaces the pending snapshot and restarts
// the timer. Unsaved and read-only projects are ignored.
func (a *Autosaver) Notify(p *project.Project) {
	if p == nil || !p.Saved() || p.ReadOnly {
		return
	}
	snapshot := p.Clone()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = snapshot
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.flushPending)
}

// SaveNow performs an explicit save, creating the project on first save and
// updating it afterward. The first save requires a name. When the project
// carries a mirror path, a copy of the document is also written there; a
// mirror failure is reported in the log but never fails the save.
func (a *Autosaver) SaveNow(ctx context.Context, p *project.Project) error {
	if p == nil {
		return services.Wrap(services.ErrValidation, "", "save", "no project", nil)
	}
	if p.ReadOnly {
		return services.Wrap(services.ErrValidation, "", "save", "project is read-only", nil)
	}
	if !p.Saved() {
		if strings.TrimSpace(p.Name) == "" {
			return services.Wrap(services.ErrValidation, "", "save", "project name required for first save", nil)
		}
		if err := a.store.Create(ctx, p); err != nil {
			return err
		}
	} else if err := a.store.Update(ctx, p); err != nil {
		return err
	}
	a.writeMirror(p)
	return nil
}

func (a *Autosaver) writeMirror(p *project.Project) {
	path := strings.TrimSpace(p.MirrorPath)
	if path == "" {
		return
	}
	if err := export.WriteJSON(path, p); err != nil {
		a.logger.Warn("mirror write failed",
			logging.FieldProjectID, p.ID,
			logging.FieldError, err,
		)
	}
}

// RunPeriodic forces a save of the source's current snapshot every interval
// until the context is canceled. It blocks and is meant to run on its own
// goroutine.
func (a *Autosaver) RunPeriodic(ctx context.Context, source func() *project.Project) {
	if a.interval <= 0 {
		return
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := source()
			if p == nil || !p.Saved() || p.ReadOnly {
				continue
			}
			if err := a.store.Update(ctx, p); err != nil {
				a.logger.Warn("periodic save failed", logging.FieldError, err)
			}
		}
	}
}

// Close stops the debounce timer and flushes any pending snapshot so a queued
// mutation is not lost on shutdown.
func (a *Autosaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.flushPending()
}

func (a *Autosaver) flushPending() {
	a.mu.Lock()
	snapshot := a.pending
	a.pending = nil
	a.mu.Unlock()
	if snapshot == nil {
		return
	}
	if err := a.store.Update(context.Background(), snapshot); err != nil {
		a.logger.Warn("auto-save failed; in-memory state preserved",
			logging.FieldProjectID, snapshot.ID,
			logging.FieldError, err,
		)
	}
}
