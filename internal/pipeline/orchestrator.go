package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"greenlight/internal/logging"
	"greenlight/internal/project"
	"greenlight/internal/services"
)

// Orchestrator runs the staged analysis pipeline for a single project at a
// time. Stage execution is strictly sequential: each gateway call is awaited
// before the next begins, and a stop request only takes effect at the next
// stage boundary. An in-flight call is never aborted.
type Orchestrator struct {
	gateway Gateway
	store   Store
	logger  *slog.Logger

	mu      sync.Mutex
	proj    *project.Project
	status  RunStatus
	stop    bool
	running bool
	lastErr error
}

// NewOrchestrator wires an orchestrator. store may be nil, in which case
// checkpoints stay in memory only.
func NewOrchestrator(gateway Gateway, store Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		gateway: gateway,
		store:   store,
		logger:  logger,
		status:  StatusIdle,
	}
}

// Start begins a fresh run on a new project seeded with sourceText. It fails
// without invoking any gateway operation when the source text is blank. The
// call blocks until the run finishes, pauses, or fails.
func (o *Orchestrator) Start(ctx context.Context, name, sourceText string, opts *project.VisualOptions) error {
	if strings.TrimSpace(sourceText) == "" {
		return services.Wrap(services.ErrValidation, "", "start", "source text is empty", nil)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, "", "start", "a run is already in progress", nil)
	}
	p := project.New(name, sourceText)
	if opts != nil && opts.Any() {
		cp := *opts
		p.VisualOptions = &cp
	}
	o.proj = p
	o.stop = false
	o.lastErr = nil
	o.status = StatusIdle
	o.mu.Unlock()

	return o.run(ctx)
}

// Attach adopts a stored project as the current one without running anything.
// Status is re-derived from the stage results, matching what a fresh session
// sees after a reload.
func (o *Orchestrator) Attach(p *project.Project) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return services.Wrap(services.ErrValidation, "", "attach", "a run is in progress", nil)
	}
	o.proj = p
	o.stop = false
	o.lastErr = nil
	if p.Complete() {
		o.status = StatusComplete
	} else {
		o.status = StatusIdle
	}
	return nil
}

// Resume continues the current project's run from its first unsatisfied step.
// Stages with a populated result are never re-invoked; if nothing remains the
// status moves straight to complete.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	if o.proj == nil {
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, "", "resume", "no project attached", nil)
	}
	if o.running {
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, "", "resume", "a run is already in progress", nil)
	}
	if o.proj.ReadOnly {
		o.mu.Unlock()
		return services.Wrap(services.ErrValidation, "", "resume", "project is read-only", nil)
	}
	o.stop = false
	o.lastErr = nil
	o.mu.Unlock()

	return o.run(ctx)
}

// RequestStop asks the run to pause. The flag is observed before each stage
// boundary, never mid-call; whatever stage is in flight completes first.
func (o *Orchestrator) RequestStop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stop = true
}

// Cancel discards the current run and project, returning to a fresh idle
// state. The stored copy, if any, is untouched.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.proj = nil
	o.stop = false
	o.lastErr = nil
	o.status = StatusIdle
}

// Status returns the current run status.
func (o *Orchestrator) Status() RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Err returns the error that halted the last run, if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Snapshot returns a deep copy of the current project, safe to hand to
// observers while the run keeps mutating the original.
func (o *Orchestrator) Snapshot() *project.Project {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.proj.Clone()
}

func (o *Orchestrator) run(ctx context.Context) error {
	o.mu.Lock()
	o.running = true
	p := o.proj
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithProjectID(ctx, p.ID)
	log := logging.WithContext(ctx, o.logger)

	if o.halted(log) {
		return nil
	}
	if p.Stage1 == nil {
		o.setStatus(StatusRunningStage1)
		stageCtx := services.WithStage(ctx, string(services.StageAnalyze))
		stageLog := logging.WithContext(stageCtx, o.logger)
		stageLog.Info("running narrative deconstruction")
		result, err := o.gateway.RunStage1(stageCtx, p.Script)
		if err != nil {
			return o.fail(stageLog, err)
		}
		o.mu.Lock()
		p.Stage1 = result
		o.mu.Unlock()
		o.checkpoint(ctx, log)
	}

	if o.halted(log) {
		return nil
	}
	if p.Stage2 == nil {
		o.setStatus(StatusRunningStage2)
		stageCtx := services.WithStage(ctx, string(services.StagePitch))
		stageLog := logging.WithContext(stageCtx, o.logger)
		stageLog.Info("running pitch deck creation")
		result, err := o.gateway.RunStage2(stageCtx, p.Script, p.Stage1.Logline, p.Stage1.Synopsis)
		if err != nil {
			return o.fail(stageLog, err)
		}
		o.mu.Lock()
		p.Stage2 = result
		o.mu.Unlock()
		o.checkpoint(ctx, log)
	}

	if o.halted(log) {
		return nil
	}
	if remaining := remainingVisuals(p.Stage2, p.VisualOptions); remaining.Any() {
		o.setStatus(StatusRunningStage2Visual)
		stageCtx := services.WithStage(ctx, string(services.StageVisuals))
		stageLog := logging.WithContext(stageCtx, o.logger)
		stageLog.Info("generating visual assets")
		bundle, err := o.gateway.RunStage2Visuals(stageCtx, p.Stage2, remaining)
		if err != nil {
			return o.fail(stageLog, err)
		}
		o.mu.Lock()
		p.Stage2 = MergeVisuals(p.Stage2, bundle)
		o.mu.Unlock()
		o.checkpoint(ctx, log)
	}

	if o.halted(log) {
		return nil
	}
	if p.Stage3 == nil {
		o.setStatus(StatusRunningStage3)
		stageCtx := services.WithStage(ctx, string(services.StageBreakdown))
		stageLog := logging.WithContext(stageCtx, o.logger)
		stageLog.Info("running production breakdown")
		// The breakdown and scene extraction are a paired step: both merge or
		// neither does, so a resume retries the pair wholesale.
		breakdown, err := o.gateway.RunStage3(stageCtx, p.Script)
		if err != nil {
			return o.fail(stageLog, err)
		}
		scenes, err := o.gateway.ExtractScenes(stageCtx, p.Script)
		if err != nil {
			return o.fail(stageLog, err)
		}
		o.mu.Lock()
		p.Stage3 = breakdown
		p.FullScenes = scenes
		o.mu.Unlock()
		o.checkpoint(ctx, log)
	}

	o.setStatus(StatusComplete)
	log.Info("analysis pipeline complete")
	return nil
}

// halted observes a pending stop request at a stage boundary.
func (o *Orchestrator) halted(log *slog.Logger) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.stop {
		return false
	}
	o.status = StatusPaused
	log.Info("run paused at stage boundary")
	return true
}

func (o *Orchestrator) setStatus(status RunStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

func (o *Orchestrator) fail(log *slog.Logger, err error) error {
	o.mu.Lock()
	o.status = StatusError
	o.lastErr = err
	o.mu.Unlock()
	attrs := []any{logging.FieldError, err}
	if hint := services.UserHint(err); hint != "" {
		attrs = append(attrs, logging.FieldErrorHint, hint)
	}
	log.Error("pipeline halted", attrs...)
	return err
}

// checkpoint persists the current stage results. Checkpoints only update
// projects that have already been saved once; a persistence failure is
// reported but never discards the in-memory results.
func (o *Orchestrator) checkpoint(ctx context.Context, log *slog.Logger) {
	o.mu.Lock()
	p := o.proj
	saved := p.Saved() && !p.ReadOnly
	o.mu.Unlock()
	if o.store == nil || !saved {
		return
	}
	if err := o.store.Update(ctx, p); err != nil {
		log.Warn("checkpoint save failed; results kept in memory", logging.FieldError, err)
	}
}
