package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"greenlight/internal/pipeline"
	"greenlight/internal/project"
	"greenlight/internal/services"
)

type fakeGateway struct {
	mu           sync.Mutex
	stage1Calls  int
	stage2Calls  int
	visualsCalls int
	stage3Calls  int
	scenesCalls  int

	stage1Err  error
	stage2Err  error
	visualsErr error
	stage3Err  error
	scenesErr  error

	bundle      project.VisualBundle
	visualsOpts project.VisualOptions

	afterStage1 func()
}

func (g *fakeGateway) RunStage1(ctx context.Context, sourceText string) (*project.Stage1Result, error) {
	g.mu.Lock()
	g.stage1Calls++
	after := g.afterStage1
	g.mu.Unlock()
	if after != nil {
		after()
	}
	if g.stage1Err != nil {
		return nil, g.stage1Err
	}
	return &project.Stage1Result{
		Logline:  "a stranger arrives",
		Synopsis: "a quiet room is disturbed",
		Genre:    "drama",
		Tone:     "restrained",
		Characters: []project.Character{
			{Name: "Mara", Description: "a meticulous safecracker"},
			{Name: "Deck", Description: "her reluctant lookout"},
		},
	}, nil
}

func (g *fakeGateway) RunStage2(ctx context.Context, sourceText, logline, synopsis string) (*project.Stage2Result, error) {
	g.mu.Lock()
	g.stage2Calls++
	g.mu.Unlock()
	if g.stage2Err != nil {
		return nil, g.stage2Err
	}
	return &project.Stage2Result{
		Title:        "The Room",
		Tagline:      "Some doors open themselves.",
		PitchSummary: logline,
		CharacterProfiles: []project.CharacterProfile{
			{Name: "Mara", Description: "a meticulous safecracker"},
			{Name: "Deck", Description: "her reluctant lookout"},
		},
	}, nil
}

func (g *fakeGateway) RunStage2Visuals(ctx context.Context, deck *project.Stage2Result, opts project.VisualOptions) (project.VisualBundle, error) {
	g.mu.Lock()
	g.visualsCalls++
	g.visualsOpts = opts
	g.mu.Unlock()
	if g.visualsErr != nil {
		return project.VisualBundle{}, g.visualsErr
	}
	return g.bundle, nil
}

func (g *fakeGateway) RunStage3(ctx context.Context, sourceText string) (*project.Stage3Result, error) {
	g.mu.Lock()
	g.stage3Calls++
	g.mu.Unlock()
	if g.stage3Err != nil {
		return nil, g.stage3Err
	}
	return &project.Stage3Result{ShootDayEstimate: 12, BudgetBand: "low"}, nil
}

func (g *fakeGateway) ExtractScenes(ctx context.Context, sourceText string) ([]project.FullScene, error) {
	g.mu.Lock()
	g.scenesCalls++
	g.mu.Unlock()
	if g.scenesErr != nil {
		return nil, g.scenesErr
	}
	heading, _, _ := strings.Cut(sourceText, "\n")
	return []project.FullScene{{Number: 1, Heading: heading, Body: sourceText}}, nil
}

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	creates int
	updates int
	last    *project.Project
}

func (s *memStore) Create(ctx context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.creates++
	s.last = p.Clone()
	return nil
}

func (s *memStore) Update(ctx context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.last = p.Clone()
	return nil
}

func (s *memStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

const sourceText = "INT. ROOM - DAY\nA man enters."

func TestStartRunsFullPipeline(t *testing.T) {
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	if err := orch.Start(context.Background(), "room piece", sourceText, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := orch.Status(); got != pipeline.StatusComplete {
		t.Fatalf("expected complete status, got %s", got)
	}
	p := orch.Snapshot()
	if p.Stage1 == nil || p.Stage2 == nil || p.Stage3 == nil {
		t.Fatal("expected all stage results populated")
	}
	if len(p.FullScenes) < 1 {
		t.Fatal("expected at least one extracted scene")
	}
	if p.FullScenes[0].Heading != "INT. ROOM - DAY" {
		t.Fatalf("unexpected scene heading %q", p.FullScenes[0].Heading)
	}
	if gw.visualsCalls != 0 {
		t.Fatalf("visuals must be skipped when no options chosen, got %d calls", gw.visualsCalls)
	}
	if gw.stage1Calls != 1 || gw.stage2Calls != 1 || gw.stage3Calls != 1 || gw.scenesCalls != 1 {
		t.Fatalf("unexpected call counts: %d %d %d %d", gw.stage1Calls, gw.stage2Calls, gw.stage3Calls, gw.scenesCalls)
	}
}

func TestStartRejectsBlankSource(t *testing.T) {
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	err := orch.Start(context.Background(), "blank", "   \n\t", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gw.stage1Calls != 0 {
		t.Fatal("no gateway operation may run on blank source")
	}
	if orch.Snapshot() != nil {
		t.Fatal("project state must stay untouched")
	}
}

func TestResumeSkipsPopulatedStages(t *testing.T) {
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	p := project.New("partial", sourceText)
	p.Stage1 = &project.Stage1Result{Logline: "l", Synopsis: "s"}
	if err := orch.Attach(p); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if gw.stage1Calls != 0 {
		t.Fatalf("stage 1 must not be re-invoked, got %d calls", gw.stage1Calls)
	}
	if gw.stage2Calls != 1 || gw.stage3Calls != 1 {
		t.Fatalf("expected stages 2 and 3 to run once: %d %d", gw.stage2Calls, gw.stage3Calls)
	}
	if orch.Status() != pipeline.StatusComplete {
		t.Fatalf("expected complete, got %s", orch.Status())
	}
}

func TestResumeOnCompleteProjectIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	p := project.New("done", sourceText)
	p.Stage1 = &project.Stage1Result{Logline: "l"}
	p.Stage2 = &project.Stage2Result{Title: "t"}
	p.Stage3 = &project.Stage3Result{BudgetBand: "low"}
	if err := orch.Attach(p); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if gw.stage1Calls+gw.stage2Calls+gw.stage3Calls+gw.scenesCalls != 0 {
		t.Fatal("no gateway call expected for a complete project")
	}
	if orch.Status() != pipeline.StatusComplete {
		t.Fatalf("expected complete, got %s", orch.Status())
	}
}

func TestStopThenResumePreservesCompletedWork(t *testing.T) {
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, nil)
	gw.afterStage1 = orch.RequestStop

	if err := orch.Start(context.Background(), "stoppable", sourceText, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if orch.Status() != pipeline.StatusPaused {
		t.Fatalf("expected paused, got %s", orch.Status())
	}
	p := orch.Snapshot()
	if p.Stage1 == nil {
		t.Fatal("stage 1 result must survive the stop")
	}
	if p.Stage2 != nil || gw.stage2Calls != 0 {
		t.Fatal("stage 2 must not start after a stop request")
	}

	gw.afterStage1 = nil
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if gw.stage1Calls != 1 {
		t.Fatalf("stage 1 re-invoked on resume: %d calls", gw.stage1Calls)
	}
	if gw.stage2Calls != 1 {
		t.Fatalf("expected stage 2 exactly once after resume, got %d", gw.stage2Calls)
	}
	if orch.Status() != pipeline.StatusComplete {
		t.Fatalf("expected complete, got %s", orch.Status())
	}
}

func TestPartialVisualFailureDoesNotBlockPipeline(t *testing.T) {
	gw := &fakeGateway{
		bundle: project.VisualBundle{
			Portraits: []project.CharacterPortrait{{Name: "Deck", ImageBase64: "deck-bytes"}},
		},
	}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	opts := &project.VisualOptions{Portraits: true}
	if err := orch.Start(context.Background(), "visual", sourceText, opts); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if orch.Status() != pipeline.StatusComplete {
		t.Fatalf("expected complete, got %s", orch.Status())
	}
	p := orch.Snapshot()
	profiles := p.Stage2.CharacterProfiles
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].Name != "Mara" || profiles[0].ImageBase64 != "" {
		t.Fatalf("failed portrait must stay unset: %+v", profiles[0])
	}
	if profiles[1].Name != "Deck" || profiles[1].ImageBase64 != "deck-bytes" {
		t.Fatalf("succeeding portrait must be merged: %+v", profiles[1])
	}
	if gw.stage3Calls != 1 {
		t.Fatal("pipeline must proceed to stage 3 despite the missing portrait")
	}
}

func TestGatewayFailureHaltsWithoutMerge(t *testing.T) {
	quotaErr := services.Wrap(services.ErrQuota, "pitch", "stage2", "", errors.New("http 429"))
	gw := &fakeGateway{stage2Err: quotaErr}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	err := orch.Start(context.Background(), "quota", sourceText, nil)
	if !errors.Is(err, services.ErrQuota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if orch.Status() != pipeline.StatusError {
		t.Fatalf("expected error status, got %s", orch.Status())
	}
	if !errors.Is(orch.Err(), services.ErrQuota) {
		t.Fatalf("Err() should carry the halt cause, got %v", orch.Err())
	}
	p := orch.Snapshot()
	if p.Stage1 == nil {
		t.Fatal("completed stage 1 must be preserved")
	}
	if p.Stage2 != nil {
		t.Fatal("no partial result may be merged for the failing step")
	}
	if gw.stage3Calls != 0 {
		t.Fatal("pipeline must never skip forward past a failure")
	}

	// The user retries the same unsatisfied step via resume.
	gw.stage2Err = nil
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if gw.stage2Calls != 2 {
		t.Fatalf("expected stage 2 re-attempted once, got %d calls", gw.stage2Calls)
	}
	if orch.Status() != pipeline.StatusComplete {
		t.Fatalf("expected complete, got %s", orch.Status())
	}
}

func TestStage3AndScenesMergeAsPair(t *testing.T) {
	gw := &fakeGateway{scenesErr: services.Wrap(services.ErrTransient, "breakdown", "scenes", "", errors.New("http 503"))}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	if err := orch.Start(context.Background(), "paired", sourceText, nil); err == nil {
		t.Fatal("expected scene extraction failure to surface")
	}
	p := orch.Snapshot()
	if p.Stage3 != nil || p.FullScenes != nil {
		t.Fatal("neither half of the paired step may merge when one fails")
	}

	gw.scenesErr = nil
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if gw.stage3Calls != 2 {
		t.Fatalf("breakdown must be retried wholesale, got %d calls", gw.stage3Calls)
	}
	p = orch.Snapshot()
	if p.Stage3 == nil || len(p.FullScenes) == 0 {
		t.Fatal("paired step must merge both results on success")
	}
}

func TestCheckpointsPersistSavedProjects(t *testing.T) {
	gw := &fakeGateway{}
	store := &memStore{}
	orch := pipeline.NewOrchestrator(gw, store, nil)

	p := project.New("saved", sourceText)
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := orch.Attach(p); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	// One checkpoint per completed step: stage 1, stage 2, stage 3 + scenes.
	if got := store.updateCount(); got != 3 {
		t.Fatalf("expected 3 checkpoint writes, got %d", got)
	}
	if store.last.Stage3 == nil {
		t.Fatal("final checkpoint must carry the full results")
	}
}

func TestCancelReturnsToIdle(t *testing.T) {
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, nil)
	gw.afterStage1 = orch.RequestStop

	if err := orch.Start(context.Background(), "cancelled", sourceText, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	orch.Cancel()
	if orch.Status() != pipeline.StatusIdle {
		t.Fatalf("expected idle after cancel, got %s", orch.Status())
	}
	if orch.Snapshot() != nil {
		t.Fatal("cancel must discard the current project")
	}
	if err := orch.Resume(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("resume after cancel should fail validation, got %v", err)
	}
}

func TestResumeRegeneratesOnlyMissingVisuals(t *testing.T) {
	gw := &fakeGateway{
		bundle: project.VisualBundle{
			Portraits: []project.CharacterPortrait{{Name: "Mara", ImageBase64: "mara-bytes"}},
		},
	}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	p := project.New("mid-visuals", sourceText)
	p.VisualOptions = &project.VisualOptions{Poster: true, Portraits: true}
	p.Stage1 = &project.Stage1Result{Logline: "l", Synopsis: "s"}
	p.Stage2 = &project.Stage2Result{
		Title:        "The Room",
		PosterBase64: "existing-poster",
		CharacterProfiles: []project.CharacterProfile{
			{Name: "Mara"},
			{Name: "Deck", ImageBase64: "deck-bytes"},
		},
	}
	if err := orch.Attach(p); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := orch.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if gw.visualsCalls != 1 {
		t.Fatalf("expected one visuals call, got %d", gw.visualsCalls)
	}
	if gw.visualsOpts.Poster || gw.visualsOpts.ConceptArt || !gw.visualsOpts.Portraits {
		t.Fatalf("gateway must receive only the missing assets: %+v", gw.visualsOpts)
	}
	merged := orch.Snapshot().Stage2
	if merged.PosterBase64 != "existing-poster" {
		t.Fatalf("existing poster must survive the resume: %q", merged.PosterBase64)
	}
	if merged.CharacterProfiles[0].ImageBase64 != "mara-bytes" {
		t.Fatal("missing portrait must be filled in on resume")
	}
	if merged.CharacterProfiles[1].ImageBase64 != "deck-bytes" {
		t.Fatal("existing portrait must survive the merge")
	}
}

func TestRunLogsStageAndCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	gw := &fakeGateway{}
	orch := pipeline.NewOrchestrator(gw, nil, logger)

	if err := orch.Start(context.Background(), "logged", sourceText, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"stage=analyze", "stage=pitch", "stage=breakdown", "correlation_id=", "project_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestVisualOptionsPersistOnProject(t *testing.T) {
	gw := &fakeGateway{bundle: project.VisualBundle{PosterBase64: "poster-bytes"}}
	orch := pipeline.NewOrchestrator(gw, nil, nil)

	if err := orch.Start(context.Background(), "poster", sourceText, &project.VisualOptions{Poster: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p := orch.Snapshot()
	if p.VisualOptions == nil || !p.VisualOptions.Poster {
		t.Fatal("chosen visual options must be recorded on the project")
	}
	if !gw.visualsOpts.Poster || gw.visualsOpts.ConceptArt || gw.visualsOpts.Portraits {
		t.Fatalf("gateway should receive only the requested assets: %+v", gw.visualsOpts)
	}
}
