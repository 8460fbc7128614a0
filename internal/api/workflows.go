package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"greenlight/internal/export"
	"greenlight/internal/logging"
	"greenlight/internal/pipeline"
	"greenlight/internal/project"
	"greenlight/internal/services"
	"greenlight/internal/sharecode"
)

// Service bundles the store, orchestrator, and save coordinator behind the
// workflow operations the CLI invokes.
type Service struct {
	store  *project.Store
	orch   *pipeline.Orchestrator
	saver  *pipeline.Autosaver
	logger *slog.Logger
}

// NewService wires a workflow service.
func NewService(store *project.Store, orch *pipeline.Orchestrator, saver *pipeline.Autosaver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, orch: orch, saver: saver, logger: logger}
}

// StartAnalysis creates and saves a new project seeded with sourceText, then
// runs the pipeline on it. The run blocks until it completes, pauses, or
// fails; completed stages are checkpointed as they land.
func (s *Service) StartAnalysis(ctx context.Context, name, sourceText string, opts *project.VisualOptions) (RunOutcome, error) {
	if strings.TrimSpace(sourceText) == "" {
		return RunOutcome{}, services.Wrap(services.ErrValidation, "", "start", "source text is empty", nil)
	}
	if strings.TrimSpace(name) == "" {
		name = deriveName(sourceText)
	}
	p := project.New(name, sourceText)
	if opts != nil && opts.Any() {
		cp := *opts
		p.VisualOptions = &cp
	}
	if err := s.saver.SaveNow(ctx, p); err != nil {
		return RunOutcome{}, err
	}
	if err := s.orch.Attach(p); err != nil {
		return RunOutcome{}, err
	}
	runErr := s.orch.Resume(ctx)
	return outcomeFor(p.ID, s.orch.Status(), runErr), nil
}

// ResumeAnalysis reloads a stored project and continues its run from the
// first unsatisfied step.
func (s *Service) ResumeAnalysis(ctx context.Context, id int64) (RunOutcome, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return RunOutcome{}, err
	}
	if p == nil {
		return RunOutcome{}, services.Wrap(services.ErrNotFound, "", "resume", fmt.Sprintf("project %d", id), nil)
	}
	if err := s.orch.Attach(p); err != nil {
		return RunOutcome{}, err
	}
	runErr := s.orch.Resume(ctx)
	return outcomeFor(p.ID, s.orch.Status(), runErr), nil
}

// ListProjects returns summaries of every stored project, most recently
// updated first.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, FromProject(p))
	}
	return summaries, nil
}

// ShowProject loads one project in full.
func (s *Service) ShowProject(ctx context.Context, id int64) (*project.Project, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "show", fmt.Sprintf("project %d", id), nil)
	}
	return p, nil
}

// DeleteProject removes a stored project. It reports whether anything was
// deleted.
func (s *Service) DeleteProject(ctx context.Context, id int64) (bool, error) {
	return s.store.Remove(ctx, id)
}

// ExportProject writes a stored project to path as JSON or as a Markdown
// pitch document, chosen by format.
func (s *Service) ExportProject(ctx context.Context, id int64, path, format string) error {
	p, err := s.ShowProject(ctx, id)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return export.WriteJSON(path, p)
	case "markdown", "md":
		return export.WriteMarkdown(path, p)
	default:
		return services.Wrap(services.ErrValidation, "", "export", fmt.Sprintf("unknown format %q", format), nil)
	}
}

// ImportProject reads an exported JSON document and saves it as a fresh
// project.
func (s *Service) ImportProject(ctx context.Context, path string) (ProjectSummary, error) {
	p, err := export.ReadJSON(path)
	if err != nil {
		return ProjectSummary{}, err
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = deriveName(p.Script)
	}
	p.ReadOnly = false
	if err := s.saver.SaveNow(ctx, p); err != nil {
		return ProjectSummary{}, err
	}
	s.logger.Info("project imported", logging.FieldProjectID, p.ID)
	return FromProject(p), nil
}

// SetMirror links (or, with an empty path, unlinks) an external file that
// explicit saves mirror the project document to. The mirror is written
// immediately on link.
func (s *Service) SetMirror(ctx context.Context, id int64, path string) error {
	p, err := s.ShowProject(ctx, id)
	if err != nil {
		return err
	}
	p.MirrorPath = strings.TrimSpace(path)
	return s.saver.SaveNow(ctx, p)
}

// ShareCode encodes a stored project as a share code. Lite codes strip
// embedded imagery.
func (s *Service) ShareCode(ctx context.Context, id int64, lite bool) (string, error) {
	p, err := s.ShowProject(ctx, id)
	if err != nil {
		return "", err
	}
	return sharecode.Encode(p, lite)
}

// OpenShareCode decodes a share code and saves it as a read-only viewer
// project. Viewer projects never run the pipeline or auto-save.
func (s *Service) OpenShareCode(ctx context.Context, code string) (ProjectSummary, error) {
	p, err := sharecode.Decode(code)
	if err != nil {
		return ProjectSummary{}, err
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = deriveName(p.Script)
	}
	p.ReadOnly = true
	if err := s.store.Create(ctx, p); err != nil {
		return ProjectSummary{}, err
	}
	s.logger.Info("share code opened", logging.FieldProjectID, p.ID)
	return FromProject(p), nil
}

// deriveName turns the first non-empty source line into a usable project
// name.
func deriveName(sourceText string) string {
	for _, line := range strings.Split(sourceText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		const limit = 48
		if runes := []rune(line); len(runes) > limit {
			line = strings.TrimSpace(string(runes[:limit]))
		}
		return line
	}
	return "Untitled Project"
}
