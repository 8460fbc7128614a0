package pipeline

import (
	"context"

	"greenlight/internal/project"
)

// Gateway is the generative-model capability boundary. Every operation either
// returns a fully-typed result or a classified error; transient faults have
// already been retried inside the gateway before they surface here.
//
// RunStage2Visuals may return a partially-filled bundle with a nil error when
// individual assets fail; only context cancellation or validation aborts it.
type Gateway interface {
	RunStage1(ctx context.Context, sourceText string) (*project.Stage1Result, error)
	RunStage2(ctx context.Context, sourceText, logline, synopsis string) (*project.Stage2Result, error)
	RunStage2Visuals(ctx context.Context, deck *project.Stage2Result, opts project.VisualOptions) (project.VisualBundle, error)
	RunStage3(ctx context.Context, sourceText string) (*project.Stage3Result, error)
	ExtractScenes(ctx context.Context, sourceText string) ([]project.FullScene, error)
}

// Store is the slice of project persistence the pipeline needs for
// checkpoints and auto-saves.
type Store interface {
	Create(ctx context.Context, p *project.Project) error
	Update(ctx context.Context, p *project.Project) error
}
