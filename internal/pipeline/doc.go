// Package pipeline sequences the staged analysis run for a project. The
// orchestrator decides which stage to run next from the project's stage
// results, invokes the model gateway, merges results field by field, persists
// checkpoints, and honors cooperative stop requests at stage boundaries.
package pipeline
