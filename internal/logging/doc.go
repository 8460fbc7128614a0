// Package logging centralizes slog construction and the structured field
// vocabulary used across the pipeline. Console and JSON handlers share the
// same level and output plumbing; context helpers stamp project and stage
// identifiers onto every record emitted during a run.
package logging
