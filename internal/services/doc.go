// Package services defines shared utilities consumed by the pipeline
// orchestrator and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     consistently (validation vs transient vs quota vs empty response).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across stages.
package services
