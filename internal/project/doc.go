// Package project defines the Project document model and its SQLite-backed
// store. A project's stage-result fields are nil until the corresponding
// pipeline stage completes; that nullability is the checkpoint record the
// orchestrator resumes from.
package project
