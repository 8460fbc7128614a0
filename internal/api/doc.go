// Package api exposes the user-facing workflows behind the CLI: starting and
// resuming analysis runs, listing and inspecting projects, export and import,
// and share codes. It translates internal project models into
// transport-friendly DTOs so frontends can render without coupling to
// internal types.
package api
