// Package config loads, normalizes, and validates Greenlight's TOML
// configuration. Load resolves the config file (explicit path, then
// ~/.config/greenlight/config.toml, then ./greenlight.toml), applies
// defaults for anything unset, expands ~ in paths, and rejects unusable
// values before any subsystem starts.
package config
