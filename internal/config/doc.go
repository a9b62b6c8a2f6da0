// Package config provides configuration for the editor bridge.
//
// Options is the runtime configuration consumed by the connection. Config is
// the on-disk TOML representation used by the command-line tool; it is
// loaded with Load, checked with Validate, and converted to Options.
package config
