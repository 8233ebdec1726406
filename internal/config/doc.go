// Package config loads, normalizes, and validates the TOML configuration
// shared by every recpub command.
package config
