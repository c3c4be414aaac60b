// Package config loads and validates the reelsmith TOML configuration.
package config
