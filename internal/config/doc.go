// Package config loads and validates the photomesh TOML configuration and
// the environment-supplied job parameters.
package config
