// Package services defines the shared failure taxonomy used across the
// pipeline and the exit-code mapping the CLI applies to it.
package services
