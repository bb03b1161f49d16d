// Package logging provides the slog construction and field conventions used
// throughout photomesh: a console handler for interactive use, a JSON handler
// for batch/container runs, and standardized attribute keys.
package logging
