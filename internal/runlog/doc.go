// Package runlog persists a history of pipeline executions in SQLite so
// operators can inspect past runs and their per-stage outcomes after the
// process exits.
package runlog
