// Package preflight validates the runtime environment before a pipeline run:
// directory access, scratch space, toolchain discovery, and external binary
// availability.
package preflight
