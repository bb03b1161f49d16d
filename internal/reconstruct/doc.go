// Package reconstruct sequences the nine external photogrammetry stages over
// a fixed working-directory layout and validates the artifact chain between
// them. The algorithmic work lives entirely in the wrapped binaries; this
// package owns the invocation order, argument templates, and the
// fail-fast validation gates.
package reconstruct
