// Command photomesh turns a set of photos or a walkaround video stored in
// object storage into a 3D-printable mesh. It wraps an external
// photogrammetry toolchain and an optional Blender cleanup step; the run
// history is kept in a local SQLite ledger.
package main
