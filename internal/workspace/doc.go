// Package workspace allocates per-build working areas on disk. Each area is a
// fresh directory named build-<uuid> beneath the configured work path holding a
// source/ tree (the unpacked archive) and an output/ tree (generator output).
// Areas are never shared between builds and are removed when the build ends.
package workspace
