// Package pipeline turns an npm package name into an in-memory documentation
// volume. A build fetches the latest tarball into a private working area, runs
// the documentation generator over the unpacked sources and copies the
// generated site into a fresh vfs.Volume mounted at /docs. The working area is
// removed on every exit path.
package pipeline
