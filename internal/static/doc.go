// Package static maps request subpaths onto files inside a documentation
// volume. Every lookup is confined to the /docs namespace: paths that
// normalize outside it are reported as not found, and directories resolve to
// their index.html.
package static
