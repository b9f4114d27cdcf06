// Package docserver answers /<package>/<subpath> requests. It extracts the
// package name from the path (scoped names span two segments), redirects bare
// package paths to their trailing-slash form, waits for the package's
// documentation volume from the cache and serves the resolved file with its
// content type. Missing files map to 404 and every other failure maps to 500.
package docserver
