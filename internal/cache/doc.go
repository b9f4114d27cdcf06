// Package cache holds generated documentation volumes in a bounded,
// least-recently-used map keyed by package name. Entries are futures: the
// first request for a package stores a pending future and starts the build in
// the background, and every later request shares that same future until it is
// evicted. Failed builds stay cached like successful ones, so a broken package
// fails fast instead of being rebuilt on every request.
package cache
