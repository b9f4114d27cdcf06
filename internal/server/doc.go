// Package server hosts the Fiber HTTP service and its request middleware
// chain. It serves the landing page, assigns request IDs, records request
// metrics and hands every /<package>/... path to an injected DocsHandler.
// Diagnostics endpoints live under /-/ and are registered by the routes
// subpackage, so keep exports narrow and accept explicit dependencies.
package server
