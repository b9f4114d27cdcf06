// Package generator adapts an external documentation generator (TypeDoc by
// default) to a typed three-phase strategy: a prehook prepares state, the
// state is rendered into command-line arguments for the generator, and a
// posthook turns the generator output into a result.
//
// Generator failures are reported through ExitCode values that mirror the
// generator's own process exit codes. Failures to start or observe the
// process are returned as ordinary errors.
package generator
