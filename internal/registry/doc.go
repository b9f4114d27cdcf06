// Package registry resolves npm package names to their latest published
// tarball and unpacks that tarball into a working directory. Registry
// archives wrap every file in one top-level directory ("package/"), so exactly
// one leading path component is stripped from each entry during extraction.
package registry
