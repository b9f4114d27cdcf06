// Package vfs provides the in-memory volume that holds one package's generated
// documentation. A Volume is created empty per build, populated once by the
// build pipeline (CopyFromDir), and afterwards only read by the static
// resolver. Paths are POSIX-style and absolute; every name is cleaned against
// the volume root so no node can exist outside of it. Volume also satisfies
// io/fs.FS so generic fs helpers (fs.WalkDir, fs.ReadFile) work against it.
package vfs
