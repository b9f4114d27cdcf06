package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"time"
)

var (
	_ fs.FS         = (*Volume)(nil)
	_ fs.StatFS     = (*Volume)(nil)
	_ fs.ReadFileFS = (*Volume)(nil)
	_ fs.ReadDirFS  = (*Volume)(nil)
)

type fileInfo struct {
	name    string
	size    int64
	dir     bool
	modTime time.Time
}

func infoOf(n *node) fileInfo {
	return fileInfo{
		name:    n.name,
		size:    int64(len(n.data)),
		dir:     n.dir,
		modTime: n.modTime,
	}
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) ModTime() time.Time { return i.modTime }
func (i fileInfo) IsDir() bool        { return i.dir }
func (i fileInfo) Sys() any           { return nil }

func (i fileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

// Open 实现 fs.FS；同时接受 "docs/index.html" 与 "/docs/index.html" 两种写法。
func (v *Volume) Open(name string) (fs.File, error) {
	clean := Clean(name)

	v.mu.RLock()
	defer v.mu.RUnlock()

	n, err := v.lookup(clean)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	info := infoOf(n)
	if n.dir {
		return &openDir{info: info, entries: dirEntries(n)}, nil
	}
	return &openFile{info: info, reader: bytes.NewReader(append([]byte(nil), n.data...))}, nil
}

type openFile struct {
	info   fileInfo
	reader *bytes.Reader
}

func (f *openFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *openFile) Read(p []byte) (int, error) { return f.reader.Read(p) }
func (f *openFile) Close() error               { return nil }

func (f *openFile) Seek(offset int64, whence int) (int64, error) {
	return f.reader.Seek(offset, whence)
}

type openDir struct {
	info    fileInfo
	entries []fs.DirEntry
	offset  int
}

func (d *openDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *openDir) Close() error               { return nil }

func (d *openDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.name, Err: ErrIsDir}
}

func (d *openDir) ReadDir(count int) ([]fs.DirEntry, error) {
	remaining := d.entries[d.offset:]
	if count <= 0 {
		d.offset = len(d.entries)
		return remaining, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if count > len(remaining) {
		count = len(remaining)
	}
	d.offset += count
	return remaining[:count], nil
}
