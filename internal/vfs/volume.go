package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrIsDir 表示目标路径是目录，无法按文件读写。
	ErrIsDir = errors.New("is a directory")
	// ErrNotDir 表示路径中的某一级是文件，无法继续向下查找或创建。
	ErrNotDir = errors.New("not a directory")
)

type node struct {
	name     string
	dir      bool
	data     []byte
	modTime  time.Time
	children map[string]*node
}

func newDirNode(name string) *node {
	return &node{
		name:     name,
		dir:      true,
		modTime:  time.Now(),
		children: make(map[string]*node),
	}
}

// Volume 是独立的内存目录树，每次构建一个实例，构建完成后只读共享。
type Volume struct {
	mu   sync.RWMutex
	root *node
}

// New 创建只包含根目录的空 Volume。
func New() *Volume {
	return &Volume{root: newDirNode("/")}
}

// Clean 将任意输入规范化为以 / 开头的绝对路径，`..` 不会越过根目录。
func Clean(name string) string {
	return path.Clean("/" + name)
}

func segments(clean string) []string {
	trimmed := strings.TrimPrefix(clean, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// lookup 需要调用方持有读锁。
func (v *Volume) lookup(clean string) (*node, error) {
	current := v.root
	for _, seg := range segments(clean) {
		if !current.dir {
			return nil, ErrNotDir
		}
		next, ok := current.children[seg]
		if !ok {
			return nil, fs.ErrNotExist
		}
		current = next
	}
	return current, nil
}

// WriteFile 写入文件内容，父目录必须已存在，数据会被复制。
func (v *Volume) WriteFile(name string, data []byte) error {
	clean := Clean(name)
	if clean == "/" {
		return &fs.PathError{Op: "write", Path: clean, Err: ErrIsDir}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	parent, err := v.lookup(path.Dir(clean))
	if err != nil {
		return &fs.PathError{Op: "write", Path: clean, Err: err}
	}
	if !parent.dir {
		return &fs.PathError{Op: "write", Path: clean, Err: ErrNotDir}
	}

	base := path.Base(clean)
	if existing, ok := parent.children[base]; ok && existing.dir {
		return &fs.PathError{Op: "write", Path: clean, Err: ErrIsDir}
	}

	parent.children[base] = &node{
		name:    base,
		data:    append([]byte(nil), data...),
		modTime: time.Now(),
	}
	return nil
}

// ReadFile 返回文件内容的副本。
func (v *Volume) ReadFile(name string) ([]byte, error) {
	clean := Clean(name)

	v.mu.RLock()
	defer v.mu.RUnlock()

	n, err := v.lookup(clean)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: clean, Err: err}
	}
	if n.dir {
		return nil, &fs.PathError{Op: "read", Path: clean, Err: ErrIsDir}
	}
	return append([]byte(nil), n.data...), nil
}

// Stat 返回节点信息。
func (v *Volume) Stat(name string) (fs.FileInfo, error) {
	clean := Clean(name)

	v.mu.RLock()
	defer v.mu.RUnlock()

	n, err := v.lookup(clean)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: clean, Err: err}
	}
	return infoOf(n), nil
}

// MkdirAll 递归创建目录；若某一级已是文件则返回 ErrNotDir。
func (v *Volume) MkdirAll(name string) error {
	clean := Clean(name)

	v.mu.Lock()
	defer v.mu.Unlock()

	current := v.root
	for _, seg := range segments(clean) {
		next, ok := current.children[seg]
		if !ok {
			next = newDirNode(seg)
			current.children[seg] = next
		}
		if !next.dir {
			return &fs.PathError{Op: "mkdir", Path: clean, Err: ErrNotDir}
		}
		current = next
	}
	return nil
}

// ReadDir 按名称排序返回目录项。
func (v *Volume) ReadDir(name string) ([]fs.DirEntry, error) {
	clean := Clean(name)

	v.mu.RLock()
	defer v.mu.RUnlock()

	n, err := v.lookup(clean)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: clean, Err: err}
	}
	if !n.dir {
		return nil, &fs.PathError{Op: "readdir", Path: clean, Err: ErrNotDir}
	}
	return dirEntries(n), nil
}

// CopyFromDir 将真实文件系统 src 下的目录与普通文件递归复制到 dst，保持相对结构。
// 符号链接、设备等非普通文件会被跳过。
func (v *Volume) CopyFromDir(src, dst string) error {
	if err := v.MkdirAll(dst); err != nil {
		return err
	}
	base := Clean(dst)

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := path.Join(base, filepath.ToSlash(rel))

		switch {
		case d.IsDir():
			return v.MkdirAll(target)
		case d.Type().IsRegular():
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			return v.WriteFile(target, data)
		default:
			return nil
		}
	})
}

// FileCount 返回 Volume 中普通文件的数量。
func (v *Volume) FileCount() int {
	count := 0
	v.walk(func(n *node) {
		if !n.dir {
			count++
		}
	})
	return count
}

// Size 返回所有文件内容的总字节数。
func (v *Volume) Size() int64 {
	var total int64
	v.walk(func(n *node) {
		total += int64(len(n.data))
	})
	return total
}

func (v *Volume) walk(fn func(*node)) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var visit func(*node)
	visit = func(n *node) {
		fn(n)
		for _, child := range n.children {
			visit(child)
		}
	}
	visit(v.root)
}

func dirEntries(n *node) []fs.DirEntry {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]fs.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fs.FileInfoToDirEntry(infoOf(n.children[name])))
	}
	return entries
}
