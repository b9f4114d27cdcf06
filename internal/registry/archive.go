package registry

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/gzip"
)

// stripComponents 为 npm tarball 顶层目录（通常为 package/）的层数。
const stripComponents = 1

// ArchiveError 表示 gzip/tar 流本身损坏。
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("corrupt archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Unpack 解压 gzip 压缩的 tar 流到 dest，剥离首级目录；
// 只写出普通文件与目录，链接与设备文件被忽略，任何条目都不会落到 dest 之外。
func Unpack(ctx context.Context, r io.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return &ArchiveError{Err: err}
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ArchiveError{Err: err}
		}

		name := stripPath(hdr.Name, stripComponents)
		if name == "" {
			continue
		}
		target, err := securejoin.SecureJoin(dest, name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(ctx, target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

// stripPath 规范化条目路径并去掉前 n 级目录；剩余为空时返回空字符串。
func stripPath(name string, n int) string {
	clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if clean == "" {
		return ""
	}
	parts := strings.SplitN(clean, "/", n+1)
	if len(parts) <= n {
		return ""
	}
	return parts[n]
}

func writeEntry(ctx context.Context, target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	// 保证当前进程可读写，生成器需要读取这些文件。
	perm |= 0o600
	file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if err := copyWithContext(ctx, file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// copyWithContext 分块复制并在每次读取前检查 ctx；读取失败视为归档损坏。
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			if wErr != nil {
				return wErr
			}
			if w < n {
				return io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &ArchiveError{Err: err}
		}
	}
}
