package static

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/any-hub/grimoire/internal/vfs"
)

const (
	docsRoot  = "/docs"
	indexFile = "index.html"
)

// ErrNotFound 表示目标不存在或越出 /docs 命名空间。
var ErrNotFound = errors.New("not found")

// ResolvePath 将请求子路径规范化为 /docs 下的卷内路径。
func ResolvePath(subpath string) (string, error) {
	trimmed := strings.TrimLeft(subpath, "/")
	if trimmed == "" {
		return docsRoot + "/" + indexFile, nil
	}

	resolved := path.Join(docsRoot, trimmed)
	if resolved == docsRoot {
		return docsRoot + "/" + indexFile, nil
	}
	if !strings.HasPrefix(resolved, docsRoot+"/") {
		return "", fmt.Errorf("%w: %s escapes %s", ErrNotFound, subpath, docsRoot)
	}
	return resolved, nil
}

// Resolve 读取子路径对应的文件并返回内容与 Content-Type；目录会回退到 index.html。
func Resolve(vol *vfs.Volume, subpath string) ([]byte, string, error) {
	target, err := ResolvePath(subpath)
	if err != nil {
		return nil, "", err
	}

	info, err := vol.Stat(target)
	if err != nil {
		if isMissing(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return nil, "", err
	}
	if info.IsDir() {
		target = path.Join(target, indexFile)
	}

	data, err := vol.ReadFile(target)
	if err != nil {
		if isMissing(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return nil, "", err
	}
	return data, ContentType(target), nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, vfs.ErrNotDir) || errors.Is(err, vfs.ErrIsDir)
}
