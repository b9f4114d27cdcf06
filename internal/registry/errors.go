package registry

import (
	"errors"
	"fmt"
)

// ErrUnresolvable 表示元数据缺少 dist-tags.latest 或对应版本的 tarball 地址。
var ErrUnresolvable = errors.New("latest tarball not resolvable")

// RegistryError 表示包元数据不可用或无法解析，不会自动重试。
type RegistryError struct {
	Package string
	Status  int
	Err     error
}

func (e *RegistryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("registry lookup for %s failed: status %d", e.Package, e.Status)
	}
	return fmt.Sprintf("registry lookup for %s failed: %v", e.Package, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// DownloadError 表示 tarball 下载失败或归档内容损坏。
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s failed: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
