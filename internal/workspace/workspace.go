package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const (
	sourceDirName = "source"
	outputDirName = "output"
	areaPrefix    = "build-"
)

// Manager 在 baseDir 下为每次构建分配独立的工作区。
type Manager struct {
	baseDir string
}

// NewManager 创建工作区管理器；baseDir 为空时使用系统临时目录。
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// BaseDir 返回工作区根目录。
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Area 表示一次构建独占的工作目录。
type Area struct {
	ID        string
	Package   string
	Root      string
	SourceDir string
	OutputDir string

	once sync.Once
	err  error
}

// Create 创建 build-<uuid> 目录及 source/、output/ 子目录。
func (m *Manager) Create(pkg string) (*Area, error) {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create work path: %w", err)
	}

	id := uuid.NewString()
	root := filepath.Join(m.baseDir, areaPrefix+id)
	area := &Area{
		ID:        id,
		Package:   pkg,
		Root:      root,
		SourceDir: filepath.Join(root, sourceDirName),
		OutputDir: filepath.Join(root, outputDirName),
	}

	for _, dir := range []string{area.SourceDir, area.OutputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("create workspace directory: %w", err)
		}
	}
	return area, nil
}

// Cleanup 删除整个工作区，可重复调用。
func (a *Area) Cleanup() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if err := os.RemoveAll(a.Root); err != nil {
			a.err = fmt.Errorf("cleanup workspace %s: %w", a.Root, err)
		}
	})
	return a.err
}
