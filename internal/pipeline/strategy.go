package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/any-hub/grimoire/internal/generator"
	"github.com/any-hub/grimoire/internal/registry"
	"github.com/any-hub/grimoire/internal/vfs"
	"github.com/any-hub/grimoire/internal/workspace"
)

// DocsRoot 为卷内文档站点的挂载点。
const DocsRoot = "/docs"

var entryPointExts = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

const entryPointGlob = "**/*.{js,jsx,ts,tsx,mjs,cjs,mts,cts}"

type buildState struct {
	SourceDir string
	OutputDir string
	Release   registry.Release
}

type docsStrategy struct {
	pkg     string
	area    *workspace.Area
	fetcher Fetcher
}

func (s *docsStrategy) Prehook(ctx context.Context) (buildState, error) {
	release, err := s.fetcher.FetchAndUnpack(ctx, s.pkg, s.area.SourceDir)
	if err != nil {
		return buildState{}, err
	}

	count, err := countEntryPoints(s.area.SourceDir)
	if err != nil {
		return buildState{}, fmt.Errorf("scan sources: %w", err)
	}
	if count == 0 {
		return buildState{}, &generator.Error{
			Code:   generator.CompileError,
			Output: fmt.Sprintf("no entry points found in %s@%s", release.Name, release.Version),
		}
	}

	return buildState{
		SourceDir: s.area.SourceDir,
		OutputDir: s.area.OutputDir,
		Release:   release,
	}, nil
}

func (s *docsStrategy) Args(state buildState) []string {
	return []string{
		filepath.ToSlash(state.SourceDir) + "/" + entryPointGlob,
		"--out", state.OutputDir,
		"--exclude", "**/node_modules/**",
		"--skipErrorChecking",
		"--disableGit",
		"--disableSources",
		"--excludeExternals",
		"--logLevel", "Warn",
		"--name", s.pkg,
	}
}

func (s *docsStrategy) Posthook(_ context.Context, state buildState) (*vfs.Volume, error) {
	vol := vfs.New()
	if err := vol.CopyFromDir(state.OutputDir, DocsRoot); err != nil {
		return nil, fmt.Errorf("collect generator output: %w", err)
	}
	info, err := vol.Stat(DocsRoot + "/index.html")
	if err != nil || info.IsDir() {
		return nil, &generator.Error{Code: generator.OutputError, Output: "generator produced no index.html"}
	}
	return vol, nil
}

// countEntryPoints 统计源码中可作为入口的脚本文件数量，忽略 node_modules。
func countEntryPoints(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && isEntryPoint(d.Name()) {
			count++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return count, err
}

func isEntryPoint(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range entryPointExts {
		if ext == candidate {
			return true
		}
	}
	return false
}
