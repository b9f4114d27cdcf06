package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/any-hub/grimoire/internal/generator"
	"github.com/any-hub/grimoire/internal/logging"
	"github.com/any-hub/grimoire/internal/metrics"
	"github.com/any-hub/grimoire/internal/registry"
	"github.com/any-hub/grimoire/internal/vfs"
	"github.com/any-hub/grimoire/internal/workspace"
)

// Fetcher 下载并解压包的最新版本。
type Fetcher interface {
	FetchAndUnpack(ctx context.Context, pkg, dest string) (registry.Release, error)
}

// BuilderOptions 汇总构建所需依赖；MaxConcurrent 为 0 表示不限制并发构建数量。
type BuilderOptions struct {
	Fetcher       Fetcher
	Runner        generator.Runner
	Workspace     *workspace.Manager
	Logger        *logrus.Logger
	Metrics       *metrics.Recorder
	MaxConcurrent int
}

// Builder 执行单次文档构建，可被多个 goroutine 并发调用。
type Builder struct {
	fetcher   Fetcher
	runner    generator.Runner
	workspace *workspace.Manager
	logger    *logrus.Logger
	metrics   *metrics.Recorder
	sem       *semaphore.Weighted
}

// NewBuilder 校验依赖并创建 Builder。
func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("pipeline: generator runner is required")
	}
	if opts.Workspace == nil {
		return nil, errors.New("pipeline: workspace manager is required")
	}
	if opts.MaxConcurrent < 0 {
		return nil, errors.New("pipeline: max concurrent builds must not be negative")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	builder := &Builder{
		fetcher:   opts.Fetcher,
		runner:    opts.Runner,
		workspace: opts.Workspace,
		logger:    logger,
		metrics:   opts.Metrics,
	}
	if opts.MaxConcurrent > 0 {
		builder.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return builder, nil
}

// Build 为 pkg 的最新版本生成文档，返回挂载于 /docs 的卷。
// 错误原样返回：*registry.RegistryError、*registry.DownloadError、*generator.Error 或内部错误。
func (b *Builder) Build(ctx context.Context, pkg string) (*vfs.Volume, error) {
	if b.sem != nil {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer b.sem.Release(1)
	}

	start := time.Now()
	b.metrics.BuildStarted()

	area, err := b.workspace.Create(pkg)
	if err != nil {
		b.metrics.BuildFinished(metrics.ResultInternalError, time.Since(start))
		return nil, err
	}
	entry := b.logger.WithFields(logging.BuildFields(pkg, area.ID))
	defer func() {
		if cleanupErr := area.Cleanup(); cleanupErr != nil {
			entry.WithError(cleanupErr).Warn("清理工作区失败")
		}
	}()

	entry.Info("开始构建文档")

	strategy := &docsStrategy{pkg: pkg, area: area, fetcher: b.fetcher}
	vol, err := generator.Run[buildState, *vfs.Volume](ctx, b.runner, strategy)
	elapsed := time.Since(start)
	result := classify(err)
	b.metrics.BuildFinished(result, elapsed)

	fields := logrus.Fields{"result": result, "elapsed_ms": elapsed.Milliseconds()}
	if err != nil {
		var genErr *generator.Error
		if errors.As(err, &genErr) {
			fields["exit_code"] = int(genErr.Code)
			if genErr.Output != "" {
				fields["detail"] = genErr.Output
			}
		}
		entry.WithFields(fields).WithError(err).Warn("文档构建失败")
		return nil, err
	}

	fields["files"] = vol.FileCount()
	fields["bytes"] = vol.Size()
	entry.WithFields(fields).Info("文档构建完成")
	return vol, nil
}

// classify 将构建错误映射为指标标签。
func classify(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}
	var regErr *registry.RegistryError
	var dlErr *registry.DownloadError
	var genErr *generator.Error
	switch {
	case errors.As(err, &regErr):
		return metrics.ResultRegistryError
	case errors.As(err, &dlErr):
		return metrics.ResultDownloadError
	case errors.As(err, &genErr):
		return metrics.ResultGeneratorErr
	default:
		return metrics.ResultInternalError
	}
}
