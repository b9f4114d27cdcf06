package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/grimoire/internal/metrics"
	"github.com/any-hub/grimoire/internal/vfs"
)

// DefaultCapacity 为未指定容量时缓存的包数量上限。
const DefaultCapacity = 32

// Builder 为指定包构建文档卷。
type Builder interface {
	Build(ctx context.Context, pkg string) (*vfs.Volume, error)
}

// BuilderFunc 允许使用普通函数实现 Builder。
type BuilderFunc func(ctx context.Context, pkg string) (*vfs.Volume, error)

// Build 调用函数本身。
func (f BuilderFunc) Build(ctx context.Context, pkg string) (*vfs.Volume, error) {
	return f(ctx, pkg)
}

// Entry states reported by Snapshot.
const (
	StatePending = "pending"
	StateReady   = "ready"
	StateFailed  = "failed"
)

// EntryStatus 描述缓存条目的当前状态，供诊断接口使用。
type EntryStatus struct {
	Package string `json:"package"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

// Option 调整 DocsCache 的可选依赖。
type Option func(*DocsCache)

// WithLogger 设置日志记录器。
func WithLogger(logger *logrus.Logger) Option {
	return func(c *DocsCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics 设置指标记录器。
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *DocsCache) {
		c.metrics = recorder
	}
}

// DocsCache 以 LRU 方式缓存构建 Future，同一包同时只会有一次构建。
type DocsCache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, *Future]
	builder Builder
	logger  *logrus.Logger
	metrics *metrics.Recorder
}

// New 创建缓存；capacity <= 0 时使用 DefaultCapacity。
func New(capacity int, builder Builder, opts ...Option) (*DocsCache, error) {
	if builder == nil {
		return nil, errors.New("cache: builder is required")
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &DocsCache{
		builder: builder,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := simplelru.NewLRU[string, *Future](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// GetOrBuild 返回 pkg 的 Future。命中时刷新最近使用顺序；未命中时先登记 Future
// 再在后台启动构建，因此并发请求总是拿到同一个 Future。
func (c *DocsCache) GetOrBuild(pkg string) *Future {
	c.mu.Lock()
	if future, ok := c.entries.Get(pkg); ok {
		c.mu.Unlock()
		c.metrics.CacheLookup(true)
		return future
	}

	future := newFuture(pkg)
	c.entries.Add(pkg, future)
	size := c.entries.Len()
	c.mu.Unlock()

	c.metrics.CacheLookup(false)
	c.metrics.SetCacheEntries(size)
	c.logger.WithFields(logrus.Fields{"action": "cache_miss", "package": pkg}).Debug("缓存未命中，开始构建")

	go c.run(future)
	return future
}

// run 使用与请求无关的 context 执行构建，构建中的 panic 会转为错误。
func (c *DocsCache) run(future *Future) {
	var (
		vol *vfs.Volume
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			vol = nil
			err = fmt.Errorf("build %s panicked: %v", future.pkg, r)
			c.logger.WithFields(logrus.Fields{"action": "build_panic", "package": future.pkg}).Error(err)
		}
		future.complete(vol, err)
	}()

	vol, err = c.builder.Build(context.Background(), future.pkg)
}

// onEvict 在持有 c.mu 时由 LRU 回调。
func (c *DocsCache) onEvict(pkg string, _ *Future) {
	c.metrics.CacheEvicted()
	c.logger.WithFields(logrus.Fields{"action": "cache_evict", "package": pkg}).Info("文档缓存条目被淘汰")
}

// Len 返回当前缓存的包数量。
func (c *DocsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Snapshot 按最近使用在前的顺序返回所有条目状态，不影响 LRU 顺序。
func (c *DocsCache) Snapshot() []EntryStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.entries.Keys()
	statuses := make([]EntryStatus, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		future, ok := c.entries.Peek(keys[i])
		if !ok {
			continue
		}
		status := EntryStatus{Package: keys[i], State: StatePending}
		if _, err, done := future.Result(); done {
			status.State = StateReady
			if err != nil {
				status.State = StateFailed
				status.Error = err.Error()
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
