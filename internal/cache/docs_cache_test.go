package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/grimoire/internal/metrics"
	"github.com/any-hub/grimoire/internal/vfs"
)

type countingBuilder struct {
	mu      sync.Mutex
	calls   map[string]int
	release chan struct{}
	fail    map[string]error
}

func newCountingBuilder() *countingBuilder {
	return &countingBuilder{calls: map[string]int{}, fail: map[string]error{}}
}

func (b *countingBuilder) Build(_ context.Context, pkg string) (*vfs.Volume, error) {
	b.mu.Lock()
	b.calls[pkg]++
	release := b.release
	err := b.fail[pkg]
	b.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	vol := vfs.New()
	if writeErr := vol.MkdirAll("/docs"); writeErr != nil {
		return nil, writeErr
	}
	if writeErr := vol.WriteFile("/docs/index.html", []byte(pkg)); writeErr != nil {
		return nil, writeErr
	}
	return vol, nil
}

func (b *countingBuilder) count(pkg string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[pkg]
}

func newTestCache(t *testing.T, capacity int, builder Builder, opts ...Option) *DocsCache {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c, err := New(capacity, builder, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("new cache error: %v", err)
	}
	return c
}

func waitVolume(t *testing.T, future *Future) *vfs.Volume {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	vol, err := future.Wait(ctx)
	if err != nil {
		t.Fatalf("wait error: %v", err)
	}
	return vol
}

func TestGetOrBuildDeduplicatesConcurrentRequests(t *testing.T) {
	builder := newCountingBuilder()
	builder.release = make(chan struct{})
	c := newTestCache(t, 4, builder)

	const workers = 16
	futures := make([]*Future, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			futures[i] = c.GetOrBuild("lodash")
		}(i)
	}
	wg.Wait()
	close(builder.release)

	first := waitVolume(t, futures[0])
	for i, future := range futures {
		if future != futures[0] {
			t.Fatalf("future %d 与首个请求不同", i)
		}
		if vol := waitVolume(t, future); vol != first {
			t.Fatalf("volume %d 与首个请求不同", i)
		}
	}
	if got := builder.count("lodash"); got != 1 {
		t.Fatalf("expected 1 build, got %d", got)
	}
}

func TestGetOrBuildReturnsSameVolumeAfterCompletion(t *testing.T) {
	builder := newCountingBuilder()
	c := newTestCache(t, 4, builder)

	first := waitVolume(t, c.GetOrBuild("react"))
	second := waitVolume(t, c.GetOrBuild("react"))
	if first != second {
		t.Fatalf("缓存命中应返回同一个卷实例")
	}
	body, err := second.ReadFile("/docs/index.html")
	if err != nil || string(body) != "react" {
		t.Fatalf("unexpected volume content: %q %v", body, err)
	}
	if got := builder.count("react"); got != 1 {
		t.Fatalf("expected 1 build, got %d", got)
	}
}

func TestGetOrBuildEvictsLeastRecentlyUsed(t *testing.T) {
	builder := newCountingBuilder()
	recorder := metrics.New()
	c := newTestCache(t, 2, builder, WithMetrics(recorder))

	waitVolume(t, c.GetOrBuild("a"))
	waitVolume(t, c.GetOrBuild("b"))
	waitVolume(t, c.GetOrBuild("a"))
	waitVolume(t, c.GetOrBuild("c"))

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	waitVolume(t, c.GetOrBuild("a"))
	if got := builder.count("a"); got != 1 {
		t.Fatalf("a 最近被使用，不应重建，实际构建 %d 次", got)
	}

	waitVolume(t, c.GetOrBuild("b"))
	if got := builder.count("b"); got != 2 {
		t.Fatalf("b 已被淘汰，应重新构建，实际构建 %d 次", got)
	}

	expected := `
# HELP grimoire_cache_evictions_total Total number of packages evicted from the documentation cache.
# TYPE grimoire_cache_evictions_total counter
grimoire_cache_evictions_total 2
`
	if err := testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "grimoire_cache_evictions_total"); err != nil {
		t.Fatalf("unexpected eviction metric: %v", err)
	}
}

func TestGetOrBuildCachesFailures(t *testing.T) {
	builder := newCountingBuilder()
	boom := errors.New("registry unavailable")
	builder.fail["broken"] = boom
	c := newTestCache(t, 4, builder)

	for i := 0; i < 3; i++ {
		_, err := c.GetOrBuild("broken").Wait(context.Background())
		if !errors.Is(err, boom) {
			t.Fatalf("expected cached failure, got %v", err)
		}
	}
	if got := builder.count("broken"); got != 1 {
		t.Fatalf("失败结果应被缓存，实际构建 %d 次", got)
	}

	statuses := c.Snapshot()
	if len(statuses) != 1 || statuses[0].State != StateFailed || statuses[0].Error != boom.Error() {
		t.Fatalf("unexpected snapshot: %+v", statuses)
	}
}

func TestGetOrBuildRecoversBuilderPanic(t *testing.T) {
	c := newTestCache(t, 4, BuilderFunc(func(context.Context, string) (*vfs.Volume, error) {
		panic("generator exploded")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.GetOrBuild("panicky").Wait(ctx)
	if err == nil {
		t.Fatalf("panic 应转换为错误")
	}
}

func TestWaitContextDoesNotCancelBuild(t *testing.T) {
	builder := newCountingBuilder()
	builder.release = make(chan struct{})
	c := newTestCache(t, 4, builder)

	future := c.GetOrBuild("slow")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := future.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, _, done := future.Result(); done {
		t.Fatalf("构建不应因调用方取消而结束")
	}

	close(builder.release)
	waitVolume(t, future)
	if _, err, done := future.Result(); !done || err != nil {
		t.Fatalf("expected completed build, got done=%v err=%v", done, err)
	}
}

func TestSnapshotOrdersByRecency(t *testing.T) {
	builder := newCountingBuilder()
	c := newTestCache(t, 4, builder)

	waitVolume(t, c.GetOrBuild("one"))
	waitVolume(t, c.GetOrBuild("two"))
	waitVolume(t, c.GetOrBuild("one"))

	statuses := c.Snapshot()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Package != "one" || statuses[1].Package != "two" {
		t.Fatalf("unexpected order: %+v", statuses)
	}
	for _, status := range statuses {
		if status.State != StateReady {
			t.Fatalf("expected ready state, got %+v", status)
		}
	}

	// Snapshot 不应刷新 LRU 顺序。
	c.Snapshot()
	waitVolume(t, c.GetOrBuild("three"))
	waitVolume(t, c.GetOrBuild("four"))
	waitVolume(t, c.GetOrBuild("five"))
	if got := builder.count("two"); got != 1 {
		t.Fatalf("unexpected rebuild of two: %d", got)
	}
	waitVolume(t, c.GetOrBuild("two"))
	if got := builder.count("two"); got != 2 {
		t.Fatalf("two 应已被淘汰，实际构建 %d 次", got)
	}
}

func TestNewRejectsNilBuilderAndDefaultsCapacity(t *testing.T) {
	if _, err := New(4, nil); err == nil {
		t.Fatalf("expected error for nil builder")
	}
	c := newTestCache(t, 0, newCountingBuilder())
	for i := 0; i < DefaultCapacity+5; i++ {
		c.GetOrBuild(string(rune('a'+i%26)) + string(rune('0'+i/26)))
	}
	if c.Len() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, c.Len())
	}
}

func TestPendingFutureResult(t *testing.T) {
	future := newFuture("x")
	if _, _, ok := future.Result(); ok {
		t.Fatalf("pending future 不应有结果")
	}
	future.complete(nil, errors.New("done"))
	select {
	case <-future.Done():
	default:
		t.Fatalf("Done 应在完成后关闭")
	}
	if _, err, ok := future.Result(); !ok || err == nil {
		t.Fatalf("expected completed future with error")
	}
	if future.Package() != "x" {
		t.Fatalf("unexpected package %q", future.Package())
	}
}

