package cache

import (
	"context"

	"github.com/any-hub/grimoire/internal/vfs"
)

// Future 表示一次构建的最终结果，完成后不可变。
type Future struct {
	pkg  string
	done chan struct{}
	vol  *vfs.Volume
	err  error
}

func newFuture(pkg string) *Future {
	return &Future{pkg: pkg, done: make(chan struct{})}
}

// complete 只能调用一次。
func (f *Future) complete(vol *vfs.Volume, err error) {
	f.vol = vol
	f.err = err
	close(f.done)
}

// Package 返回该 Future 对应的包名。
func (f *Future) Package() string {
	return f.pkg
}

// Done 在构建完成后关闭。
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait 等待构建完成；ctx 只限制调用方的等待，不会取消构建本身。
func (f *Future) Wait(ctx context.Context) (*vfs.Volume, error) {
	select {
	case <-f.done:
		return f.vol, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result 非阻塞地返回结果，ok 为 false 表示构建尚未完成。
func (f *Future) Result() (vol *vfs.Volume, err error, ok bool) {
	select {
	case <-f.done:
		return f.vol, f.err, true
	default:
		return nil, nil, false
	}
}
