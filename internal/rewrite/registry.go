// Package rewrite holds response body rewriters keyed by media type. The
// documentation handler runs the rewriter registered for a response's media
// type before the body is written; media types without a rewriter pass
// through untouched.
package rewrite

import (
	"errors"
	"strings"
	"sync"
)

// Func 改写响应正文，返回新的正文。
type Func func(body []byte) ([]byte, error)

var registry sync.Map

// ErrDuplicateRewriter indicates a media type already has a rewriter registered.
var ErrDuplicateRewriter = errors.New("rewriter already registered")

// Register stores fn for the given media type.
func Register(mediaType string, fn Func) error {
	key := normalizeMediaType(mediaType)
	if key == "" {
		return errors.New("media type required")
	}
	if fn == nil {
		return errors.New("rewriter required")
	}
	if _, loaded := registry.LoadOrStore(key, fn); loaded {
		return ErrDuplicateRewriter
	}
	return nil
}

// MustRegister panics on registration failure.
func MustRegister(mediaType string, fn Func) {
	if err := Register(mediaType, fn); err != nil {
		panic(err)
	}
}

// Fetch retrieves the rewriter associated with a media type.
func Fetch(mediaType string) (Func, bool) {
	key := normalizeMediaType(mediaType)
	if key == "" {
		return nil, false
	}
	if value, ok := registry.Load(key); ok {
		if fn, ok := value.(Func); ok {
			return fn, true
		}
	}
	return nil, false
}

// Apply runs the rewriter matching contentType, ignoring parameters such as charset.
func Apply(contentType string, body []byte) ([]byte, error) {
	fn, ok := Fetch(contentType)
	if !ok {
		return body, nil
	}
	return fn(body)
}

func normalizeMediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
