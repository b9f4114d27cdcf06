package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/any-hub/grimoire/internal/config"
)

func TestNewUpstreamClientUsesConfigTimeout(t *testing.T) {
	cfg := &config.Config{
		Global: config.GlobalConfig{
			UpstreamTimeout: config.Duration(45 * time.Second),
		},
	}

	client := NewUpstreamClient(cfg)
	if client.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", client.Timeout)
	}
}

func TestNewUpstreamClientWithoutTimeout(t *testing.T) {
	client := NewUpstreamClient(&config.Config{})
	if client.Timeout != 0 {
		t.Fatalf("未配置超时时不应限制整体耗时, got %s", client.Timeout)
	}

	if NewUpstreamClient(nil).Timeout != 0 {
		t.Fatalf("nil config should produce a client without timeout")
	}
}

func TestNewUpstreamClientClonesTransport(t *testing.T) {
	first := NewUpstreamClient(nil)
	second := NewUpstreamClient(nil)

	firstTransport, ok := first.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", first.Transport)
	}
	if firstTransport == second.Transport {
		t.Fatalf("transport should be cloned per client")
	}
	if firstTransport.MaxIdleConnsPerHost != 100 {
		t.Fatalf("unexpected MaxIdleConnsPerHost: %d", firstTransport.MaxIdleConnsPerHost)
	}
}
