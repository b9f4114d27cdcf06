package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/grimoire/internal/config"
)

type registryStub struct {
	server       *httptest.Server
	metadata     string
	metadataCode int
	tarball      []byte
	tarballCode  int
	lastURI      atomic.Value
	lastAuth     atomic.Value
	lastUA       atomic.Value
}

func newRegistryStub(t *testing.T) *registryStub {
	t.Helper()
	stub := &registryStub{metadataCode: http.StatusOK, tarballCode: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/-/tarballs/demo.tgz", func(w http.ResponseWriter, r *http.Request) {
		if stub.tarballCode != http.StatusOK {
			w.WriteHeader(stub.tarballCode)
			return
		}
		_, _ = w.Write(stub.tarball)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		stub.lastURI.Store(r.RequestURI)
		stub.lastAuth.Store(r.Header.Get("Authorization"))
		stub.lastUA.Store(r.Header.Get("User-Agent"))
		if stub.metadataCode != http.StatusOK {
			w.WriteHeader(stub.metadataCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stub.metadata))
	})
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *registryStub) tarballURL() string {
	return s.server.URL + "/-/tarballs/demo.tgz"
}

func (s *registryStub) client(t *testing.T, cfg config.RegistryConfig) *Client {
	t.Helper()
	cfg.Upstream = s.server.URL
	client, err := NewClient(s.server.Client(), cfg)
	require.NoError(t, err)
	return client
}

func TestResolveReturnsLatestTarball(t *testing.T) {
	stub := newRegistryStub(t)
	stub.metadata = `{"name":"demo","dist-tags":{"latest":"1.2.0","next":"2.0.0-rc"},"versions":{"1.2.0":{"dist":{"tarball":"` + stub.tarballURL() + `"}}}}`

	release, err := stub.client(t, config.RegistryConfig{}).Resolve(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, Release{Name: "demo", Version: "1.2.0", TarballURL: stub.tarballURL()}, release)
	assert.Contains(t, stub.lastUA.Load(), "grimoire/")
	assert.Equal(t, "", stub.lastAuth.Load())
}

func TestResolveEscapesScopedName(t *testing.T) {
	stub := newRegistryStub(t)
	stub.metadata = `{"name":"@types/node","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"dist":{"tarball":"x"}}}}`

	_, err := stub.client(t, config.RegistryConfig{}).Resolve(context.Background(), "@types/node")
	require.NoError(t, err)
	assert.Equal(t, "/@types%2Fnode", stub.lastURI.Load())
}

func TestResolveSendsBasicAuth(t *testing.T) {
	stub := newRegistryStub(t)
	stub.metadata = `{"dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"dist":{"tarball":"x"}}}}`

	release, err := stub.client(t, config.RegistryConfig{Username: "ci", Password: "secret"}).Resolve(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", release.Name, "缺失 name 时回退到请求的包名")
	assert.Equal(t, "Basic Y2k6c2VjcmV0", stub.lastAuth.Load())
}

func TestResolveFailures(t *testing.T) {
	cases := []struct {
		name     string
		metadata string
		code     int
		status   int
		unresolv bool
	}{
		{name: "not found", code: http.StatusNotFound, status: http.StatusNotFound},
		{name: "server error", code: http.StatusBadGateway, status: http.StatusBadGateway},
		{name: "invalid json", metadata: "{", code: http.StatusOK},
		{name: "missing latest", metadata: `{"dist-tags":{},"versions":{}}`, code: http.StatusOK, unresolv: true},
		{name: "missing version", metadata: `{"dist-tags":{"latest":"9.9.9"},"versions":{}}`, code: http.StatusOK, unresolv: true},
		{name: "missing tarball", metadata: `{"dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"dist":{}}}}`, code: http.StatusOK, unresolv: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newRegistryStub(t)
			stub.metadata = tc.metadata
			stub.metadataCode = tc.code

			_, err := stub.client(t, config.RegistryConfig{}).Resolve(context.Background(), "demo")
			var regErr *RegistryError
			require.True(t, errors.As(err, &regErr), "期望 RegistryError，实际 %v", err)
			assert.Equal(t, "demo", regErr.Package)
			assert.Equal(t, tc.status, regErr.Status)
			assert.Equal(t, tc.unresolv, errors.Is(err, ErrUnresolvable))
		})
	}
}

func TestFetchAndUnpackWritesSources(t *testing.T) {
	stub := newRegistryStub(t)
	stub.metadata = `{"name":"demo","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"dist":{"tarball":"` + stub.tarballURL() + `"}}}}`
	stub.tarball = buildTarball(t, []tarEntry{
		{Name: "package/index.ts", Body: "export const a = 1"},
	})
	dest := filepath.Join(t.TempDir(), "source")

	release, err := stub.client(t, config.RegistryConfig{}).FetchAndUnpack(context.Background(), "demo", dest)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", release.Version)

	body, err := os.ReadFile(filepath.Join(dest, "index.ts"))
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1", string(body))
}

func TestDownloadFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		stub := newRegistryStub(t)
		stub.tarballCode = http.StatusInternalServerError

		err := stub.client(t, config.RegistryConfig{}).Download(context.Background(), stub.tarballURL(), t.TempDir())
		var dlErr *DownloadError
		require.True(t, errors.As(err, &dlErr), "期望 DownloadError，实际 %v", err)
		assert.Equal(t, http.StatusInternalServerError, dlErr.Status)
		assert.Equal(t, stub.tarballURL(), dlErr.URL)
	})

	t.Run("corrupt", func(t *testing.T) {
		stub := newRegistryStub(t)
		stub.tarball = []byte("garbage")

		err := stub.client(t, config.RegistryConfig{}).Download(context.Background(), stub.tarballURL(), t.TempDir())
		var dlErr *DownloadError
		require.True(t, errors.As(err, &dlErr), "期望 DownloadError，实际 %v", err)
		var archiveErr *ArchiveError
		assert.True(t, errors.As(err, &archiveErr))
	})
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(nil, config.RegistryConfig{Upstream: "https://registry.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://registry.example.com/lodash", client.MetadataURL("lodash"))

	client, err = NewClient(nil, config.RegistryConfig{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRegistry+"/lodash", client.MetadataURL("lodash"))

	_, err = NewClient(nil, config.RegistryConfig{Proxy: "://bad"})
	assert.Error(t, err)
}
