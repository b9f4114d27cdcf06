package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/any-hub/grimoire/internal/config"
	"github.com/any-hub/grimoire/internal/version"
)

// abbreviated metadata 只包含安装所需字段，体积远小于完整 packument。
const metadataAccept = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8, */*"

// Release 描述解析得到的最新版本及其 tarball 地址。
type Release struct {
	Name       string
	Version    string
	TarballURL string
}

type packument struct {
	Name     string            `json:"name"`
	DistTags map[string]string `json:"dist-tags"`
	Versions map[string]struct {
		Dist struct {
			Tarball string `json:"tarball"`
		} `json:"dist"`
	} `json:"versions"`
}

// Client 访问 npm Registry，复用共享 http.Client，并按配置附加代理与 Basic 认证。
type Client struct {
	http     *http.Client
	upstream string
	username string
	password string
	proxyURL *url.URL
}

// NewClient 根据 Registry 配置创建客户端；httpClient 为空时使用 http.DefaultClient。
func NewClient(httpClient *http.Client, cfg config.RegistryConfig) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	upstream := strings.TrimSuffix(strings.TrimSpace(cfg.Upstream), "/")
	if upstream == "" {
		upstream = config.DefaultRegistry
	}

	var proxyURL *url.URL
	if cfg.Proxy != "" {
		parsed, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid registry proxy: %w", err)
		}
		proxyURL = parsed
	}

	return &Client{
		http:     httpClient,
		upstream: upstream,
		username: cfg.Username,
		password: cfg.Password,
		proxyURL: proxyURL,
	}, nil
}

// MetadataURL 返回包元数据地址；scoped 包的 "/" 会被编码为 %2F。
func (c *Client) MetadataURL(pkg string) string {
	return c.upstream + "/" + url.PathEscape(pkg)
}

// Resolve 查询 Registry 并解析 latest 版本的 tarball 地址。
func (c *Client) Resolve(ctx context.Context, pkg string) (Release, error) {
	req, err := c.newRequest(ctx, c.MetadataURL(pkg))
	if err != nil {
		return Release{}, &RegistryError{Package: pkg, Err: err}
	}
	req.Header.Set("Accept", metadataAccept)

	resp, err := c.do(req)
	if err != nil {
		return Release{}, &RegistryError{Package: pkg, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Release{}, &RegistryError{Package: pkg, Status: resp.StatusCode}
	}

	var doc packument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Release{}, &RegistryError{Package: pkg, Err: fmt.Errorf("decode metadata: %w", err)}
	}

	latest := doc.DistTags["latest"]
	if latest == "" {
		return Release{}, &RegistryError{Package: pkg, Err: fmt.Errorf("%w: dist-tags.latest missing", ErrUnresolvable)}
	}
	ver, ok := doc.Versions[latest]
	if !ok || ver.Dist.Tarball == "" {
		return Release{}, &RegistryError{Package: pkg, Err: fmt.Errorf("%w: version %s has no tarball", ErrUnresolvable, latest)}
	}

	name := doc.Name
	if name == "" {
		name = pkg
	}
	return Release{Name: name, Version: latest, TarballURL: ver.Dist.Tarball}, nil
}

// Download 下载 tarball 并解压到 dest，固定剥离一级目录。
func (c *Client) Download(ctx context.Context, tarballURL, dest string) error {
	req, err := c.newRequest(ctx, tarballURL)
	if err != nil {
		return &DownloadError{URL: tarballURL, Err: err}
	}

	resp, err := c.do(req)
	if err != nil {
		return &DownloadError{URL: tarballURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DownloadError{URL: tarballURL, Status: resp.StatusCode}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return &DownloadError{URL: tarballURL, Err: errors.New("empty response body")}
	}

	if err := Unpack(ctx, resp.Body, dest); err != nil {
		var archiveErr *ArchiveError
		if errors.As(err, &archiveErr) {
			return &DownloadError{URL: tarballURL, Err: err}
		}
		return err
	}
	return nil
}

// FetchAndUnpack 组合 Resolve 与 Download，返回解析到的版本信息。
func (c *Client) FetchAndUnpack(ctx context.Context, pkg, dest string) (Release, error) {
	release, err := c.Resolve(ctx, pkg)
	if err != nil {
		return Release{}, err
	}
	if err := c.Download(ctx, release.TarballURL, dest); err != nil {
		return release, err
	}
	return release, nil
}

func (c *Client) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if header := buildCredentialHeader(c.username, c.password); header != "" {
		req.Header.Set("Authorization", header)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.proxyURL == nil {
		return c.http.Do(req)
	}
	base, ok := c.http.Transport.(*http.Transport)
	if !ok || base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	transport := base.Clone()
	transport.Proxy = http.ProxyURL(c.proxyURL)
	client := *c.http
	client.Transport = transport
	return client.Do(req)
}

func buildCredentialHeader(username, password string) string {
	if username == "" || password == "" {
		return ""
	}
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + token
}
