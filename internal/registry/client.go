package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/any-hub/nuget-dl/internal/version"
)

// DefaultBaseURL 是 nuget.org 的 v2 API 根地址。
const DefaultBaseURL = "https://www.nuget.org"

// Client 封装注册中心的两个只读端点。零值不可用，请通过 NewClient 构造。
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient 解析 baseURL 并绑定 http.Client；httpClient 为空时使用默认超时的客户端。
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse registry url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("registry url must be http or https: %s", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("registry url missing host: %s", baseURL)
	}
	if httpClient == nil {
		httpClient = NewUpstreamClient(nil)
	}
	return &Client{baseURL: parsed, http: httpClient}, nil
}

// BaseURL 返回注册中心根地址，便于日志输出。
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// contentURL 对应 GET /api/v2/package/{name}/{version}。
func (c *Client) contentURL(name, version string) string {
	return c.endpoint("/api/v2/package/" + url.PathEscape(name) + "/" + url.PathEscape(version))
}

// metadataURL 对应 GET /api/v2/Packages(Id='{name}',Version='{version}')，
// OData 字面量中的单引号需要双写。
func (c *Client) metadataURL(name, version string) string {
	return c.endpoint(fmt.Sprintf("/api/v2/Packages(Id='%s',Version='%s')",
		odataLiteral(name), odataLiteral(version)))
}

// endpoint 在 baseURL 的路径之后拼接已转义的 rawPath，保留 ( ) ' 等 OData 字符原样。
func (c *Client) endpoint(rawPath string) string {
	u := *c.baseURL
	basePath := strings.TrimSuffix(u.EscapedPath(), "/")
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		decoded = rawPath
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + decoded
	u.RawPath = basePath + rawPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func odataLiteral(value string) string {
	return url.PathEscape(strings.ReplaceAll(value, "'", "''"))
}

// get 发起同步 GET 请求，传输失败包装为 TransportError，非 2xx 包装为 StatusError。
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	return body, nil
}

// IsNotFound 判断错误是否来自注册中心的 404。
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
