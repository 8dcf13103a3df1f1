package registry

import "context"

// DownloadBytes 下载完整的 .nupkg 包体并整体缓冲在内存中返回。
func (c *Client) DownloadBytes(ctx context.Context, name, version string) ([]byte, error) {
	return c.get(ctx, c.contentURL(name, version))
}
