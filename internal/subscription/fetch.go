package subscription

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
)

// maxBodySize 订阅正文上限，超出部分视为截断的无效 JSON
const maxBodySize = 64 << 20

var (
	defaultHTTPClientFactory = func(timeout time.Duration) *http.Client {
		return &http.Client{Timeout: timeout}
	}
	httpClientFactory = defaultHTTPClientFactory
)

// Request 描述一次订阅拉取
type Request struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Fetch 拉取订阅原始内容，只接受 2xx 响应
func Fetch(ctx context.Context, r Request) ([]byte, error) {
	if r.URL == "" {
		return nil, fmt.Errorf("missing subscription url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription url: %w", err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	client := httpClientFactory(r.Timeout)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	logger.Debug("Subscription fetched", "status", resp.StatusCode, "bytes", len(content))
	return content, nil
}

// FetchDocument 拉取并解析为 JSON 对象
func FetchDocument(ctx context.Context, r Request) (*document.Object, error) {
	content, err := Fetch(ctx, r)
	if err != nil {
		return nil, err
	}
	return document.Decode(content)
}

// SetHTTPClientFactory 用于测试，用自定义的 HTTP 客户端替换默认实现。
func SetHTTPClientFactory(factory func(timeout time.Duration) *http.Client) {
	if factory == nil {
		return
	}
	httpClientFactory = factory
}

// ResetHTTPClientFactory 恢复默认的 HTTP 客户端行为。
func ResetHTTPClientFactory() {
	httpClientFactory = defaultHTTPClientFactory
}
