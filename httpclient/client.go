package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errRetryableStatus marks a response whose status code should be retried
var errRetryableStatus = errors.New("retryable status")

// Client HTTP client
type Client struct {
	httpClient *http.Client
	settings   *settings
}

// NewClient 创建 HTTP client，默认 30 秒超时
func NewClient(opts ...Option) *Client {
	s := buildSettings(opts)
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}

	return &Client{
		// 超时由每次请求的 context 控制
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		settings:   s,
	}
}

// Do 执行请求。5xx/429 重试耗尽后仍返回最后一次响应
func (c *Client) Do(ctx context.Context, req *Request, opts ...Option) (*Response, error) {
	finalCfg := c.settings.overlay(buildSettings(opts))

	if ctx == nil {
		ctx = context.Background()
	}

	if finalCfg.baseURL != "" && !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		req.URL = strings.TrimRight(finalCfg.baseURL, "/") + "/" + strings.TrimLeft(req.URL, "/")
	}
	for k, vs := range finalCfg.query {
		req.Query[k] = append(req.Query[k], vs...)
	}
	for k, vs := range finalCfg.header {
		if req.Header.Get(k) == "" {
			req.Header[k] = vs
		}
	}

	startTime := time.Now()
	attempts := 0
	var resp *Response

	operation := func() error {
		attempts++
		r, err := c.doRequest(ctx, req, finalCfg)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		if r.retryable() {
			return fmt.Errorf("HTTP %d: %w", r.StatusCode, errRetryableStatus)
		}
		return nil
	}

	var err error
	if finalCfg.retry != nil {
		err = backoff.Retry(operation, newBackOff(ctx, *finalCfg.retry))
	} else {
		err = operation()
	}

	if err != nil && !(errors.Is(err, errRetryableStatus) && resp != nil) {
		return nil, err
	}

	resp.Duration = time.Since(startTime)
	resp.Attempts = attempts
	return resp, nil
}

func newBackOff(ctx context.Context, p RetryPolicy) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// doRequest 执行单次请求
func (c *Client) doRequest(ctx context.Context, req *Request, cfg *settings) (*Response, error) {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build http request failed: %w", err))
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	resp, err := readResponse(httpResp)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	return resp, nil
}

// Get 发送 GET 请求
func (c *Client) Get(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodGet, url), opts...)
}

// Head 发送 HEAD 请求
func (c *Client) Head(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodHead, url), opts...)
}

// PostJSON 发送 JSON POST 请求
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}, opts ...Option) (*Response, error) {
	req, err := NewRequest(http.MethodPost, url).WithJSON(data)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req, opts...)
}
