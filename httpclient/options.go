package httpclient

import (
	"net/http"
	"net/url"
	"time"
)

// RetryPolicy exponential backoff for failed requests.
// Transport errors, 5xx and 429 are retried; MaxRetries 0 sends once.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy 3 retries starting at 500ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// settings 客户端级或请求级设置，零值表示未指定
type settings struct {
	baseURL string
	timeout time.Duration
	header  http.Header
	query   url.Values
	retry   *RetryPolicy
}

// Option 配置选项
type Option func(*settings)

// WithBaseURL 相对路径请求拼接的前缀
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithTimeout 单次尝试的超时
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithHeader 默认 Header，请求自身已设置的同名 Header 优先
func WithHeader(key, value string) Option {
	return func(s *settings) { s.header.Set(key, value) }
}

// WithQuery 追加 Query 参数
func WithQuery(key, value string) Option {
	return func(s *settings) { s.query.Add(key, value) }
}

// WithRetry 启用重试
func WithRetry(policy RetryPolicy) Option {
	return func(s *settings) {
		p := policy
		s.retry = &p
	}
}

// DisableRetry 只发送一次，覆盖客户端级的重试策略
func DisableRetry() Option {
	return func(s *settings) { s.retry = &RetryPolicy{} }
}

func buildSettings(opts []Option) *settings {
	s := &settings{header: make(http.Header), query: make(url.Values)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// overlay 请求级设置覆盖客户端级设置，Header 与 Query 合并
func (s *settings) overlay(req *settings) *settings {
	out := &settings{
		baseURL: s.baseURL,
		timeout: s.timeout,
		header:  s.header.Clone(),
		query:   make(url.Values, len(s.query)+len(req.query)),
		retry:   s.retry,
	}
	for k, vs := range req.header {
		out.header[k] = vs
	}
	for _, src := range []url.Values{s.query, req.query} {
		for k, vs := range src {
			out.query[k] = append(out.query[k], vs...)
		}
	}
	if req.baseURL != "" {
		out.baseURL = req.baseURL
	}
	if req.timeout > 0 {
		out.timeout = req.timeout
	}
	if req.retry != nil {
		out.retry = req.retry
	}
	return out
}
