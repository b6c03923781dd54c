package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request 可重放的请求描述；Body 以字节保存，每次重试重新构造 Reader
type Request struct {
	Method string
	URL    string // 绝对地址，或相对 WithBaseURL 的路径
	Header http.Header
	Query  url.Values

	body []byte
}

// NewRequest 创建请求
func NewRequest(method, rawURL string) *Request {
	return &Request{
		Method: method,
		URL:    rawURL,
		Header: make(http.Header),
		Query:  make(url.Values),
	}
}

// WithHeader 设置 Header（覆盖同名）
func (r *Request) WithHeader(key, value string) *Request {
	r.Header.Set(key, value)
	return r
}

// WithQuery 追加 Query 参数；同名参数可重复（PostgREST 过滤条件）
func (r *Request) WithQuery(key, value string) *Request {
	r.Query.Add(key, value)
	return r
}

// WithBody 原始 Body
func (r *Request) WithBody(body []byte) *Request {
	r.body = body
	return r
}

// WithJSON JSON Body，并设置 Content-Type
func (r *Request) WithJSON(data interface{}) (*Request, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return r, fmt.Errorf("marshal request body failed: %w", err)
	}
	r.body = body
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// build 合并 URL 自带的 query 与 r.Query，生成 http.Request
func (r *Request) build(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", r.URL, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	return req, nil
}
