package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Response 已读完 Body 的响应
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte

	Duration time.Duration // 含重试的总耗时
	Attempts int           // 实际发送次数
}

// IsSuccess 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError 5xx
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// retryable 5xx 与 429 值得重试
func (r *Response) retryable() bool {
	return r.IsServerError() || r.StatusCode == http.StatusTooManyRequests
}

// JSON 解码 Body；空 Body 视为错误
func (r *Response) JSON(v interface{}) error {
	if len(r.Body) == 0 {
		return io.ErrUnexpectedEOF
	}
	return json.Unmarshal(r.Body, v)
}

func readResponse(httpResp *http.Response) (*Response, error) {
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}
