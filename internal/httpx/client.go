package httpx

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds requests issued through the default client.
const DefaultTimeout = 10 * time.Second

// Doer is the transport capability the library rides on. *http.Client
// satisfies it, as does any decorated client supplied by the caller.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport used by the helper.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.inner = d
		}
	}
}

// WithTimeout overrides the default client timeout. Ignored when the
// transport was replaced via WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHeaders assigns default headers added to every request. Headers
// already present on a request take precedence.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// Client decorates a transport with default headers and a bounded timeout.
type Client struct {
	inner   Doer
	headers http.Header
	timeout time.Duration
}

// NewClient builds a Client around a timeout-bounded http.Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		headers: make(http.Header),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.inner == nil {
		c.inner = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Do executes the request, merging default headers underneath any the
// request already carries.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if len(c.headers) > 0 {
		merged := CloneHeader(c.headers)
		for k, values := range req.Header {
			merged[k] = append([]string(nil), values...)
		}
		req.Header = merged
	}
	return c.inner.Do(req)
}

// ReadAllAndClose drains the reader and ensures it is closed. A nil
// reader yields an empty body.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

// IsJSON reports whether the Content-Type denotes a JSON payload.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType) == "application/json"
}

// CloneHeader deep-copies an http.Header.
func CloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}
