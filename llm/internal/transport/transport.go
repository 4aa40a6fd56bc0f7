package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrayleung/jin-llm/version"
)

type Client struct {
	HTTPClient *http.Client
	BaseURL    *url.URL

	DefaultHeaders http.Header
	UserAgent      string
	Logger         *slog.Logger
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	return &Client{
		HTTPClient:     httpClient,
		BaseURL:        u,
		DefaultHeaders: make(http.Header),
		UserAgent:      version.Get().UserAgent(),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// ResponseHeaderTimeout bounds the wait for response headers. A batch call
// to a reasoning model sends none until generation ends, so it is generous.
const ResponseHeaderTimeout = 10 * time.Minute

// DefaultHTTPClient has no whole-request timeout, so a stream stays open as
// long as it keeps delivering. Only the wait for headers is bounded; the
// caller's context cancels everything else.
func DefaultHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = ResponseHeaderTimeout
	return &http.Client{Transport: tr}
}

func (c *Client) Clone() *Client {
	out := *c
	out.DefaultHeaders = c.DefaultHeaders.Clone()
	return &out
}

// Resolve joins path onto the base URL. path may carry a query string.
// Absolute URLs are returned unchanged.
func (c *Client) Resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	// url.JoinPath would clean too aggressively for some base URLs with paths.
	u := *c.BaseURL
	p, query, _ := strings.Cut(path, "?")
	u.Path = joinPath(u.Path, p)
	if query != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + query
		} else {
			u.RawQuery = query
		}
	}
	return u.String()
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a[len(a)-1] == '/' {
		if b[0] == '/' {
			return a + b[1:]
		}
		return a + b
	}
	if b[0] == '/' {
		return a + b
	}
	return a + "/" + b
}

// Marshal encodes a request body. []byte and json.RawMessage pass through.
func Marshal(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

// DoJSON sends one request and reads the whole response. A non-2xx status
// is returned as *HTTPStatusError together with the raw body.
func (c *Client) DoJSON(ctx context.Context, method, path string, hdr http.Header, reqBody any) (*http.Response, []byte, error) {
	resp, err := c.DoStream(ctx, method, path, hdr, reqBody)
	if err != nil {
		var raw []byte
		if se, ok := err.(*HTTPStatusError); ok {
			raw = se.Body
		}
		return nil, raw, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, raw, nil
}

// DoStream sends one request and hands back the open response on 2xx. The
// caller owns resp.Body.
func (c *Client) DoStream(ctx context.Context, method, path string, hdr http.Header, body any) (*http.Response, error) {
	bodyBytes, err := Marshal(body)
	if err != nil {
		return nil, err
	}
	var r io.Reader
	if bodyBytes != nil {
		r = bytes.NewReader(bodyBytes)
	}
	return c.Do(ctx, method, path, hdr, r)
}

// Do is the single exchange primitive. There is no retry loop: callers decide
// what to do with a failure.
func (c *Client) Do(ctx context.Context, method, path string, hdr http.Header, body io.Reader) (*http.Response, error) {
	urlStr := c.Resolve(path)
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}

	mergeHeaders(req.Header, c.DefaultHeaders)
	mergeHeaders(req.Header, hdr)
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Debug("llm http", "method", method, "path", req.URL.Path, "err", err)
		return nil, err
	}
	c.Logger.Debug("llm http", "method", method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: raw, Header: resp.Header.Clone()}
}

type HTTPStatusError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

func mergeHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
