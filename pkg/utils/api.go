package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent on every request; the listing service rejects
// obvious non-browser clients.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.2 Safari/605.1.15"

type APIOptions struct {
	UserAgent string
	// Proxy is applied to HTTPS requests only.
	Proxy   string
	Timeout time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

type API struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func NewAPI(baseURL string, opts APIOptions) (*API, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(opts.Proxy) != "" {
		proxyURL, err := NormalizeProxy(opts.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" {
				return proxyURL, nil
			}
			return nil, nil
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &API{
		client:    &http.Client{Transport: transport, Timeout: opts.Timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}, nil
}

func (a *API) BaseURL() string {
	return a.baseURL
}

// URL joins path onto the base URL.
func (a *API) URL(path string) string {
	return a.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Get fetches an absolute URL and reads the whole body. Non-2xx statuses are
// not errors here; callers inspect StatusCode.
func (a *API) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// NormalizeProxy accepts "host:port" or a full proxy URL. Addresses without
// a scheme are treated as plain HTTP proxies.
func NormalizeProxy(raw string) (*url.URL, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, fmt.Errorf("empty proxy address")
	}
	if !strings.Contains(v, "://") {
		v = "http://" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", raw)
	}
	return u, nil
}
