// internal/adapters/waqi/client.go
package waqi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"aqi_relay/internal/adapters/observability"
	"aqi_relay/internal/domain"
)

// maxBody caps how much of an upstream body is read into memory.
const maxBody = 4 << 20

type Client struct {
	base *url.URL
	hc   *http.Client
	key  string
}

func New(base, key string, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API token is required")
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", base)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: u,
		hc:   &http.Client{Timeout: timeout},
		key:  key,
	}, nil
}

// FeedURL builds <base>/feed/<city>/?token=<key> with the city percent-encoded
// as a single path segment.
func (c *Client) FeedURL(city string) string {
	u := *c.base
	u.Path = c.base.Path + "/feed/" + city + "/"
	u.RawPath = c.base.EscapedPath() + "/feed/" + url.PathEscape(city) + "/"
	u.RawQuery = url.Values{"token": {c.key}}.Encode()
	return u.String()
}

// Feed performs one GET against the feed endpoint and returns the body as raw
// JSON. There is no retry; the call is bounded by the client timeout and ctx.
func (c *Client) Feed(ctx context.Context, city string) (domain.Document, error) {
	start := time.Now()
	status := 0
	defer func() { observability.ObserveExternal("waqi", "feed", status, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(city), nil)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aqi-relay/1.0")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, classify(err, 0)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.FetchError{
			Kind:   domain.KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		}
	}

	// one byte past the cap tells an oversized body from one that fits exactly
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, classify(err, resp.StatusCode)
	}
	if len(body) > maxBody {
		return nil, &domain.FetchError{
			Kind:   domain.KindDecode,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("body too large: exceeds %d bytes", maxBody),
		}
	}
	if !json.Valid(body) {
		return nil, &domain.FetchError{
			Kind:   domain.KindDecode,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("invalid JSON body (%d bytes)", len(body)),
		}
	}
	return domain.Document(body), nil
}

// classify maps a transport-level error to cancelled, timeout or transport.
func classify(err error, status int) error {
	if errors.Is(err, context.Canceled) {
		return &domain.FetchError{Kind: domain.KindCancelled, Status: status, Err: err}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &domain.FetchError{Kind: domain.KindTimeout, Status: status, Err: err}
	}
	return &domain.FetchError{Kind: domain.KindTransport, Status: status, Err: err}
}
