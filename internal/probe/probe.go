package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

const maxBody = 4 << 10

// Client performs direct HTTP health requests against a deployed host.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// New returns a client whose requests never exceed timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		timeout: timeout,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
				DisableKeepAlives:   true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Check GETs url and reports whether the body carries the healthy marker.
// Transport failures are reported in the result and as the returned error.
func (c *Client) Check(ctx context.Context, url string) (domain.ProbeResult, error) {
	res := domain.ProbeResult{URL: url}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("probe %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("read probe body: %w", err)
	}

	res.StatusCode = resp.StatusCode
	res.Body = strings.TrimSpace(string(body))
	res.Healthy = resp.StatusCode < 400 && domain.IsHealthy(res.Body)
	return res, nil
}
