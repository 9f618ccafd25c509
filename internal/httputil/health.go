// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// healthPath is the backend's availability endpoint.
const healthPath = "/health"

// CheckHealth probes the backend's health endpoint. Rate-limit responses
// are retried with backoff via DoWithRetry; any other non-200 status is
// an error. Returns the round-trip time on success.
func CheckHealth(ctx context.Context, client *http.Client, baseURL, userAgent string) (time.Duration, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	u = u.JoinPath(healthPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return 0, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("backend returned HTTP %d", resp.StatusCode)
	}
	return time.Since(start), nil
}
