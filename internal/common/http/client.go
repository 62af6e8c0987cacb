// Package http carries the outbound conventions shared by the service's
// gateway clients: JSON bodies, bearer auth, context-bound deadlines.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Client wraps the standard client. A zero timeout leaves deadline
// control entirely to the request context.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostJSON marshals payload and POSTs it with JSON and optional bearer
// auth headers. The caller owns the response body.
func (c *Client) PostJSON(ctx context.Context, url, bearerToken string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	return c.httpClient.Do(req)
}
