// Package remote calls the external authorization service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventsaga/internal/failure"
)

// StatusError is a response the remote service answered with a server error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote service responded %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL     string
	SuccessPath string
	Timeout     time.Duration
}

type Client struct {
	baseURL     string
	successPath string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	path := cfg.SuccessPath
	if path == "" {
		path = "/response/200"
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		successPath: path,
		http:        &http.Client{Timeout: timeout},
	}
}

// Call issues a GET to path and returns the response body.
// Transport problems, timeouts included, come back as transport failures. A 5xx answer is a
// remote rejection and is not retried.
func (c *Client) Call(ctx context.Context, path string) (string, error) {
	const op = "remote call"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", failure.Transport(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", failure.Transport(op, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", failure.New(failure.KindRemoteRejected, op, &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s: %w", op, &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	return string(body), nil
}

// Authorize calls the configured authorization endpoint.
func (c *Client) Authorize(ctx context.Context) error {
	_, err := c.Call(ctx, c.successPath)
	return err
}

// IsStatus reports whether err carries a remote status error with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
