package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TransportError means the remote service could not be reached at all
// (DNS, refused connection, timeout). HTTP error statuses are not
// transport errors.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client issues one blocking request per call against a base URL. There
// is no retry and no backoff.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger

	// Fatal is invoked on every transport failure before Call returns.
	// The default logs the diagnostic and exits the process.
	Fatal func(err error)
}

// New returns a Client with a fixed per-call timeout. Keep-alives are
// off so each call opens and closes its own connection.
func New(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{DisableKeepAlives: true, Proxy: http.ProxyFromEnvironment},
		},
		logger: logger,
	}
	c.Fatal = func(err error) {
		c.logger.Fatalw("remote_unreachable", "err", err)
	}
	return c
}

// BaseURL is the endpoint every path is appended to.
func (c *Client) BaseURL() string { return c.baseURL }

// Call sends method path with payload JSON-encoded (nil means no body)
// and returns the status and raw body. A non-2xx status is returned as
// is, with a nil error.
func (c *Client) Call(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, c.fail(&TransportError{Method: method, URL: url, Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, c.fail(&TransportError{Method: method, URL: url, Err: err})
	}
	return resp.StatusCode, data, nil
}

func (c *Client) fail(err *TransportError) error {
	if c.Fatal != nil {
		c.Fatal(err)
	}
	return err
}
