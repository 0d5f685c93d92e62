// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lpbme/club-validator/lib/netutil"
	"github.com/lpbme/club-validator/lib/version"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.lospueblosmasbonitos.es/club".
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds each request when positive. Zero means no
	// timeout beyond the caller's context.
	Timeout time.Duration

	// UserAgent overrides version.UserAgent().
	UserAgent string

	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks to the Club backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend: BaseURL %q must be http or https", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		timeout:    config.Timeout,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// SubmitScan posts a scan for validation. The only error is a
// *TransportError; every received response, whatever its status, is
// returned for the caller to interpret.
func (c *Client) SubmitScan(ctx context.Context, request ScanRequest) (*Response, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, &TransportError{Method: http.MethodPost, Path: "/scan", Err: err}
	}
	return c.do(ctx, http.MethodPost, "/scan", nil, encoded)
}

// Metrics fetches the raw metrics object for scope over the last
// days days. A non-2xx status yields a *StatusError.
func (c *Client) Metrics(ctx context.Context, scope Scope, days int) (map[string]any, error) {
	if scope.ID == "" {
		return nil, fmt.Errorf("backend: metrics scope %s has no id", scope.Kind)
	}
	path, param := scope.path()
	query := url.Values{}
	query.Set(param, scope.ID)
	query.Set("days", strconv.Itoa(days))

	response, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if response.Status < 200 || response.Status >= 300 {
		return nil, &StatusError{Status: response.Status, Path: path, Body: string(response.Raw)}
	}
	return response.Body, nil
}

// CloseIdleConnections drops pooled connections, e.g. after the
// network came back from an outage.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	requestID := uuid.NewString()
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set("X-Request-Id", requestID)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Debug("backend request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer response.Body.Close()

	raw, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	object, _ := netutil.DecodeObject(raw)
	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", response.StatusCode,
		"request_id", requestID,
	)
	return &Response{
		Status:    response.StatusCode,
		Body:      object,
		Raw:       raw,
		RequestID: requestID,
	}, nil
}
