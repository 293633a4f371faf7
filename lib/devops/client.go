// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phsmith/slack-chatbot/lib/clock"
	"github.com/phsmith/slack-chatbot/lib/netutil"
)

// readRetryBackoff is the pause before the single retry of an
// idempotent read that failed transiently.
const readRetryBackoff = 2 * time.Second

// Config holds configuration for creating an Azure DevOps API Client.
type Config struct {
	// OrganizationURL is the organization base URL
	// (e.g., "https://dev.azure.com/acme"). Required; must use HTTPS.
	OrganizationURL string

	// AccessToken is the personal access token used for all
	// requests. Required.
	AccessToken string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic retry behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed Azure DevOps REST API client. The connection is
// established lazily: the first API call performs the authentication
// work, and credentials are fixed for the client's lifetime.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates an Azure DevOps API client from the given
// configuration. Returns an error if the configuration is invalid
// (missing credentials, non-HTTPS URL).
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.OrganizationURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("devops: OrganizationURL is required")
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("devops: API client requires HTTPS (got %q)", baseURL)
	}
	if config.AccessToken == "" {
		return nil, fmt.Errorf("devops: AccessToken is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Azure DevOps PATs are sent as basic credentials with an empty
	// username.
	credentials := base64.StdEncoding.EncodeToString([]byte(":" + config.AccessToken))

	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + credentials,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}, nil
}

// Verify issues a cheap authenticated read so callers can fail fast at
// startup on bad credentials or an unreachable organization. Safe to
// call again after a failure.
func (client *Client) Verify(ctx context.Context) error {
	if _, err := client.get(ctx, "/_apis/connectionData?api-version=6.1-preview.1"); err != nil {
		return fmt.Errorf("verifying Azure DevOps connection: %w", err)
	}
	return nil
}

// get executes an idempotent GET request. Transient failures
// (transport errors, 5xx, 429) are retried once after a short backoff.
func (client *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, err := client.do(ctx, http.MethodGet, path, "", nil)
	if err == nil || !isTransient(err) {
		return body, err
	}

	client.logger.Warn("transient failure on idempotent read, retrying",
		"path", path,
		"error", err,
	)

	select {
	case <-client.clock.After(readRetryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return client.do(ctx, http.MethodGet, path, "", nil)
}

// do executes an authenticated request against the organization. The
// path is relative to the organization URL. On non-2xx responses the
// error is an *APIError; the failure is also logged with the status
// and full request URL so operators can correlate with the Azure
// DevOps side.
func (client *Client) do(ctx context.Context, method, path, contentType string, requestBody []byte) ([]byte, error) {
	requestURL := client.baseURL + path

	var bodyReader io.Reader
	if requestBody != nil {
		bodyReader = bytes.NewReader(requestBody)
	}
	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("devops: creating %s %s request: %w", method, path, err)
	}

	request.Header.Set("Authorization", client.authHeader)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("devops: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("devops: reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return body, nil
	}

	apiError := parseAPIError(response.StatusCode, body)
	client.logger.Error("Azure DevOps request failed",
		"status", response.StatusCode,
		"url", requestURL,
		"error_type", apiError.TypeKey,
	)
	return nil, apiError
}

// parseAPIError builds an APIError from an Azure DevOps error body.
// Falls back to the raw body when the response is not the standard
// error shape.
func parseAPIError(statusCode int, body []byte) *APIError {
	var parsed struct {
		Message string `json:"message"`
		TypeKey string `json:"typeKey"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Message == "" {
		return &APIError{
			StatusCode: statusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    parsed.Message,
		TypeKey:    parsed.TypeKey,
	}
}

// isTransient reports whether an error from do is worth one retry on
// an idempotent read: transport failures and server-side or throttling
// statuses. Client errors (4xx other than 429) are permanent.
func isTransient(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		// Transport-level failure (connection refused, timeout).
		return true
	}
	return apiError.StatusCode >= 500 || apiError.StatusCode == http.StatusTooManyRequests
}
