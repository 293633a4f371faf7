// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/phsmith/slack-chatbot/lib/netutil"
)

// defaultBaseURL is the base URL for the Slack Web API.
const defaultBaseURL = "https://slack.com/api"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BotToken is the bot user OAuth token (xoxb-...). Required.
	BotToken string
	// BaseURL is the root URL for API requests. Defaults to
	// "https://slack.com/api". Tests point it at an httptest server.
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is an authenticated Slack Web API client. Safe for concurrent
// use; it holds no per-request state.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Slack Web API client from the given configuration.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("messaging: BotToken is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("messaging: invalid BaseURL %q: %w", baseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		botToken:   config.BotToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// apiEnvelope is the common shape of every Slack Web API response.
// Method-specific fields are unmarshalled separately from the same
// body by the caller.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// postJSON calls a Web API method with a JSON body and decodes the
// response into result (which may be nil when only the envelope
// matters). Returns a *SlackError when the API reports a failure.
func (c *Client) postJSON(ctx context.Context, method string, requestBody any, result any) error {
	encoded, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("messaging: encoding %s request: %w", method, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("messaging: creating %s request: %w", method, err)
	}
	request.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.do(request, method, result)
}

// getForm calls a read-only Web API method with URL query parameters
// and decodes the response into result.
func (c *Client) getForm(ctx context.Context, method string, params url.Values, result any) error {
	requestURL := c.baseURL + "/" + method
	if encoded := params.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("messaging: creating %s request: %w", method, err)
	}

	return c.do(request, method, result)
}

// do executes a prepared request with bearer authentication and
// normalizes Slack's two failure shapes (non-2xx status, or 200 with
// ok=false) into *SlackError.
func (c *Client) do(request *http.Request, method string, result any) error {
	request.Header.Set("Authorization", "Bearer "+c.botToken)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("messaging: request to %s failed: %w", method, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("messaging: reading %s response: %w", method, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("messaging: unexpected %d response from %s: %s",
			response.StatusCode, method, string(body))
	}

	if !envelope.OK {
		code := envelope.Error
		if code == "" {
			code = fmt.Sprintf("http_%d", response.StatusCode)
		}
		return &SlackError{
			Code:       code,
			StatusCode: response.StatusCode,
			Method:     method,
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("messaging: parsing %s response: %w", method, err)
		}
	}
	return nil
}
