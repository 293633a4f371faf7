// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// SlackError represents a structured error response from the Slack Web
// API. Callers can use errors.As to extract the structured information:
//
//	var slackErr *messaging.SlackError
//	if errors.As(err, &slackErr) {
//	    if slackErr.Code == messaging.ErrCodeChannelNotFound { ... }
//	}
type SlackError struct {
	// Code is the Slack error code (e.g., "channel_not_found").
	Code string `json:"error"`
	// StatusCode is the HTTP status code of the response. Slack
	// reports most API failures with status 200 and ok=false.
	StatusCode int `json:"-"`
	// Method is the Web API method that failed (e.g., "chat.postMessage").
	Method string `json:"-"`
}

func (e *SlackError) Error() string {
	return fmt.Sprintf("slack: %s (%d): %s", e.Method, e.StatusCode, e.Code)
}

// Slack Web API error codes the bot reacts to.
const (
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeNotInChannel    = "not_in_channel"
	ErrCodeThreadNotFound  = "thread_not_found"
	ErrCodeMessageNotFound = "message_not_found"
	ErrCodeInvalidTrigger  = "invalid_trigger_id"
	ErrCodeExpiredTrigger  = "expired_trigger_id"
)

// IsSlackError checks whether err is a *SlackError with the given code.
func IsSlackError(err error, code string) bool {
	var slackErr *SlackError
	if errors.As(err, &slackErr) {
		return slackErr.Code == code
	}
	return false
}
