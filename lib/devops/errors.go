// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devops

import (
	"errors"
	"fmt"
)

// APIError represents a non-2xx response from the Azure DevOps REST
// API. Azure DevOps returns structured JSON error bodies with a
// message and a machine-readable type key.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the error description from Azure DevOps.
	Message string

	// TypeKey is the machine-readable exception type
	// (e.g., "WorkItemTrackingEntityNotFoundException").
	TypeKey string
}

func (err *APIError) Error() string {
	if err.TypeKey != "" {
		return fmt.Sprintf("devops: HTTP %d (%s): %s", err.StatusCode, err.TypeKey, err.Message)
	}
	return fmt.Sprintf("devops: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsNotFound reports whether err is an Azure DevOps 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsUnauthorized reports whether err is an Azure DevOps 401 response
// (expired or revoked personal access token).
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 401
}
