// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package devops provides a typed Go client for the Azure DevOps REST
// API, covering the work item tracking operations the chatbot uses:
// creating and updating board work items and reading a project team's
// iteration settings.
//
// The client authenticates with a personal access token sent as HTTP
// basic credentials (empty username, per Azure DevOps convention).
// All requests are made over HTTPS; the client refuses non-HTTPS
// organization URLs.
//
// Team settings reads are idempotent and are retried once after a
// short backoff on transient failures. Work item creation is never
// retried: the API defines no deduplication key, so a naive retry
// could file duplicate tickets.
//
// Non-2xx responses are returned as [*APIError] with the HTTP status
// and Azure DevOps' message and error type key. [IsNotFound] and
// [IsUnauthorized] test the common cases.
package devops
