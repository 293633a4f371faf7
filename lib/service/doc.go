// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the HTTP plumbing for the chatbot's event
// endpoint: a TCP server with graceful shutdown ([HTTPServer]) and
// Slack request signature verification ([VerifySlackSignature]).
//
// The server manages listener lifecycle only; the caller provides the
// http.Handler (routing, signature verification, payload dispatch).
// Serve(ctx) blocks until the context is cancelled and active
// requests drain.
//
// Signature verification implements Slack's v0 signing scheme: the
// signature header carries hex(HMAC-SHA256(secret, "v0:" + timestamp
// + ":" + body)) prefixed with "v0=". Verification also enforces a
// freshness window on the timestamp header so captured requests
// cannot be replayed later.
package service
