// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the chatbot
// binary: fatal error reporting to stderr for errors surfaced from
// run() before the structured logger is initialized.
package process
