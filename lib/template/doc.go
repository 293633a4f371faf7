// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package template renders the chatbot's JSONC document templates:
// Slack modal view definitions and Azure DevOps work item documents.
//
// Templates are authored on disk as JSONC (JSON extended with //
// line comments, /* block comments */, and trailing commas) and
// addressed by a path relative to the store root. [Store.Render]
// substitutes ${NAME} placeholders with caller-supplied values,
// strips the JSONC extensions, and validates that the result is
// well-formed JSON before returning it as a raw document.
//
// Substitution is plain text interpolation, not logic: values are
// JSON-string-escaped so that quotes and newlines in user input
// cannot break the document structure. A ${NAME} reference with no
// supplied value is an error — templates fail fast on unresolvable
// references rather than producing broken documents.
//
// A missing template file returns an error wrapping [ErrNotFound].
// Callers log it and treat the document as absent; the rendering
// call site cannot proceed without a document.
package template
