// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the chatbot.
//
// Configuration is loaded from a single file specified by either the
// CHATBOT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Variable expansion is performed on secret-bearing fields after
// loading: ${VAR} and ${VAR:-default} patterns are expanded from the
// process environment, so tokens can live outside the config file.
// No other environment variables override config values.
//
// The shortcut table maps Slack shortcut callback IDs to per-team
// settings: the target channel, the modal form template, the Azure
// DevOps project/board coordinates, and the per-environment SLA
// table. [Config.Resolve] is the runtime lookup; an unknown callback
// ID returns an error wrapping [ErrUnknownShortcut], which callers
// must treat as non-retryable.
//
// Key exports:
//
//   - [Config] -- the full immutable configuration
//   - [ShortcutConfig] -- per-shortcut settings
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other chatbot packages.
package config
