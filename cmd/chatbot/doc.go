// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Slack support chatbot. Receives Slack events over a signed HTTP
// endpoint, runs the support workflows, and files work items on Azure
// DevOps boards.
//
// Two endpoints:
//   - POST /slack/events: Slack event and interaction ingestion
//     (v0 request signature verified)
//   - GET|POST /health: liveness probe for process supervisors
//
// Three workflows hang off the event endpoint:
//   - shortcut: a global shortcut opens a modal form; the submission
//     is announced in the configured channel and filed as a board
//     work item
//   - reaction: an :eyes: reaction on a submission thread posts a
//     "we're on it" acknowledgement under the thread root
//   - message: unthreaded channel chatter gets a nudge towards the
//     configured shortcuts
//
// Configuration is a single YAML file located via --config or the
// CHATBOT_CONFIG environment variable.
package main
