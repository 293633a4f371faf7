// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Slack Web API for the chatbot's
// conversation needs.
//
// [Client] is an authenticated Slack client bound to a bot token. It
// covers the operations the workflows use: posting channel messages
// and threaded replies (chat.postMessage), opening modal views bound
// to an interaction trigger (views.open), listing the channels the
// bot is a member of (users.conversations, with cursor pagination
// followed transparently), fetching message permalinks
// (chat.getPermalink), reading thread replies (conversations.replies),
// resolving the bot's own identity (auth.test), and mapping usergroup
// handles to IDs (usergroups.list).
//
// All API errors are returned as [*SlackError] carrying Slack's
// machine-readable error code ("channel_not_found", "invalid_auth",
// and so on) and the HTTP status code. [IsSlackError] tests for a
// specific code. Slack reports most failures inside a 200 response
// ({"ok": false, "error": "..."}); the client normalizes both shapes
// into the same error type.
//
// Threads are first-class: a message posted with
// [MessageRequest].ThreadTimestamp set replies under that thread
// root, and [Client.ConversationReplies] recovers a thread's root
// from any message inside it. [SectionBlock] and [MarkdownText]
// build the Block Kit payloads the workflows post.
package messaging
