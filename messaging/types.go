// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import "encoding/json"

// Channel is a Slack conversation the bot is a member of.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a message in a channel or thread. Timestamps are Slack's
// opaque "ts" strings; a message's Timestamp doubles as its ID within
// the channel, and ThreadTimestamp (when set) is the thread root's
// Timestamp.
type Message struct {
	Timestamp       string `json:"ts"`
	ThreadTimestamp string `json:"thread_ts,omitempty"`
	User            string `json:"user,omitempty"`
	BotID           string `json:"bot_id,omitempty"`
	Text            string `json:"text,omitempty"`
	Subtype         string `json:"subtype,omitempty"`
}

// RootTimestamp returns the thread root's timestamp: the message's
// ThreadTimestamp when it is a reply, or its own Timestamp when it is
// a root (or unthreaded) message.
func (m Message) RootTimestamp() string {
	if m.ThreadTimestamp != "" {
		return m.ThreadTimestamp
	}
	return m.Timestamp
}

// MessageRequest holds the parameters for posting a message. Setting
// ThreadTimestamp posts the message as a reply under that thread root.
// Text is the notification fallback when Blocks are set, and the whole
// message body otherwise.
type MessageRequest struct {
	Channel         string          `json:"channel"`
	Text            string          `json:"text"`
	Blocks          json.RawMessage `json:"blocks,omitempty"`
	ThreadTimestamp string          `json:"thread_ts,omitempty"`
}

// PostedMessage identifies a message accepted by chat.postMessage.
type PostedMessage struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// Block is one element of a Block Kit message payload.
type Block struct {
	Type string     `json:"type"`
	Text *TextBlock `json:"text,omitempty"`
}

// TextBlock is a Block Kit text object.
type TextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MarkdownText creates an mrkdwn Block Kit text object.
func MarkdownText(text string) *TextBlock {
	return &TextBlock{Type: "mrkdwn", Text: text}
}

// SectionBlock creates a single-section Block Kit payload with mrkdwn
// text, encoded ready for MessageRequest.Blocks.
func SectionBlock(text string) json.RawMessage {
	blocks := []Block{{Type: "section", Text: MarkdownText(text)}}
	encoded, err := json.Marshal(blocks)
	if err != nil {
		// Marshalling a fixed struct cannot fail.
		panic("messaging: encoding section block: " + err.Error())
	}
	return encoded
}
