// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// AuthTest validates the bot token and returns the bot's user ID.
func (c *Client) AuthTest(ctx context.Context) (string, error) {
	var response struct {
		UserID string `json:"user_id"`
	}
	if err := c.postJSON(ctx, "auth.test", struct{}{}, &response); err != nil {
		return "", fmt.Errorf("auth test: %w", err)
	}
	return response.UserID, nil
}

// PostMessage posts a message (chat.postMessage). Returns the channel
// ID and timestamp of the accepted message; the timestamp is the
// thread root ID for subsequent threaded replies.
func (c *Client) PostMessage(ctx context.Context, request MessageRequest) (PostedMessage, error) {
	var response PostedMessage
	if err := c.postJSON(ctx, "chat.postMessage", request, &response); err != nil {
		return PostedMessage{}, fmt.Errorf("posting message to %s: %w", request.Channel, err)
	}
	return response, nil
}

// OpenView opens a modal view bound to an interaction trigger
// (views.open). The view document is a rendered Block Kit view
// definition; the trigger ID expires seconds after the user's
// interaction, so this must be called promptly.
func (c *Client) OpenView(ctx context.Context, triggerID string, view json.RawMessage) error {
	request := struct {
		TriggerID string          `json:"trigger_id"`
		View      json.RawMessage `json:"view"`
	}{TriggerID: triggerID, View: view}

	if err := c.postJSON(ctx, "views.open", request, nil); err != nil {
		return fmt.Errorf("opening view for trigger %s: %w", triggerID, err)
	}
	return nil
}

// UserConversations returns every channel the given user (typically
// the bot itself) is a member of, following cursor pagination until
// exhausted (users.conversations).
func (c *Client) UserConversations(ctx context.Context, userID string) ([]Channel, error) {
	var channels []Channel
	cursor := ""

	for {
		params := url.Values{
			"user":  {userID},
			"types": {"public_channel,private_channel"},
			"limit": {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var response struct {
			Channels         []Channel `json:"channels"`
			ResponseMetadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		if err := c.getForm(ctx, "users.conversations", params, &response); err != nil {
			return nil, fmt.Errorf("listing conversations for %s: %w", userID, err)
		}

		channels = append(channels, response.Channels...)
		cursor = response.ResponseMetadata.NextCursor
		if cursor == "" {
			return channels, nil
		}
	}
}

// GetPermalink fetches a permanent link to a message
// (chat.getPermalink).
func (c *Client) GetPermalink(ctx context.Context, channelID, messageTimestamp string) (string, error) {
	params := url.Values{
		"channel":    {channelID},
		"message_ts": {messageTimestamp},
	}

	var response struct {
		Permalink string `json:"permalink"`
	}
	if err := c.getForm(ctx, "chat.getPermalink", params, &response); err != nil {
		return "", fmt.Errorf("fetching permalink for %s in %s: %w", messageTimestamp, channelID, err)
	}
	return response.Permalink, nil
}

// ConversationReplies fetches the messages of the thread containing
// the given message, oldest first (conversations.replies). The first
// message is the thread root. Works when timestamp refers to a reply
// as well as to the root itself.
func (c *Client) ConversationReplies(ctx context.Context, channelID, timestamp string) ([]Message, error) {
	params := url.Values{
		"channel": {channelID},
		"ts":      {timestamp},
	}

	var response struct {
		Messages []Message `json:"messages"`
	}
	if err := c.getForm(ctx, "conversations.replies", params, &response); err != nil {
		return nil, fmt.Errorf("fetching thread replies for %s in %s: %w", timestamp, channelID, err)
	}
	return response.Messages, nil
}

// UsergroupIDs maps usergroup handles to their IDs (usergroups.list).
// Handles absent from the workspace are omitted from the result.
func (c *Client) UsergroupIDs(ctx context.Context, handles []string) (map[string]string, error) {
	var response struct {
		Usergroups []struct {
			ID     string `json:"id"`
			Handle string `json:"handle"`
		} `json:"usergroups"`
	}
	if err := c.getForm(ctx, "usergroups.list", nil, &response); err != nil {
		return nil, fmt.Errorf("listing usergroups: %w", err)
	}

	wanted := make(map[string]bool, len(handles))
	for _, handle := range handles {
		wanted[handle] = true
	}

	result := make(map[string]string)
	for _, group := range response.Usergroups {
		if wanted[group.Handle] {
			result[group.Handle] = group.ID
		}
	}
	return result, nil
}
