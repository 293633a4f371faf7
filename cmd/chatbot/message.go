// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/phsmith/slack-chatbot/messaging"
)

// nudgeExcludedSubtypes are message subtypes that never get a usage
// nudge: bot chatter, membership churn, and edits/deletions of
// existing messages.
var nudgeExcludedSubtypes = map[string]struct{}{
	"bot_message":     {},
	"channel_join":    {},
	"channel_leave":   {},
	"channel_topic":   {},
	"message_changed": {},
	"message_deleted": {},
}

// MessageEvent is a message event from a channel the bot is in.
type MessageEvent struct {
	Channel         string
	User            string
	Text            string
	ThreadTimestamp string
	Subtype         string
}

// HandleMessage nudges users who write free-form messages in a
// support channel towards the configured shortcuts. Thread replies and
// excluded subtypes pass silently; so do channels with no shortcut
// configured for them.
func (b *Bot) HandleMessage(ctx context.Context, event MessageEvent) error {
	if event.ThreadTimestamp != "" {
		return nil
	}
	if _, excluded := nudgeExcludedSubtypes[event.Subtype]; excluded {
		return nil
	}

	channel, member, err := b.channelByID(ctx, event.Channel)
	if err != nil {
		return fmt.Errorf("resolving channel %s: %w", event.Channel, err)
	}
	if !member {
		return nil
	}

	shortcuts := b.config.ShortcutsForChannel(channel.Name)
	if len(shortcuts) == 0 {
		return nil
	}

	names := make([]string, len(shortcuts))
	for i, shortcut := range shortcuts {
		names[i] = "*/" + shortcut + "*"
	}
	text := fmt.Sprintf(":robot_face: Para suporte, favor utilizar o atalho %s", strings.Join(names, " ou "))

	_, err = b.slack.PostMessage(ctx, messaging.MessageRequest{
		Channel: event.Channel,
		Text:    text,
	})
	if err != nil {
		// The bot can be kicked from the channel between the membership
		// lookup and the post. The nudge is best-effort; drop it.
		if messaging.IsSlackError(err, messaging.ErrCodeNotInChannel) ||
			messaging.IsSlackError(err, messaging.ErrCodeChannelNotFound) {
			b.logger.Warn("channel no longer reachable, usage nudge dropped",
				"channel", channel.Name,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("posting usage nudge to #%s: %w", channel.Name, err)
	}
	return nil
}
