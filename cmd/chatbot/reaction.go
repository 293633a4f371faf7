// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/phsmith/slack-chatbot/messaging"
)

// watchingReaction is the emoji that signals a team member picked up a
// support request.
const watchingReaction = "eyes"

// ReactionEvent is a reaction_added event.
type ReactionEvent struct {
	Reaction         string
	UserID           string
	Channel          string
	MessageTimestamp string
}

// HandleReaction posts a "we're on it" acknowledgement when a team
// member reacts with :eyes: on a support thread. The thread root is
// resolved from the reacted message itself, so concurrent submissions
// in the same channel each get their ack under the right thread.
func (b *Bot) HandleReaction(ctx context.Context, event ReactionEvent) error {
	if event.Reaction != watchingReaction {
		return nil
	}

	replies, err := b.slack.ConversationReplies(ctx, event.Channel, event.MessageTimestamp)
	if err != nil {
		// The reacted message can be deleted before the event is
		// processed. There is no thread left to acknowledge under.
		if messaging.IsSlackError(err, messaging.ErrCodeThreadNotFound) ||
			messaging.IsSlackError(err, messaging.ErrCodeMessageNotFound) {
			b.logger.Warn("reacted message gone, acknowledgement skipped",
				"channel", event.Channel,
				"message", event.MessageTimestamp,
			)
			return nil
		}
		return fmt.Errorf("resolving thread for reacted message %s: %w", event.MessageTimestamp, err)
	}

	rootTimestamp := event.MessageTimestamp
	if len(replies) > 0 {
		rootTimestamp = replies[0].RootTimestamp()
	}

	text := fmt.Sprintf(":eyes: <@%s> está de olho na sua solicitação!", event.UserID)
	fallback := fmt.Sprintf("<@%s> está de olho e logo irá responder!", event.UserID)
	_, err = b.slack.PostMessage(ctx, messaging.MessageRequest{
		Channel:         event.Channel,
		Text:            fallback,
		Blocks:          messaging.SectionBlock(text),
		ThreadTimestamp: rootTimestamp,
	})
	if err != nil {
		return fmt.Errorf("posting reaction acknowledgement: %w", err)
	}
	return nil
}
