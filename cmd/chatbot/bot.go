// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phsmith/slack-chatbot/lib/config"
	"github.com/phsmith/slack-chatbot/lib/devops"
	"github.com/phsmith/slack-chatbot/lib/template"
	"github.com/phsmith/slack-chatbot/messaging"
)

// ErrNotSubscribed is returned when a workflow targets a channel the
// bot is not a member of. The submission is aborted before any message
// is posted or any board call is made.
var ErrNotSubscribed = errors.New("bot not subscribed to channel")

// Bot holds the collaborators the workflows run against. All fields
// are set at construction and never mutated; the cached bot user ID is
// the only guarded state.
type Bot struct {
	config    *config.Config
	slack     *messaging.Client
	devops    *devops.Client
	templates *template.Store
	logger    *slog.Logger

	// botUserID is resolved lazily via auth.test on first use and
	// cached for the process lifetime.
	mu        sync.Mutex
	botUserID string
}

// NewBot creates a Bot. Panics if any collaborator is nil: the binary
// wires these unconditionally and a nil here is a programming error.
func NewBot(cfg *config.Config, slack *messaging.Client, devopsClient *devops.Client, templates *template.Store, logger *slog.Logger) *Bot {
	if cfg == nil {
		panic("Bot: config is required")
	}
	if slack == nil {
		panic("Bot: slack client is required")
	}
	if devopsClient == nil {
		panic("Bot: devops client is required")
	}
	if templates == nil {
		panic("Bot: template store is required")
	}
	if logger == nil {
		panic("Bot: logger is required")
	}
	return &Bot{
		config:    cfg,
		slack:     slack,
		devops:    devopsClient,
		templates: templates,
		logger:    logger,
	}
}

// botUser returns the bot's own user ID, resolving it on first call.
func (b *Bot) botUser(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.botUserID != "" {
		return b.botUserID, nil
	}
	userID, err := b.slack.AuthTest(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving bot user: %w", err)
	}
	b.botUserID = userID
	return userID, nil
}

// memberChannel returns the channel with the given name among the
// conversations the bot is a member of. Returns ErrNotSubscribed
// (wrapped with the channel name) when the bot is not a member.
func (b *Bot) memberChannel(ctx context.Context, channelName string) (messaging.Channel, error) {
	userID, err := b.botUser(ctx)
	if err != nil {
		return messaging.Channel{}, err
	}
	channels, err := b.slack.UserConversations(ctx, userID)
	if err != nil {
		return messaging.Channel{}, fmt.Errorf("listing bot channels: %w", err)
	}
	for _, channel := range channels {
		if channel.Name == channelName {
			return channel, nil
		}
	}
	return messaging.Channel{}, fmt.Errorf("channel #%s: %w", channelName, ErrNotSubscribed)
}

// channelByID returns the member channel with the given ID, or false
// when the bot is not a member of it.
func (b *Bot) channelByID(ctx context.Context, channelID string) (messaging.Channel, bool, error) {
	userID, err := b.botUser(ctx)
	if err != nil {
		return messaging.Channel{}, false, err
	}
	channels, err := b.slack.UserConversations(ctx, userID)
	if err != nil {
		return messaging.Channel{}, false, fmt.Errorf("listing bot channels: %w", err)
	}
	for _, channel := range channels {
		if channel.ID == channelID {
			return channel, true, nil
		}
	}
	return messaging.Channel{}, false, nil
}
