// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/phsmith/slack-chatbot/lib/clock"
	"github.com/phsmith/slack-chatbot/lib/config"
	"github.com/phsmith/slack-chatbot/lib/devops"
	"github.com/phsmith/slack-chatbot/lib/process"
	"github.com/phsmith/slack-chatbot/lib/service"
	"github.com/phsmith/slack-chatbot/lib/template"
	"github.com/phsmith/slack-chatbot/lib/version"
	"github.com/phsmith/slack-chatbot/messaging"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("chatbot", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML configuration file (defaults to $CHATBOT_CONFIG)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if *showVersion {
		version.Print("chatbot")
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	templates, err := template.NewStore(cfg.TemplatesDir)
	if err != nil {
		return err
	}

	slackClient, err := messaging.NewClient(messaging.ClientConfig{
		BotToken: cfg.Slack.BotToken,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	devopsClient, err := devops.NewClient(devops.Config{
		OrganizationURL: cfg.DevOps.OrganizationURL,
		AccessToken:     cfg.DevOps.AccessToken,
		Clock:           clock.Real(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	// Fail fast on bad credentials rather than on the first
	// submission hours later.
	if err := devopsClient.Verify(ctx); err != nil {
		return err
	}

	bot := NewBot(cfg, slackClient, devopsClient, templates, logger)
	handler := NewEventHandler([]byte(cfg.Slack.SigningSecret), bot, clock.Real(), logger)

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.ListenAddress,
		Handler: handler,
		Logger:  logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
		logger.Info("chatbot running",
			"address", httpServer.Addr().String(),
			"shortcuts", len(cfg.Shortcuts),
		)
	case err := <-httpDone:
		return fmt.Errorf("http server failed to start: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	return <-httpDone
}
