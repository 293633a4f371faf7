// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phsmith/slack-chatbot/lib/clock"
	"github.com/phsmith/slack-chatbot/lib/service"
)

// maxEventBodySize bounds the request body we will read. Slack event
// and interaction payloads are small; 4 MB is generous headroom.
const maxEventBodySize = 4 * 1024 * 1024

// deduplicationWindow is how long processed event IDs are tracked.
// Slack retries failed deliveries for up to an hour.
const deduplicationWindow = 1 * time.Hour

// workflowTimeout bounds a single workflow run. The HTTP response has
// already been sent by the time a workflow starts; the timeout only
// stops a wedged downstream call from pinning a goroutine forever.
const workflowTimeout = 2 * time.Minute

// healthBody is the fixed liveness response.
const healthBody = "Bot is running!!!\n"

// EventHandler is the HTTP surface of the bot: it verifies request
// signatures, deduplicates redeliveries, and dispatches events and
// interactions to the Bot's workflows, each on its own goroutine.
type EventHandler struct {
	signingSecret []byte
	bot           *Bot
	clock         clock.Clock
	logger        *slog.Logger

	// seen tracks recently processed event IDs for redelivery
	// suppression. Keys are Slack event_id values.
	mu   sync.Mutex
	seen map[string]time.Time

	// dispatched, when non-nil, receives a signal after each workflow
	// goroutine finishes. Tests use it to wait for async work.
	dispatched chan struct{}
}

// NewEventHandler creates the HTTP handler. Panics if the secret, bot,
// clock, or logger is missing.
func NewEventHandler(signingSecret []byte, bot *Bot, clk clock.Clock, logger *slog.Logger) *EventHandler {
	if len(signingSecret) == 0 {
		panic("EventHandler: signingSecret is required")
	}
	if bot == nil {
		panic("EventHandler: bot is required")
	}
	if clk == nil {
		panic("EventHandler: clock is required")
	}
	if logger == nil {
		panic("EventHandler: logger is required")
	}
	return &EventHandler{
		signingSecret: signingSecret,
		bot:           bot,
		clock:         clk,
		logger:        logger,
		seen:          make(map[string]time.Time),
	}
}

// ServeHTTP routes the two endpoints.
func (h *EventHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	switch request.URL.Path {
	case "/health":
		writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
		writer.WriteHeader(http.StatusOK)
		io.WriteString(writer, healthBody)
	case "/slack/events":
		h.serveEvents(writer, request)
	default:
		http.NotFound(writer, request)
	}
}

// serveEvents handles a single delivery from Slack. The response is
// sent before any workflow runs: Slack expects an acknowledgement
// within three seconds, and one slow downstream call must not stall
// the endpoint.
func (h *EventHandler) serveEvents(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	// Read the body first: signature verification needs the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxEventBodySize))
	if err != nil {
		h.logger.Error("events: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	timestamp := request.Header.Get("X-Slack-Request-Timestamp")
	signature := request.Header.Get("X-Slack-Signature")
	if err := service.VerifySlackSignature(h.signingSecret, body, timestamp, signature, h.clock.Now()); err != nil {
		h.logger.Warn("events: signature verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		// 401 with no information disclosure.
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	contentType := request.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		h.serveInteraction(writer, body)
		return
	}
	h.serveEventCallback(writer, body)
}

// serveEventCallback handles the JSON side of the endpoint: the
// url_verification handshake and event_callback deliveries.
func (h *EventHandler) serveEventCallback(writer http.ResponseWriter, body []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Warn("events: malformed JSON body", "error", err)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case "url_verification":
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]string{"challenge": envelope.Challenge})
		return

	case "event_callback":
		// Redelivery suppression: Slack retries deliveries it thinks
		// failed, with the same event_id.
		if envelope.EventID != "" && h.isDuplicate(envelope.EventID) {
			h.logger.Debug("events: duplicate delivery, ignoring", "event_id", envelope.EventID)
			writer.WriteHeader(http.StatusOK)
			return
		}

		var event innerEvent
		if err := json.Unmarshal(envelope.Event, &event); err != nil {
			h.logger.Error("events: malformed inner event",
				"event_id", envelope.EventID,
				"error", err,
			)
			// 200 so Slack does not retry: redelivery won't fix it.
			writer.WriteHeader(http.StatusOK)
			return
		}

		h.dispatchEvent(envelope.EventID, event)
		writer.WriteHeader(http.StatusOK)
		return

	default:
		// Acknowledge and drop unknown envelope types so new Slack
		// features don't turn into delivery failures.
		h.logger.Debug("events: unhandled envelope type, ignoring", "type", envelope.Type)
		writer.WriteHeader(http.StatusOK)
		return
	}
}

// serveInteraction handles the form-encoded side of the endpoint:
// shortcut invocations and view submissions, carried in a "payload"
// form field.
func (h *EventHandler) serveInteraction(writer http.ResponseWriter, body []byte) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		h.logger.Warn("events: malformed form body", "error", err)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(values.Get("payload")), &payload); err != nil {
		h.logger.Warn("events: malformed interaction payload", "error", err)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "shortcut":
		h.dispatch("shortcut", func(ctx context.Context) error {
			return h.bot.HandleShortcut(ctx, ShortcutInvocation{
				CallbackID: payload.CallbackID,
				TriggerID:  payload.TriggerID,
			})
		})

	case "view_submission":
		if payload.View == nil {
			h.logger.Warn("events: view_submission without view")
			break
		}
		view := *payload.View
		userName := payload.User.Name
		h.dispatch("view_submission", func(ctx context.Context) error {
			return h.bot.HandleSubmission(ctx, ViewSubmission{
				CallbackID: view.CallbackID,
				UserName:   userName,
				State:      view.State,
			})
		})

	default:
		h.logger.Debug("events: unhandled interaction type, ignoring", "type", payload.Type)
	}

	// An empty 200 closes the modal / acknowledges the interaction.
	writer.WriteHeader(http.StatusOK)
}

// dispatchEvent routes an event_callback inner event to its workflow.
func (h *EventHandler) dispatchEvent(eventID string, event innerEvent) {
	switch event.Type {
	case "message":
		ev := MessageEvent{
			Channel:         event.Channel,
			User:            event.User,
			Text:            event.Text,
			ThreadTimestamp: event.ThreadTimestamp,
			Subtype:         event.Subtype,
		}
		h.dispatch("message", func(ctx context.Context) error {
			return h.bot.HandleMessage(ctx, ev)
		})

	case "reaction_added":
		ev := ReactionEvent{
			Reaction:         event.Reaction,
			UserID:           event.User,
			Channel:          event.Item.Channel,
			MessageTimestamp: event.Item.Timestamp,
		}
		h.dispatch("reaction_added", func(ctx context.Context) error {
			return h.bot.HandleReaction(ctx, ev)
		})

	default:
		h.logger.Debug("events: unhandled event type, ignoring",
			"type", event.Type,
			"event_id", eventID,
		)
	}
}

// dispatch runs a workflow on its own goroutine, detached from the
// request context (the response is already sent). Workflow errors are
// logged here; nothing escapes the goroutine.
func (h *EventHandler) dispatch(workflow string, run func(context.Context) error) {
	go func() {
		defer func() {
			if h.dispatched != nil {
				h.dispatched <- struct{}{}
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), workflowTimeout)
		defer cancel()

		if err := run(ctx); err != nil {
			h.logger.Error("workflow failed",
				"workflow", workflow,
				"error", err,
			)
		}
	}()
}

// isDuplicate checks and records an event ID. Returns true if the
// event was already processed within the deduplication window.
// Expired entries are pruned on every check; the map holds one entry
// per event over the last hour, so this stays cheap.
func (h *EventHandler) isDuplicate(eventID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	for id, receivedAt := range h.seen {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(h.seen, id)
		}
	}

	if _, exists := h.seen[eventID]; exists {
		return true
	}
	h.seen[eventID] = now
	return false
}
