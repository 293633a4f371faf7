// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/phsmith/slack-chatbot/lib/clock"
	"github.com/phsmith/slack-chatbot/lib/config"
	"github.com/phsmith/slack-chatbot/lib/devops"
	"github.com/phsmith/slack-chatbot/lib/template"
	"github.com/phsmith/slack-chatbot/messaging"
)

// postedMessage is one chat.postMessage call recorded by fakeSlack.
type postedMessage struct {
	Channel         string          `json:"channel"`
	Text            string          `json:"text"`
	Blocks          json.RawMessage `json:"blocks"`
	ThreadTimestamp string          `json:"thread_ts"`
}

// fakeSlack is a canned Slack Web API. It records posted messages and
// opened views and answers the read methods from its fields.
type fakeSlack struct {
	mu          sync.Mutex
	posted      []postedMessage
	openedViews []json.RawMessage

	channels  []messaging.Channel
	permalink string
	replies   []messaging.Message

	// Per-method Slack error codes. When set, the method answers
	// ok=false with that code instead of succeeding.
	failPostCode    string
	failViewsCode   string
	failRepliesCode string
}

func (f *fakeSlack) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writer.Header().Set("Content-Type", "application/json")

	switch request.URL.Path {
	case "/auth.test":
		io.WriteString(writer, `{"ok":true,"user_id":"UBOT"}`)

	case "/chat.postMessage":
		if f.failPostCode != "" {
			fmt.Fprintf(writer, `{"ok":false,"error":%q}`, f.failPostCode)
			return
		}
		var message postedMessage
		json.NewDecoder(request.Body).Decode(&message)
		f.posted = append(f.posted, message)
		fmt.Fprintf(writer, `{"ok":true,"channel":%q,"ts":"100.%06d"}`, message.Channel, len(f.posted))

	case "/views.open":
		if f.failViewsCode != "" {
			fmt.Fprintf(writer, `{"ok":false,"error":%q}`, f.failViewsCode)
			return
		}
		var body struct {
			TriggerID string          `json:"trigger_id"`
			View      json.RawMessage `json:"view"`
		}
		json.NewDecoder(request.Body).Decode(&body)
		f.openedViews = append(f.openedViews, body.View)
		io.WriteString(writer, `{"ok":true}`)

	case "/users.conversations":
		response := struct {
			OK       bool                `json:"ok"`
			Channels []messaging.Channel `json:"channels"`
		}{OK: true, Channels: f.channels}
		json.NewEncoder(writer).Encode(response)

	case "/chat.getPermalink":
		fmt.Fprintf(writer, `{"ok":true,"permalink":%q}`, f.permalink)

	case "/conversations.replies":
		if f.failRepliesCode != "" {
			fmt.Fprintf(writer, `{"ok":false,"error":%q}`, f.failRepliesCode)
			return
		}
		response := struct {
			OK       bool                `json:"ok"`
			Messages []messaging.Message `json:"messages"`
		}{OK: true, Messages: f.replies}
		json.NewEncoder(writer).Encode(response)

	default:
		io.WriteString(writer, `{"ok":false,"error":"unknown_method"}`)
	}
}

// postedMessages returns a snapshot of the recorded posts.
func (f *fakeSlack) postedMessages() []postedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postedMessage(nil), f.posted...)
}

// fakeBoard is a canned Azure DevOps API for work item creation and
// team settings.
type fakeBoard struct {
	mu        sync.Mutex
	documents []json.RawMessage

	iterationPath string
	failCreates   bool
}

func (f *fakeBoard) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writer.Header().Set("Content-Type", "application/json")

	switch {
	case strings.Contains(request.URL.Path, "/_apis/work/teamsettings"):
		fmt.Fprintf(writer, `{"defaultIteration":{"path":%q}}`, f.iterationPath)

	case strings.Contains(request.URL.Path, "/_apis/wit/workitems/"):
		if f.failCreates {
			writer.WriteHeader(http.StatusInternalServerError)
			io.WriteString(writer, `{"message":"boom"}`)
			return
		}
		body, _ := io.ReadAll(request.Body)
		f.documents = append(f.documents, body)
		fmt.Fprintf(writer, `{"id":4711,"_links":{"html":{"href":"https://dev.azure.com/acme/Support/_workitems/edit/4711"}}}`)

	default:
		writer.WriteHeader(http.StatusNotFound)
		io.WriteString(writer, `{"message":"unknown path"}`)
	}
}

func (f *fakeBoard) createdDocuments() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]json.RawMessage(nil), f.documents...)
}

// testConfig is the shortcut table the workflow tests run against.
func testConfig() *config.Config {
	return &config.Config{
		ListenAddress: ":5000",
		TemplatesDir:  "../../templates",
		Slack: config.SlackConfig{
			BotToken:      "xoxb-test",
			SigningSecret: "test-secret",
		},
		Shortcuts: map[string]config.ShortcutConfig{
			"support": {
				BoardName:              "Support Board",
				BoardTemplatePath:      "azure_devops/support_board.json",
				ProjectName:            "Support",
				WorkItemType:           "Support",
				WorkItemAreaPath:       `\Infra`,
				SLA:                    map[string]string{"Production": "4 horas", "N-Production": "8 horas"},
				TargetChannelName:      "ops-support",
				SubmissionTemplatePath: "slack/shortcut_support.json",
			},
		},
	}
}

// newTestBot wires a Bot against the two fakes and the shipped
// templates.
func newTestBot(t *testing.T, slack *fakeSlack, board *fakeBoard) *Bot {
	t.Helper()

	slackServer := httptest.NewServer(slack)
	t.Cleanup(slackServer.Close)
	boardServer := httptest.NewTLSServer(board)
	t.Cleanup(boardServer.Close)

	slackClient, err := messaging.NewClient(messaging.ClientConfig{
		BotToken: "xoxb-test",
		BaseURL:  slackServer.URL,
	})
	if err != nil {
		t.Fatalf("messaging.NewClient: %v", err)
	}

	devopsClient, err := devops.NewClient(devops.Config{
		OrganizationURL: boardServer.URL,
		AccessToken:     "test-pat",
		HTTPClient:      boardServer.Client(),
		Clock:           clock.Real(),
	})
	if err != nil {
		t.Fatalf("devops.NewClient: %v", err)
	}

	templates, err := template.NewStore("../../templates")
	if err != nil {
		t.Fatalf("template.NewStore: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBot(testConfig(), slackClient, devopsClient, templates, logger)
}

// openedView is the decoded shape of a modal sent to views.open. The
// wire JSON is re-marshaled by the Slack client, so tests decode it
// instead of matching raw bytes.
type openedView struct {
	CallbackID string `json:"callback_id"`
	Blocks     []struct {
		BlockID string `json:"block_id"`
	} `json:"blocks"`
}

func (v openedView) hasBlock(blockID string) bool {
	for _, block := range v.Blocks {
		if block.BlockID == blockID {
			return true
		}
	}
	return false
}

func decodeView(t *testing.T, raw json.RawMessage) openedView {
	t.Helper()
	var view openedView
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("decoding opened view: %v", err)
	}
	return view
}

// supportSubmission builds the view submission for a filled support
// form.
func supportSubmission(userName, title, environment, infrastructure, product, description string) ViewSubmission {
	return ViewSubmission{
		CallbackID: "support",
		UserName:   userName,
		State: viewState{
			Values: map[string]map[string]blockValue{
				"title_block":          {"title": {Value: title}},
				"environment_block":    {"environment": {SelectedOption: &selectedOption{Value: environment}}},
				"infrastructure_block": {"infrastructure": {SelectedOption: &selectedOption{Value: infrastructure}}},
				"product_block":        {"product": {SelectedOption: &selectedOption{Value: product}}},
				"description_block":    {"description": {Value: description}},
			},
		},
	}
}

func TestHandleShortcut_OpensModal(t *testing.T) {
	slack := &fakeSlack{}
	bot := newTestBot(t, slack, &fakeBoard{})

	err := bot.HandleShortcut(context.Background(), ShortcutInvocation{
		CallbackID: "support",
		TriggerID:  "T1",
	})
	if err != nil {
		t.Fatalf("HandleShortcut: %v", err)
	}

	if len(slack.openedViews) != 1 {
		t.Fatalf("expected 1 opened view, got %d", len(slack.openedViews))
	}
	view := decodeView(t, slack.openedViews[0])
	if view.CallbackID != "support" {
		t.Errorf("opened view callback_id = %q, want %q", view.CallbackID, "support")
	}
	if !view.hasBlock("title_block") {
		t.Errorf("opened view missing title block: %+v", view)
	}
}

func TestHandleShortcut_UnknownCallback(t *testing.T) {
	slack := &fakeSlack{}
	bot := newTestBot(t, slack, &fakeBoard{})

	err := bot.HandleShortcut(context.Background(), ShortcutInvocation{
		CallbackID: "missing",
		TriggerID:  "T1",
	})
	if !errors.Is(err, config.ErrUnknownShortcut) {
		t.Fatalf("expected ErrUnknownShortcut, got: %v", err)
	}
	if len(slack.openedViews) != 0 {
		t.Errorf("expected no opened views, got %d", len(slack.openedViews))
	}
}

func TestHandleShortcut_ExpiredTrigger(t *testing.T) {
	slack := &fakeSlack{failViewsCode: messaging.ErrCodeExpiredTrigger}
	bot := newTestBot(t, slack, &fakeBoard{})

	// A trigger dead on arrival is not a bot failure: the invocation is
	// dropped without error.
	err := bot.HandleShortcut(context.Background(), ShortcutInvocation{
		CallbackID: "support",
		TriggerID:  "T1",
	})
	if err != nil {
		t.Fatalf("HandleShortcut: %v", err)
	}
	if len(slack.openedViews) != 0 {
		t.Errorf("expected no opened views, got %d", len(slack.openedViews))
	}
}

func TestHandleSubmission(t *testing.T) {
	slack := &fakeSlack{
		channels:  []messaging.Channel{{ID: "41", Name: "general"}, {ID: "42", Name: "ops-support"}},
		permalink: "https://acme.slack.com/archives/42/p100000001",
	}
	board := &fakeBoard{iterationPath: "Sprint 7"}
	bot := newTestBot(t, slack, board)

	submission := supportSubmission("alice", "DB down", "Production", "AWS", "Banco de Dados", `The "main" database is down`)
	if err := bot.HandleSubmission(context.Background(), submission); err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}

	posted := slack.postedMessages()
	if len(posted) != 3 {
		t.Fatalf("expected 3 posted messages (summary, SLA, confirmation), got %d", len(posted))
	}

	summary := posted[0]
	if summary.Channel != "42" {
		t.Errorf("summary channel = %q, want %q", summary.Channel, "42")
	}
	if summary.ThreadTimestamp != "" {
		t.Errorf("summary must be a thread root, got thread_ts %q", summary.ThreadTimestamp)
	}
	if !strings.Contains(summary.Text, "<@alice>") || !strings.Contains(summary.Text, "DB down") {
		t.Errorf("summary text = %q", summary.Text)
	}

	slaReply := posted[1]
	if slaReply.ThreadTimestamp != "100.000001" {
		t.Errorf("SLA reply thread_ts = %q, want %q", slaReply.ThreadTimestamp, "100.000001")
	}
	if !strings.Contains(string(slaReply.Blocks), "4 horas") {
		t.Errorf("SLA reply blocks = %s", slaReply.Blocks)
	}

	confirmation := posted[2]
	if confirmation.ThreadTimestamp != "100.000001" {
		t.Errorf("confirmation thread_ts = %q, want %q", confirmation.ThreadTimestamp, "100.000001")
	}
	if !strings.Contains(string(confirmation.Blocks), "#4711") {
		t.Errorf("confirmation blocks = %s", confirmation.Blocks)
	}

	documents := board.createdDocuments()
	if len(documents) != 1 {
		t.Fatalf("expected 1 created work item, got %d", len(documents))
	}
	var operations []struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(documents[0], &operations); err != nil {
		t.Fatalf("work item document is not a JSON patch array: %v", err)
	}
	fields := make(map[string]string)
	for _, operation := range operations {
		fields[operation.Path] = operation.Value
	}
	if fields["/fields/System.Title"] != "DB down" {
		t.Errorf("title field = %q", fields["/fields/System.Title"])
	}
	if got := fields["/fields/System.Description"]; !strings.Contains(got, "The 'main' database is down") {
		t.Errorf("description field did not replace double quotes: %q", got)
	}
	if got := fields["/fields/System.Description"]; !strings.Contains(got, slack.permalink) {
		t.Errorf("description field missing thread permalink: %q", got)
	}
	if fields["/fields/System.AreaPath"] != `Support\Infra` {
		t.Errorf("area path = %q, want %q", fields["/fields/System.AreaPath"], `Support\Infra`)
	}
	if fields["/fields/System.IterationPath"] != `Support\Sprint 7` {
		t.Errorf("iteration path = %q, want %q", fields["/fields/System.IterationPath"], `Support\Sprint 7`)
	}
}

func TestHandleSubmission_NotSubscribed(t *testing.T) {
	slack := &fakeSlack{
		channels: []messaging.Channel{{ID: "41", Name: "general"}},
	}
	board := &fakeBoard{iterationPath: "Sprint 7"}
	bot := newTestBot(t, slack, board)

	submission := supportSubmission("alice", "DB down", "Production", "AWS", "Banco de Dados", "down")
	err := bot.HandleSubmission(context.Background(), submission)
	if !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got: %v", err)
	}
	if len(slack.postedMessages()) != 0 {
		t.Errorf("expected no posted messages, got %d", len(slack.postedMessages()))
	}
	if len(board.createdDocuments()) != 0 {
		t.Errorf("expected no work items, got %d", len(board.createdDocuments()))
	}
}

func TestHandleSubmission_BoardFailureKeepsThread(t *testing.T) {
	slack := &fakeSlack{
		channels:  []messaging.Channel{{ID: "42", Name: "ops-support"}},
		permalink: "https://acme.slack.com/archives/42/p100000001",
	}
	board := &fakeBoard{iterationPath: "Sprint 7", failCreates: true}
	bot := newTestBot(t, slack, board)

	submission := supportSubmission("alice", "DB down", "Production", "AWS", "Banco de Dados", "down")
	if err := bot.HandleSubmission(context.Background(), submission); err != nil {
		t.Fatalf("board failure must not escape the handler, got: %v", err)
	}

	// Summary and SLA reply stand; no confirmation post.
	posted := slack.postedMessages()
	if len(posted) != 2 {
		t.Fatalf("expected 2 posted messages (summary, SLA), got %d", len(posted))
	}
	if !strings.Contains(string(posted[1].Blocks), "4 horas") {
		t.Errorf("SLA reply blocks = %s", posted[1].Blocks)
	}
}

func TestHandleSubmission_UnknownEnvironmentSkipsSLA(t *testing.T) {
	slack := &fakeSlack{
		channels:  []messaging.Channel{{ID: "42", Name: "ops-support"}},
		permalink: "https://acme.slack.com/archives/42/p100000001",
	}
	board := &fakeBoard{iterationPath: "Sprint 7"}
	bot := newTestBot(t, slack, board)

	// The submission template only offers Production and N-Production,
	// but the SLA table is config: a drifted config must not crash or
	// silently promise a default SLA.
	submission := supportSubmission("alice", "DB down", "Staging", "AWS", "Banco de Dados", "down")
	if err := bot.HandleSubmission(context.Background(), submission); err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}

	posted := slack.postedMessages()
	if len(posted) != 2 {
		t.Fatalf("expected 2 posted messages (summary, confirmation), got %d", len(posted))
	}
	for _, message := range posted {
		if strings.Contains(message.Text, "SLA") {
			t.Errorf("no SLA reply expected, got: %q", message.Text)
		}
	}
	if len(board.createdDocuments()) != 1 {
		t.Errorf("work item should still be created, got %d", len(board.createdDocuments()))
	}
}

func TestHandleSubmission_IterationOverride(t *testing.T) {
	slack := &fakeSlack{
		channels:  []messaging.Channel{{ID: "42", Name: "ops-support"}},
		permalink: "https://acme.slack.com/archives/42/p100000001",
	}
	board := &fakeBoard{iterationPath: "Sprint 7"}
	bot := newTestBot(t, slack, board)
	shortcut := bot.config.Shortcuts["support"]
	shortcut.WorkItemIterationPath = `Support\Hotfix`
	bot.config.Shortcuts["support"] = shortcut

	submission := supportSubmission("alice", "DB down", "Production", "AWS", "Banco de Dados", "down")
	if err := bot.HandleSubmission(context.Background(), submission); err != nil {
		t.Fatalf("HandleSubmission: %v", err)
	}

	documents := board.createdDocuments()
	if len(documents) != 1 {
		t.Fatalf("expected 1 created work item, got %d", len(documents))
	}
	if !strings.Contains(string(documents[0]), `Support\\Hotfix`) {
		t.Errorf("configured iteration override not used: %s", documents[0])
	}
}

func TestHandleReaction(t *testing.T) {
	slack := &fakeSlack{
		replies: []messaging.Message{
			{Timestamp: "100.000001", ThreadTimestamp: "100.000001"},
			{Timestamp: "100.000500", ThreadTimestamp: "100.000001"},
		},
	}
	bot := newTestBot(t, slack, &fakeBoard{})

	// React on a reply; the ack must land under the thread root.
	err := bot.HandleReaction(context.Background(), ReactionEvent{
		Reaction:         "eyes",
		UserID:           "U1",
		Channel:          "42",
		MessageTimestamp: "100.000500",
	})
	if err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}

	posted := slack.postedMessages()
	if len(posted) != 1 {
		t.Fatalf("expected 1 posted message, got %d", len(posted))
	}
	if posted[0].ThreadTimestamp != "100.000001" {
		t.Errorf("ack thread_ts = %q, want thread root %q", posted[0].ThreadTimestamp, "100.000001")
	}
	var blocks []messaging.Block
	if err := json.Unmarshal(posted[0].Blocks, &blocks); err != nil {
		t.Fatalf("decoding ack blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text == nil || !strings.Contains(blocks[0].Text.Text, "<@U1>") {
		t.Errorf("ack blocks = %s", posted[0].Blocks)
	}
}

func TestHandleReaction_IgnoresOtherReactions(t *testing.T) {
	slack := &fakeSlack{}
	bot := newTestBot(t, slack, &fakeBoard{})

	err := bot.HandleReaction(context.Background(), ReactionEvent{
		Reaction:         "thumbsup",
		UserID:           "U1",
		Channel:          "42",
		MessageTimestamp: "100.000500",
	})
	if err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}
	if len(slack.postedMessages()) != 0 {
		t.Errorf("expected no posted messages, got %d", len(slack.postedMessages()))
	}
}

func TestHandleReaction_MessageDeleted(t *testing.T) {
	slack := &fakeSlack{failRepliesCode: messaging.ErrCodeMessageNotFound}
	bot := newTestBot(t, slack, &fakeBoard{})

	// The reacted message was deleted before the event arrived; there is
	// no thread to acknowledge and no error to surface.
	err := bot.HandleReaction(context.Background(), ReactionEvent{
		Reaction:         "eyes",
		UserID:           "U1",
		Channel:          "42",
		MessageTimestamp: "100.000500",
	})
	if err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}
	if len(slack.postedMessages()) != 0 {
		t.Errorf("expected no posted messages, got %d", len(slack.postedMessages()))
	}
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		event     MessageEvent
		wantNudge bool
	}{
		{
			name:      "unthreaded message in support channel",
			event:     MessageEvent{Channel: "42", User: "U1", Text: "help"},
			wantNudge: true,
		},
		{
			name:      "thread reply",
			event:     MessageEvent{Channel: "42", User: "U1", Text: "help", ThreadTimestamp: "100.000001"},
			wantNudge: false,
		},
		{
			name:      "bot message subtype",
			event:     MessageEvent{Channel: "42", Subtype: "bot_message"},
			wantNudge: false,
		},
		{
			name:      "channel join subtype",
			event:     MessageEvent{Channel: "42", User: "U1", Subtype: "channel_join"},
			wantNudge: false,
		},
		{
			name:      "channel without configured shortcut",
			event:     MessageEvent{Channel: "41", User: "U1", Text: "hello"},
			wantNudge: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			slack := &fakeSlack{
				channels: []messaging.Channel{{ID: "41", Name: "general"}, {ID: "42", Name: "ops-support"}},
			}
			bot := newTestBot(t, slack, &fakeBoard{})

			if err := bot.HandleMessage(context.Background(), test.event); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}

			posted := slack.postedMessages()
			if test.wantNudge {
				if len(posted) != 1 {
					t.Fatalf("expected 1 nudge, got %d", len(posted))
				}
				if !strings.Contains(posted[0].Text, "*/support*") {
					t.Errorf("nudge text = %q", posted[0].Text)
				}
			} else if len(posted) != 0 {
				t.Errorf("expected no posts, got %d", len(posted))
			}
		})
	}
}

func TestHandleMessage_BotRemovedFromChannel(t *testing.T) {
	slack := &fakeSlack{
		channels:     []messaging.Channel{{ID: "42", Name: "ops-support"}},
		failPostCode: messaging.ErrCodeNotInChannel,
	}
	bot := newTestBot(t, slack, &fakeBoard{})

	// The bot was kicked between the membership lookup and the post; the
	// best-effort nudge is dropped silently.
	err := bot.HandleMessage(context.Background(), MessageEvent{
		Channel: "42", User: "U1", Text: "help",
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(slack.postedMessages()) != 0 {
		t.Errorf("expected no posted messages, got %d", len(slack.postedMessages()))
	}
}
