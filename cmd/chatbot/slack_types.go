// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "encoding/json"

// eventEnvelope is the outer shape of a JSON request to the events
// endpoint. Slack multiplexes the URL-verification handshake and
// event deliveries over the same endpoint, distinguished by Type.
type eventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// innerEvent is the union of the event_callback payloads the bot
// consumes: message and reaction_added. Only the fields the workflows
// read are declared.
type innerEvent struct {
	Type string `json:"type"`

	// message fields.
	Channel         string `json:"channel"`
	User            string `json:"user"`
	Text            string `json:"text"`
	ThreadTimestamp string `json:"thread_ts"`
	Subtype         string `json:"subtype"`

	// reaction_added fields.
	Reaction string       `json:"reaction"`
	Item     reactionItem `json:"item"`
}

// reactionItem identifies the message a reaction was added to.
type reactionItem struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// interactionPayload is the form-encoded "payload" of an interactive
// request: a shortcut invocation or a modal view submission.
type interactionPayload struct {
	Type       string           `json:"type"`
	CallbackID string           `json:"callback_id"`
	TriggerID  string           `json:"trigger_id"`
	User       interactionUser  `json:"user"`
	View       *interactionView `json:"view,omitempty"`
}

type interactionUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// interactionView carries the modal's callback ID (which routes the
// submission back to its shortcut configuration) and the submitted
// form state.
type interactionView struct {
	CallbackID string    `json:"callback_id"`
	State      viewState `json:"state"`
}

// viewState maps block ID to action ID to the submitted value.
type viewState struct {
	Values map[string]map[string]blockValue `json:"values"`
}

// blockValue is one submitted form input: plain text inputs populate
// Value, static selects populate SelectedOption.
type blockValue struct {
	Value          string          `json:"value"`
	SelectedOption *selectedOption `json:"selected_option,omitempty"`
}

type selectedOption struct {
	Value string `json:"value"`
}

// get returns the submitted value at block/action, preferring the
// selected option for select inputs.
func (s viewState) get(blockID, actionID string) string {
	value, ok := s.Values[blockID][actionID]
	if !ok {
		return ""
	}
	if value.SelectedOption != nil {
		return value.SelectedOption.Value
	}
	return value.Value
}
