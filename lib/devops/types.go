// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devops

// TeamSettings is the subset of a team's settings the bot consumes:
// the current default iteration, used to place new work items on the
// board's active sprint.
type TeamSettings struct {
	DefaultIteration Iteration `json:"defaultIteration"`
}

// Iteration identifies a sprint on a board.
type Iteration struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// WorkItem is a created or updated work item. URL is the human-facing
// edit page for the item, suitable for posting back into chat.
type WorkItem struct {
	ID  int
	URL string
}
