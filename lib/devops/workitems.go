// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// patchContentType is the media type Azure DevOps requires for work
// item create and update requests (JSON Patch documents).
const patchContentType = "application/json-patch+json"

// workItemResponse is the wire shape of a created or updated work
// item. Only the fields the bot consumes are declared.
type workItemResponse struct {
	ID    int `json:"id"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"_links"`
}

// CreateWorkItem creates a work item of the given type in a project.
// The document must be a JSON Patch array of add operations (as
// produced by rendering a board template). Creation is never retried:
// a retry after an ambiguous failure could file the same ticket twice.
func (client *Client) CreateWorkItem(ctx context.Context, project, workItemType string, document json.RawMessage) (*WorkItem, error) {
	if project == "" {
		return nil, fmt.Errorf("devops: project is required")
	}
	if workItemType == "" {
		return nil, fmt.Errorf("devops: workItemType is required")
	}
	if len(document) == 0 {
		return nil, fmt.Errorf("devops: document is required")
	}

	path := "/" + url.PathEscape(project) + "/_apis/wit/workitems/$" + url.PathEscape(workItemType) + "?api-version=6.1-preview.3"
	body, err := client.do(ctx, http.MethodPost, path, patchContentType, document)
	if err != nil {
		return nil, fmt.Errorf("creating %s work item in %s: %w", workItemType, project, err)
	}
	return client.parseWorkItem(project, body)
}

// UpdateWorkItem applies a JSON Patch document to an existing work
// item. Like creation, updates are never retried.
func (client *Client) UpdateWorkItem(ctx context.Context, project string, id int, document json.RawMessage) (*WorkItem, error) {
	if project == "" {
		return nil, fmt.Errorf("devops: project is required")
	}
	if id <= 0 {
		return nil, fmt.Errorf("devops: work item id must be positive (got %d)", id)
	}
	if len(document) == 0 {
		return nil, fmt.Errorf("devops: document is required")
	}

	path := fmt.Sprintf("/%s/_apis/wit/workitems/%d?api-version=6.1-preview.3", url.PathEscape(project), id)
	body, err := client.do(ctx, http.MethodPatch, path, patchContentType, document)
	if err != nil {
		return nil, fmt.Errorf("updating work item %d in %s: %w", id, project, err)
	}
	return client.parseWorkItem(project, body)
}

// parseWorkItem decodes a work item response, synthesizing the edit
// page URL when the response omits the html link.
func (client *Client) parseWorkItem(project string, body []byte) (*WorkItem, error) {
	var response workItemResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("devops: parsing work item response: %w", err)
	}
	if response.ID == 0 {
		return nil, fmt.Errorf("devops: work item response missing id")
	}

	itemURL := response.Links.HTML.Href
	if itemURL == "" {
		itemURL = fmt.Sprintf("%s/%s/_workitems/edit/%d", client.baseURL, url.PathEscape(project), response.ID)
	}

	return &WorkItem{ID: response.ID, URL: itemURL}, nil
}
