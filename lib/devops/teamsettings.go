// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// GetTeamSettings fetches the settings of a project's default team,
// including the current default iteration. The read is idempotent and
// is retried once on transient failure.
func (client *Client) GetTeamSettings(ctx context.Context, project string) (*TeamSettings, error) {
	if project == "" {
		return nil, fmt.Errorf("devops: project is required")
	}

	path := "/" + url.PathEscape(project) + "/_apis/work/teamsettings?api-version=6.1-preview.1"
	body, err := client.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching team settings for %s: %w", project, err)
	}

	var settings TeamSettings
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, fmt.Errorf("devops: parsing team settings response: %w", err)
	}
	return &settings, nil
}
