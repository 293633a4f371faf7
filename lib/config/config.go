// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownShortcut is returned (wrapped) by Resolve when a shortcut
// callback ID has no configuration entry. This is a configuration
// error, not a transient failure: callers must not run the workflow
// and must not retry.
var ErrUnknownShortcut = errors.New("unknown shortcut")

// Config is the full chatbot configuration. Loaded once at startup and
// never mutated afterwards; components receive it (or a sub-struct) by
// value injection, never via package-level lookup.
type Config struct {
	// ListenAddress is the HTTP listen address for the Slack events
	// endpoint (e.g., ":5000", "127.0.0.1:5000").
	ListenAddress string `yaml:"listen_address"`

	// TemplatesDir is the root directory for JSONC document templates.
	// Template paths in ShortcutConfig are relative to this directory.
	TemplatesDir string `yaml:"templates_dir"`

	// Slack holds the Slack app credentials.
	Slack SlackConfig `yaml:"slack"`

	// DevOps holds the Azure DevOps organization coordinates.
	DevOps DevOpsConfig `yaml:"devops"`

	// Shortcuts maps Slack shortcut callback IDs (e.g., "support") to
	// their per-team settings.
	Shortcuts map[string]ShortcutConfig `yaml:"shortcuts"`
}

// SlackConfig holds Slack app credentials. Both fields support ${VAR}
// expansion so the secrets can be supplied via the environment.
type SlackConfig struct {
	// BotToken is the bot user OAuth token (xoxb-...).
	BotToken string `yaml:"bot_token"`

	// SigningSecret verifies inbound request signatures.
	SigningSecret string `yaml:"signing_secret"`
}

// DevOpsConfig holds the Azure DevOps organization coordinates. The
// access token supports ${VAR} expansion.
type DevOpsConfig struct {
	// OrganizationURL is the Azure DevOps organization base URL
	// (e.g., "https://dev.azure.com/acme"). Must use HTTPS.
	OrganizationURL string `yaml:"organization_url"`

	// AccessToken is the personal access token used for all board
	// operations.
	AccessToken string `yaml:"access_token"`
}

// ShortcutConfig holds the per-shortcut settings: where submissions are
// announced in Slack and where the tracked work item is created in
// Azure DevOps. Immutable after load.
type ShortcutConfig struct {
	// BoardName identifies the Azure Boards board, for operator
	// reference and logging.
	BoardName string `yaml:"board_name"`

	// BoardTemplatePath is the JSONC work item document template,
	// relative to TemplatesDir.
	BoardTemplatePath string `yaml:"board_template"`

	// ProjectName is the Azure DevOps project the work item is
	// created in.
	ProjectName string `yaml:"project"`

	// WorkItemType is the work item type (e.g., "Support").
	WorkItemType string `yaml:"work_item_type"`

	// WorkItemAreaPath is the area path suffix appended to the
	// project name (e.g., `\Infrastructure`). May be empty.
	WorkItemAreaPath string `yaml:"work_item_area"`

	// WorkItemIterationPath, when set, overrides the team's default
	// iteration for created work items.
	WorkItemIterationPath string `yaml:"work_item_iteration"`

	// SLA maps submission environment values (exact match) to the
	// response-time commitment shown to the requester. An environment
	// missing from this table is a reportable error, never a silent
	// default.
	SLA map[string]string `yaml:"sla"`

	// TargetChannelName is the Slack channel (by name, without '#')
	// the submission thread is posted to. The bot must be a member.
	TargetChannelName string `yaml:"channel"`

	// SubmissionTemplatePath is the JSONC modal view template,
	// relative to TemplatesDir.
	SubmissionTemplatePath string `yaml:"submission_template"`
}

// AreaPath returns the full work item area path: the project name with
// the configured area suffix appended (the suffix starts with a
// backslash when set).
func (s ShortcutConfig) AreaPath() string {
	return s.ProjectName + s.WorkItemAreaPath
}

// Load loads configuration from the path in the CHATBOT_CONFIG
// environment variable. There are no fallbacks or defaults - if
// CHATBOT_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("CHATBOT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CHATBOT_CONFIG environment variable not set; " +
			"set it to the path of your chatbot.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is
// ${VAR} / ${VAR:-default} on the three secret-bearing fields, so
// tokens can be injected without writing them to disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		ListenAddress: ":5000",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve looks up the configuration for a shortcut callback ID.
// Returns an error wrapping ErrUnknownShortcut when no entry exists.
func (c *Config) Resolve(shortcutID string) (ShortcutConfig, error) {
	shortcut, ok := c.Shortcuts[shortcutID]
	if !ok {
		return ShortcutConfig{}, fmt.Errorf("%w: %q", ErrUnknownShortcut, shortcutID)
	}
	return shortcut, nil
}

// ShortcutsForChannel returns the callback IDs of every shortcut that
// targets the named channel, sorted. The message nudge workflow uses
// this to tell channel members which commands are available.
func (c *Config) ShortcutsForChannel(channelName string) []string {
	var ids []string
	for id, shortcut := range c.Shortcuts {
		if shortcut.TargetChannelName == channelName {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// expandVariables expands ${VAR} patterns in the secret-bearing fields.
func (c *Config) expandVariables() {
	c.Slack.BotToken = expandVars(c.Slack.BotToken)
	c.Slack.SigningSecret = expandVars(c.Slack.SigningSecret)
	c.DevOps.AccessToken = expandVars(c.DevOps.AccessToken)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks that the configuration is complete enough to run:
// credentials present, and every shortcut resolvable to a target
// channel, templates, and board coordinates.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddress == "" {
		errs = append(errs, fmt.Errorf("listen_address is required"))
	}
	if c.TemplatesDir == "" {
		errs = append(errs, fmt.Errorf("templates_dir is required"))
	}
	if c.Slack.BotToken == "" {
		errs = append(errs, fmt.Errorf("slack.bot_token is required"))
	}
	if c.Slack.SigningSecret == "" {
		errs = append(errs, fmt.Errorf("slack.signing_secret is required"))
	}
	if c.DevOps.OrganizationURL == "" {
		errs = append(errs, fmt.Errorf("devops.organization_url is required"))
	} else if !strings.HasPrefix(c.DevOps.OrganizationURL, "https://") {
		errs = append(errs, fmt.Errorf("devops.organization_url must use HTTPS (got %q)", c.DevOps.OrganizationURL))
	}
	if c.DevOps.AccessToken == "" {
		errs = append(errs, fmt.Errorf("devops.access_token is required"))
	}

	for id, shortcut := range c.Shortcuts {
		if shortcut.TargetChannelName == "" {
			errs = append(errs, fmt.Errorf("shortcuts.%s: channel is required", id))
		}
		if shortcut.SubmissionTemplatePath == "" {
			errs = append(errs, fmt.Errorf("shortcuts.%s: submission_template is required", id))
		}
		if shortcut.BoardTemplatePath == "" {
			errs = append(errs, fmt.Errorf("shortcuts.%s: board_template is required", id))
		}
		if shortcut.ProjectName == "" {
			errs = append(errs, fmt.Errorf("shortcuts.%s: project is required", id))
		}
		if shortcut.WorkItemType == "" {
			errs = append(errs, fmt.Errorf("shortcuts.%s: work_item_type is required", id))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
