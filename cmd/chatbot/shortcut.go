// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/phsmith/slack-chatbot/lib/config"
	"github.com/phsmith/slack-chatbot/messaging"
)

// The modal form uses fixed block and action IDs. The shipped view
// templates must use these IDs for the submission parser to find the
// inputs.
const (
	titleBlockID          = "title_block"
	titleActionID         = "title"
	environmentBlockID    = "environment_block"
	environmentActionID   = "environment"
	infrastructureBlockID = "infrastructure_block"
	infrastructureAction  = "infrastructure"
	productBlockID        = "product_block"
	productActionID       = "product"
	descriptionBlockID    = "description_block"
	descriptionActionID   = "description"
)

// ShortcutInvocation is a global shortcut trigger: the user asked for
// the form, and the trigger ID is the short-lived token that lets the
// bot open a modal in response.
type ShortcutInvocation struct {
	CallbackID string
	TriggerID  string
}

// ViewSubmission is a completed modal form.
type ViewSubmission struct {
	CallbackID string
	UserName   string
	State      viewState
}

// SubmissionForm is the parsed support request.
type SubmissionForm struct {
	Title          string
	Environment    string
	Infrastructure string
	Product        string
	Description    string
	Requester      string
}

// HandleShortcut opens the configured modal form for a shortcut
// invocation. An unknown callback ID is a configuration error: it is
// logged and the invocation is dropped without opening anything.
func (b *Bot) HandleShortcut(ctx context.Context, invocation ShortcutInvocation) error {
	shortcut, err := b.config.Resolve(invocation.CallbackID)
	if err != nil {
		return err
	}

	view, err := b.templates.Render(shortcut.SubmissionTemplatePath, nil)
	if err != nil {
		return fmt.Errorf("rendering submission form for %q: %w", invocation.CallbackID, err)
	}

	if err := b.slack.OpenView(ctx, invocation.TriggerID, view); err != nil {
		// Trigger IDs expire after three seconds. A slow delivery or a
		// Slack retry arrives with a dead trigger; nothing can be done
		// for that invocation.
		if messaging.IsSlackError(err, messaging.ErrCodeExpiredTrigger) ||
			messaging.IsSlackError(err, messaging.ErrCodeInvalidTrigger) {
			b.logger.Warn("shortcut trigger no longer valid, form not opened",
				"shortcut", invocation.CallbackID,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("opening submission form for %q: %w", invocation.CallbackID, err)
	}
	return nil
}

// HandleSubmission runs a completed support form through the full
// workflow: announce the request in the target channel, reply with the
// SLA commitment, and file a work item on the board.
//
// The chat posts and the board filing are deliberately decoupled: once
// the summary is posted, a board failure is logged and swallowed so
// the thread stands and the team can triage by hand. Failures before
// the summary post abort the whole submission.
func (b *Bot) HandleSubmission(ctx context.Context, submission ViewSubmission) error {
	shortcut, err := b.config.Resolve(submission.CallbackID)
	if err != nil {
		return err
	}

	form, err := parseSubmissionForm(submission)
	if err != nil {
		return fmt.Errorf("parsing submission for %q: %w", submission.CallbackID, err)
	}

	channel, err := b.memberChannel(ctx, shortcut.TargetChannelName)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf(
		"*Solicitante:* <@%s>\n"+
			"*Resumo da Solicitação:* %s\n"+
			"*Ambiente:* %s\n"+
			"*Infraestrutura:* %s\n"+
			"*Produto ou Serviço:* %s\n"+
			"*Informações Complementares:* %s",
		form.Requester, form.Title, form.Environment,
		form.Infrastructure, form.Product, form.Description,
	)
	rootMessage, err := b.slack.PostMessage(ctx, messaging.MessageRequest{
		Channel: channel.ID,
		Text:    summary,
	})
	if err != nil {
		return fmt.Errorf("posting submission summary to #%s: %w", channel.Name, err)
	}

	b.logger.Info("support request announced",
		"shortcut", submission.CallbackID,
		"channel", channel.Name,
		"requester", form.Requester,
		"thread", rootMessage.Timestamp,
	)

	b.postSLAReply(ctx, shortcut, channel, rootMessage, form.Environment)
	b.fileWorkItem(ctx, submission.CallbackID, shortcut, channel, rootMessage, form)
	return nil
}

// postSLAReply posts the response-time commitment under the thread
// root. An environment missing from the SLA table is a configuration
// gap: it is reported and the reply is skipped, but the submission
// continues.
func (b *Bot) postSLAReply(ctx context.Context, shortcut config.ShortcutConfig, channel messaging.Channel, root messaging.PostedMessage, environment string) {
	sla, ok := shortcut.SLA[environment]
	if !ok {
		b.logger.Error("no SLA configured for environment",
			"environment", environment,
			"channel", channel.Name,
		)
		return
	}

	text := fmt.Sprintf(":eyes: O time está de olho e logo irá responder...\nO SLA de Atendimento é de *%s*.", sla)
	fallback := fmt.Sprintf("O time está de olho e logo irá responder... O SLA de Atendimento é de %s.", sla)
	_, err := b.slack.PostMessage(ctx, messaging.MessageRequest{
		Channel:         channel.ID,
		Text:            fallback,
		Blocks:          messaging.SectionBlock(text),
		ThreadTimestamp: root.Timestamp,
	})
	if err != nil {
		b.logger.Error("posting SLA reply failed",
			"channel", channel.Name,
			"thread", root.Timestamp,
			"error", err,
		)
	}
}

// fileWorkItem creates the board work item for a submission and posts
// the confirmation under the thread root. Every failure is logged and
// swallowed: the chat thread already stands and must not be disturbed.
func (b *Bot) fileWorkItem(ctx context.Context, callbackID string, shortcut config.ShortcutConfig, channel messaging.Channel, root messaging.PostedMessage, form SubmissionForm) {
	permalink, err := b.slack.GetPermalink(ctx, channel.ID, root.Timestamp)
	if err != nil {
		b.logger.Error("fetching thread permalink failed",
			"channel", channel.Name,
			"thread", root.Timestamp,
			"error", err,
		)
		return
	}

	iterationPath, err := b.iterationPath(ctx, shortcut)
	if err != nil {
		b.logger.Error("resolving iteration path failed, work item not created",
			"shortcut", callbackID,
			"project", shortcut.ProjectName,
			"error", err,
		)
		return
	}

	description := fmt.Sprintf(
		"<b>Solicitante:</b> %s<br/><b>Referência:</b> <a href='%s'>Link da thread</a><br/><br/>%s",
		form.Requester, permalink, form.Description,
	)
	document, err := b.templates.Render(shortcut.BoardTemplatePath, map[string]string{
		"title":          form.Title,
		"description":    description,
		"environment":    form.Environment,
		"infrastructure": form.Infrastructure,
		"product":        form.Product,
		"area_path":      shortcut.AreaPath(),
		"iteration_path": iterationPath,
	})
	if err != nil {
		b.logger.Error("rendering board template failed, work item not created",
			"shortcut", callbackID,
			"template", shortcut.BoardTemplatePath,
			"error", err,
		)
		return
	}

	workItem, err := b.devops.CreateWorkItem(ctx, shortcut.ProjectName, shortcut.WorkItemType, document)
	if err != nil {
		b.logger.Error("creating board work item failed",
			"shortcut", callbackID,
			"project", shortcut.ProjectName,
			"board", shortcut.BoardName,
			"error", err,
		)
		return
	}

	b.logger.Info("board work item created",
		"shortcut", callbackID,
		"project", shortcut.ProjectName,
		"work_item", workItem.ID,
	)

	confirmation := fmt.Sprintf(":azure_board: O seguinte card de suporte foi criado: <%s|#%d>", workItem.URL, workItem.ID)
	fallback := fmt.Sprintf("O seguinte card de suporte foi criado: <%s|#%d>", workItem.URL, workItem.ID)
	_, err = b.slack.PostMessage(ctx, messaging.MessageRequest{
		Channel:         channel.ID,
		Text:            fallback,
		Blocks:          messaging.SectionBlock(confirmation),
		ThreadTimestamp: root.Timestamp,
	})
	if err != nil {
		b.logger.Error("posting work item confirmation failed",
			"channel", channel.Name,
			"thread", root.Timestamp,
			"work_item", workItem.ID,
			"error", err,
		)
	}
}

// iterationPath returns the iteration path for created work items: the
// configured override when set, otherwise the project's current
// default iteration from team settings.
func (b *Bot) iterationPath(ctx context.Context, shortcut config.ShortcutConfig) (string, error) {
	if shortcut.WorkItemIterationPath != "" {
		return shortcut.WorkItemIterationPath, nil
	}
	settings, err := b.devops.GetTeamSettings(ctx, shortcut.ProjectName)
	if err != nil {
		return "", err
	}
	if settings.DefaultIteration.Path == "" {
		return "", fmt.Errorf("project %s has no default iteration and no iteration override is configured", shortcut.ProjectName)
	}
	return shortcut.ProjectName + `\` + settings.DefaultIteration.Path, nil
}

// parseSubmissionForm extracts the support request from the submitted
// view state. Double quotes in the free-text fields are replaced with
// single quotes: the values are interpolated into an HTML board
// document downstream.
func parseSubmissionForm(submission ViewSubmission) (SubmissionForm, error) {
	form := SubmissionForm{
		Title:          strings.ReplaceAll(submission.State.get(titleBlockID, titleActionID), `"`, "'"),
		Environment:    submission.State.get(environmentBlockID, environmentActionID),
		Infrastructure: submission.State.get(infrastructureBlockID, infrastructureAction),
		Product:        submission.State.get(productBlockID, productActionID),
		Description:    strings.ReplaceAll(submission.State.get(descriptionBlockID, descriptionActionID), `"`, "'"),
		Requester:      submission.UserName,
	}
	if form.Title == "" {
		return SubmissionForm{}, fmt.Errorf("missing %s/%s value", titleBlockID, titleActionID)
	}
	if form.Environment == "" {
		return SubmissionForm{}, fmt.Errorf("missing %s/%s value", environmentBlockID, environmentActionID)
	}
	return form, nil
}
