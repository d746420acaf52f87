package tools

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/clarahexa/clarabot/internal/config"
	"github.com/clarahexa/clarabot/internal/gemini"
	"github.com/clarahexa/clarabot/internal/intent"
)

// AckSender is the slice of the messaging client the dispatcher needs for
// the early acknowledgment before long-running form work.
type AckSender interface {
	SendText(ctx context.Context, chatID, text, replyTo string, mentions []string) error
}

// Dispatcher routes a classified message to its tool. Clarification and
// acknowledgment are answered inline without a tool; form creation and
// updates get a best-effort "working on it" message before the tool runs.
type Dispatcher struct {
	registry *Registry
	ai       gemini.Client
	sender   AckSender
	messages config.BotMessages
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(registry *Registry, ai gemini.Client, sender AckSender, messages config.BotMessages, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		ai:       ai,
		sender:   sender,
		messages: messages,
		log:      log.With("component", "dispatcher"),
	}
}

// Dispatch executes the handler for the intent and returns its response.
func (d *Dispatcher) Dispatch(ctx context.Context, tag intent.Intent, query string, tc Context) Response {
	switch tag {
	case intent.Clarification:
		return d.clarify(ctx, query, tc)
	case intent.Acknowledgment:
		return Response{
			Success: true,
			Reply:   d.messages.Acknowledgments[rand.Intn(len(d.messages.Acknowledgments))],
		}
	}

	tool, ok := d.registry.Get(tag)
	if !ok {
		// Unknown is always registered; this covers a registry wired by hand
		// in tests.
		tool, ok = d.registry.Get(intent.Unknown)
		if !ok {
			d.log.ErrorContext(ctx, "No tool registered for intent and no fallback", "intent", tag)
			return Response{Success: false, Reply: d.messages.GeneralError}
		}
	}

	if tag == intent.CreateForm || tag == intent.UpdateForm {
		d.sendAcknowledgment(ctx, query, tc)
	}

	d.log.InfoContext(ctx, "Dispatching to tool", "intent", tag, "tool", tool.Name())
	return tool.Execute(ctx, query, tc)
}

// clarify answers inline from the last bot response held in session state.
func (d *Dispatcher) clarify(ctx context.Context, query string, tc Context) Response {
	lastBotResponse := stateString(tc.State, "lastBotResponse")
	lastFormTitle := ""
	if stateString(tc.State, "lastFormId") != "" {
		lastFormTitle = stateString(tc.State, "lastFormTitle")
		if lastFormTitle == "" {
			lastFormTitle = "Form terbaru"
		}
	}

	reply, err := d.ai.GenerateText(ctx, "", gemini.ClarificationPrompt(query, lastBotResponse, lastFormTitle))
	if err != nil || strings.TrimSpace(reply) == "" {
		d.log.WarnContext(ctx, "Clarification generation failed, using fallback", "error", err)
		return Response{Success: true, Reply: d.messages.ClarifyFallback}
	}
	return Response{Success: true, Reply: strings.TrimSpace(reply)}
}

// sendAcknowledgment tells the user their form request is being worked on.
// Fire and forget: failures are logged, never propagated.
func (d *Dispatcher) sendAcknowledgment(ctx context.Context, query string, tc Context) {
	name := tc.SenderName
	if name == "." {
		name = ""
	}

	text, err := d.ai.GenerateText(ctx, "", gemini.AcknowledgmentPrompt(name, query))
	if err != nil || strings.TrimSpace(text) == "" {
		d.log.WarnContext(ctx, "Acknowledgment generation failed, using fallback", "error", err)
		text = d.messages.AckFallback
	}

	if err := d.sender.SendText(ctx, tc.ChatID, strings.TrimSpace(text), tc.MessageID, nil); err != nil {
		d.log.WarnContext(ctx, "Acknowledgment send failed", "chat_id", tc.ChatID, "error", err)
	}
}
