package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/clarahexa/clarabot/internal/database"
	"github.com/clarahexa/clarabot/internal/intent"
	"github.com/clarahexa/clarabot/internal/session"
	"github.com/clarahexa/clarabot/internal/tools"
	"github.com/clarahexa/clarabot/internal/webhook"
)

// lastResponseCap bounds the lastBotResponse snippet kept in session state
// for the clarification handler.
const lastResponseCap = 500

// suggestionTail strips the bot's own "try typing ..." coaching from a quoted
// reply so the model does not treat it as user content.
var suggestionTail = regexp.MustCompile(`(?is)(coba ketik|try typing):.*$`)

type normalizer interface {
	Normalize(ctx context.Context, body []byte) (*webhook.Message, *webhook.Drop)
}

type classifier interface {
	Classify(ctx context.Context, message string) intent.Intent
}

type dispatcher interface {
	Dispatch(ctx context.Context, tag intent.Intent, query string, tc tools.Context) tools.Response
}

type sessionStore interface {
	Get(ctx context.Context, chatID string) (*database.Session, error)
	Create(ctx context.Context, chatID string) (*database.Session, error)
	UpdateState(ctx context.Context, chatID string, delta map[string]any) (*database.Session, error)
	AppendConversation(ctx context.Context, chatID, role, content string) error
}

type replySender interface {
	SendText(ctx context.Context, chatID, text, replyTo string, mentions []string) error
}

// Pipeline is the end-to-end webhook handler: normalize, classify, dispatch,
// persist, reply.
type Pipeline struct {
	normalizer normalizer
	sessions   sessionStore
	classifier classifier
	dispatcher dispatcher
	sender     replySender
	log        *slog.Logger
}

// NewPipeline wires the message pipeline.
func NewPipeline(n normalizer, sessions sessionStore, c classifier, d dispatcher, sender replySender, log *slog.Logger) *Pipeline {
	return &Pipeline{
		normalizer: n,
		sessions:   sessions,
		classifier: c,
		dispatcher: d,
		sender:     sender,
		log:        log.With("component", "pipeline"),
	}
}

// HandleWebhook processes one delivery. Drops answer with their gate reason;
// internal failures answer a generic error so gateway logs never carry
// internals.
func (p *Pipeline) HandleWebhook(ctx context.Context, body []byte) (webhook.Result, int) {
	msg, drop := p.normalizer.Normalize(ctx, body)
	if drop != nil {
		status := "ignored"
		if drop.Status >= http.StatusBadRequest {
			status = "error"
		}
		return webhook.Result{Status: status, Reason: drop.Reason}, drop.Status
	}

	sess, err := p.ensureSession(ctx, msg.ChatID)
	if err != nil {
		p.log.ErrorContext(ctx, "Session lookup failed", "chat_id", msg.ChatID, "error", err)
		return webhook.Result{Status: "error"}, http.StatusInternalServerError
	}

	if err := p.sessions.AppendConversation(ctx, msg.ChatID, "user", msg.Body); err != nil {
		p.log.WarnContext(ctx, "Recording user message failed", "chat_id", msg.ChatID, "error", err)
	}

	query := buildQuery(msg)
	tag := p.classifier.Classify(ctx, query)
	p.log.InfoContext(ctx, "Message classified", "chat_id", msg.ChatID, "intent", tag, "group", msg.IsGroup)

	resp := p.dispatcher.Dispatch(ctx, tag, query, tools.Context{
		ChatID:       msg.ChatID,
		State:        decodeState(sess),
		SenderName:   msg.SenderName,
		MessageID:    msg.MessageID,
		ReplyContext: msg.ReplyContext,
		Mentions:     msg.Mentions,
	})

	p.persist(ctx, msg.ChatID, resp)

	finalText := resp.Reply
	if qr := stateDeltaString(resp.StateDelta, "lastFormQrUrl"); qr != "" {
		finalText = fmt.Sprintf("%s\n\n🖼️ *QR Code Link:* \n%s", finalText, qr)
	}

	var mentions []string
	if msg.IsGroup {
		mentions = []string{msg.SenderID}
	}

	if err := p.sender.SendText(ctx, msg.ChatID, finalText, msg.MessageID, mentions); err != nil {
		p.log.ErrorContext(ctx, "Reply delivery failed", "chat_id", msg.ChatID, "error", err)
		return webhook.Result{Status: "error"}, http.StatusInternalServerError
	}

	return webhook.Result{Status: "success"}, http.StatusOK
}

func (p *Pipeline) ensureSession(ctx context.Context, chatID string) (*database.Session, error) {
	sess, err := p.sessions.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}
	return p.sessions.Create(ctx, chatID)
}

// persist merges the tool's state delta plus the reply snippet and records
// the assistant turn. State failures degrade to logs; the reply still goes
// out.
func (p *Pipeline) persist(ctx context.Context, chatID string, resp tools.Response) {
	delta := map[string]any{}
	for k, v := range resp.StateDelta {
		delta[k] = v
	}
	if snippet := capRunes(resp.Reply, lastResponseCap); snippet != "" {
		delta["lastBotResponse"] = snippet
	}

	if _, err := p.sessions.UpdateState(ctx, chatID, delta); err != nil {
		if errors.Is(err, session.ErrStateTooLarge) {
			p.log.WarnContext(ctx, "Session state reset after exceeding size cap", "chat_id", chatID)
		} else {
			p.log.ErrorContext(ctx, "Session state update failed", "chat_id", chatID, "error", err)
		}
	}

	if err := p.sessions.AppendConversation(ctx, chatID, "assistant", resp.Reply); err != nil {
		p.log.WarnContext(ctx, "Recording assistant reply failed", "chat_id", chatID, "error", err)
	}
}

// buildQuery wraps the message with the quoted-reply context markers when the
// user replied to an earlier bot message.
func buildQuery(msg *webhook.Message) string {
	if msg.ReplyContext == "" {
		return msg.Body
	}
	cleaned := strings.TrimSpace(suggestionTail.ReplaceAllString(msg.ReplyContext, ""))
	if cleaned == "" {
		return msg.Body
	}
	return fmt.Sprintf("[KONTEKS PESAN YANG DIBALAS]:\n\"%s\"\n\n[PESAN USER]:\n%s", cleaned, msg.Body)
}

func decodeState(sess *database.Session) map[string]any {
	state := map[string]any{}
	if sess != nil && len(sess.State) > 0 {
		_ = json.Unmarshal(sess.State, &state)
	}
	return state
}

func stateDeltaString(delta map[string]any, key string) string {
	if delta == nil {
		return ""
	}
	s, _ := delta[key].(string)
	return s
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
