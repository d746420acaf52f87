// Package waha implements the client for the WAHA (WhatsApp HTTP API)
// gateway: outbound messages, presence signals, media downloads, and the
// contact directory.
package waha

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clarahexa/clarabot/internal/config"
)

// Client defines the outbound WhatsApp operations used by the bot.
type Client interface {
	// SendText delivers a text message to a chat. replyTo quotes the given
	// message ID; mentions tags the listed participant IDs (group chats).
	SendText(ctx context.Context, chatID, text, replyTo string, mentions []string) error

	// SendSeen marks the given message as read. Best effort.
	SendSeen(ctx context.Context, chatID, messageID string) error

	// StartTyping marks the chat as seen and raises the typing indicator.
	StartTyping(ctx context.Context, chatID, messageID string) error

	// StopTyping lowers the typing indicator.
	StopTyping(ctx context.Context, chatID string) error

	// DownloadMediaURL fetches media bytes from a gateway-provided URL and
	// returns the payload with its content type.
	DownloadMediaURL(ctx context.Context, mediaURL, fallbackMime string) ([]byte, string, error)

	// DownloadMediaByMessageID fetches media for a message via the gateway's
	// files endpoint, deriving the file extension from the MIME type.
	DownloadMediaByMessageID(ctx context.Context, messageID, mimeType string) ([]byte, string, error)

	// GetContacts lists the account's contacts.
	GetContacts(ctx context.Context) ([]Contact, error)
}

// Contact is one entry of the gateway's contact directory.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PushName string `json:"pushname"`
}

type restClient struct {
	http    *resty.Client
	session string
	baseURL string
	log     *slog.Logger
}

// NewClient creates a WAHA client from configuration.
func NewClient(cfg config.WAHAConfig, log *slog.Logger) Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", cfg.APIKey).
		SetTimeout(30 * time.Second)

	return &restClient{
		http:    http,
		session: cfg.Session,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     log.With("component", "waha_client"),
	}
}

type sendTextRequest struct {
	Session     string   `json:"session"`
	ChatID      string   `json:"chatId"`
	Text        string   `json:"text"`
	ReplyTo     string   `json:"reply_to,omitempty"`
	Mentions    []string `json:"mentions,omitempty"`
	LinkPreview bool     `json:"linkPreview"`
}

func (c *restClient) SendText(ctx context.Context, chatID, text, replyTo string, mentions []string) error {
	// Seen + typing first, then a short pause so replies land at a human pace.
	if err := c.StartTyping(ctx, chatID, replyTo); err != nil {
		c.log.WarnContext(ctx, "Typing indicator failed", "chat_id", chatID, "error", err)
	}
	c.typingPause(ctx)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendTextRequest{
			Session:     c.session,
			ChatID:      chatID,
			Text:        text,
			ReplyTo:     replyTo,
			Mentions:    mentions,
			LinkPreview: false,
		}).
		Post("/api/sendText")
	if err != nil {
		return fmt.Errorf("waha sendText to %s: %w", chatID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("waha sendText to %s: status %d: %s", chatID, resp.StatusCode(), resp.String())
	}

	if err := c.StopTyping(ctx, chatID); err != nil {
		c.log.WarnContext(ctx, "Clearing typing indicator failed", "chat_id", chatID, "error", err)
	}
	return nil
}

func (c *restClient) SendSeen(ctx context.Context, chatID, messageID string) error {
	body := map[string]any{
		"session": c.session,
		"chatId":  chatID,
	}
	if messageID != "" {
		body["messageIds"] = []string{messageID}
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/api/sendSeen")
	if err != nil {
		return fmt.Errorf("waha sendSeen for %s: %w", chatID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("waha sendSeen for %s: status %d", chatID, resp.StatusCode())
	}
	return nil
}

func (c *restClient) StartTyping(ctx context.Context, chatID, messageID string) error {
	if err := c.SendSeen(ctx, chatID, messageID); err != nil {
		c.log.DebugContext(ctx, "sendSeen before typing failed", "chat_id", chatID, "error", err)
	}
	return c.setPresence(ctx, chatID, "typing")
}

func (c *restClient) StopTyping(ctx context.Context, chatID string) error {
	return c.setPresence(ctx, chatID, "paused")
}

func (c *restClient) setPresence(ctx context.Context, chatID, presence string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"chatId": chatID, "presence": presence}).
		Post(fmt.Sprintf("/api/%s/presence", c.session))
	if err != nil {
		return fmt.Errorf("waha presence %s for %s: %w", presence, chatID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("waha presence %s for %s: status %d", presence, chatID, resp.StatusCode())
	}
	return nil
}

func (c *restClient) DownloadMediaURL(ctx context.Context, mediaURL, fallbackMime string) ([]byte, string, error) {
	// Gateways behind Docker report themselves as localhost:3000; rewrite to
	// the configured base URL so the download reaches the right host.
	fixed := strings.Replace(mediaURL, "http://localhost:3000", c.baseURL, 1)

	resp, err := c.http.R().SetContext(ctx).Get(fixed)
	if err != nil {
		return nil, "", fmt.Errorf("waha media download %s: %w", fixed, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("waha media download %s: status %d", fixed, resp.StatusCode())
	}

	mimeType := resp.Header().Get("Content-Type")
	if mimeType == "" {
		mimeType = fallbackMime
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return resp.Body(), mimeType, nil
}

func (c *restClient) DownloadMediaByMessageID(ctx context.Context, messageID, mimeType string) ([]byte, string, error) {
	ext := extensionForMime(mimeType)

	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/files/%s/%s%s", c.session, messageID, ext))
	if err != nil {
		return nil, "", fmt.Errorf("waha file download for message %s: %w", messageID, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("waha file download for message %s: status %d", messageID, resp.StatusCode())
	}

	gotMime := resp.Header().Get("Content-Type")
	if gotMime == "" {
		gotMime = mimeType
	}
	return resp.Body(), gotMime, nil
}

func (c *restClient) GetContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("session", c.session).
		SetResult(&contacts).
		Get("/api/contacts/all")
	if err != nil {
		return nil, fmt.Errorf("waha contacts: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("waha contacts: status %d", resp.StatusCode())
	}
	return contacts, nil
}

// typingPause sleeps 2-4s to mimic a human composing a reply, honoring
// context cancellation.
func (c *restClient) typingPause(ctx context.Context) {
	delay := time.Duration(2000+rand.Intn(2001)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func extensionForMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "application/pdf"):
		return ".pdf"
	case strings.HasPrefix(mimeType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(mimeType, "image/png"):
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
