package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/clarahexa/clarabot/internal/config"
	"github.com/clarahexa/clarabot/internal/database"
	"github.com/clarahexa/clarabot/internal/media"
	"github.com/clarahexa/clarabot/internal/waha"
)

// Drop reasons reported to the gateway when a delivery is filtered out.
const (
	ReasonNonMessageEvent = "non_message_event"
	ReasonNoPayload       = "no_payload"
	ReasonFromSelf        = "from_self"
	ReasonUnauthorized    = "unauthorized_user"
	ReasonGroupNotAllowed = "group_not_allowed"
	ReasonNotMentioned    = "not_mentioned"
	ReasonMissingChatID   = "missing_chat_id"
)

// Message is the canonical inbound message handed to the classifier and
// dispatcher after a delivery passed every gate.
type Message struct {
	ChatID         string
	SenderID       string
	SenderName     string
	Body           string
	MessageID      string
	IsGroup        bool
	Mentions       []string
	ReplyContext   string
	QuotedID       string
	QuotedHasMedia bool
}

// Drop records why a delivery was filtered out and the HTTP status the
// webhook should answer with.
type Drop struct {
	Reason string
	Status int
}

// sessionSource is the slice of the session store the normalizer needs: the
// group mention gate reads the dynamic bot alias out of session state, which
// requires the get-or-create the original performs before gating.
type sessionSource interface {
	Get(ctx context.Context, chatID string) (*database.Session, error)
	Create(ctx context.Context, chatID string) (*database.Session, error)
}

// Normalizer turns raw webhook bodies into canonical messages, applying the
// event filter, allow-lists, the group mention gate, and media/quoted text
// extraction.
type Normalizer struct {
	cfg      config.BotConfig
	sessions sessionSource
	waha     waha.Client
	parser   media.Parser
	log      *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg config.BotConfig, sessions sessionSource, wahaClient waha.Client, parser media.Parser, log *slog.Logger) *Normalizer {
	return &Normalizer{
		cfg:      cfg,
		sessions: sessions,
		waha:     wahaClient,
		parser:   parser,
		log:      log.With("component", "normalizer"),
	}
}

var leadingMention = regexp.MustCompile(`^@\d+\s*`)

// Normalize gates and canonicalizes one webhook delivery. Exactly one of the
// returns is non-nil. Dropped deliveries never reach the classifier; only
// the group mention gate touches the session store, and only to read the
// dynamic alias.
func (n *Normalizer) Normalize(ctx context.Context, body []byte) (*Message, *Drop) {
	env := ParseEnvelope(body)

	if ev := env.Event(); ev != "" && ev != "message" {
		n.log.DebugContext(ctx, "Ignoring non-message event", "event", ev)
		return nil, &Drop{Reason: ReasonNonMessageEvent, Status: http.StatusOK}
	}
	if !env.HasPayload() {
		return nil, &Drop{Reason: ReasonNoPayload, Status: http.StatusOK}
	}
	if env.FromMe() || env.From() == "status@broadcast" {
		return nil, &Drop{Reason: ReasonFromSelf, Status: http.StatusOK}
	}

	chatID := env.From()

	// Prefer the canonical user id over the linked-device id; sending to
	// @lid can deliver to only that device.
	if strings.HasSuffix(chatID, "@lid") {
		if alt := env.RemoteJidAlt(); alt != "" {
			n.log.DebugContext(ctx, "Switching chat id to canonical", "lid", chatID, "canonical", alt)
			chatID = alt
		}
	}
	if chatID == "" {
		return nil, &Drop{Reason: ReasonMissingChatID, Status: http.StatusBadRequest}
	}

	isGroup := strings.HasSuffix(chatID, "@g.us")
	if !isGroup && len(n.cfg.AllowedUsers) > 0 && !slices.Contains(n.cfg.AllowedUsers, chatID) {
		n.log.InfoContext(ctx, "Dropping private chat from unauthorized user", "chat_id", chatID)
		return nil, &Drop{Reason: ReasonUnauthorized, Status: http.StatusOK}
	}

	text := env.Body()
	messageID := env.MessageID()
	hasMedia := env.HasMedia()

	if hasMedia && messageID != "" {
		text = n.appendMediaText(ctx, env, text, messageID)
	}

	quotedID := env.QuotedID()
	quotedHasMedia := false
	replyContext := ""
	if quotedID != "" && !hasMedia {
		quotedHasMedia = env.QuotedHasMedia()
		if quotedHasMedia {
			text = n.appendQuotedMediaText(ctx, env, text, quotedID)
		} else {
			replyContext = env.QuotedBody()
		}
	}

	// Session before the group gate: the mention check honors a bot rename
	// stored in this chat's session state.
	sess, err := n.sessions.Get(ctx, chatID)
	if err != nil {
		n.log.WarnContext(ctx, "Session read failed during normalization", "chat_id", chatID, "error", err)
	}
	if sess == nil && err == nil {
		if sess, err = n.sessions.Create(ctx, chatID); err != nil {
			n.log.WarnContext(ctx, "Session create failed during normalization", "chat_id", chatID, "error", err)
		}
	}

	if isGroup {
		if len(n.cfg.AllowedGroups) > 0 && !slices.Contains(n.cfg.AllowedGroups, chatID) {
			n.log.InfoContext(ctx, "Dropping message from group outside allow-list", "chat_id", chatID)
			return nil, &Drop{Reason: ReasonGroupNotAllowed, Status: http.StatusOK}
		}
		if !n.isMentioned(ctx, env, text, sess) {
			n.log.DebugContext(ctx, "Dropping group message without mention", "chat_id", chatID)
			return nil, &Drop{Reason: ReasonNotMentioned, Status: http.StatusOK}
		}
		// Strip the leading mention token so the classifier sees "halo"
		// instead of "@628... halo".
		if strings.HasPrefix(text, "@") {
			text = strings.TrimSpace(leadingMention.ReplaceAllString(text, ""))
		}
	}

	senderID := env.Participant()
	if senderID == "" {
		senderID = env.From()
	}

	return &Message{
		ChatID:         chatID,
		SenderID:       senderID,
		SenderName:     n.resolveSenderName(ctx, env, senderID),
		Body:           text,
		MessageID:      messageID,
		IsGroup:        isGroup,
		Mentions:       env.MentionedIDs(),
		ReplyContext:   replyContext,
		QuotedID:       quotedID,
		QuotedHasMedia: quotedHasMedia,
	}, nil
}

// appendMediaText downloads and parses the message's attachment and appends
// the extracted text under the media marker. Failures are logged and leave
// the body untouched.
func (n *Normalizer) appendMediaText(ctx context.Context, env Envelope, text, messageID string) string {
	data, mimeType, err := n.downloadMedia(ctx, env, messageID)
	if err != nil {
		n.log.WarnContext(ctx, "Media download failed", "message_id", messageID, "error", err)
		return text
	}

	extracted, err := n.parser.ParseMedia(ctx, data, mimeType)
	if err != nil {
		n.log.WarnContext(ctx, "Media extraction failed", "message_id", messageID, "mime", mimeType, "error", err)
		return text
	}
	if strings.TrimSpace(extracted) == "" {
		return text
	}

	filename := env.MediaFilename()
	if filename == "" {
		filename = "Dokumen"
	}
	return appendMarker(text, fmt.Sprintf("[TEKS DARI MEDIA (Filename: %s)]:\n%s", filename, extracted))
}

// appendQuotedMediaText does the same for an attachment on the quoted
// message, keyed by the reply id.
func (n *Normalizer) appendQuotedMediaText(ctx context.Context, env Envelope, text, quotedID string) string {
	data, mimeType, err := n.waha.DownloadMediaByMessageID(ctx, quotedID, env.QuotedMimetype())
	if err != nil {
		n.log.WarnContext(ctx, "Quoted media download failed", "quoted_id", quotedID, "error", err)
		return text
	}

	extracted, err := n.parser.ParseMedia(ctx, data, mimeType)
	if err != nil {
		n.log.WarnContext(ctx, "Quoted media extraction failed", "quoted_id", quotedID, "mime", mimeType, "error", err)
		return text
	}
	if strings.TrimSpace(extracted) == "" {
		return text
	}

	filename := env.QuotedFilename()
	if filename == "" {
		filename = "Dokumen"
	}
	return appendMarker(text, fmt.Sprintf("[TEKS DARI FILE YANG DIBALAS (Filename: %s)]:\n%s", filename, extracted))
}

func appendMarker(text, marked string) string {
	if text == "" {
		return marked
	}
	return text + "\n\n" + marked
}

// downloadMedia prefers the direct URL the gateway put in the payload and
// falls back to the files endpoint.
func (n *Normalizer) downloadMedia(ctx context.Context, env Envelope, messageID string) ([]byte, string, error) {
	if url := env.MediaURL(); url != "" {
		return n.waha.DownloadMediaURL(ctx, url, env.MediaMimetype())
	}
	mimeType := env.MediaMimetype()
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return n.waha.DownloadMediaByMessageID(ctx, messageID, mimeType)
}

// isMentioned applies the group mention gate: explicit mention ids, then the
// bot's phone number or LID in the body, then word-boundary alias matches
// over the configured aliases plus the session's dynamic bot name.
func (n *Normalizer) isMentioned(ctx context.Context, env Envelope, text string, sess *database.Session) bool {
	botID := n.cfg.PhoneNumber + "@s.whatsapp.net"
	mentioned := env.MentionedIDs()
	if slices.Contains(mentioned, botID) {
		return true
	}
	if n.cfg.LID != "" && slices.Contains(mentioned, n.cfg.LID+"@lid") {
		return true
	}

	if strings.Contains(text, n.cfg.PhoneNumber) {
		return true
	}
	if n.cfg.LID != "" && strings.Contains(text, "@"+n.cfg.LID) {
		return true
	}

	aliases := slices.Clone(n.cfg.MentionAliases)
	if alias := dynamicAlias(sess); alias != "" {
		n.log.DebugContext(ctx, "Using dynamic alias from session", "alias", alias)
		aliases = append(aliases, alias)
	}

	for _, alias := range aliases {
		if aliasPattern(alias).MatchString(text) {
			return true
		}
	}
	return false
}

// dynamicAlias reads metadata.botName out of the session state document.
func dynamicAlias(sess *database.Session) string {
	if sess == nil || len(sess.State) == 0 {
		return ""
	}
	var state struct {
		Metadata struct {
			BotName string `json:"botName"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(sess.State, &state); err != nil {
		return ""
	}
	return strings.TrimSpace(state.Metadata.BotName)
}

// aliasPattern matches the alias as a word: preceded by start, space, or @,
// followed by end, space, or trailing punctuation. Guards against substring
// hits like "keren" matching the alias "ren".
func aliasPattern(alias string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|\s|@)` + regexp.QuoteMeta(alias) + `(\s|$|\?|\.|!|,|:|;)`)
}

// resolveSenderName prefers the payload pushname and falls back to a
// best-effort contacts lookup.
func (n *Normalizer) resolveSenderName(ctx context.Context, env Envelope, senderID string) string {
	if name := env.PushName(); name != "" {
		return name
	}
	if senderID == "" {
		return ""
	}

	contacts, err := n.waha.GetContacts(ctx)
	if err != nil {
		n.log.DebugContext(ctx, "Contacts lookup failed", "error", err)
		return ""
	}
	for _, c := range contacts {
		if c.ID == senderID {
			if c.PushName != "" {
				return c.PushName
			}
			return c.Name
		}
	}
	return ""
}
