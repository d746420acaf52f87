// Package webhook ingests WAHA webhook deliveries: duck-typed payload
// extraction, message normalization with access gating, and the HTTP server.
package webhook

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Envelope wraps one raw webhook body. The gateway emits the same logical
// fields under several shapes depending on the engine (WEBJS, NOWEB, ...),
// so every accessor probes an ordered list of paths and returns the first
// non-empty match.
type Envelope struct {
	root gjson.Result
}

// ParseEnvelope wraps a raw webhook body for field extraction.
func ParseEnvelope(body []byte) Envelope {
	return Envelope{root: gjson.ParseBytes(body)}
}

// firstString returns the first non-empty string among the given paths.
func (e Envelope) firstString(paths ...string) string {
	for _, p := range paths {
		if v := e.root.Get(p); v.Exists() {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

// anyTrue reports whether any of the given paths holds a true value.
func (e Envelope) anyTrue(paths ...string) bool {
	for _, p := range paths {
		if e.root.Get(p).Bool() {
			return true
		}
	}
	return false
}

// exists reports whether any of the given paths is present.
func (e Envelope) exists(paths ...string) bool {
	for _, p := range paths {
		if e.root.Get(p).Exists() {
			return true
		}
	}
	return false
}

func (e Envelope) Event() string     { return e.root.Get("event").String() }
func (e Envelope) HasPayload() bool  { return e.root.Get("payload").Exists() }
func (e Envelope) FromMe() bool      { return e.root.Get("payload.fromMe").Bool() }
func (e Envelope) From() string      { return e.root.Get("payload.from").String() }
func (e Envelope) MessageID() string { return e.root.Get("payload.id").String() }
func (e Envelope) Body() string      { return e.root.Get("payload.body").String() }

// RemoteJidAlt is the canonical user id reported alongside a linked-device
// (@lid) sender.
func (e Envelope) RemoteJidAlt() string {
	return e.root.Get("payload._data.key.remoteJidAlt").String()
}

func (e Envelope) MessageType() string {
	return e.firstString("payload.type", "payload._data.type")
}

// HasMedia reports whether the message carries an attachment, combining the
// explicit flags, the message type, and the engine-specific message nodes.
func (e Envelope) HasMedia() bool {
	if e.anyTrue("payload.hasMedia", "payload._data.hasMedia") {
		return true
	}
	switch e.MessageType() {
	case "image", "document", "audio", "video", "sticker":
		return true
	}
	return e.exists(
		"payload._data.message.documentMessage",
		"payload._data.message.imageMessage",
		"payload._data.message.audioMessage",
		"payload._data.message.videoMessage",
	)
}

func (e Envelope) MediaURL() string {
	return e.firstString("payload.media.url", "payload.payload.media.url", "payload._data.media.url")
}

func (e Envelope) MediaMimetype() string {
	return e.firstString("payload.media.mimetype", "payload.payload.media.mimetype", "payload._data.media.mimetype")
}

func (e Envelope) MediaFilename() string {
	return e.firstString("payload.media.filename", "payload.payload.media.filename", "payload._data.media.filename")
}

// MentionedIDs lists the participant ids explicitly tagged in the message.
func (e Envelope) MentionedIDs() []string {
	for _, p := range []string{"payload.mentionedIds", "payload._data.mentionedIds"} {
		arr := e.root.Get(p)
		if !arr.IsArray() {
			continue
		}
		var ids []string
		arr.ForEach(func(_, v gjson.Result) bool {
			if s := v.String(); s != "" {
				ids = append(ids, s)
			}
			return true
		})
		if len(ids) > 0 {
			return ids
		}
	}
	return nil
}

func (e Envelope) Participant() string {
	return e.firstString("payload.participant", "payload._data.participant")
}

func (e Envelope) PushName() string {
	return e.firstString("payload.pushname", "payload.pushName", "payload._data.pushname", "payload._data.pushName")
}

// QuotedID is the id of the message being replied to, if any.
func (e Envelope) QuotedID() string {
	return e.firstString(
		"payload.quotedMsg.id",
		"payload.quotedMsg._data.id",
		"payload._data.quotedMsg.id",
		"payload._data.quotedStanzaID",
		"payload.replyTo.id",
		"payload._data.replyTo.id",
	)
}

// QuotedHasMedia reports whether the quoted message carries an attachment.
func (e Envelope) QuotedHasMedia() bool {
	if e.anyTrue("payload.quotedMsg.hasMedia", "payload.quotedMsg._data.hasMedia") {
		return true
	}
	switch e.firstString("payload.quotedMsg.type", "payload._data.quotedMsg.type") {
	case "document", "image":
		return true
	}
	return e.exists(
		"payload.replyTo._data.documentMessage",
		"payload.replyTo._data.imageMessage",
		"payload._data.replyTo._data.documentMessage",
		"payload._data.replyTo._data.imageMessage",
	)
}

func (e Envelope) QuotedMimetype() string {
	if s := e.firstString(
		"payload.quotedMsg.mimetype",
		"payload.quotedMsg._data.mimetype",
		"payload.replyTo._data.documentMessage.mimetype",
		"payload.replyTo._data.imageMessage.mimetype",
	); s != "" {
		return s
	}
	return "application/octet-stream"
}

func (e Envelope) QuotedFilename() string {
	return e.firstString(
		"payload.quotedMsg.filename",
		"payload.quotedMsg.media.filename",
		"payload.replyTo._data.documentMessage.fileName",
	)
}

// QuotedBody is the text of the quoted message, trimmed.
func (e Envelope) QuotedBody() string {
	return strings.TrimSpace(e.firstString(
		"payload.quotedMsg.body",
		"payload.quotedMsg.text",
		"payload.quotedMsg._data.body",
		"payload.quotedMsg._data.text",
		"payload._data.quotedMsg.body",
	))
}
