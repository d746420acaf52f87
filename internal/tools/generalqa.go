package tools

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/clarahexa/clarabot/internal/gemini"
)

const replyContextMarker = "[KONTEKS PESAN YANG DIBALAS]"

// renamePattern catches "panggil saya <nama> mulai sekarang" so the bot can
// adopt a per-chat name.
var renamePattern = regexp.MustCompile(`(?i)panggil saya\s+([a-zA-Z0-9\s]+?)\s+mulai sekarang`)

// historyEntry is one user/bot exchange kept in session state.
type historyEntry struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// GeneralQA handles open conversation: greetings, identity questions, help,
// and anything no specialized tool covers. It keeps a short rolling history
// in session state so follow-ups stay coherent.
type GeneralQA struct {
	ai  gemini.Client
	log *slog.Logger
}

// NewGeneralQA creates the conversational tool.
func NewGeneralQA(ai gemini.Client, log *slog.Logger) *GeneralQA {
	return &GeneralQA{
		ai:  ai,
		log: log.With("component", "general_qa"),
	}
}

func (t *GeneralQA) Name() string { return "general_qa" }

func (t *GeneralQA) Execute(ctx context.Context, query string, tc Context) Response {
	meta := stateMap(tc.State, "metadata")
	botName, _ := meta["botName"].(string)

	if m := renamePattern.FindStringSubmatch(query); m != nil {
		botName = strings.TrimSpace(m[1])
		meta["botName"] = botName
	}

	history := conversationHistory(tc.State)
	prompt := buildQAPrompt(query, history)

	reply, err := t.ai.GenerateText(ctx, gemini.GeneralQAInstruction(botName), prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		t.log.ErrorContext(ctx, "Conversational reply generation failed", "error", err)
		return Response{Success: false, Reply: "Waduh, sepertinya saya sedang ada kendala teknis. 🙏 Coba tanyakan lagi sebentar lagi ya!"}
	}
	reply = stripBold(strings.TrimSpace(reply))

	history = append(history, historyEntry{User: query, Bot: reply})
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	serialized := make([]any, 0, len(history))
	for _, h := range history {
		serialized = append(serialized, map[string]any{"user": h.User, "bot": h.Bot})
	}

	return Response{
		Success: true,
		Reply:   reply,
		StateDelta: map[string]any{
			"conversationHistory": serialized,
			"metadata":            meta,
		},
	}
}

// buildQAPrompt prepends the recent exchanges unless the message already
// carries quoted-reply context, then pins the answer language to the user's.
func buildQAPrompt(query string, history []historyEntry) string {
	var b strings.Builder

	if !strings.Contains(query, replyContextMarker) && len(history) > 0 {
		recent := history
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		b.WriteString("KONTEKS PERCAKAPAN SEBELUMNYA:\n")
		for _, h := range recent {
			b.WriteString("User: " + h.User + "\n")
			b.WriteString("Bot: " + h.Bot + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("PENTING: Hasilkan jawaban dalam bahasa yang SAMA dengan [PESAN USER] di bawah.\n\n")
	b.WriteString("[PESAN USER]:\n" + query)
	return b.String()
}

// conversationHistory decodes the rolling history from session state,
// tolerating missing or malformed entries.
func conversationHistory(state map[string]any) []historyEntry {
	raw, ok := state["conversationHistory"].([]any)
	if !ok {
		return nil
	}
	entries := make([]historyEntry, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		user, _ := m["user"].(string)
		bot, _ := m["bot"].(string)
		if user == "" && bot == "" {
			continue
		}
		entries = append(entries, historyEntry{User: user, Bot: bot})
	}
	return entries
}

// stateMap returns a copy of a nested object from state, never nil.
func stateMap(state map[string]any, key string) map[string]any {
	out := map[string]any{}
	if m, ok := state[key].(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
