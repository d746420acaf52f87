// Package tools implements the capability handlers behind each intent, the
// registry mapping intents to handlers, and the dispatcher that routes a
// classified message to its tool.
package tools

import (
	"context"
)

// Context is the read-only per-message context handed to a tool. State is a
// snapshot of the chat's session state; tools request changes through the
// response's StateDelta instead of mutating it.
type Context struct {
	ChatID       string
	State        map[string]any
	SenderName   string
	MessageID    string
	ReplyContext string
	Mentions     []string
}

// Response is a tool's outcome. Reply is always user-facing text, also on
// failure. StateDelta is merged into session state by the composer.
type Response struct {
	Success    bool
	Reply      string
	StateDelta map[string]any
}

// Tool handles one capability. Implementations catch their own foreseeable
// failures and answer with a friendly reply rather than an error.
type Tool interface {
	Name() string
	Execute(ctx context.Context, query string, tc Context) Response
}

// stateString reads a top-level string out of the state snapshot.
func stateString(state map[string]any, key string) string {
	if state == nil {
		return ""
	}
	s, _ := state[key].(string)
	return s
}

// createdForm is one entry of the running createdForms list.
type createdForm struct {
	ID    string
	Title string
	URL   string
}

// createdForms decodes the state's createdForms list, skipping malformed
// entries.
func createdForms(state map[string]any) []createdForm {
	if state == nil {
		return nil
	}
	raw, _ := state["createdForms"].([]any)
	forms := make([]createdForm, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f := createdForm{}
		f.ID, _ = entry["id"].(string)
		f.Title, _ = entry["title"].(string)
		f.URL, _ = entry["url"].(string)
		if f.ID != "" || f.Title != "" {
			forms = append(forms, f)
		}
	}
	return forms
}
