package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/clarahexa/clarabot/internal/gemini"
)

// llmOrder maps the model's answer back into the closed set. Substring
// match in this exact order: GENERAL_QA is checked after the specific
// intents so "CREATE_FORM (not GENERAL_QA)" style answers resolve to the
// specific intent.
var llmOrder = []struct {
	marker string
	intent Intent
}{
	{"IDENTITY", Identity},
	{"ACKNOWLEDGMENT", Acknowledgment},
	{"CREATE_FORM", CreateForm},
	{"UPDATE_FORM", UpdateForm},
	{"CHECK_RESPONSES", CheckResponses},
	{"SHARE_FORM", ShareForm},
	{"CHECK_SCHEDULE", CheckSchedule},
	{"GENERAL_QA", GeneralQA},
	{"CLARIFICATION", Clarification},
}

// Classifier resolves a message to an intent: quick paths first, then the
// LLM. Any LLM failure degrades to Unknown, never an error.
type Classifier struct {
	ai  gemini.Client
	log *slog.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(ai gemini.Client, log *slog.Logger) *Classifier {
	return &Classifier{
		ai:  ai,
		log: log.With("component", "classifier"),
	}
}

// Classify maps the (possibly context-wrapped) message to an intent.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	if tag, ok := quickPath(message); ok {
		c.log.DebugContext(ctx, "Quick path matched", "intent", tag)
		return tag
	}

	answer, err := c.ai.GenerateText(ctx, gemini.IntentInstruction, message)
	if err != nil {
		c.log.WarnContext(ctx, "Intent classification failed, falling back to unknown", "error", err)
		return Unknown
	}

	normalized := strings.ToUpper(strings.TrimSpace(answer))
	for _, m := range llmOrder {
		if strings.Contains(normalized, m.marker) {
			return m.intent
		}
	}

	c.log.DebugContext(ctx, "Unmapped classifier answer", "answer", normalized)
	return Unknown
}
