package bot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/clarahexa/clarabot/internal/bot"
	"github.com/clarahexa/clarabot/internal/database"
	"github.com/clarahexa/clarabot/internal/intent"
	"github.com/clarahexa/clarabot/internal/session"
	"github.com/clarahexa/clarabot/internal/tools"
	"github.com/clarahexa/clarabot/internal/webhook"
)

type fakeNormalizer struct {
	msg  *webhook.Message
	drop *webhook.Drop
}

func (f *fakeNormalizer) Normalize(context.Context, []byte) (*webhook.Message, *webhook.Drop) {
	return f.msg, f.drop
}

type fakeSessions struct {
	state          []byte
	updateErr      error
	deltas         []map[string]any
	conversation   []string
	getErr         error
	missingSession bool
}

func (f *fakeSessions) Get(_ context.Context, chatID string) (*database.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.missingSession {
		return nil, nil
	}
	state := f.state
	if state == nil {
		state = []byte("{}")
	}
	return &database.Session{ID: "sess", ChatID: chatID, State: state}, nil
}

func (f *fakeSessions) Create(_ context.Context, chatID string) (*database.Session, error) {
	return &database.Session{ID: "sess", ChatID: chatID, State: []byte("{}")}, nil
}

func (f *fakeSessions) UpdateState(_ context.Context, chatID string, delta map[string]any) (*database.Session, error) {
	f.deltas = append(f.deltas, delta)
	if f.updateErr != nil {
		return &database.Session{ID: "sess", ChatID: chatID, State: []byte("{}")}, f.updateErr
	}
	return &database.Session{ID: "sess", ChatID: chatID}, nil
}

func (f *fakeSessions) AppendConversation(_ context.Context, _, role, content string) error {
	f.conversation = append(f.conversation, role+":"+content)
	return nil
}

type fakeClassifier struct {
	tag     intent.Intent
	queries []string
}

func (f *fakeClassifier) Classify(_ context.Context, message string) intent.Intent {
	f.queries = append(f.queries, message)
	return f.tag
}

type fakeDispatcher struct {
	response tools.Response
	contexts []tools.Context
	queries  []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ intent.Intent, query string, tc tools.Context) tools.Response {
	f.queries = append(f.queries, query)
	f.contexts = append(f.contexts, tc)
	return f.response
}

type fakeSender struct {
	err      error
	chatIDs  []string
	texts    []string
	replyTos []string
	mentions [][]string
}

func (f *fakeSender) SendText(_ context.Context, chatID, text, replyTo string, mentions []string) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	f.replyTos = append(f.replyTos, replyTo)
	f.mentions = append(f.mentions, mentions)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseMessage() *webhook.Message {
	return &webhook.Message{
		ChatID:     "628123@c.us",
		SenderID:   "628123@c.us",
		SenderName: "Budi",
		Body:       "buatkan form absensi",
		MessageID:  "M1",
	}
}

func TestHandleWebhook_DropsAnswerWithReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		drop       *webhook.Drop
		wantStatus string
		wantCode   int
	}{
		{
			name:       "filtered delivery",
			drop:       &webhook.Drop{Reason: webhook.ReasonNotMentioned, Status: http.StatusOK},
			wantStatus: "ignored",
			wantCode:   http.StatusOK,
		},
		{
			name:       "malformed delivery",
			drop:       &webhook.Drop{Reason: webhook.ReasonMissingChatID, Status: http.StatusBadRequest},
			wantStatus: "error",
			wantCode:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := bot.NewPipeline(
				&fakeNormalizer{drop: tt.drop},
				&fakeSessions{}, &fakeClassifier{}, &fakeDispatcher{}, &fakeSender{},
				discardLogger(),
			)

			result, code := p.HandleWebhook(context.Background(), []byte("{}"))
			if result.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", result.Status, tt.wantStatus)
			}
			if result.Reason != tt.drop.Reason {
				t.Errorf("reason = %q, want %q", result.Reason, tt.drop.Reason)
			}
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestHandleWebhook_SuccessFlow(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{state: []byte(`{"lastFormId":"F1"}`)}
	classifier := &fakeClassifier{tag: intent.CreateForm}
	dispatcher := &fakeDispatcher{response: tools.Response{Success: true, Reply: "Form sudah jadi! 🎉"}}
	sender := &fakeSender{}

	p := bot.NewPipeline(&fakeNormalizer{msg: baseMessage()}, sessions, classifier, dispatcher, sender, discardLogger())

	result, code := p.HandleWebhook(context.Background(), []byte("{}"))
	if result.Status != "success" || code != http.StatusOK {
		t.Fatalf("result = %+v code = %d", result, code)
	}

	// User turn recorded before dispatch, assistant turn after.
	if len(sessions.conversation) != 2 ||
		sessions.conversation[0] != "user:buatkan form absensi" ||
		sessions.conversation[1] != "assistant:Form sudah jadi! 🎉" {
		t.Errorf("conversation = %v", sessions.conversation)
	}

	// Session state read by the normalizer flows into the tool context.
	if len(dispatcher.contexts) != 1 {
		t.Fatalf("dispatch calls = %d", len(dispatcher.contexts))
	}
	if got := dispatcher.contexts[0].State["lastFormId"]; got != "F1" {
		t.Errorf("tool context lastFormId = %v, want F1", got)
	}

	// The reply snippet is stamped into the persisted delta.
	if len(sessions.deltas) != 1 {
		t.Fatalf("state updates = %d", len(sessions.deltas))
	}
	if got := sessions.deltas[0]["lastBotResponse"]; got != "Form sudah jadi! 🎉" {
		t.Errorf("lastBotResponse = %v", got)
	}

	if len(sender.texts) != 1 || sender.texts[0] != "Form sudah jadi! 🎉" {
		t.Errorf("sent = %v", sender.texts)
	}
	if sender.replyTos[0] != "M1" {
		t.Errorf("replyTo = %q, want the inbound message id", sender.replyTos[0])
	}
	if sender.mentions[0] != nil {
		t.Errorf("mentions = %v, want none for a private chat", sender.mentions[0])
	}
}

func TestHandleWebhook_ReplyContextWrapsQuery(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.Body = "yang pertama"
	msg.ReplyContext = "Mau form apa?\n\nCoba ketik: buatkan form absensi"

	classifier := &fakeClassifier{tag: intent.GeneralQA}
	dispatcher := &fakeDispatcher{response: tools.Response{Success: true, Reply: "oke"}}

	p := bot.NewPipeline(&fakeNormalizer{msg: msg}, &fakeSessions{}, classifier, dispatcher, &fakeSender{}, discardLogger())
	if _, code := p.HandleWebhook(context.Background(), []byte("{}")); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}

	want := "[KONTEKS PESAN YANG DIBALAS]:\n\"Mau form apa?\"\n\n[PESAN USER]:\nyang pertama"
	if len(classifier.queries) != 1 || classifier.queries[0] != want {
		t.Errorf("classifier query = %q, want %q", classifier.queries[0], want)
	}
	if dispatcher.queries[0] != want {
		t.Errorf("dispatcher query = %q, want %q", dispatcher.queries[0], want)
	}
}

func TestHandleWebhook_GroupReplyTagsSender(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.ChatID = "grp1@g.us"
	msg.SenderID = "628123@c.us"
	msg.IsGroup = true

	sender := &fakeSender{}
	p := bot.NewPipeline(
		&fakeNormalizer{msg: msg}, &fakeSessions{},
		&fakeClassifier{tag: intent.GeneralQA},
		&fakeDispatcher{response: tools.Response{Success: true, Reply: "halo"}},
		sender, discardLogger(),
	)

	if _, code := p.HandleWebhook(context.Background(), []byte("{}")); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if len(sender.mentions) != 1 || len(sender.mentions[0]) != 1 || sender.mentions[0][0] != "628123@c.us" {
		t.Errorf("mentions = %v, want the sender tagged", sender.mentions)
	}
}

func TestHandleWebhook_QRLinkAppended(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{response: tools.Response{
		Success: true,
		Reply:   "Form sudah jadi!",
		StateDelta: map[string]any{
			"lastFormQrUrl": "https://quickchart.io/qr?text=x",
		},
	}}
	sender := &fakeSender{}

	p := bot.NewPipeline(&fakeNormalizer{msg: baseMessage()}, &fakeSessions{}, &fakeClassifier{tag: intent.CreateForm}, dispatcher, sender, discardLogger())
	if _, code := p.HandleWebhook(context.Background(), []byte("{}")); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}

	if len(sender.texts) != 1 || !strings.HasSuffix(sender.texts[0], "🖼️ *QR Code Link:* \nhttps://quickchart.io/qr?text=x") {
		t.Errorf("sent = %q, want the QR link appended", sender.texts[0])
	}
}

func TestHandleWebhook_StateTooLargeStillReplies(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{updateErr: session.ErrStateTooLarge}
	sender := &fakeSender{}

	p := bot.NewPipeline(
		&fakeNormalizer{msg: baseMessage()}, sessions,
		&fakeClassifier{tag: intent.GeneralQA},
		&fakeDispatcher{response: tools.Response{Success: true, Reply: "oke"}},
		sender, discardLogger(),
	)

	result, code := p.HandleWebhook(context.Background(), []byte("{}"))
	if result.Status != "success" || code != http.StatusOK {
		t.Errorf("result = %+v code = %d, want success despite the state reset", result, code)
	}
	if len(sender.texts) != 1 {
		t.Errorf("sent = %v, want the reply delivered", sender.texts)
	}
}

func TestHandleWebhook_SendFailureIsInternalError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("gateway down")}
	p := bot.NewPipeline(
		&fakeNormalizer{msg: baseMessage()}, &fakeSessions{},
		&fakeClassifier{tag: intent.GeneralQA},
		&fakeDispatcher{response: tools.Response{Success: true, Reply: "oke"}},
		sender, discardLogger(),
	)

	result, code := p.HandleWebhook(context.Background(), []byte("{}"))
	if result.Status != "error" || code != http.StatusInternalServerError {
		t.Errorf("result = %+v code = %d, want a generic internal error", result, code)
	}
	if result.Reason != "" {
		t.Errorf("reason = %q, internals must not leak to the gateway", result.Reason)
	}
}

func TestHandleWebhook_SessionFailureIsInternalError(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{getErr: errors.New("db down")}
	p := bot.NewPipeline(
		&fakeNormalizer{msg: baseMessage()}, sessions,
		&fakeClassifier{}, &fakeDispatcher{}, &fakeSender{},
		discardLogger(),
	)

	result, code := p.HandleWebhook(context.Background(), []byte("{}"))
	if result.Status != "error" || code != http.StatusInternalServerError {
		t.Errorf("result = %+v code = %d", result, code)
	}
}
