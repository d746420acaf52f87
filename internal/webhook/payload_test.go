package webhook_test

import (
	"reflect"
	"testing"

	"github.com/clarahexa/clarabot/internal/webhook"
)

func TestEnvelope_BasicFields(t *testing.T) {
	t.Parallel()

	body := `{
		"event": "message",
		"payload": {
			"id": "true_123@c.us_ABC",
			"from": "123@c.us",
			"fromMe": false,
			"body": "halo",
			"pushname": "Budi"
		}
	}`

	env := webhook.ParseEnvelope([]byte(body))
	if got := env.Event(); got != "message" {
		t.Errorf("Event() = %q, want %q", got, "message")
	}
	if !env.HasPayload() {
		t.Error("HasPayload() = false, want true")
	}
	if env.FromMe() {
		t.Error("FromMe() = true, want false")
	}
	if got := env.From(); got != "123@c.us" {
		t.Errorf("From() = %q, want %q", got, "123@c.us")
	}
	if got := env.MessageID(); got != "true_123@c.us_ABC" {
		t.Errorf("MessageID() = %q", got)
	}
	if got := env.Body(); got != "halo" {
		t.Errorf("Body() = %q, want %q", got, "halo")
	}
	if got := env.PushName(); got != "Budi" {
		t.Errorf("PushName() = %q, want %q", got, "Budi")
	}
}

func TestEnvelope_HasMedia(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		expected bool
	}{
		{
			name:     "explicit flag",
			body:     `{"payload":{"hasMedia":true}}`,
			expected: true,
		},
		{
			name:     "nested flag",
			body:     `{"payload":{"_data":{"hasMedia":true}}}`,
			expected: true,
		},
		{
			name:     "document type",
			body:     `{"payload":{"type":"document"}}`,
			expected: true,
		},
		{
			name:     "engine document node",
			body:     `{"payload":{"_data":{"message":{"documentMessage":{"fileName":"a.pdf"}}}}}`,
			expected: true,
		},
		{
			name:     "plain text",
			body:     `{"payload":{"type":"chat","body":"halo"}}`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := webhook.ParseEnvelope([]byte(tt.body))
			if got := env.HasMedia(); got != tt.expected {
				t.Errorf("HasMedia() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEnvelope_MediaFieldsProbeAlternatePaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{
			name: "top level media",
			body: `{"payload":{"media":{"url":"http://x/f.pdf","mimetype":"application/pdf","filename":"f.pdf"}}}`,
		},
		{
			name: "double payload media",
			body: `{"payload":{"payload":{"media":{"url":"http://x/f.pdf","mimetype":"application/pdf","filename":"f.pdf"}}}}`,
		},
		{
			name: "engine data media",
			body: `{"payload":{"_data":{"media":{"url":"http://x/f.pdf","mimetype":"application/pdf","filename":"f.pdf"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := webhook.ParseEnvelope([]byte(tt.body))
			if got := env.MediaURL(); got != "http://x/f.pdf" {
				t.Errorf("MediaURL() = %q", got)
			}
			if got := env.MediaMimetype(); got != "application/pdf" {
				t.Errorf("MediaMimetype() = %q", got)
			}
			if got := env.MediaFilename(); got != "f.pdf" {
				t.Errorf("MediaFilename() = %q", got)
			}
		})
	}
}

func TestEnvelope_MentionedIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "top level list",
			body:     `{"payload":{"mentionedIds":["628111@s.whatsapp.net","628222@s.whatsapp.net"]}}`,
			expected: []string{"628111@s.whatsapp.net", "628222@s.whatsapp.net"},
		},
		{
			name:     "engine data list",
			body:     `{"payload":{"_data":{"mentionedIds":["99@lid"]}}}`,
			expected: []string{"99@lid"},
		},
		{
			name:     "absent",
			body:     `{"payload":{"body":"halo"}}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := webhook.ParseEnvelope([]byte(tt.body))
			if got := env.MentionedIDs(); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("MentionedIDs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEnvelope_QuotedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantID     string
		wantMedia  bool
		wantedBody string
	}{
		{
			name:       "quotedMsg shape",
			body:       `{"payload":{"quotedMsg":{"id":"Q1","body":"  pesan lama  "}}}`,
			wantID:     "Q1",
			wantedBody: "pesan lama",
		},
		{
			name:   "quoted stanza id",
			body:   `{"payload":{"_data":{"quotedStanzaID":"Q2"}}}`,
			wantID: "Q2",
		},
		{
			name:   "replyTo shape",
			body:   `{"payload":{"replyTo":{"id":"Q3"}}}`,
			wantID: "Q3",
		},
		{
			name:      "quoted document",
			body:      `{"payload":{"quotedMsg":{"id":"Q4","type":"document"}}}`,
			wantID:    "Q4",
			wantMedia: true,
		},
		{
			name:      "replyTo document node",
			body:      `{"payload":{"replyTo":{"id":"Q5","_data":{"documentMessage":{"fileName":"laporan.pdf","mimetype":"application/pdf"}}}}}`,
			wantID:    "Q5",
			wantMedia: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := webhook.ParseEnvelope([]byte(tt.body))
			if got := env.QuotedID(); got != tt.wantID {
				t.Errorf("QuotedID() = %q, want %q", got, tt.wantID)
			}
			if got := env.QuotedHasMedia(); got != tt.wantMedia {
				t.Errorf("QuotedHasMedia() = %v, want %v", got, tt.wantMedia)
			}
			if got := env.QuotedBody(); got != tt.wantedBody {
				t.Errorf("QuotedBody() = %q, want %q", got, tt.wantedBody)
			}
		})
	}
}

func TestEnvelope_QuotedMimetypeDefaults(t *testing.T) {
	t.Parallel()

	env := webhook.ParseEnvelope([]byte(`{"payload":{"quotedMsg":{"id":"Q1"}}}`))
	if got := env.QuotedMimetype(); got != "application/octet-stream" {
		t.Errorf("QuotedMimetype() = %q, want the octet-stream default", got)
	}

	env = webhook.ParseEnvelope([]byte(`{"payload":{"quotedMsg":{"id":"Q1","mimetype":"application/pdf"}}}`))
	if got := env.QuotedMimetype(); got != "application/pdf" {
		t.Errorf("QuotedMimetype() = %q, want %q", got, "application/pdf")
	}
}

func TestEnvelope_RemoteJidAlt(t *testing.T) {
	t.Parallel()

	env := webhook.ParseEnvelope([]byte(`{"payload":{"from":"77@lid","_data":{"key":{"remoteJidAlt":"628123@c.us"}}}}`))
	if got := env.RemoteJidAlt(); got != "628123@c.us" {
		t.Errorf("RemoteJidAlt() = %q, want %q", got, "628123@c.us")
	}
}
