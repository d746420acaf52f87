package tools

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/clarahexa/clarabot/internal/forms"
)

func TestDiceSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{name: "identical", a: "form absensi", b: "form absensi", min: 1, max: 1},
		{name: "typo stays close", a: "form absesi", b: "form absensi", min: 0.7, max: 1},
		{name: "unrelated", a: "form absensi", b: "jadwal rapat", min: 0, max: 0.2},
		{name: "single rune", a: "a", b: "form", min: 0, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := diceSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("diceSimilarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestMatchForm(t *testing.T) {
	t.Parallel()

	known := []createdForm{
		{ID: "1", Title: "Form Absensi Kelas"},
		{ID: "2", Title: "Pendaftaran Lomba"},
	}

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{name: "exact title", query: "form absensi kelas", wantID: "1"},
		{name: "substring", query: "lomba", wantID: "2"},
		{name: "typo via similarity", query: "form absensi klas", wantID: "1"},
		{name: "no match", query: "survei kepuasan", wantID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matchForm(tt.query, known)
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("matchForm(%q) = %+v, want nil", tt.query, got)
				}
				return
			}
			if got == nil || got.ID != tt.wantID {
				t.Errorf("matchForm(%q) = %+v, want id %q", tt.query, got, tt.wantID)
			}
		})
	}
}

func TestRespondentNames(t *testing.T) {
	t.Parallel()

	questions := map[string]string{
		"q1": "Nama Lengkap",
		"q2": "Alamat",
	}
	responses := []forms.FormResponse{
		{RespondentEmail: "a@x.com", Answers: map[string]string{"q1": "Andi"}, LastSubmittedTime: time.Now()},
		{RespondentEmail: "b@x.com", Answers: map[string]string{"q2": "Jl. Mawar"}},
		{RespondentEmail: "", Answers: map[string]string{}},
	}

	got := respondentNames(responses, questions)
	// Newest first; answer to the name question wins, then email, then Unknown.
	want := []string{"Unknown", "b@x.com", "Andi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("respondentNames() = %v, want %v", got, want)
	}
}

func TestRespondentNames_CapsAtTen(t *testing.T) {
	t.Parallel()

	var responses []forms.FormResponse
	for i := 0; i < 15; i++ {
		responses = append(responses, forms.FormResponse{RespondentEmail: "u@x.com"})
	}

	if got := respondentNames(responses, nil); len(got) != 10 {
		t.Errorf("respondentNames() returned %d names, want 10", len(got))
	}
}

func TestBuildQuestions(t *testing.T) {
	t.Parallel()

	no := false
	spec := formSpec{Questions: []specQuestion{
		{Title: "Nama", Type: "short_answer"},
		{Title: "Saran", Type: "paragraph", Required: &no},
		{Title: "Sesi", Type: "multiple_choice", Options: []string{"pagi", "siang"}},
		{Title: "Rating", Type: "scale"},
		{Title: "Bagian A", Type: "section"},
	}}

	got := buildQuestions(spec)
	if len(got) != 5 {
		t.Fatalf("buildQuestions() returned %d questions", len(got))
	}
	if got[0].Type != "text" || !got[0].Required {
		t.Errorf("short answer mapped to %+v, want required text", got[0])
	}
	if got[1].Required {
		t.Error("explicit required=false was ignored")
	}
	if got[2].Type != "radio" || len(got[2].Options) != 2 {
		t.Errorf("multiple choice mapped to %+v", got[2])
	}
	if got[3].Low != 1 || got[3].High != 5 {
		t.Errorf("scale defaults = %d..%d, want 1..5", got[3].Low, got[3].High)
	}
	if got[4].Required {
		t.Error("sections must never be required")
	}
}

func TestBuildQAPrompt(t *testing.T) {
	t.Parallel()

	history := []historyEntry{
		{User: "u1", Bot: "b1"},
		{User: "u2", Bot: "b2"},
		{User: "u3", Bot: "b3"},
		{User: "u4", Bot: "b4"},
	}

	prompt := buildQAPrompt("halo lagi", history)
	if !strings.Contains(prompt, "KONTEKS PERCAKAPAN SEBELUMNYA:") {
		t.Error("prompt is missing the history header")
	}
	if strings.Contains(prompt, "u1") {
		t.Error("prompt includes exchanges beyond the last three")
	}
	if !strings.Contains(prompt, "User: u4") || !strings.Contains(prompt, "Bot: b4") {
		t.Error("prompt is missing the latest exchange")
	}
	if !strings.Contains(prompt, "[PESAN USER]:\nhalo lagi") {
		t.Error("prompt is missing the user message block")
	}

	// Quoted-reply context suppresses the rolling history.
	quoted := "[KONTEKS PESAN YANG DIBALAS]:\n\"x\"\n\n[PESAN USER]:\nyang itu"
	if p := buildQAPrompt(quoted, history); strings.Contains(p, "KONTEKS PERCAKAPAN SEBELUMNYA:") {
		t.Error("history was prepended despite quoted-reply context")
	}
}

func TestRenamePattern(t *testing.T) {
	t.Parallel()

	m := renamePattern.FindStringSubmatch("Panggil saya Ren mulai sekarang ya")
	if m == nil || m[1] != "Ren" {
		t.Errorf("renamePattern match = %v, want the name Ren", m)
	}
	if renamePattern.MatchString("panggil saya nanti") {
		t.Error("renamePattern matched without the closing phrase")
	}
}
