package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/clarahexa/clarabot/internal/forms"
	"github.com/clarahexa/clarabot/internal/gemini"
)

var contributorSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"email":    {Type: genai.TypeString},
		"formName": {Type: genai.TypeString},
	},
	Required: []string{"email", "formName"},
}

// Contributor shares a form with another account as editor.
type Contributor struct {
	ai    gemini.Client
	forms forms.Client
	log   *slog.Logger
}

// NewContributor creates the share-form tool.
func NewContributor(ai gemini.Client, formsClient forms.Client, log *slog.Logger) *Contributor {
	return &Contributor{
		ai:    ai,
		forms: formsClient,
		log:   log.With("component", "contributor"),
	}
}

func (t *Contributor) Name() string { return "contributor" }

func (t *Contributor) Execute(ctx context.Context, query string, tc Context) Response {
	raw, err := t.ai.GenerateStructured(ctx, gemini.ContributorInstruction, query, contributorSchema)
	if err != nil {
		t.log.ErrorContext(ctx, "Contributor extraction failed", "error", err)
		return Response{Success: false, Reply: "❌ Maaf, saya tidak menemukan alamat email di pesan Anda. Coba tulis misalnya: tambahkan email joni@gmail.com"}
	}

	var extracted struct {
		Email    string `json:"email"`
		FormName string `json:"formName"`
	}
	if err := json.Unmarshal(raw, &extracted); err != nil {
		t.log.ErrorContext(ctx, "Contributor extraction invalid", "error", err)
		return Response{Success: false, Reply: "❌ Maaf, saya tidak menemukan alamat email di pesan Anda. Coba tulis misalnya: tambahkan email joni@gmail.com"}
	}

	email := strings.TrimSpace(extracted.Email)
	if !strings.Contains(email, "@") {
		return Response{Success: false, Reply: "❌ Alamat email yang Anda sebutkan sepertinya tidak valid. Bisa dicek lagi?"}
	}

	formID := stateString(tc.State, "lastFormId")
	formTitle := stateString(tc.State, "lastFormTitle")
	if formTitle == "" {
		formTitle = "Form terakhir"
	}

	name := strings.TrimSpace(extracted.FormName)
	if name != "" && !strings.EqualFold(name, "NONE") {
		for _, f := range createdForms(tc.State) {
			if strings.Contains(strings.ToLower(f.Title), strings.ToLower(name)) {
				formID, formTitle = f.ID, f.Title
				break
			}
		}
	}

	if formID == "" {
		return Response{Success: false, Reply: "❌ Saya belum tahu form mana yang mau dibagikan. Sebutkan nama formnya, atau buat form dulu ya."}
	}

	if err := t.forms.AddContributor(ctx, formID, email); err != nil {
		t.log.ErrorContext(ctx, "Adding contributor failed", "form_id", formID, "email", email, "error", err)
		return Response{Success: false, Reply: "❌ Maaf, terjadi kendala saat menambahkan kontributor. Coba lagi sebentar lagi ya."}
	}

	reply, err := t.ai.GenerateText(ctx, "", gemini.ContributorSuccessPrompt(email, formTitle, query))
	if err != nil || strings.TrimSpace(reply) == "" {
		t.log.WarnContext(ctx, "Contributor success message generation failed, using fixed reply", "error", err)
		reply = "Email " + email + " sudah ditambahkan sebagai editor di form " + formTitle + ". Selamat berkolaborasi!"
	}

	return Response{Success: true, Reply: stripBold(strings.TrimSpace(reply))}
}

// stripBold removes asterisk emphasis the model sometimes emits despite the
// format rules.
func stripBold(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.ReplaceAll(s, "*", "")
}
