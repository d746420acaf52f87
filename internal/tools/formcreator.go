package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"github.com/clarahexa/clarabot/internal/forms"
	"github.com/clarahexa/clarabot/internal/gemini"
	"github.com/clarahexa/clarabot/internal/shortener"
)

// formSpec is the structured extraction result for a create-form request.
type formSpec struct {
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	CustomKeyword       string         `json:"customKeyword"`
	Editors             []string       `json:"editors"`
	EmailCollectionType string         `json:"emailCollectionType"`
	Questions           []specQuestion `json:"questions"`
}

type specQuestion struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    *bool    `json:"required"`
	Options     []string `json:"options"`
	Low         int      `json:"low"`
	High        int      `json:"high"`
	LowLabel    string   `json:"lowLabel"`
	HighLabel   string   `json:"highLabel"`
}

var questionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":       {Type: genai.TypeString},
		"type":        {Type: genai.TypeString, Enum: []string{"text", "paragraph", "radio", "checkbox", "dropdown", "scale", "date", "time", "section"}},
		"description": {Type: genai.TypeString},
		"required":    {Type: genai.TypeBoolean},
		"options":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"low":         {Type: genai.TypeInteger},
		"high":        {Type: genai.TypeInteger},
		"lowLabel":    {Type: genai.TypeString},
		"highLabel":   {Type: genai.TypeString},
	},
	Required: []string{"title", "type"},
}

var formSpecSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":               {Type: genai.TypeString},
		"description":         {Type: genai.TypeString},
		"customKeyword":       {Type: genai.TypeString},
		"editors":             {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"emailCollectionType": {Type: genai.TypeString, Enum: []string{"VERIFIED", "RESPONDER_INPUT", "DO_NOT_COLLECT"}},
		"questions":           {Type: genai.TypeArray, Items: questionSchema},
	},
	Required: []string{"title", "questions"},
}

// FormCreator extracts a form specification from the message, creates the
// form through the backend, shortens the link, and reports back.
type FormCreator struct {
	ai    gemini.Client
	forms forms.Client
	short shortener.Shortener
	log   *slog.Logger
}

// NewFormCreator creates the create-form tool.
func NewFormCreator(ai gemini.Client, formsClient forms.Client, short shortener.Shortener, log *slog.Logger) *FormCreator {
	return &FormCreator{
		ai:    ai,
		forms: formsClient,
		short: short,
		log:   log.With("component", "form_creator"),
	}
}

func (t *FormCreator) Name() string { return "form_creator" }

func (t *FormCreator) Execute(ctx context.Context, query string, tc Context) Response {
	raw, err := t.ai.GenerateStructured(ctx, gemini.FormSpecInstruction, query, formSpecSchema)
	if err != nil {
		t.log.ErrorContext(ctx, "Form spec extraction failed", "error", err)
		return Response{
			Success: false,
			Reply: "Maaf, saya kesulitan memahami struktur form yang Anda inginkan. Bisa tolong dijelaskan lebih detail?\n\n" +
				`Contoh: "Buatkan form pendaftaran dengan pertanyaan nama, email, dan pilih sesi (pagi/siang/malam)"`,
		}
	}

	var spec formSpec
	if err := json.Unmarshal(raw, &spec); err != nil || strings.TrimSpace(spec.Title) == "" || len(spec.Questions) == 0 {
		t.log.ErrorContext(ctx, "Form spec invalid", "error", err)
		return Response{
			Success: false,
			Reply:   "Format form tidak valid. Mohon sebutkan judul form dan pertanyaan-pertanyaannya.",
		}
	}

	created, err := t.forms.CreateForm(ctx, forms.CreateFormRequest{
		Title:               spec.Title,
		Description:         spec.Description,
		Questions:           buildQuestions(spec),
		EmailCollectionType: spec.EmailCollectionType,
	})
	if err != nil {
		t.log.ErrorContext(ctx, "Form creation failed", "title", spec.Title, "error", err)
		return Response{
			Success: false,
			Reply:   "Mohon maaf, terjadi kesalahan teknis saat mencoba membuat form Anda. Silakan coba lagi sebentar lagi atau hubungi administrator jika masalah berlanjut.",
		}
	}

	shortURL := t.short.Shorten(ctx, created.URL, spec.CustomKeyword)

	var shared []string
	for _, email := range spec.Editors {
		if !strings.Contains(email, "@") {
			continue
		}
		if err := t.forms.AddContributor(ctx, created.FormID, email); err != nil {
			t.log.WarnContext(ctx, "Adding extracted editor failed", "form_id", created.FormID, "email", email, "error", err)
			continue
		}
		shared = append(shared, email)
	}

	qrURL := "https://quickchart.io/qr?text=" + url.QueryEscape(shortURL)

	reply := t.successReply(ctx, query, spec, created, shortURL, shared, qrURL)

	return Response{
		Success: true,
		Reply:   reply,
		StateDelta: map[string]any{
			"lastFormId":         created.FormID,
			"lastFormTitle":      created.Title,
			"lastFormUrl":        shortURL,
			"lastFormEditUrl":    created.EditURL,
			"lastSpreadsheetUrl": created.SpreadsheetURL,
			"lastFormQrUrl":      qrURL,
			"createdForms": []any{map[string]any{
				"id":    created.FormID,
				"title": created.Title,
				"url":   shortURL,
			}},
		},
	}
}

// successReply phrases the celebration via the model, falling back to a
// deterministic layout when generation fails.
func (t *FormCreator) successReply(ctx context.Context, query string, spec formSpec, created *forms.Form, shortURL string, shared []string, qrURL string) string {
	prompt := gemini.FormCreationSuccessPrompt(gemini.FormSuccessData{
		Title:          created.Title,
		QuestionCount:  len(spec.Questions),
		ShortURL:       shortURL,
		EditURL:        created.EditURL,
		SpreadsheetURL: created.SpreadsheetURL,
		SharedWith:     shared,
		QRCodeURL:      qrURL,
		Query:          query,
	})

	reply, err := t.ai.GenerateText(ctx, "", prompt)
	if err == nil && strings.TrimSpace(reply) != "" {
		return strings.ReplaceAll(strings.TrimSpace(reply), `\n`, "\n")
	}
	t.log.WarnContext(ctx, "Success message generation failed, using fixed layout", "error", err)

	var b strings.Builder
	fmt.Fprintf(&b, "🎉 *Yeay! Form Berhasil Dibuat!*\n\n")
	fmt.Fprintf(&b, "📄 *Nama Form:* %s\n", created.Title)
	fmt.Fprintf(&b, "📊 *Total Pertanyaan:* %d\n", len(spec.Questions))
	if len(shared) > 0 {
		fmt.Fprintf(&b, "👥 *Dibagikan ke:* %s\n", strings.Join(shared, ", "))
	}
	fmt.Fprintf(&b, "\n🔗 *Link Form:*\n%s\n\n✏️ *Edit Form:*\n%s\n", shortURL, created.EditURL)
	if created.SpreadsheetURL != "" {
		fmt.Fprintf(&b, "\n📈 *Spreadsheet:*\n%s\n", created.SpreadsheetURL)
	}
	b.WriteString("\nAda lagi yang bisa saya bantu? 😊")
	return b.String()
}

// buildQuestions maps extracted questions to backend questions, applying the
// required-by-default rule and scale defaults.
func buildQuestions(spec formSpec) []forms.Question {
	questions := make([]forms.Question, 0, len(spec.Questions))
	for _, q := range spec.Questions {
		mapped := forms.Question{
			Title:       q.Title,
			Type:        mapQuestionType(q.Type),
			Description: q.Description,
			Required:    q.Required == nil || *q.Required,
		}
		switch mapped.Type {
		case "radio", "checkbox", "dropdown":
			mapped.Options = q.Options
		case "scale":
			mapped.Low, mapped.High = q.Low, q.High
			if mapped.Low == 0 {
				mapped.Low = 1
			}
			if mapped.High == 0 {
				mapped.High = 5
			}
			mapped.LowLabel, mapped.HighLabel = q.LowLabel, q.HighLabel
		case "section":
			mapped.Required = false
		}
		questions = append(questions, mapped)
	}
	return questions
}

func mapQuestionType(raw string) string {
	switch strings.ToLower(raw) {
	case "text", "short_answer":
		return "text"
	case "paragraph", "long_answer":
		return "paragraph"
	case "choice", "multiple_choice", "radio":
		return "radio"
	case "checkbox":
		return "checkbox"
	case "dropdown":
		return "dropdown"
	case "scale":
		return "scale"
	case "date":
		return "date"
	case "time":
		return "time"
	case "section":
		return "section"
	}
	return "text"
}
