package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/clarahexa/clarabot/internal/forms"
	"github.com/clarahexa/clarabot/internal/gemini"
)

// formUpdate is the structured extraction result for an update request.
type formUpdate struct {
	TargetForm struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"targetForm"`
	Modifications struct {
		AddQuestions      []specQuestion `json:"addQuestions"`
		UpdateTitle       string         `json:"updateTitle"`
		UpdateDescription string         `json:"updateDescription"`
	} `json:"modifications"`
}

var formUpdateSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"targetForm": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString},
				"id":   {Type: genai.TypeString},
			},
		},
		"modifications": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"addQuestions":      {Type: genai.TypeArray, Items: questionSchema},
				"updateTitle":       {Type: genai.TypeString},
				"updateDescription": {Type: genai.TypeString},
			},
		},
	},
	Required: []string{"targetForm", "modifications"},
}

// FormUpdater edits an existing form: rename, new description, added
// questions.
type FormUpdater struct {
	ai    gemini.Client
	forms forms.Client
	log   *slog.Logger
}

// NewFormUpdater creates the update-form tool.
func NewFormUpdater(ai gemini.Client, formsClient forms.Client, log *slog.Logger) *FormUpdater {
	return &FormUpdater{
		ai:    ai,
		forms: formsClient,
		log:   log.With("component", "form_updater"),
	}
}

func (t *FormUpdater) Name() string { return "form_updater" }

func (t *FormUpdater) Execute(ctx context.Context, query string, tc Context) Response {
	raw, err := t.ai.GenerateStructured(ctx, gemini.FormUpdateInstruction, query, formUpdateSchema)
	if err != nil {
		t.log.ErrorContext(ctx, "Update extraction failed", "error", err)
		return Response{Success: false, Reply: "Maaf, saya gagal memahami format update yang diminta. Bisa diperjelas?"}
	}

	var update formUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		t.log.ErrorContext(ctx, "Update spec invalid", "error", err)
		return Response{Success: false, Reply: "Maaf, saya gagal memahami format update yang diminta. Bisa diperjelas?"}
	}

	formID, formTitle, reply := t.resolveTarget(ctx, update, tc)
	if formID == "" {
		return Response{Success: false, Reply: reply}
	}

	req := forms.UpdateFormRequest{
		Title:       update.Modifications.UpdateTitle,
		Description: update.Modifications.UpdateDescription,
	}
	for _, q := range update.Modifications.AddQuestions {
		req.AddQuestions = append(req.AddQuestions, forms.Question{
			Title:       q.Title,
			Type:        mapQuestionType(q.Type),
			Description: q.Description,
			Required:    q.Required == nil || *q.Required,
			Options:     q.Options,
		})
	}

	if req.Title == "" && req.Description == "" && len(req.AddQuestions) == 0 {
		return Response{Success: true, Reply: "Oke, saya sudah cek tapi sepertinya tidak ada perubahan yang perlu dilakukan."}
	}

	if err := t.forms.UpdateForm(ctx, formID, req); err != nil {
		t.log.ErrorContext(ctx, "Form update failed", "form_id", formID, "error", err)
		return Response{Success: false, Reply: "Duh, ada kendala saat update form. Coba lagi sebentar lagi ya!"}
	}

	var results []string
	if req.Title != "" || req.Description != "" {
		results = append(results, "Info form (Judul/Deskripsi) berhasil diupdate.")
		if req.Title != "" {
			formTitle = req.Title
		}
	}
	if len(req.AddQuestions) > 0 {
		results = append(results, fmt.Sprintf("Berhasil menambahkan %d pertanyaan baru.", len(req.AddQuestions)))
	}

	editURL := fmt.Sprintf("https://docs.google.com/forms/d/%s/edit", formID)
	return Response{
		Success: true,
		Reply:   fmt.Sprintf("Siap! Update form %q berhasil! 🎉\n\n%s\n\nCek formnya di sini: %s", formTitle, strings.Join(results, "\n"), editURL),
		StateDelta: map[string]any{
			"lastFormId":    formID,
			"lastFormTitle": formTitle,
		},
	}
}

// resolveTarget picks the form to edit: explicit id, then name matched
// against session history or the backend directory, then the last form.
func (t *FormUpdater) resolveTarget(ctx context.Context, update formUpdate, tc Context) (formID, formTitle, errReply string) {
	if update.TargetForm.ID != "" {
		return update.TargetForm.ID, update.TargetForm.Name, ""
	}

	name := strings.TrimSpace(update.TargetForm.Name)
	if name != "" && !strings.EqualFold(name, "NONE") {
		for _, f := range createdForms(tc.State) {
			if strings.Contains(strings.ToLower(f.Title), strings.ToLower(name)) {
				return f.ID, f.Title, ""
			}
		}
		id, err := t.forms.FindFormIDByName(ctx, name)
		if err != nil {
			t.log.WarnContext(ctx, "Form lookup by name failed", "name", name, "error", err)
		}
		if id != "" {
			return id, name, ""
		}
		return "", "", fmt.Sprintf("Maaf, saya tidak menemukan form dengan nama %q. Pastikan nama formnya benar ya.", name)
	}

	if id := stateString(tc.State, "lastFormId"); id != "" {
		title := stateString(tc.State, "lastFormTitle")
		if title == "" {
			title = "Form terakhir"
		}
		return id, title, ""
	}
	return "", "", "Form mana yang mau diupdate? Tolong sebutkan nama formnya ya."
}
