package tools

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/clarahexa/clarabot/internal/forms"
	"github.com/clarahexa/clarabot/internal/gemini"
)

// followUpPhrases mark requests that refine the previous analytics answer
// rather than naming a form.
var followUpPhrases = []string{
	"sertakan", "tambahkan", "dengan email", "emailnya", "lihat email", "tampilkan email",
}

var nameFieldKeywords = []string{
	"nama", "name", "full name", "nama lengkap", "respondent", "peserta",
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Analytics reports response counts and respondent lists for a created form.
type Analytics struct {
	ai    gemini.Client
	forms forms.Client
	log   *slog.Logger
}

// NewAnalytics creates the check-responses tool.
func NewAnalytics(ai gemini.Client, formsClient forms.Client, log *slog.Logger) *Analytics {
	return &Analytics{
		ai:    ai,
		forms: formsClient,
		log:   log.With("component", "analytics"),
	}
}

func (t *Analytics) Name() string { return "analytics" }

func (t *Analytics) Execute(ctx context.Context, query string, tc Context) Response {
	known := createdForms(tc.State)
	if len(known) == 0 {
		return Response{Success: false, Reply: "❌ Saya belum punya catatan form apa pun untuk chat ini. Buat form dulu, nanti saya bisa cek respon-nya. 😊"}
	}

	matched, formName := t.resolveForm(ctx, query, tc, known)
	if matched == nil {
		var titles []string
		for _, f := range known {
			titles = append(titles, "- "+f.Title)
		}
		return Response{
			Success: false,
			Reply:   "❌ Saya tidak menemukan form dengan nama \"" + formName + "\". Form yang saya catat:\n" + strings.Join(titles, "\n"),
		}
	}

	details, err := t.forms.GetForm(ctx, matched.ID)
	if err != nil {
		t.log.WarnContext(ctx, "Form structure fetch failed", "form_id", matched.ID, "error", err)
		details = &forms.FormDetails{}
	}

	responses, err := t.forms.GetResponses(ctx, matched.ID)
	if err != nil {
		t.log.ErrorContext(ctx, "Responses fetch failed", "form_id", matched.ID, "error", err)
		return Response{Success: false, Reply: "❌ Terjadi kesalahan saat mengambil data respon form. Coba lagi sebentar lagi ya."}
	}

	lastUpdate := "-"
	if len(responses) > 0 {
		if last := responses[len(responses)-1].LastSubmittedTime; !last.IsZero() {
			if loc, err := time.LoadLocation("Asia/Jakarta"); err == nil {
				lastUpdate = last.In(loc).Format("02/01/2006 15.04")
			} else {
				lastUpdate = last.Format("02/01/2006 15.04")
			}
		}
	}

	names := respondentNames(responses, details.Questions)

	queryIntent := "FULL_REPORT"
	if answer, err := t.ai.GenerateText(ctx, "", gemini.AnalyticsIntentPrompt(query)); err == nil {
		queryIntent = strings.ToUpper(strings.TrimSpace(answer))
	}

	reply, err := t.ai.GenerateText(ctx, "", gemini.AnalyticsResponsePrompt(gemini.AnalyticsResponseData{
		FormTitle:       matched.Title,
		TotalResponses:  len(responses),
		LastUpdate:      lastUpdate,
		RespondentNames: names,
		FormURL:         matched.URL,
		Query:           query,
		QueryIntent:     queryIntent,
	}))
	if err != nil || strings.TrimSpace(reply) == "" {
		t.log.WarnContext(ctx, "Analytics reply generation failed, using fixed layout", "error", err)
		reply = "📈 *Laporan Form: " + matched.Title + "*\n\n" +
			"📊 *Total Responden:* " + strconv.Itoa(len(responses)) + "\n" +
			"🕒 *Update Terakhir:* " + lastUpdate
	}

	formatted := strings.ReplaceAll(strings.TrimSpace(reply), `\n`, "\n")
	formatted = strings.ReplaceAll(formatted, "**", "")

	return Response{
		Success: true,
		Reply:   formatted,
		StateDelta: map[string]any{
			"lastFormId":    matched.ID,
			"lastFormTitle": matched.Title,
		},
	}
}

// resolveForm picks the form the query refers to: follow-up phrasing reuses
// the last form, otherwise the model extracts a name that is matched
// exactly, by substring, then fuzzily.
func (t *Analytics) resolveForm(ctx context.Context, query string, tc Context, known []createdForm) (*createdForm, string) {
	lower := strings.ToLower(query)
	lastID := stateString(tc.State, "lastFormId")

	if containsAny(lower, followUpPhrases) && lastID != "" {
		if f := formByID(known, lastID); f != nil {
			return f, f.Title
		}
	}

	name := ""
	if answer, err := t.ai.GenerateText(ctx, "", gemini.FormNameExtractionPrompt(query)); err == nil {
		name = strings.Trim(strings.TrimSpace(answer), `"`)
	} else {
		t.log.WarnContext(ctx, "Form name extraction failed", "error", err)
	}

	if name == "" || strings.EqualFold(name, "NONE") {
		if lastID != "" {
			if f := formByID(known, lastID); f != nil {
				return f, f.Title
			}
		}
		return nil, name
	}

	return matchForm(name, known), name
}

func formByID(known []createdForm, id string) *createdForm {
	for i := range known {
		if known[i].ID == id {
			return &known[i]
		}
	}
	return nil
}

// matchForm finds a known form by exact title, substring, then Dice bigram
// similarity above 0.5 for typo tolerance.
func matchForm(name string, known []createdForm) *createdForm {
	lower := strings.ToLower(name)

	for i := range known {
		if strings.ToLower(known[i].Title) == lower {
			return &known[i]
		}
	}
	for i := range known {
		if strings.Contains(strings.ToLower(known[i].Title), lower) {
			return &known[i]
		}
	}

	var best *createdForm
	bestScore := 0.5
	for i := range known {
		score := diceSimilarity(lower, strings.ToLower(known[i].Title))
		if score > bestScore {
			bestScore = score
			best = &known[i]
		}
	}
	return best
}

// diceSimilarity is Dice's coefficient over character bigrams, in [0, 1].
func diceSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	counts := make(map[string]int, len(bb))
	for _, g := range bb {
		counts[g]++
	}
	matches := 0
	for _, g := range ba {
		if counts[g] > 0 {
			counts[g]--
			matches++
		}
	}
	return float64(2*matches) / float64(len(ba)+len(bb))
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	grams := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		grams = append(grams, string(runes[i:i+2]))
	}
	return grams
}

// respondentNames lists up to 10 recent respondents, newest first, preferring
// the answer to a name-like question over the respondent email.
func respondentNames(responses []forms.FormResponse, questionTitles map[string]string) []string {
	if len(responses) == 0 {
		return nil
	}

	nameQuestionID := ""
	for id, title := range questionTitles {
		lower := strings.ToLower(title)
		if containsAny(lower, nameFieldKeywords) {
			nameQuestionID = id
			break
		}
	}

	start := len(responses) - 10
	if start < 0 {
		start = 0
	}
	recent := responses[start:]

	names := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		r := recent[i]
		name := r.RespondentEmail
		if nameQuestionID != "" {
			if v, ok := r.Answers[nameQuestionID]; ok && v != "" {
				name = v
			}
		}
		if name == "" {
			name = "Unknown"
		}
		names = append(names, name)
	}
	return names
}
