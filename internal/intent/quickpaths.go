package intent

import "strings"

// Quick-path pattern tables. Substring matches over the lowercased message,
// evaluated in the fixed order implemented by quickPath.

var acknowledgmentPhrases = []string{
	"oke", "ok", "okey", "baik", "sip", "siap", "noted",
	"terima kasih", "makasih", "thanks", "thank you", "mantap",
}

var capabilityPatterns = []string{
	"apakah kamu bisa",
	"apakah anda bisa",
	"bisa gak",
	"bisa nggak",
	"bisa tidak",
	"bisa kah",
	"bisa buatkan",
	"bisa buat",
	"kamu bisa apa",
	"anda bisa apa",
	"fitur apa",
	"fungsi apa",
}

var examplePatterns = []string{
	"contoh kata",
	"contoh kalimat",
	"contoh perintah",
	"contoh pesan",
	"bagaimana cara",
	"cara membuat",
	"apa yang harus",
	"gimana caranya",
	"caranya gimana",
	"cara bikin",
	"kasih contoh",
	"berikan contoh",
}

var createFormPatterns = []string{
	"buatkan google form",
	"buat google form",
	"buatkan google formulir",
	"buat google formulir",
	"buatkan formulir",
	"buat formulir",
	"buatkan form",
	"buat form",
	"formulir pendaftaran",
	"form pendaftaran",
	"link pendaftaran",
}

var clarificationPatterns = []string{
	"apa maksudnya",
	"maksudnya apa",
	"jelaskan",
	"artinya apa",
	"apa itu",
}

var formKeywords = []string{
	"form", "formulir", "responden", "mengisi", "isi", "daftar", "berapa", "siapa",
}

// mediaMarkers in the body force create_form: extracted document text only
// ever arrives for form-building requests.
var mediaMarkers = []string{
	"[TEKS DARI MEDIA",
	"[TEKS DARI FILE YANG DIBALAS",
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// isShortAcknowledgment reports whether the message is a bare thanks/ok. The
// whole message must be short so "oke, tapi gimana kalau..." falls through
// to the classifier.
func isShortAcknowledgment(lower string) bool {
	if len(lower) > 25 {
		return false
	}
	trimmed := strings.Trim(lower, " .!,🙏😊👍")
	for _, p := range acknowledgmentPhrases {
		if trimmed == p || strings.HasPrefix(trimmed, p+" ") {
			return true
		}
	}
	return false
}

// quickPath applies the rule-based shortcuts in fixed order and reports
// whether one matched. First match wins; the order is part of the contract.
func quickPath(message string) (Intent, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))

	// 1. Extracted document text always means a form request, regardless of
	// any other phrasing in the body.
	if containsAny(message, mediaMarkers) {
		return CreateForm, true
	}

	// 2. Bare acknowledgments never need the LLM.
	if isShortAcknowledgment(lower) {
		return Acknowledgment, true
	}

	// 3. Capability questions ("bisa buat form?") are chatter, not commands.
	if containsAny(lower, capabilityPatterns) {
		return GeneralQA, true
	}

	// 4. Asking for example phrasing must not trigger form creation.
	if containsAny(lower, examplePatterns) {
		return GeneralQA, true
	}

	// 5. Common create-form phrasing.
	if containsAny(lower, createFormPatterns) {
		return CreateForm, true
	}

	// 6. Short clarification questions; "jelaskan siapa kamu" is identity
	// chatter, so personal pronouns opt out.
	if containsAny(lower, clarificationPatterns) &&
		len(message) < 40 &&
		!containsAny(lower, formKeywords) &&
		!strings.Contains(lower, "kamu") &&
		!strings.Contains(lower, "anda") &&
		!strings.Contains(lower, "siapa") {
		return Clarification, true
	}

	return Unknown, false
}
