package shortener_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/clarahexa/clarabot/internal/shortener"
)

func TestCleanAlias(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already clean", input: "form-absensi", expected: "form-absensi"},
		{name: "uppercase and spaces", input: "Form Absensi Kelas", expected: "form-absensi-kelas"},
		{name: "accents and symbols", input: "Pendaftaran (17an)!", expected: "pendaftaran-17an"},
		{name: "dash runs collapse", input: "a -- b", expected: "a-b"},
		{name: "leading and trailing junk", input: "  --survei--  ", expected: "survei"},
		{name: "underscores kept", input: "rapat_rt_05", expected: "rapat_rt_05"},
		{name: "empty", input: "", expected: ""},
		{name: "only junk", input: "!!!", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := shortener.CleanAlias(tt.input); got != tt.expected {
				t.Errorf("CleanAlias(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestShorten_NoTokenReturnsOriginal(t *testing.T) {
	t.Parallel()

	s := shortener.NewTinyURL("", slog.New(slog.NewTextHandler(io.Discard, nil)))

	long := "https://docs.google.com/forms/d/abc/viewform"
	if got := s.Shorten(context.Background(), long, "absensi"); got != long {
		t.Errorf("Shorten() = %q, want the original URL when no token is configured", got)
	}
}
