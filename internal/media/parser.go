// Package media extracts text from document attachments by delegating to a
// Tika-compatible HTTP extraction service. Images are rejected: OCR is
// intentionally disabled, users are asked to send PDFs instead.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/clarahexa/clarabot/internal/config"
)

// ErrUnsupportedMediaType signals an attachment type that text extraction
// does not handle. Callers report it to the user instead of failing silently.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Parser extracts plain text from raw attachment bytes.
type Parser interface {
	ParseMedia(ctx context.Context, data []byte, mimeType string) (string, error)
}

type httpParser struct {
	http *resty.Client
	url  string
	log  *slog.Logger
}

// NewParser creates a Parser backed by the configured extraction endpoint.
func NewParser(cfg config.MediaConfig, log *slog.Logger) Parser {
	return &httpParser{
		http: resty.New().SetTimeout(cfg.Timeout),
		url:  cfg.ExtractorURL,
		log:  log.With("component", "media_parser"),
	}
}

func supported(mimeType string) bool {
	switch {
	case mimeType == "application/pdf":
		return true
	case mimeType == "application/msword":
		return true
	case mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return false
}

func (p *httpParser) ParseMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	if strings.HasPrefix(base, "image/") {
		return "", fmt.Errorf("image OCR is disabled, ask for a PDF instead: %w", ErrUnsupportedMediaType)
	}
	if !supported(base) {
		return "", fmt.Errorf("media type %q: %w", base, ErrUnsupportedMediaType)
	}
	if p.url == "" {
		return "", fmt.Errorf("media extractor URL is not configured")
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", base).
		SetHeader("Accept", "text/plain").
		SetBody(data).
		Put(p.url)
	if err != nil {
		return "", fmt.Errorf("media extraction: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("media extraction: status %d", resp.StatusCode())
	}

	text := strings.TrimSpace(string(resp.Body()))
	p.log.DebugContext(ctx, "Media text extracted", "mime", base, "bytes_in", len(data), "chars_out", len(text))
	return text, nil
}
