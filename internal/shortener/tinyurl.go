// Package shortener implements URL shortening via the TinyURL API with
// custom alias support. Shortening is best effort: when the service is
// unavailable the original URL is returned unchanged.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrAliasTaken signals that the requested custom alias already exists.
var ErrAliasTaken = errors.New("shortener alias already taken")

const tinyURLBase = "https://api.tinyurl.com"

// Shortener shortens URLs, optionally under a custom alias.
type Shortener interface {
	// Shorten returns a short URL for longURL. A non-empty alias is cleaned
	// to a URL-safe slug; on collision one retry with a random numeric suffix
	// is made. Failures fall back to the original URL without error.
	Shorten(ctx context.Context, longURL, alias string) string
}

type tinyURL struct {
	http  *resty.Client
	token string
	log   *slog.Logger
}

// NewTinyURL creates a TinyURL-backed shortener. An empty API token disables
// shortening; Shorten then returns inputs unchanged.
func NewTinyURL(apiToken string, log *slog.Logger) Shortener {
	return &tinyURL{
		http: resty.New().
			SetBaseURL(tinyURLBase).
			SetHeader("Content-Type", "application/json").
			SetAuthToken(apiToken).
			SetTimeout(15 * time.Second),
		token: apiToken,
		log:   log.With("component", "shortener"),
	}
}

func (t *tinyURL) Shorten(ctx context.Context, longURL, alias string) string {
	if t.token == "" {
		t.log.WarnContext(ctx, "Shortener token not configured, returning original URL")
		return longURL
	}

	cleaned := CleanAlias(alias)

	short, err := t.create(ctx, longURL, cleaned)
	if err == nil {
		return short
	}

	if errors.Is(err, ErrAliasTaken) && cleaned != "" {
		fallback := fmt.Sprintf("%s-%d", cleaned, 100+rand.Intn(900))
		t.log.InfoContext(ctx, "Alias taken, retrying with suffix", "alias", cleaned, "fallback", fallback)
		if short, err = t.create(ctx, longURL, fallback); err == nil {
			return short
		}
	}

	t.log.WarnContext(ctx, "Shortening failed, returning original URL", "error", err)
	return longURL
}

type createRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Alias  string `json:"alias,omitempty"`
}

type createResponse struct {
	Data struct {
		TinyURL string `json:"tiny_url"`
	} `json:"data"`
	Errors []string `json:"errors"`
}

func (t *tinyURL) create(ctx context.Context, longURL, alias string) (string, error) {
	var result createResponse

	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(createRequest{URL: longURL, Domain: "tinyurl.com", Alias: alias}).
		SetResult(&result).
		SetError(&result).
		Post("/create")
	if err != nil {
		return "", fmt.Errorf("tinyurl create: %w", err)
	}

	if resp.IsError() {
		for _, msg := range result.Errors {
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "alias") || strings.Contains(lower, "taken") || strings.Contains(lower, "already") {
				return "", fmt.Errorf("tinyurl create alias %q: %w", alias, ErrAliasTaken)
			}
		}
		return "", fmt.Errorf("tinyurl create: status %d: %s", resp.StatusCode(), strings.Join(result.Errors, "; "))
	}

	if result.Data.TinyURL == "" {
		return "", fmt.Errorf("tinyurl create: empty tiny_url in response")
	}
	return result.Data.TinyURL, nil
}

var (
	aliasInvalidChars = regexp.MustCompile(`[^a-z0-9-_]`)
	aliasDashRuns     = regexp.MustCompile(`-+`)
)

// CleanAlias lowercases the alias, replaces anything outside [a-z0-9-_] with
// dashes, collapses dash runs, and trims leading/trailing dashes.
func CleanAlias(alias string) string {
	s := strings.ToLower(strings.TrimSpace(alias))
	s = aliasInvalidChars.ReplaceAllString(s, "-")
	s = aliasDashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
