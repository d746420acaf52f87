// Package forms implements the client for the Google Forms backend, an Apps
// Script web app that proxies form creation, updates, sharing, and response
// reads. The script exposes a single URL; requests carry an action name and a
// shared token.
package forms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clarahexa/clarabot/internal/config"
)

// Question is one form question in a create or update request.
type Question struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	Low         int      `json:"low,omitempty"`
	High        int      `json:"high,omitempty"`
	LowLabel    string   `json:"lowLabel,omitempty"`
	HighLabel   string   `json:"highLabel,omitempty"`
}

// CreateFormRequest describes the form to create.
type CreateFormRequest struct {
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Questions           []Question `json:"questions"`
	EmailCollectionType string     `json:"emailCollectionType,omitempty"`
}

// Form is the backend's view of a created form.
type Form struct {
	FormID         string `json:"formId"`
	Title          string `json:"title"`
	URL            string `json:"formUrl"`
	EditURL        string `json:"editUrl"`
	SpreadsheetURL string `json:"spreadsheetUrl"`
}

// UpdateFormRequest describes modifications to an existing form. Zero-value
// fields are left untouched.
type UpdateFormRequest struct {
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	AddQuestions []Question `json:"addQuestions,omitempty"`
}

// FormResponse is one submitted response.
type FormResponse struct {
	RespondentEmail   string            `json:"respondentEmail"`
	LastSubmittedTime time.Time         `json:"lastSubmittedTime"`
	Answers           map[string]string `json:"answers"`
}

// FormDetails describes a form's structure: question titles keyed by
// question id, used to locate name fields in responses.
type FormDetails struct {
	FormID    string            `json:"formId"`
	Title     string            `json:"title"`
	Questions map[string]string `json:"questions"`
}

// Client defines the form-backend operations used by the tools.
type Client interface {
	CreateForm(ctx context.Context, req CreateFormRequest) (*Form, error)
	UpdateForm(ctx context.Context, formID string, req UpdateFormRequest) error
	AddContributor(ctx context.Context, formID, email string) error
	GetForm(ctx context.Context, formID string) (*FormDetails, error)
	GetResponses(ctx context.Context, formID string) ([]FormResponse, error)
	FindFormIDByName(ctx context.Context, name string) (string, error)
}

type scriptClient struct {
	http  *resty.Client
	url   string
	token string
	log   *slog.Logger
}

// NewClient creates a forms client from configuration.
func NewClient(cfg config.FormsConfig, log *slog.Logger) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &scriptClient{
		http:  resty.New().SetHeader("Content-Type", "application/json").SetTimeout(timeout),
		url:   cfg.ScriptURL,
		token: cfg.Token,
		log:   log.With("component", "forms_client"),
	}
}

// scriptEnvelope is the common response wrapper of the Apps Script backend.
type scriptEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// call posts one action to the script URL and decodes the response into out,
// which must embed the success/error envelope fields.
func (c *scriptClient) call(ctx context.Context, action string, params map[string]any, out any) error {
	if c.url == "" {
		return fmt.Errorf("forms backend script URL is not configured")
	}

	body := map[string]any{"action": action, "token": c.token}
	for k, v := range params {
		body[k] = v
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(out).Post(c.url)
	if err != nil {
		return fmt.Errorf("forms backend %s: %w", action, err)
	}
	if resp.IsError() {
		return fmt.Errorf("forms backend %s: status %d: %s", action, resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *scriptClient) CreateForm(ctx context.Context, req CreateFormRequest) (*Form, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("form title is required")
	}

	var result struct {
		scriptEnvelope
		Form
	}
	err := c.call(ctx, "createForm", map[string]any{
		"title":               req.Title,
		"description":         req.Description,
		"questions":           req.Questions,
		"emailCollectionType": req.EmailCollectionType,
	}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("forms backend createForm: %s", backendError(result.Error))
	}
	if result.Form.Title == "" {
		result.Form.Title = req.Title
	}

	c.log.InfoContext(ctx, "Form created", "form_id", result.FormID, "title", result.Form.Title)
	return &result.Form, nil
}

func (c *scriptClient) UpdateForm(ctx context.Context, formID string, req UpdateFormRequest) error {
	if formID == "" {
		return fmt.Errorf("form id is required")
	}

	var result scriptEnvelope
	err := c.call(ctx, "updateForm", map[string]any{
		"formId":       formID,
		"title":        req.Title,
		"description":  req.Description,
		"addQuestions": req.AddQuestions,
	}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("forms backend updateForm: %s", backendError(result.Error))
	}

	c.log.InfoContext(ctx, "Form updated", "form_id", formID, "added_questions", len(req.AddQuestions))
	return nil
}

func (c *scriptClient) AddContributor(ctx context.Context, formID, email string) error {
	if formID == "" || email == "" {
		return fmt.Errorf("form id and email are required")
	}

	var result scriptEnvelope
	err := c.call(ctx, "addContributor", map[string]any{"formId": formID, "email": email}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("forms backend addContributor: %s", backendError(result.Error))
	}

	c.log.InfoContext(ctx, "Contributor added", "form_id", formID, "email", email)
	return nil
}

func (c *scriptClient) GetForm(ctx context.Context, formID string) (*FormDetails, error) {
	if formID == "" {
		return nil, fmt.Errorf("form id is required")
	}

	var result struct {
		scriptEnvelope
		FormDetails
	}
	if err := c.call(ctx, "getForm", map[string]any{"formId": formID}, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("forms backend getForm: %s", backendError(result.Error))
	}
	return &result.FormDetails, nil
}

func (c *scriptClient) GetResponses(ctx context.Context, formID string) ([]FormResponse, error) {
	if formID == "" {
		return nil, fmt.Errorf("form id is required")
	}

	var result struct {
		scriptEnvelope
		Responses []FormResponse `json:"responses"`
	}
	if err := c.call(ctx, "getResponses", map[string]any{"formId": formID}, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("forms backend getResponses: %s", backendError(result.Error))
	}
	return result.Responses, nil
}

func (c *scriptClient) FindFormIDByName(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("form name is required")
	}

	var result struct {
		scriptEnvelope
		FormID string `json:"formId"`
	}
	if err := c.call(ctx, "findFormByName", map[string]any{"name": name}, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("forms backend findFormByName: %s", backendError(result.Error))
	}
	return result.FormID, nil
}

func backendError(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
