// Package client implements the remote form endpoints over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgclient "github.com/goliatone/go-formstate/pkg/client"
	"github.com/goliatone/go-formstate/pkg/schema"
)

const defaultTimeout = 30 * time.Second

// HTTP talks to the smart-forms endpoint family exposed by the backing
// service.
type HTTP struct {
	base    string
	client  *http.Client
	headers map[string]string
}

var _ pkgclient.Client = (*HTTP)(nil)

// Option customises the HTTP client.
type Option func(*HTTP)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithHeader adds a header to every request, e.g. an authorization token.
func WithHeader(name, value string) Option {
	return func(h *HTTP) {
		h.headers[name] = value
	}
}

// New constructs an HTTP client rooted at baseURL.
func New(baseURL string, options ...Option) (*HTTP, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("client: base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("client: invalid base url %q: %w", baseURL, err)
	}

	h := &HTTP{
		base:    trimmed,
		client:  &http.Client{Timeout: defaultTimeout},
		headers: make(map[string]string),
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// FetchDefinition retrieves and parses a form definition by id.
func (h *HTTP) FetchDefinition(ctx context.Context, formID string) (schema.FormDefinition, error) {
	body, err := h.get(ctx, h.formPath(formID, ""))
	if err != nil {
		return schema.FormDefinition{}, fmt.Errorf("client: fetch definition %q: %w", formID, err)
	}
	def, err := schema.ParseDefinition(body)
	if err != nil {
		return schema.FormDefinition{}, fmt.Errorf("client: definition %q: %w", formID, err)
	}
	return def, nil
}

// FetchPrefill retrieves context-based prefill values for the form.
func (h *HTTP) FetchPrefill(ctx context.Context, formID string, formCtx map[string]any) (map[string]any, error) {
	path := h.formPath(formID, "prefill")
	if len(formCtx) > 0 {
		encoded, err := json.Marshal(formCtx)
		if err != nil {
			return nil, fmt.Errorf("client: encode prefill context: %w", err)
		}
		path += "?context=" + url.QueryEscape(string(encoded))
	}

	body, err := h.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("client: fetch prefill %q: %w", formID, err)
	}
	return decodeValues(body)
}

// FetchDraft retrieves the remote draft, or client.ErrNotFound.
func (h *HTTP) FetchDraft(ctx context.Context, formID string) (map[string]any, error) {
	body, err := h.get(ctx, h.formPath(formID, "draft"))
	if err != nil {
		return nil, fmt.Errorf("client: fetch draft %q: %w", formID, err)
	}
	return decodeValues(body)
}

// SaveDraft persists the draft remotely.
func (h *HTTP) SaveDraft(ctx context.Context, formID string, data map[string]any) error {
	if _, err := h.post(ctx, h.formPath(formID, "draft"), data); err != nil {
		return fmt.Errorf("client: save draft %q: %w", formID, err)
	}
	return nil
}

// Submit sends the finalized payload. Structured validation rejections come
// back as *client.RejectionError; everything else is a transport failure.
func (h *HTTP) Submit(ctx context.Context, sub pkgclient.Submission) error {
	if sub.Attachments == nil {
		sub.Attachments = []string{}
	}
	if _, err := h.post(ctx, h.formPath(sub.FormID, "submit"), sub); err != nil {
		return err
	}
	return nil
}

func (h *HTTP) formPath(formID, suffix string) string {
	path := h.base + "/smart-forms/forms/" + url.PathEscape(formID)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

func (h *HTTP) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return h.do(req)
}

func (h *HTTP) post(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req)
}

func (h *HTTP) do(req *http.Request) ([]byte, error) {
	for name, value := range h.headers {
		req.Header.Set(name, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgclient.ErrNotFound
	default:
		if rejection := parseRejection(body); rejection != nil {
			return nil, rejection
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

// parseRejection extracts a structured validation rejection of the shape
// {"detail": {"errors": [{"field_id": ..., "message": ...}]}}.
func parseRejection(body []byte) *pkgclient.RejectionError {
	var payload struct {
		Detail struct {
			Errors []pkgclient.FieldError `json:"errors"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if len(payload.Detail.Errors) == 0 {
		return nil
	}
	return &pkgclient.RejectionError{Errors: payload.Detail.Errors}
}

func decodeValues(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("client: decode values payload: %w", err)
	}
	return values, nil
}
