// Package backend talks to the remote concierge service: photo analysis,
// location narration, menu generation and speech synthesis. Every call is
// a single attempt. Nothing is cached and nothing is retried; failures are
// returned wrapped around domain.ErrBackend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ domain.Backend = (*Client)(nil)

// Endpoint paths, relative to the configured base URL.
const (
	PathStatus          = "/"
	PathAnalyzePhoto    = "/analyze-photo"
	PathAnalyzeLocation = "/analyze-location"
	PathGenerateMenu    = "/generate-menu"
	PathTTS             = "/tts"
)

// Multipart field names shared with the server side.
const (
	FieldFile   = "file"
	FieldPeople = "people"
	FieldBudget = "budget"
	FieldTaste  = "taste"
)

// PhotoFilename is the filename sent with every uploaded photo.
const PhotoFilename = "photo.jpg"

// ── Wire types ───────────────────────────────────────────────────

// LocationRequest is the JSON body of an analyze-location call.
type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type storyResponse struct {
	Story string `json:"story"`
}

type guideResponse struct {
	GuideText string `json:"guide_text"`
}

type menuResponse struct {
	Menu string `json:"menu"`
}

// Status is the health document served at the backend root.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ── Client ───────────────────────────────────────────────────────

// Option configures the Client.
type Option func(*Client)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client is the concierge backend client. Safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	validate  *validator.Validate
	log       *logger.Logger
}

// NewClient creates a backend client rooted at baseURL
// (e.g. "http://192.168.1.5:8000").
func NewClient(baseURL string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "Concierge/1.0",
		http:      &http.Client{Timeout: 60 * time.Second},
		validate:  validator.New(),
		log:       log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping fetches the backend health document.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var st Status
	req, err := c.newRequest(ctx, http.MethodGet, PathStatus, nil)
	if err != nil {
		return st, err
	}
	if err := c.doJSON(req, &st); err != nil {
		return st, err
	}
	if st.Status == "" {
		return st, fmt.Errorf("backend: ping: %w: missing status", domain.ErrBackend)
	}
	return st, nil
}

// AnalyzePhoto uploads a photo and returns the story told about it.
func (c *Client) AnalyzePhoto(ctx context.Context, photo domain.PhotoHandle) (string, error) {
	body, contentType, err := buildMultipart(nil, &photo)
	if err != nil {
		return "", fmt.Errorf("backend: analyze photo: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathAnalyzePhoto, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	var out storyResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.Story == "" {
		return "", fmt.Errorf("backend: analyze photo: %w: response has no story", domain.ErrBackend)
	}
	return out.Story, nil
}

// AnalyzeLocation sends a location fix and returns the guide narration.
func (c *Client) AnalyzeLocation(ctx context.Context, fix domain.LocationFix) (string, error) {
	payload, err := json.Marshal(LocationRequest{Latitude: fix.Latitude, Longitude: fix.Longitude})
	if err != nil {
		return "", fmt.Errorf("backend: marshal location: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathAnalyzeLocation, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out guideResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.GuideText == "" {
		return "", fmt.Errorf("backend: analyze location: %w: response has no guide_text", domain.ErrBackend)
	}
	return out.GuideText, nil
}

// GenerateMenu submits the menu form, with an optional photo of the
// restaurant's menu board, and returns the recommended order.
// Parameters are only checked for presence; their values are sent as typed.
func (c *Client) GenerateMenu(ctx context.Context, params domain.MenuParameters, photo *domain.PhotoHandle) (string, error) {
	if err := c.validate.StructCtx(ctx, params); err != nil {
		return "", fmt.Errorf("backend: generate menu: %w: %v", domain.ErrInvalidMenu, err)
	}

	fields := [][2]string{
		{FieldPeople, params.People},
		{FieldBudget, params.Budget},
		{FieldTaste, params.Taste},
	}
	body, contentType, err := buildMultipart(fields, photo)
	if err != nil {
		return "", fmt.Errorf("backend: generate menu: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathGenerateMenu, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	var out menuResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.Menu == "" {
		return "", fmt.Errorf("backend: generate menu: %w: response has no menu", domain.ErrBackend)
	}
	return out.Menu, nil
}

// Synthesize fetches spoken audio for text from the TTS endpoint.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, TTSPath(text), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: tts request failed: %w: %v", domain.ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend: tts %w: %s %s", domain.ErrBackend, resp.Status, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: reading audio: %w: %v", domain.ErrBackend, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("backend: tts %w: empty audio", domain.ErrBackend)
	}

	c.log.Debug("tts: got %d bytes of audio (%s)", len(audio), resp.Header.Get("Content-Type"))
	return audio, nil
}

// TTSPath returns the TTS path with text URL-encoded into the query.
func TTSPath(text string) string {
	return PathTTS + "?" + url.Values{"text": {text}}.Encode()
}

// ── plumbing ─────────────────────────────────────────────────────

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	req.Header.Set("User-Agent", c.userAgent)
	c.log.Debug("%s %s (request %s)", method, truncate(path, 80), id)
	return req, nil
}

// doJSON executes req and decodes a 2xx JSON body into out. Transport
// failures, other statuses and undecodable bodies all wrap ErrBackend.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s failed: %w: %v", req.URL.Path, domain.ErrBackend, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read %s response: %w: %v", req.URL.Path, domain.ErrBackend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend: %s %w: %s %s", req.URL.Path, domain.ErrBackend, resp.Status, truncate(strings.TrimSpace(string(respBody)), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w: %v", req.URL.Path, domain.ErrBackend, err)
	}

	c.log.Debug("%s -> %s (%d bytes)", req.URL.Path, resp.Status, len(respBody))
	return nil
}

// buildMultipart encodes text fields in order, then the photo (if any)
// as an image/jpeg file part.
func buildMultipart(fields [][2]string, photo *domain.PhotoHandle) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if photo != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldFile, PhotoFilename))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(photo.Data); err != nil {
			return nil, "", fmt.Errorf("write photo: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
