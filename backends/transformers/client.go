// client.go - HTTP-Client fuer Hugging Face Hub und Inference API
//
// Der Hub liefert Modell-Metadaten (pipeline_tag, gated, sha), die
// Inference API fuehrt den Forward-Pass fuer ein Repository aus.
package transformers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/7blacky7/xinfer/envconfig"
)

const (
	DefaultClientTimeout = 5 * time.Minute
	ClientUserAgent      = "xinfer/1.0"
)

// Fehler-Definitionen
var (
	ErrModelNotFound   = errors.New("transformers: model not found")
	ErrUnauthorized    = errors.New("transformers: authentication failed")
	ErrRateLimited     = errors.New("transformers: rate limit exceeded")
	ErrModelLoading    = errors.New("transformers: model is still loading")
	ErrNetworkError    = errors.New("transformers: network error")
	ErrInvalidModelID  = errors.New("transformers: invalid model id")
	ErrInvalidResponse = errors.New("transformers: invalid response")
)

// ModelInfo enthaelt Metadaten eines Repositories aus der Hub API
type ModelInfo struct {
	ID          string   `json:"id"`
	SHA         string   `json:"sha"`
	Private     bool     `json:"private"`
	Gated       any      `json:"gated"` // false, "auto" oder "manual"
	Pipeline    string   `json:"pipeline_tag"`
	LibraryName string   `json:"library_name"`
	Tags        []string `json:"tags"`
}

// IsGated prueft ob das Repository eine Freigabe erfordert
func (m *ModelInfo) IsGated() bool {
	switch v := m.Gated.(type) {
	case bool:
		return v
	case string:
		return v == "auto" || v == "manual"
	default:
		return false
	}
}

// Client spricht mit Hub und Inference API
type Client struct {
	httpClient   *http.Client
	hubURL       string
	inferenceURL string
	token        string
	userAgent    string
}

// ClientOption konfiguriert den Client
type ClientOption func(*Client)

// WithToken setzt den Bearer-Token
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHubURL setzt eine eigene Hub-URL
func WithHubURL(url string) ClientOption {
	return func(c *Client) { c.hubURL = strings.TrimSuffix(url, "/") }
}

// WithInferenceURL setzt eine eigene Inference-URL
func WithInferenceURL(url string) ClientOption {
	return func(c *Client) { c.inferenceURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient setzt einen eigenen HTTP-Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithUserAgent setzt einen eigenen User-Agent
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient erstellt einen Client, Defaults kommen aus der Umgebung
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultClientTimeout},
		hubURL:       envconfig.HFEndpoint(),
		inferenceURL: envconfig.HFInferenceURL(),
		token:        envconfig.HFToken(),
		userAgent:    ClientUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// HasToken prueft ob ein Token konfiguriert ist
func (c *Client) HasToken() bool { return c.token != "" }

// HTTPClient gibt den verwendeten HTTP-Client zurueck
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// ModelInfo ruft die Metadaten eines Repositories ab
func (c *Client) ModelInfo(ctx context.Context, modelID string) (*ModelInfo, error) {
	if err := validateModelID(modelID); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.hubURL+"/api/models/"+modelID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkError, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := handleResponseError(resp); err != nil {
		return nil, err
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &info, nil
}

// Infer sendet body an die Inference API und dekodiert die Antwort nach out
func (c *Client) Infer(ctx context.Context, modelID, contentType string, body []byte, out any) error {
	if err := validateModelID(modelID); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inferenceURL+"/models/"+modelID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetworkError, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := handleResponseError(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// apiError ist der Fehler-Body der Inference API
type apiError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// StatusError ist ein Fehler-Status von Hub oder Inference API.
// errors.Is matcht den passenden Sentinel (z.B. ErrModelNotFound).
type StatusError struct {
	StatusCode    int
	Message       string
	EstimatedTime float64
}

func (e StatusError) Error() string {
	msg := fmt.Sprintf("transformers: status %d", e.StatusCode)
	if e.Message != "" {
		msg += " - " + e.Message
	}
	if e.EstimatedTime > 0 {
		msg += fmt.Sprintf(" (estimated %.0fs)", e.EstimatedTime)
	}
	return msg
}

func (e StatusError) Is(target error) bool {
	return target == e.sentinel()
}

func (e StatusError) sentinel() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusServiceUnavailable:
		if e.EstimatedTime > 0 {
			return ErrModelLoading
		}
	}
	return ErrInvalidResponse
}

func handleResponseError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return StatusError{StatusCode: resp.StatusCode, Message: msg, EstimatedTime: apiErr.EstimatedTime}
}

func validateModelID(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidModelID)
	}
	parts := strings.Split(modelID, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: expected format 'owner/model', got %q", ErrInvalidModelID, modelID)
	}
	return nil
}
