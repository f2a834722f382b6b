// client.go - Client fuer TorchServe (Management- und Inference-API)
package timm

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

	"github.com/7blacky7/xinfer/envconfig"
)

// ErrModelNotRegistered wird zurueckgegeben wenn TorchServe das Modell nicht kennt
var ErrModelNotRegistered = errors.New("timm: model not registered in torchserve")

// StatusError ist ein Fehler-Status von TorchServe
type StatusError struct {
	StatusCode int
	Message    string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("timm: torchserve status %d: %s", e.StatusCode, e.Message)
}

// Is matcht ErrModelNotRegistered bei 404
func (e StatusError) Is(target error) bool {
	return target == ErrModelNotRegistered && e.StatusCode == http.StatusNotFound
}

// Worker ist ein TorchServe-Worker eines Modells
type Worker struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	GPU    bool   `json:"gpu"`
}

// Description beschreibt ein in TorchServe registriertes Modell
type Description struct {
	ModelName    string   `json:"modelName"`
	ModelVersion string   `json:"modelVersion"`
	ModelURL     string   `json:"modelUrl"`
	MinWorkers   int      `json:"minWorkers"`
	MaxWorkers   int      `json:"maxWorkers"`
	Workers      []Worker `json:"workers"`
}

// Ready prueft ob mindestens ein Worker bereit ist
func (d Description) Ready() bool {
	_, ok := d.ReadyWorker()
	return ok
}

// ReadyWorker gibt den ersten Worker im Status READY zurueck
func (d Description) ReadyWorker() (Worker, bool) {
	for _, w := range d.Workers {
		if w.Status == "READY" {
			return w, true
		}
	}
	return Worker{}, false
}

// Client spricht mit TorchServe
type Client struct {
	httpClient    *http.Client
	inferenceURL  string
	managementURL string
}

// ClientOption konfiguriert den Client
type ClientOption func(*Client)

// WithInferenceURL setzt die Inference-API
func WithInferenceURL(u string) ClientOption {
	return func(c *Client) { c.inferenceURL = strings.TrimSuffix(u, "/") }
}

// WithManagementURL setzt die Management-API
func WithManagementURL(u string) ClientOption {
	return func(c *Client) { c.managementURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient setzt einen eigenen HTTP-Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient erstellt einen Client, Defaults kommen aus der Umgebung
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 5 * time.Minute},
		inferenceURL:  envconfig.TorchServeURL(),
		managementURL: envconfig.TorchServeManagementURL(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// HTTPClient gibt den verwendeten HTTP-Client zurueck
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Describe gibt die Beschreibung eines registrierten Modells zurueck
func (c *Client) Describe(ctx context.Context, name string) (*Description, error) {
	var descs []Description
	if err := c.do(ctx, http.MethodGet, c.managementURL+"/models/"+url.PathEscape(name), "", nil, &descs); err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, name)
	}
	return &descs[0], nil
}

// Register registriert ein Modell-Archiv synchron mit einem Worker
func (c *Client) Register(ctx context.Context, name, marURL string) error {
	q := url.Values{}
	q.Set("url", marURL)
	q.Set("model_name", name)
	q.Set("initial_workers", "1")
	q.Set("synchronous", "true")

	return c.do(ctx, http.MethodPost, c.managementURL+"/models?"+q.Encode(), "", nil, nil)
}

// Predict sendet ein Bild an den Handler des Modells und dekodiert die Antwort
func (c *Client) Predict(ctx context.Context, name, contentType string, image []byte, out any) error {
	return c.do(ctx, http.MethodPost, c.inferenceURL+"/predictions/"+url.PathEscape(name), contentType, image, out)
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("timm: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("timm: decode response: %w", err)
	}
	return nil
}
