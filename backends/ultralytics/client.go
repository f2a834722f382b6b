// client.go - Client fuer die Ultralytics Inference API
package ultralytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/7blacky7/xinfer/envconfig"
)

// Fehler-Definitionen
var (
	ErrMissingAPIKey = errors.New("ultralytics: ULTRALYTICS_API_KEY is not set")
	ErrUnauthorized  = errors.New("ultralytics: invalid api key")
	ErrRateLimited   = errors.New("ultralytics: rate limit exceeded")
)

// StatusError ist ein Fehler-Status der Inference API
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ultralytics: %s: %s", e.Status, e.Message)
	}
	return "ultralytics: " + e.Status
}

// PredictRequest beschreibt einen Predict-Aufruf
type PredictRequest struct {
	// Model ist die HUB-URL des Modells
	Model    string
	Image    []byte
	Filename string
	ImgSize  int
	Conf     float64
	IoU      float64
}

// PredictResponse ist die Antwort der Inference API
type PredictResponse struct {
	Images []struct {
		Results []Detection `json:"results"`
		Shape   []int       `json:"shape"`
		Speed   struct {
			Preprocess  float64 `json:"preprocess"`
			Inference   float64 `json:"inference"`
			Postprocess float64 `json:"postprocess"`
		} `json:"speed"`
	} `json:"images"`
}

// Client spricht mit der Inference API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ClientOption konfiguriert den Client
type ClientOption func(*Client)

// WithAPIKey setzt den API-Key
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL setzt den Predict-Endpunkt
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient setzt einen eigenen HTTP-Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient erstellt einen Client, Defaults kommen aus der Umgebung
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    envconfig.UltralyticsURL(),
		apiKey:     envconfig.UltralyticsAPIKey(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// HTTPClient gibt den verwendeten HTTP-Client zurueck
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Predict laedt ein Bild hoch und gibt die Detektionen zurueck
func (c *Client) Predict(ctx context.Context, pr PredictRequest) (*PredictResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{"model": pr.Model}
	if pr.ImgSize > 0 {
		fields["imgsz"] = strconv.Itoa(pr.ImgSize)
	}
	if pr.Conf > 0 {
		fields["conf"] = strconv.FormatFloat(pr.Conf, 'f', -1, 64)
	}
	if pr.IoU > 0 {
		fields["iou"] = strconv.FormatFloat(pr.IoU, 'f', -1, 64)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	fw, err := mw.CreateFormFile("file", pr.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(pr.Image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ultralytics: %w", err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return nil, err
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ultralytics: decode response: %w", err)
	}
	return &out, nil
}

func checkError(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message+apiErr.Detail != "" {
		msg = apiErr.Message + apiErr.Detail
	}
	return StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Message: msg}
}
