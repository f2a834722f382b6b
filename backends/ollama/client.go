// client.go - REST-Client fuer einen Ollama-Server
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/version"
)

// StatusError ist ein Fehler-Status des Ollama-Servers
type StatusError struct {
	StatusCode   int
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("ollama: %s (status %d)", e.ErrorMessage, e.StatusCode)
	}
	return fmt.Sprintf("ollama: status %d", e.StatusCode)
}

// ShowResponse ist die Antwort von /api/show
type ShowResponse struct {
	Capabilities []string `json:"capabilities"`
	Details      struct {
		Family            string `json:"family"`
		ParameterSize     string `json:"parameter_size"`
		QuantizationLevel string `json:"quantization_level"`
	} `json:"details"`
}

// GenerateRequest ist der Body von /api/generate
type GenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// GenerateResponse ist die nicht-gestreamte Antwort von /api/generate
type GenerateResponse struct {
	Model         string        `json:"model"`
	Response      string        `json:"response"`
	Done          bool          `json:"done"`
	TotalDuration time.Duration `json:"total_duration"`
	EvalCount     int           `json:"eval_count"`
}

// Client spricht mit einem Ollama-Server
type Client struct {
	base *url.URL
	http *http.Client
}

// ClientOption konfiguriert den Client
type ClientOption func(*Client)

// WithHost setzt die Basis-URL des Servers
func WithHost(host string) ClientOption {
	return func(c *Client) {
		if u, err := url.Parse(strings.TrimSuffix(host, "/")); err == nil {
			c.base = u
		}
	}
}

// WithHTTPClient setzt einen eigenen HTTP-Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.http = client }
}

// NewClient erstellt einen Client, Default-Host kommt aus XINFER_OLLAMA_HOST
func NewClient(options ...ClientOption) *Client {
	c := &Client{http: http.DefaultClient}
	WithHost(envconfig.OllamaHost())(c)
	for _, opt := range options {
		opt(c)
	}
	return c
}

// HTTPClient gibt den verwendeten HTTP-Client zurueck
func (c *Client) HTTPClient() *http.Client { return c.http }

// Show gibt die Metadaten eines lokal vorhandenen Modells zurueck
func (c *Client) Show(ctx context.Context, name string) (*ShowResponse, error) {
	var resp ShowResponse
	if err := c.do(ctx, http.MethodPost, "/api/show", map[string]string{"model": name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pull laedt ein Modell in den Server, blockierend bis zum Abschluss
func (c *Client) Pull(ctx context.Context, name string) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/pull", map[string]any{"model": name, "stream": false}, &resp); err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("ollama: pull %s: %s", name, resp.Status)
	}
	return nil
}

// Generate fuehrt eine nicht-gestreamte Generierung aus
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, &apiError); err != nil {
		apiError.ErrorMessage = strings.TrimSpace(string(body))
	}
	return apiError
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	if reqData != nil {
		data, err := json.Marshal(reqData)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", fmt.Sprintf("xinfer/%s (%s %s) Go/%s", version.Version, runtime.GOARCH, runtime.GOOS, runtime.Version()))

	respObj, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer respObj.Body.Close()

	respBody, err := io.ReadAll(respObj.Body)
	if err != nil {
		return err
	}

	if err := checkError(respObj, respBody); err != nil {
		return err
	}

	if len(respBody) > 0 && respData != nil {
		if err := json.Unmarshal(respBody, respData); err != nil {
			return err
		}
	}
	return nil
}
