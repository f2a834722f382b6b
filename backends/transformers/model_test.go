package transformers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7blacky7/xinfer/model"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

type fakeHub struct {
	mu        sync.Mutex
	pipelines map[string]string
	gated     map[string]bool
	requests  []recordedRequest
}

type recordedRequest struct {
	Path        string
	ContentType string
	Auth        string
	Body        []byte
}

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/models/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/models/")
		pipeline, ok := h.pipelines[id]
		if !ok {
			http.Error(w, `{"error":"Repository not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": id, "sha": "abc123", "pipeline_tag": pipeline, "gated": h.gated[id]})

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/models/"):
		body, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.requests = append(h.requests, recordedRequest{
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Auth:        r.Header.Get("Authorization"),
			Body:        body,
		})
		h.mu.Unlock()

		switch strings.TrimPrefix(r.URL.Path, "/models/") {
		case "Salesforce/blip-vqa-base":
			json.NewEncoder(w).Encode([]map[string]any{{"answer": "two", "score": 0.9}})
		case "vikhyatk/moondream2":
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"error": "Model is currently loading", "estimated_time": 20.0})
		default:
			json.NewEncoder(w).Encode([]map[string]any{{"generated_text": " a cat sitting on a couch "}})
		}

	default:
		http.NotFound(w, r)
	}
}

func (h *fakeHub) recorded() []recordedRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedRequest(nil), h.requests...)
}

func setup(t *testing.T, hub *fakeHub) *model.Registry {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	r := model.NewRegistry()
	require.NoError(t, Register(r,
		WithHubURL(srv.URL),
		WithInferenceURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithToken("hf_test"),
	))
	return r
}

func TestRegister(t *testing.T) {
	r := model.NewRegistry()
	require.NoError(t, Register(r))
	assert.Len(t, r.ListModels(model.FilterBackend(Backend)), len(KnownModels))

	err := Register(r)
	assert.ErrorIs(t, err, model.ErrDuplicateRegistration)
}

func TestCaption(t *testing.T) {
	hub := &fakeHub{pipelines: map[string]string{"Salesforce/blip-image-captioning-base": "image-to-text"}}
	r := setup(t, hub)

	m, err := r.CreateModel(t.Context(), "Salesforce/blip-image-captioning-base")
	require.NoError(t, err)
	assert.Equal(t, "abc123", m.(*Model).Revision())

	data := pngBytes(t)
	out, err := m.Inference(t.Context(), model.Input{ImageData: data})
	require.NoError(t, err)
	assert.Equal(t, "a cat sitting on a couch", out)

	reqs := hub.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "image/png", reqs[0].ContentType)
	assert.Equal(t, "Bearer hf_test", reqs[0].Auth)
	assert.Equal(t, data, reqs[0].Body)

	// Prompt schaltet auf JSON mit Parametern um
	_, err = m.Inference(t.Context(), model.Input{ImageData: data, Prompt: "a photo of", Options: map[string]any{"max_new_tokens": 20}})
	require.NoError(t, err)

	var req struct {
		Inputs     string         `json:"inputs"`
		Parameters map[string]any `json:"parameters"`
	}
	reqs = hub.recorded()
	require.Len(t, reqs, 2)
	require.NoError(t, json.Unmarshal(reqs[1].Body, &req))
	assert.Equal(t, "a photo of", req.Parameters["prompt"])
	assert.InDelta(t, 20, req.Parameters["max_new_tokens"], 0)
	assert.NotEmpty(t, req.Inputs)
}

func TestVisualQA(t *testing.T) {
	hub := &fakeHub{pipelines: map[string]string{"Salesforce/blip-vqa-base": "visual-question-answering"}}
	r := setup(t, hub)

	m, err := r.CreateModel(t.Context(), "Salesforce/blip-vqa-base")
	require.NoError(t, err)

	out, err := m.Inference(t.Context(), model.Input{ImageData: pngBytes(t), Prompt: "how many cats?"})
	require.NoError(t, err)
	assert.Equal(t, "two", out)

	_, err = m.Inference(t.Context(), model.Input{ImageData: pngBytes(t)})
	assert.ErrorIs(t, err, model.ErrInference)
}

func TestModelLoading(t *testing.T) {
	hub := &fakeHub{pipelines: map[string]string{"vikhyatk/moondream2": "image-text-to-text"}}
	r := setup(t, hub)

	m, err := r.CreateModel(t.Context(), "vikhyatk/moondream2")
	require.NoError(t, err)

	_, err = m.Inference(t.Context(), model.Input{ImageData: pngBytes(t), Prompt: "describe"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInference)
	assert.ErrorIs(t, err, ErrModelLoading)
}

func TestLoadFailures(t *testing.T) {
	hub := &fakeHub{pipelines: map[string]string{
		"Salesforce/blip-image-captioning-large": "object-detection",
	}}
	r := setup(t, hub)

	_, err := r.CreateModel(t.Context(), "Salesforce/blip-image-captioning-base")
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = r.CreateModel(t.Context(), "Salesforce/blip-image-captioning-large")
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.Contains(t, err.Error(), "object-detection")
}

func TestLoadKeepsTransportCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	r := model.NewRegistry()
	require.NoError(t, Register(r, WithHubURL(srv.URL), WithHTTPClient(srv.Client())))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := r.CreateModel(ctx, "Salesforce/blip-image-captioning-base")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.ErrorIs(t, err, ErrNetworkError)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var ue *url.Error
	assert.True(t, errors.As(err, &ue))
}

func TestStatusErrorKeepsStatus(t *testing.T) {
	r := setup(t, &fakeHub{})

	_, err := r.CreateModel(t.Context(), "Salesforce/blip-image-captioning-base")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelNotFound)

	var se StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "Repository not found", se.Message)

	assert.ErrorIs(t, StatusError{StatusCode: http.StatusForbidden}, ErrUnauthorized)
	assert.ErrorIs(t, StatusError{StatusCode: http.StatusTooManyRequests}, ErrRateLimited)
	assert.ErrorIs(t, StatusError{StatusCode: http.StatusServiceUnavailable, EstimatedTime: 5}, ErrModelLoading)
	assert.ErrorIs(t, StatusError{StatusCode: http.StatusInternalServerError}, ErrInvalidResponse)
	assert.NotErrorIs(t, StatusError{StatusCode: http.StatusInternalServerError}, ErrModelNotFound)
}

func TestGatedWithoutToken(t *testing.T) {
	hub := &fakeHub{
		pipelines: map[string]string{"microsoft/Florence-2-base": "image-text-to-text"},
		gated:     map[string]bool{"microsoft/Florence-2-base": true},
	}
	srv := httptest.NewServer(hub)
	defer srv.Close()

	cfg := model.Config{ModelID: "microsoft/Florence-2-base", Backend: Backend, Device: "cpu", DType: "float32"}
	m := New(cfg, TaskImageTextToText, NewClient(WithHubURL(srv.URL), WithHTTPClient(srv.Client()), WithToken("")))

	err := m.LoadModel(t.Context())
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Inference(t.Context(), model.Input{ImageData: pngBytes(t)})
	assert.ErrorIs(t, err, model.ErrNotLoaded)
}

func TestValidateModelID(t *testing.T) {
	assert.NoError(t, validateModelID("Salesforce/blip-vqa-base"))
	assert.ErrorIs(t, validateModelID(""), ErrInvalidModelID)
	assert.ErrorIs(t, validateModelID("resnet50"), ErrInvalidModelID)
	assert.ErrorIs(t, validateModelID("a/b/c"), ErrInvalidModelID)
}
