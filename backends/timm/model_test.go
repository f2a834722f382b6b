package timm

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7blacky7/xinfer/model"
)

// fakeTorchServe bedient Management- und Inference-API
type fakeTorchServe struct {
	mu         sync.Mutex
	registered map[string]bool
	registers  []string
	predicts   int
	response   string
	workers    []Worker
}

func (f *fakeTorchServe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/models/"):
		name := strings.TrimPrefix(r.URL.Path, "/models/")
		if !f.registered[name] {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"code": 404, "message": "Model not found: " + name})
			return
		}
		workers := f.workers
		if workers == nil {
			workers = []Worker{{ID: "9000", Status: "READY"}}
		}
		json.NewEncoder(w).Encode([]Description{{ModelName: name, Workers: workers}})

	case r.Method == http.MethodPost && r.URL.Path == "/models":
		name := r.URL.Query().Get("model_name")
		f.registers = append(f.registers, r.URL.Query().Get("url"))
		f.registered[name] = true
		json.NewEncoder(w).Encode(map[string]string{"status": "Model registered"})

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/predictions/"):
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.predicts++
		io.WriteString(w, f.response)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTorchServe) predictCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.predicts
}

func (f *fakeTorchServe) archives() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.registers...)
}

func (f *fakeTorchServe) isRegistered(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[name]
}

func newFake(registered ...string) *fakeTorchServe {
	f := &fakeTorchServe{
		registered: map[string]bool{},
		response:   `{"tabby": 0.5, "tiger_cat": 0.3, "Egyptian_cat": 0.1, "lynx": 0.05, "remote": 0.03, "jaguar": 0.02}`,
	}
	for _, name := range registered {
		f.registered[name] = true
	}
	return f
}

func clientOptions(t *testing.T, f *fakeTorchServe) []ClientOption {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return []ClientOption{WithInferenceURL(srv.URL), WithManagementURL(srv.URL), WithHTTPClient(srv.Client())}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func TestDemoModel(t *testing.T) {
	fake := newFake("demo-model")
	fake.response = `{"cat": 0.9, "dog": 0.1}`

	r := model.NewRegistry()
	require.NoError(t, RegisterModel(r, "demo-model", clientOptions(t, fake)...))

	m, err := r.CreateModel(t.Context(), "demo-model")
	require.NoError(t, err)
	assert.Equal(t, "timm", m.Info().Backend)

	out, err := m.Inference(t.Context(), model.Input{ImageData: pngBytes(t)})
	require.NoError(t, err)

	want := []Category{{Label: "cat", Score: 0.9}, {Label: "dog", Score: 0.1}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, fake.predictCount())
	assert.Equal(t, 1, m.Stats().Inferences)
}

func TestTopK(t *testing.T) {
	fake := newFake(ServingName("resnet50.a1_in1k"))
	r := model.NewRegistry()
	require.NoError(t, Register(r, clientOptions(t, fake)...))

	m, err := r.CreateModel(t.Context(), "resnet50.a1_in1k", model.WithOption("top_k", 2))
	require.NoError(t, err)

	out, err := m.Inference(t.Context(), model.Input{ImageData: pngBytes(t)})
	require.NoError(t, err)
	assert.Equal(t, []Category{{"tabby", 0.5}, {"tiger_cat", 0.3}}, out)

	out, err = m.Inference(t.Context(), model.Input{ImageData: pngBytes(t), Options: map[string]any{"top_k": float64(10)}})
	require.NoError(t, err)
	assert.Len(t, out, 6)
}

func TestRegistersArchive(t *testing.T) {
	fake := newFake()
	r := model.NewRegistry()
	require.NoError(t, Register(r, clientOptions(t, fake)...))

	_, err := r.CreateModel(t.Context(), "efficientnet_b0.ra_in1k")
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.ErrorIs(t, err, ErrModelNotRegistered)

	var se StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Message, "Model not found")

	_, err = r.CreateModel(t.Context(), "efficientnet_b0.ra_in1k", model.WithOption("mar_url", "https://example.com/effnet.mar"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/effnet.mar"}, fake.archives())
	assert.True(t, fake.isRegistered("efficientnet_b0_ra_in1k"))
}

func TestParseCategories(t *testing.T) {
	cats, err := parseCategories(json.RawMessage(`[{"b": 0.2, "a": 0.2, "c": 0.6}]`))
	require.NoError(t, err)
	assert.Equal(t, []Category{{"c", 0.6}, {"a", 0.2}, {"b", 0.2}}, cats)

	_, err = parseCategories(json.RawMessage(`"oops"`))
	assert.Error(t, err)

	_, err = parseCategories(json.RawMessage(`[]`))
	assert.Error(t, err)
}

func TestServingName(t *testing.T) {
	assert.Equal(t, "vit_base_patch16_224_augreg2_in21k_ft_in1k", ServingName("vit_base_patch16_224.augreg2_in21k_ft_in1k"))
	assert.Equal(t, "demo-model", ServingName("demo-model"))
}

func TestInvalidTopK(t *testing.T) {
	fake := newFake("demo-model")
	r := model.NewRegistry()
	require.NoError(t, RegisterModel(r, "demo-model", clientOptions(t, fake)...))

	_, err := r.CreateModel(t.Context(), "demo-model", model.WithOption("top_k", 0))
	assert.ErrorIs(t, err, model.ErrModelLoad)
}

func TestReadyWorker(t *testing.T) {
	desc := Description{Workers: []Worker{
		{ID: "9000", Status: "UNLOADING", GPU: true},
		{ID: "9001", Status: "READY"},
	}}
	w, ok := desc.ReadyWorker()
	require.True(t, ok)
	assert.Equal(t, "9001", w.ID)
	assert.True(t, desc.Ready())

	_, ok = Description{Workers: []Worker{{ID: "9000", Status: "UNLOADING"}}}.ReadyWorker()
	assert.False(t, ok)
}

func TestWarnsWhenReadyWorkerOnCPU(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	fake := newFake("demo-model")
	fake.workers = []Worker{
		{ID: "9000", Status: "UNLOADING", GPU: true},
		{ID: "9001", Status: "READY"},
	}
	r := model.NewRegistry()
	require.NoError(t, RegisterModel(r, "demo-model", clientOptions(t, fake)...))

	_, err := r.CreateModel(t.Context(), "demo-model", model.WithDevice("cuda"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "torchserve worker runs on cpu")
	assert.Contains(t, buf.String(), "worker=9001")
}

func TestNoReadyWorker(t *testing.T) {
	fake := newFake("demo-model")
	fake.workers = []Worker{{ID: "9000", Status: "UNLOADING", GPU: true}}
	r := model.NewRegistry()
	require.NoError(t, RegisterModel(r, "demo-model", clientOptions(t, fake)...))

	_, err := r.CreateModel(t.Context(), "demo-model")
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.Contains(t, err.Error(), "no ready worker")
}
