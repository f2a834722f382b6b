// routes_infer.go - Handler fuer Modell-Liste, Inferenz und Statistiken
package server

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/images"
	"github.com/7blacky7/xinfer/model"
)

// ModelResponse ist ein Eintrag der Modell-Liste
type ModelResponse struct {
	ModelID string            `json:"model_id"`
	Backend string            `json:"backend"`
	IO      model.InputOutput `json:"input_output"`
}

// ListResponse ist die Antwort von GET /api/models
type ListResponse struct {
	Models []ModelResponse `json:"models"`
}

// InferRequest ist der Body von POST /api/infer
type InferRequest struct {
	Model   string         `json:"model"`
	Backend string         `json:"backend,omitempty"`
	Device  string         `json:"device,omitempty"`
	DType   string         `json:"dtype,omitempty"`
	Images  []string       `json:"images"`
	Prompt  string         `json:"prompt,omitempty"`
	Options map[string]any `json:"options,omitempty"`

	// LoadOptions werden bei der Konstruktion an das Backend uebergeben
	LoadOptions map[string]any `json:"load_options,omitempty"`
}

// InferResponse ist die Antwort von POST /api/infer
type InferResponse struct {
	Model    string        `json:"model"`
	Backend  string        `json:"backend"`
	Outputs  []any         `json:"outputs"`
	Duration time.Duration `json:"total_duration"`
}

// ProcessResponse beschreibt eine geladene Instanz
type ProcessResponse struct {
	model.Info
	LoadedAt time.Time `json:"loaded_at"`
}

// ListHandler listet die Registrierungen, optional gefiltert nach backend und io
func (s *Server) ListHandler(c *gin.Context) {
	entries := s.registry.ListModels(
		model.FilterBackend(c.Query("backend")),
		model.FilterIO(model.InputOutput(c.Query("io"))),
	)

	resp := ListResponse{Models: make([]ModelResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Models = append(resp.Models, ModelResponse{ModelID: e.ModelID, Backend: e.Backend, IO: e.IO})
	}
	c.JSON(http.StatusOK, resp)
}

// InferHandler laedt das Modell bei Bedarf und fuehrt die Inferenz aus
func (s *Server) InferHandler(c *gin.Context) {
	var req InferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if req.Model == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}
	if len(req.Images) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}

	inputs := make([]model.Input, 0, len(req.Images))
	for _, src := range req.Images {
		in, err := parseImage(src, req.Prompt, req.Options)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inputs = append(inputs, in)
	}

	start := time.Now()
	m, err := s.instances.get(c.Request.Context(), loadSpec{
		ModelID: req.Model,
		Backend: req.Backend,
		Device:  strings.ToLower(req.Device),
		DType:   strings.ToLower(req.DType),
		Options: req.LoadOptions,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	outputs, err := m.InferBatch(c.Request.Context(), inputs)
	if err != nil {
		handleError(c, err)
		return
	}

	info := m.Info()
	c.JSON(http.StatusOK, InferResponse{
		Model:    info.ModelID,
		Backend:  info.Backend,
		Outputs:  outputs,
		Duration: time.Since(start),
	})
}

// PsHandler listet die geladenen Instanzen
func (s *Server) PsHandler(c *gin.Context) {
	loaded := s.instances.list()
	resp := make([]ProcessResponse, 0, len(loaded))
	for _, inst := range loaded {
		resp = append(resp, ProcessResponse{Info: inst.model.Info(), LoadedAt: inst.loadedAt})
	}
	c.JSON(http.StatusOK, gin.H{"models": resp})
}

// StatsHandler gibt die Inferenz-Statistiken aller geladenen Instanzen zurueck
func (s *Server) StatsHandler(c *gin.Context) {
	loaded := s.instances.list()
	resp := make([]model.Stats, 0, len(loaded))
	for _, inst := range loaded {
		resp = append(resp, inst.model.Stats())
	}
	c.JSON(http.StatusOK, gin.H{"models": resp})
}

// UnloadHandler entfernt geladene Instanzen eines Modells
func (s *Server) UnloadHandler(c *gin.Context) {
	var req struct {
		Model   string `json:"model"`
		Backend string `json:"backend"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	n := s.instances.unload(req.Model, req.Backend)
	if n == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "model '" + req.Model + "' is not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unloaded": n})
}

// errLocalImage wird fuer lokale Pfade ohne XINFER_LOCAL_IMAGES zurueckgegeben
var errLocalImage = errors.New("server: local image paths are disabled, send a URL or base64 data (or set XINFER_LOCAL_IMAGES=1)")

// parseImage erkennt URLs, base64-kodierte Bilder und (falls erlaubt) lokale Pfade
func parseImage(src, prompt string, opts map[string]any) (model.Input, error) {
	in := model.Input{Prompt: prompt, Options: opts}

	if images.IsURL(src) {
		in.Image = src
		return in, nil
	}

	data := src
	if strings.HasPrefix(data, "data:") {
		if _, after, ok := strings.Cut(data, ","); ok {
			data = after
		}
	}
	if raw, err := base64.StdEncoding.DecodeString(data); err == nil && images.DetectFormat(raw) != images.FormatUnknown {
		in.ImageData = raw
		return in, nil
	}

	if !envconfig.LocalImages() {
		return model.Input{}, errLocalImage
	}
	in.Image = src
	return in, nil
}

// statusFor bildet Registry- und Adapter-Fehler auf HTTP-Status ab
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownModel):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAmbiguousModel):
		return http.StatusConflict
	case errors.Is(err, model.ErrModelLoad):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrInference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c *gin.Context, err error) {
	status := statusFor(err)
	slog.Debug("request failed", "id", c.GetString("request_id"), "status", status, "error", err)

	body := gin.H{"error": err.Error()}

	var unknown *model.UnknownModelError
	if errors.As(err, &unknown) && len(unknown.Suggestions) > 0 {
		body["suggestions"] = unknown.Suggestions
	}

	var ambiguous *model.AmbiguousModelError
	if errors.As(err, &ambiguous) {
		body["backends"] = ambiguous.Backends
	}

	c.AbortWithStatusJSON(status, body)
}
