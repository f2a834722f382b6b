// Package timm bindet timm-Klassifikatoren ueber TorchServe an.
//
// Jedes Modell wird unter einem abgeleiteten Namen in TorchServe gefuehrt.
// Ist es dort nicht registriert, kann LoadModel es aus einem Modell-Archiv
// (Option mar_url) registrieren. Ausgaben sind []Category, absteigend nach Score.
package timm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/7blacky7/xinfer/images"
	"github.com/7blacky7/xinfer/model"
)

// DefaultTopK ist die Anzahl zurueckgegebener Kategorien
const DefaultTopK = 5

// Category ist ein Klassifikations-Ergebnis
type Category struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Model ist ein Adapter fuer einen timm-Klassifikator
type Model struct {
	model.Base

	client *Client
	name   string
	marURL string
	topK   int
	loaded atomic.Bool
}

// New erstellt einen Adapter fuer cfg.ModelID
func New(cfg model.Config, client *Client) *Model {
	if client == nil {
		client = NewClient()
	}
	return &Model{
		Base:   model.NewBase(cfg),
		client: client,
		name:   ServingName(cfg.ModelID),
		marURL: cfg.OptString("mar_url", ""),
		topK:   cfg.OptInt("top_k", DefaultTopK),
	}
}

// ServingName leitet den TorchServe-Namen aus einer timm-ID ab
func ServingName(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, id)
}

// LoadModel stellt sicher, dass TorchServe das Modell mit bereitem Worker fuehrt
func (m *Model) LoadModel(ctx context.Context) error {
	if m.topK <= 0 {
		return m.LoadError(fmt.Errorf("timm: top_k must be positive, got %d", m.topK))
	}

	desc, err := m.client.Describe(ctx, m.name)
	if errors.Is(err, ErrModelNotRegistered) && m.marURL != "" {
		slog.Info("registering model archive", "model", m.Info().ModelID, "name", m.name, "url", m.marURL)
		if err := m.client.Register(ctx, m.name, m.marURL); err != nil {
			return m.LoadError(err)
		}
		desc, err = m.client.Describe(ctx, m.name)
	}
	if err != nil {
		return m.LoadError(err)
	}

	worker, ok := desc.ReadyWorker()
	if !ok {
		return m.LoadError(fmt.Errorf("timm: %s has no ready worker", m.name))
	}

	if m.Info().Device != model.DeviceCPU && !worker.GPU {
		slog.Warn("torchserve worker runs on cpu", "model", m.Info().ModelID, "requested", m.Info().Device, "worker", worker.ID)
	}

	m.loaded.Store(true)
	return nil
}

// Inference klassifiziert ein Bild
func (m *Model) Inference(ctx context.Context, in model.Input) (any, error) {
	return m.Forward(ctx, func(ctx context.Context) (any, error) {
		if !m.loaded.Load() {
			return nil, model.ErrNotLoaded
		}

		img, err := images.FromInput(ctx, m.client.HTTPClient(), in)
		if err != nil {
			return nil, err
		}

		var raw json.RawMessage
		if err := m.client.Predict(ctx, m.name, img.Format.MimeType(), img.Data, &raw); err != nil {
			return nil, err
		}

		cats, err := parseCategories(raw)
		if err != nil {
			return nil, err
		}

		topK := model.IntOption(in.Options, "top_k", m.topK)
		if topK > 0 && len(cats) > topK {
			cats = cats[:topK]
		}
		return cats, nil
	})
}

// InferBatch fuehrt Inference fuer jede Eingabe aus
func (m *Model) InferBatch(ctx context.Context, in []model.Input) ([]any, error) {
	return model.InferBatch(ctx, m, in)
}

// parseCategories akzeptiert {"label": score} oder [{"label": score}]
func parseCategories(raw json.RawMessage) ([]Category, error) {
	var scores map[string]float64
	if err := json.Unmarshal(raw, &scores); err != nil {
		var batch []map[string]float64
		if err := json.Unmarshal(raw, &batch); err != nil || len(batch) == 0 {
			return nil, fmt.Errorf("timm: unexpected prediction format: %.200s", string(raw))
		}
		scores = batch[0]
	}

	cats := make([]Category, 0, len(scores))
	for label, score := range scores {
		cats = append(cats, Category{Label: label, Score: score})
	}

	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Score != cats[j].Score {
			return cats[i].Score > cats[j].Score
		}
		return cats[i].Label < cats[j].Label
	})
	return cats, nil
}
