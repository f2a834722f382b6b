// Package transformers bindet Vision-Modelle des Hugging Face Hub an.
//
// LoadModel prueft das Repository ueber die Hub API, Inference ruft
// die Inference API auf. Ausgaben sind immer Text (string).
package transformers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/7blacky7/xinfer/images"
	"github.com/7blacky7/xinfer/model"
)

// Task bestimmt das Request-Format der Inference API
type Task string

const (
	TaskImageToText     Task = "image-to-text"
	TaskVisualQA        Task = "visual-question-answering"
	TaskImageTextToText Task = "image-text-to-text"
)

// pipelines gibt die Hub-Pipelines zurueck, mit denen ein Task kompatibel ist
func (t Task) pipelines() []string {
	switch t {
	case TaskVisualQA:
		return []string{"visual-question-answering", "image-text-to-text"}
	case TaskImageTextToText:
		return []string{"image-text-to-text", "image-to-text", "visual-question-answering"}
	default:
		return []string{"image-to-text"}
	}
}

// Model ist ein Adapter fuer ein Hub-Repository
type Model struct {
	model.Base

	client *Client
	task   Task
	params map[string]any
	loaded atomic.Bool
	info   *ModelInfo
}

// New erstellt einen Adapter. Das Repository wird erst in LoadModel geprueft.
func New(cfg model.Config, task Task, client *Client) *Model {
	if client == nil {
		client = NewClient()
	}
	return &Model{
		Base:   model.NewBase(cfg),
		client: client,
		task:   task,
		params: maps.Clone(cfg.Extra),
	}
}

// LoadModel prueft Existenz, Zugriff und Pipeline des Repositories
func (m *Model) LoadModel(ctx context.Context) error {
	id := m.Info().ModelID

	info, err := m.client.ModelInfo(ctx, id)
	if err != nil {
		return m.LoadError(err)
	}

	if info.IsGated() && !m.client.HasToken() {
		return m.LoadError(fmt.Errorf("%w: %s is gated, set HF_TOKEN", ErrUnauthorized, id))
	}

	if info.Pipeline != "" && !slices.Contains(m.task.pipelines(), info.Pipeline) {
		return m.LoadError(fmt.Errorf("transformers: %s has pipeline %q, expected one of %s",
			id, info.Pipeline, strings.Join(m.task.pipelines(), ", ")))
	}

	m.info = info
	m.loaded.Store(true)
	slog.Debug("transformers model ready", "model", id, "pipeline", info.Pipeline, "sha", info.SHA)
	return nil
}

// Revision gibt den Commit-Hash des geladenen Repositories zurueck
func (m *Model) Revision() string {
	if !m.loaded.Load() {
		return ""
	}
	return m.info.SHA
}

// Inference fuehrt einen Aufruf der Inference API aus
func (m *Model) Inference(ctx context.Context, in model.Input) (any, error) {
	return m.Forward(ctx, func(ctx context.Context) (any, error) {
		if !m.loaded.Load() {
			return nil, model.ErrNotLoaded
		}

		img, err := images.FromInput(ctx, m.client.HTTPClient(), in)
		if err != nil {
			return nil, err
		}

		return m.infer(ctx, img, in)
	})
}

// InferBatch fuehrt Inference fuer jede Eingabe aus
func (m *Model) InferBatch(ctx context.Context, in []model.Input) ([]any, error) {
	return model.InferBatch(ctx, m, in)
}

type generated struct {
	GeneratedText string `json:"generated_text"`
}

type answer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

func (m *Model) infer(ctx context.Context, img *images.Image, in model.Input) (string, error) {
	id := m.Info().ModelID
	params := m.parameters(in.Options)

	switch m.task {
	case TaskVisualQA:
		if in.Prompt == "" {
			return "", fmt.Errorf("transformers: %s requires a prompt", id)
		}
		body, err := json.Marshal(map[string]any{
			"inputs": map[string]any{"image": img.Base64(), "question": in.Prompt},
		})
		if err != nil {
			return "", err
		}

		var out []answer
		if err := m.client.Infer(ctx, id, "application/json", body, &out); err != nil {
			return "", err
		}
		if len(out) == 0 {
			return "", fmt.Errorf("%w: empty answer list", ErrInvalidResponse)
		}
		return out[0].Answer, nil

	case TaskImageTextToText:
		req := map[string]any{
			"inputs": map[string]any{"image": img.Base64(), "text": in.Prompt},
		}
		if len(params) > 0 {
			req["parameters"] = params
		}
		body, err := json.Marshal(req)
		if err != nil {
			return "", err
		}
		return m.generate(ctx, id, "application/json", body)

	default:
		// Ohne Prompt und Parameter erwartet die API rohe Bild-Bytes
		if in.Prompt == "" && len(params) == 0 {
			return m.generate(ctx, id, img.Format.MimeType(), img.Data)
		}

		if in.Prompt != "" {
			params["prompt"] = in.Prompt
		}
		body, err := json.Marshal(map[string]any{"inputs": img.Base64(), "parameters": params})
		if err != nil {
			return "", err
		}
		return m.generate(ctx, id, "application/json", body)
	}
}

func (m *Model) generate(ctx context.Context, id, contentType string, body []byte) (string, error) {
	var out []generated
	if err := m.client.Infer(ctx, id, contentType, body, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: empty generation list", ErrInvalidResponse)
	}
	return strings.TrimSpace(out[0].GeneratedText), nil
}

// parameters kombiniert Modell-Optionen mit Optionen des Aufrufs
func (m *Model) parameters(call map[string]any) map[string]any {
	params := make(map[string]any, len(m.params)+len(call))
	maps.Copy(params, m.params)
	maps.Copy(params, call)
	return params
}
