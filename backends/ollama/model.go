// Package ollama bindet Vision-Sprachmodelle eines Ollama-Servers an.
//
// LoadModel prueft, ob das Modell vorhanden ist und Bilder verarbeitet,
// und laedt es mit der Option pull=true (oder XINFER_OLLAMA_PULL) bei
// Bedarf herunter.
// Ausgaben sind Text (string).
package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/images"
	"github.com/7blacky7/xinfer/model"
)

// DefaultPrompt wird ohne Prompt verwendet
const DefaultPrompt = "Describe this image."

// ErrNoVision wird zurueckgegeben wenn das Modell keine Bilder verarbeitet
var ErrNoVision = errors.New("ollama: model has no vision capability")

// Model ist ein Adapter fuer ein Ollama-Modell
type Model struct {
	model.Base

	client  *Client
	pull    bool
	maxSide int
	options map[string]any
	loaded  atomic.Bool
}

// New erstellt einen Adapter fuer cfg.ModelID
func New(cfg model.Config, client *Client) *Model {
	if client == nil {
		client = NewClient()
	}

	opts := maps.Clone(cfg.Extra)
	if opts == nil {
		opts = make(map[string]any)
	}
	delete(opts, "pull")
	delete(opts, "max_side")
	if cfg.Device == model.DeviceCPU {
		opts["num_gpu"] = 0
	}

	return &Model{
		Base:    model.NewBase(cfg),
		client:  client,
		pull:    cfg.OptBool("pull", envconfig.OllamaPull(false)),
		maxSide: cfg.OptInt("max_side", 0),
		options: opts,
	}
}

// LoadModel prueft das Modell und laedt es bei Bedarf herunter
func (m *Model) LoadModel(ctx context.Context) error {
	name := m.Info().ModelID

	show, err := m.client.Show(ctx, name)
	var se StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound && m.pull {
		if err := m.client.Pull(ctx, name); err != nil {
			return m.LoadError(err)
		}
		show, err = m.client.Show(ctx, name)
	}
	if err != nil {
		return m.LoadError(err)
	}

	if len(show.Capabilities) > 0 && !slices.Contains(show.Capabilities, "vision") {
		return m.LoadError(fmt.Errorf("%w: %s (capabilities: %s)", ErrNoVision, name, strings.Join(show.Capabilities, ", ")))
	}

	m.loaded.Store(true)
	return nil
}

// Inference beantwortet einen Prompt zu einem Bild
func (m *Model) Inference(ctx context.Context, in model.Input) (any, error) {
	return m.Forward(ctx, func(ctx context.Context) (any, error) {
		if !m.loaded.Load() {
			return nil, model.ErrNotLoaded
		}

		img, err := images.FromInput(ctx, m.client.HTTPClient(), in)
		if err != nil {
			return nil, err
		}

		encoded := img.Base64()
		if m.maxSide > 0 || (img.Format != images.FormatJPEG && img.Format != images.FormatPNG) {
			data, err := img.JPEG(m.maxSide)
			if err != nil {
				return nil, err
			}
			encoded = base64.StdEncoding.EncodeToString(data)
		}

		prompt := in.Prompt
		if prompt == "" {
			prompt = DefaultPrompt
		}

		opts := maps.Clone(m.options)
		maps.Copy(opts, in.Options)

		resp, err := m.client.Generate(ctx, &GenerateRequest{
			Model:   m.Info().ModelID,
			Prompt:  prompt,
			Images:  []string{encoded},
			Options: opts,
		})
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(resp.Response), nil
	})
}

// InferBatch fuehrt Inference fuer jede Eingabe aus
func (m *Model) InferBatch(ctx context.Context, in []model.Input) ([]any, error) {
	return model.InferBatch(ctx, m, in)
}
