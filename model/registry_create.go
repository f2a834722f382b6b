// registry_create.go - Aufloesung und Erstellung von Modell-Instanzen
package model

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/7blacky7/xinfer/envconfig"
)

// maxSuggestions begrenzt die Vorschlaege in UnknownModelError
const maxSuggestions = 3

// Resolve findet die Registrierung fuer modelID.
// Ohne backend muss die ID eindeutig sein.
func (r *Registry) Resolve(modelID, backend string) (Entry, error) {
	if backend != "" {
		if e, ok := r.Lookup(modelID, backend); ok {
			return e, nil
		}
		return Entry{}, &UnknownModelError{ModelID: modelID, Backend: backend, Suggestions: r.suggest(modelID)}
	}

	backends := r.Backends(modelID)
	switch len(backends) {
	case 0:
		return Entry{}, &UnknownModelError{ModelID: modelID, Suggestions: r.suggest(modelID)}
	case 1:
		e, _ := r.Lookup(modelID, backends[0])
		return e, nil
	default:
		return Entry{}, &AmbiguousModelError{ModelID: modelID, Backends: backends}
	}
}

// CreateModel loest modelID auf, konstruiert den Adapter und laedt ihn genau einmal.
//
// Fehler bei der Aufloesung werden als *UnknownModelError bzw.
// *AmbiguousModelError gemeldet, alles danach als *ModelLoadError.
func (r *Registry) CreateModel(ctx context.Context, modelID string, opts ...Option) (Model, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	e, err := r.Resolve(modelID, o.backend)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		ModelID: e.ModelID,
		Backend: e.Backend,
		IO:      e.IO,
		Device:  orDefault(o.device, envconfig.Device()),
		DType:   orDefault(o.dtype, envconfig.DType()),
		Extra:   o.extra,
	}

	loadErr := func(err error) error {
		var le *ModelLoadError
		if errors.As(err, &le) {
			return err
		}
		return &ModelLoadError{ModelID: cfg.ModelID, Backend: cfg.Backend, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, loadErr(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, loadErr(err)
	}

	m, err := e.Factory(cfg)
	if err != nil {
		return nil, loadErr(err)
	}
	if m == nil {
		return nil, loadErr(errors.New("factory returned no model"))
	}

	slog.Info("loading model", "model", cfg.ModelID, "backend", cfg.Backend, "device", cfg.Device, "dtype", cfg.DType)
	start := time.Now()
	if err := m.LoadModel(ctx); err != nil {
		return nil, loadErr(err)
	}
	slog.Debug("model loaded", "model", cfg.ModelID, "backend", cfg.Backend, "duration", time.Since(start))

	return m, nil
}

// suggest liefert aehnliche registrierte IDs, naechste zuerst
func (r *Registry) suggest(modelID string) []string {
	type candidate struct {
		id   string
		dist int
	}

	needle := strings.ToLower(modelID)
	var candidates []candidate
	for _, id := range r.ids() {
		lower := strings.ToLower(id)
		dist := levenshtein.ComputeDistance(needle, lower)
		if dist <= 3 || (needle != "" && strings.Contains(lower, needle)) {
			candidates = append(candidates, candidate{id: id, dist: dist})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	out := make([]string, 0, maxSuggestions)
	for _, c := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.id)
	}
	return out
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
