// Package model - Model-Interface und Registry fuer Vision-Backends
//
// Dieses Paket definiert das einheitliche Model-Interface, ueber das
// heterogene Vision-Backends (Transformer-Hub, Detection, Classification,
// eigene Adapter) mit derselben Signatur aufgerufen werden, sowie die
// Registry, die Modell-IDs auf Factories abbildet.
//
// Hauptkomponenten:
// - Model: Interface fuer alle Backend-Adapter (LoadModel, Inference)
// - Base: Basis-Implementierung fuer Info, Statistiken und Fehler-Wrapping
// - Registry: (ModelID, Backend) -> Factory, Registrierungsreihenfolge bleibt erhalten
// - CreateModel: Loest eine Modell-ID auf, konstruiert und laedt den Adapter
// - ListModels: Read-only Auflistung der Registrierungen
package model

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/7blacky7/xinfer/logutil"
)

// InputOutput beschreibt welche Ein- und Ausgaben ein Modell verarbeitet
type InputOutput string

const (
	ImageToText       InputOutput = "image --> text"
	ImageTextToText   InputOutput = "image-text --> text"
	ImageToBoxes      InputOutput = "image --> boxes"
	ImageToCategories InputOutput = "image --> categories"
)

// String implementiert fmt.Stringer
func (k InputOutput) String() string {
	return string(k)
}

// Input ist eine einzelne Inferenz-Anfrage.
// Welche Felder ausgewertet werden, entscheidet der jeweilige Adapter.
type Input struct {
	// Image ist ein lokaler Pfad oder eine http(s)-URL
	Image string

	// ImageData sind rohe Bild-Bytes, Vorrang vor Image
	ImageData []byte

	// Prompt ist ein optionaler Text-Prompt
	Prompt string

	// Options werden unveraendert an das Backend weitergereicht
	Options map[string]any
}

// Info beschreibt eine konstruierte Modell-Instanz
type Info struct {
	ModelID string      `json:"model_id"`
	Backend string      `json:"backend"`
	IO      InputOutput `json:"input_output"`
	Device  string      `json:"device"`
	DType   string      `json:"dtype"`
}

// Model definiert das Interface fuer Backend-spezifische Adapter.
//
// Ausgaben sind backend-nativ (z.B. string, Detection-Liste, Kategorien);
// ein gemeinsames Ausgabeschema wird nicht erzwungen.
type Model interface {
	// LoadModel materialisiert das Modell im Backend.
	// Fehler werden als *ModelLoadError gemeldet.
	LoadModel(ctx context.Context) error

	// Inference fuehrt genau einen Backend-Aufruf aus.
	// Fehler werden als *InferenceError gemeldet.
	Inference(ctx context.Context, in Input) (any, error)

	// InferBatch fuehrt mehrere Aufrufe aus, die Reihenfolge der Ausgaben entspricht der Eingabe
	InferBatch(ctx context.Context, in []Input) ([]any, error)

	Info() Info
	Stats() Stats
}

// Base implementiert gemeinsame Felder und Methoden fuer alle Adapter.
// Adapter betten Base ein und implementieren LoadModel und Inference.
type Base struct {
	info  Info
	stats *tracker
}

// NewBase erstellt die Basis fuer einen Adapter aus seiner Konfiguration
func NewBase(cfg Config) Base {
	return Base{
		info: Info{
			ModelID: cfg.ModelID,
			Backend: cfg.Backend,
			IO:      cfg.IO,
			Device:  cfg.Device,
			DType:   cfg.DType,
		},
		stats: newTracker(),
	}
}

// Info gibt die Modell-Metadaten zurueck
func (b *Base) Info() Info {
	return b.info
}

// Stats gibt einen Schnappschuss der Inferenz-Statistiken zurueck
func (b *Base) Stats() Stats {
	s := b.stats.snapshot()
	s.ModelID = b.info.ModelID
	s.Backend = b.info.Backend
	s.Device = b.info.Device
	s.DType = b.info.DType
	return s
}

// PrintStats gibt die Statistiken als Tabelle aus
func (b *Base) PrintStats(w io.Writer) {
	b.Stats().Render(w)
}

// LoadError verpackt einen Backend-Fehler als *ModelLoadError.
// Bereits verpackte Fehler werden unveraendert zurueckgegeben.
func (b *Base) LoadError(err error) error {
	if err == nil {
		return nil
	}

	var le *ModelLoadError
	if errors.As(err, &le) {
		return err
	}

	return &ModelLoadError{ModelID: b.info.ModelID, Backend: b.info.Backend, Err: err}
}

// Forward fuehrt einen Backend-Aufruf aus, misst die Dauer und
// verpackt Fehler als *InferenceError. Die Ausgabe bleibt unveraendert.
func (b *Base) Forward(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		var ie *InferenceError
		if !errors.As(err, &ie) {
			err = &InferenceError{ModelID: b.info.ModelID, Backend: b.info.Backend, Err: err}
		}
		slog.Debug("inference failed", "model", b.info.ModelID, "backend", b.info.Backend, "duration", elapsed, "error", err)
		return nil, err
	}

	b.stats.observe(elapsed)
	logutil.Trace("inference", "model", b.info.ModelID, "backend", b.info.Backend, "duration", elapsed)
	return out, nil
}
