// Package backends registriert alle eingebauten Backend-Adapter.
package backends

import (
	"github.com/7blacky7/xinfer/backends/ollama"
	"github.com/7blacky7/xinfer/backends/timm"
	"github.com/7blacky7/xinfer/backends/transformers"
	"github.com/7blacky7/xinfer/backends/ultralytics"
	"github.com/7blacky7/xinfer/model"
)

// Names sind die Registry-Tags aller eingebauten Backends in Registrierungsreihenfolge
var Names = []string{transformers.Backend, ultralytics.Backend, timm.Backend, ollama.Backend}

// RegisterAll traegt die Modelle aller eingebauten Backends in r ein.
// Clients der Adapter werden aus der Umgebung konfiguriert.
func RegisterAll(r *model.Registry) error {
	for _, register := range []func(*model.Registry) error{
		func(r *model.Registry) error { return transformers.Register(r) },
		func(r *model.Registry) error { return ultralytics.Register(r) },
		func(r *model.Registry) error { return timm.Register(r) },
		func(r *model.Registry) error { return ollama.Register(r) },
	} {
		if err := register(r); err != nil {
			return err
		}
	}
	return nil
}
