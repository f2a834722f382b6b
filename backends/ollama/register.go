package ollama

import (
	"github.com/7blacky7/xinfer/model"
)

// Backend ist der Registry-Tag dieses Pakets
const Backend = "ollama"

// KnownModels sind die vorregistrierten Vision-Modelle
var KnownModels = []string{
	"llava",
	"llama3.2-vision",
	"moondream",
	"gemma3",
}

// Register traegt alle bekannten Vision-Modelle in r ein
func Register(r *model.Registry, options ...ClientOption) error {
	for _, name := range KnownModels {
		err := r.Register(model.Entry{
			ModelID: name,
			Backend: Backend,
			IO:      model.ImageTextToText,
			Factory: func(cfg model.Config) (model.Model, error) {
				return New(cfg, NewClient(options...)), nil
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
