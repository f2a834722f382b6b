package transformers

import (
	"github.com/7blacky7/xinfer/model"
)

// Backend ist der Registry-Tag dieses Pakets
const Backend = "transformers"

// KnownModel beschreibt ein unterstuetztes Hub-Repository
type KnownModel struct {
	ID   string
	IO   model.InputOutput
	Task Task
}

// KnownModels sind die registrierten Repositories
var KnownModels = []KnownModel{
	{ID: "Salesforce/blip-image-captioning-base", IO: model.ImageToText, Task: TaskImageToText},
	{ID: "Salesforce/blip-image-captioning-large", IO: model.ImageToText, Task: TaskImageToText},
	{ID: "Salesforce/blip-vqa-base", IO: model.ImageTextToText, Task: TaskVisualQA},
	{ID: "vikhyatk/moondream2", IO: model.ImageTextToText, Task: TaskImageTextToText},
	{ID: "microsoft/Florence-2-base", IO: model.ImageTextToText, Task: TaskImageTextToText},
}

// Register traegt alle bekannten Repositories in r ein.
// Jede Instanz erhaelt einen eigenen Client mit den angegebenen Optionen.
func Register(r *model.Registry, options ...ClientOption) error {
	for _, km := range KnownModels {
		err := r.Register(model.Entry{
			ModelID: km.ID,
			Backend: Backend,
			IO:      km.IO,
			Factory: factory(km.Task, options),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func factory(task Task, options []ClientOption) model.Factory {
	return func(cfg model.Config) (model.Model, error) {
		return New(cfg, task, NewClient(options...)), nil
	}
}
