package ultralytics

import (
	"github.com/7blacky7/xinfer/model"
)

// Backend ist der Registry-Tag dieses Pakets
const Backend = "ultralytics"

// KnownWeights sind die vortrainierten Detektoren
var KnownWeights = []string{
	"yolov8n", "yolov8s", "yolov8m", "yolov8l", "yolov8x",
	"yolov10n", "yolov10s", "yolov10m", "yolov10b", "yolov10l", "yolov10x",
	"yolo11n", "yolo11s", "yolo11m", "yolo11l", "yolo11x",
}

// Register traegt alle vortrainierten Detektoren in r ein
func Register(r *model.Registry, options ...ClientOption) error {
	for _, w := range KnownWeights {
		if err := RegisterHubModel(r, w, options...); err != nil {
			return err
		}
	}
	return nil
}

// RegisterHubModel traegt ein eigenes HUB-Modell (ID oder URL) in r ein
func RegisterHubModel(r *model.Registry, id string, options ...ClientOption) error {
	return r.Register(model.Entry{
		ModelID: id,
		Backend: Backend,
		IO:      model.ImageToBoxes,
		Factory: func(cfg model.Config) (model.Model, error) {
			return New(cfg, NewClient(options...)), nil
		},
	})
}
