// Package ultralytics bindet YOLO-Detektoren ueber die Ultralytics Inference API an.
//
// Ausgaben sind []Detection mit Pixel-Koordinaten im Originalbild.
package ultralytics

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/7blacky7/xinfer/images"
	"github.com/7blacky7/xinfer/model"
)

// HubURL ist die Basis fuer HUB-Modell-URLs
const HubURL = "https://hub.ultralytics.com/models/"

// Box ist eine Bounding-Box in Pixeln (links oben, rechts unten)
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection ist ein erkanntes Objekt
type Detection struct {
	Class      int     `json:"class"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Defaults fuer Predict-Parameter
const (
	DefaultImgSize = 640
	DefaultConf    = 0.25
	DefaultIoU     = 0.7
)

// Model ist ein Adapter fuer einen YOLO-Detektor
type Model struct {
	model.Base

	client  *Client
	url     string
	imgSize int
	conf    float64
	iou     float64
	loaded  atomic.Bool
}

// New erstellt einen Adapter fuer die Gewichte cfg.ModelID
func New(cfg model.Config, client *Client) *Model {
	if client == nil {
		client = NewClient()
	}
	return &Model{
		Base:    model.NewBase(cfg),
		client:  client,
		url:     modelURL(cfg.ModelID),
		imgSize: cfg.OptInt("imgsz", DefaultImgSize),
		conf:    model.FloatOption(cfg.Extra, "conf", DefaultConf),
		iou:     model.FloatOption(cfg.Extra, "iou", DefaultIoU),
	}
}

func modelURL(id string) string {
	if images.IsURL(id) {
		return id
	}
	return HubURL + id
}

// LoadModel prueft API-Key und Parameter
func (m *Model) LoadModel(ctx context.Context) error {
	if m.client.apiKey == "" {
		return m.LoadError(ErrMissingAPIKey)
	}
	if m.imgSize <= 0 || m.imgSize%32 != 0 {
		return m.LoadError(fmt.Errorf("ultralytics: imgsz must be a positive multiple of 32, got %d", m.imgSize))
	}
	if m.conf <= 0 || m.conf > 1 {
		return m.LoadError(fmt.Errorf("ultralytics: conf must be in (0, 1], got %g", m.conf))
	}
	if m.iou <= 0 || m.iou > 1 {
		return m.LoadError(fmt.Errorf("ultralytics: iou must be in (0, 1], got %g", m.iou))
	}
	m.loaded.Store(true)
	return nil
}

// Inference erkennt Objekte in einem Bild
func (m *Model) Inference(ctx context.Context, in model.Input) (any, error) {
	return m.Forward(ctx, func(ctx context.Context) (any, error) {
		if !m.loaded.Load() {
			return nil, model.ErrNotLoaded
		}

		img, err := images.FromInput(ctx, m.client.HTTPClient(), in)
		if err != nil {
			return nil, err
		}

		// Die API akzeptiert nur JPEG und PNG direkt
		data, filename := img.Data, img.Filename()
		if img.Format != images.FormatJPEG && img.Format != images.FormatPNG {
			if data, err = img.JPEG(0); err != nil {
				return nil, err
			}
			filename = "image.jpg"
		}

		resp, err := m.client.Predict(ctx, PredictRequest{
			Model:    m.url,
			Image:    data,
			Filename: filename,
			ImgSize:  model.IntOption(in.Options, "imgsz", m.imgSize),
			Conf:     model.FloatOption(in.Options, "conf", m.conf),
			IoU:      model.FloatOption(in.Options, "iou", m.iou),
		})
		if err != nil {
			return nil, err
		}

		detections := []Detection{}
		for _, r := range resp.Images {
			detections = append(detections, r.Results...)
		}
		return detections, nil
	})
}

// InferBatch fuehrt Inference fuer jede Eingabe aus
func (m *Model) InferBatch(ctx context.Context, in []model.Input) ([]any, error) {
	return model.InferBatch(ctx, m, in)
}
