package timm

import (
	"github.com/7blacky7/xinfer/model"
)

// Backend ist der Registry-Tag dieses Pakets
const Backend = "timm"

// KnownModels sind die vorregistrierten timm-Klassifikatoren
var KnownModels = []string{
	"resnet50.a1_in1k",
	"efficientnet_b0.ra_in1k",
	"vit_base_patch16_224.augreg2_in21k_ft_in1k",
	"eva02_large_patch14_448.mim_m38m_ft_in22k_in1k",
}

// Register traegt alle bekannten Klassifikatoren in r ein
func Register(r *model.Registry, options ...ClientOption) error {
	for _, id := range KnownModels {
		if err := RegisterModel(r, id, options...); err != nil {
			return err
		}
	}
	return nil
}

// RegisterModel traegt einen weiteren timm-Klassifikator in r ein
func RegisterModel(r *model.Registry, id string, options ...ClientOption) error {
	return r.Register(model.Entry{
		ModelID: id,
		Backend: Backend,
		IO:      model.ImageToCategories,
		Factory: Factory(options...),
	})
}

// Factory gibt eine Factory fuer timm-Adapter zurueck
func Factory(options ...ClientOption) model.Factory {
	return func(cfg model.Config) (model.Model, error) {
		return New(cfg, NewClient(options...)), nil
	}
}
