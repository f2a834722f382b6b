// registry_global.go - Globale Registry-Instanz und Package-Level Funktionen
//
// Die Default-Registry ist leer, bis ein Aufrufer Backends explizit
// registriert (z.B. backends.RegisterAll(model.Default)).
package model

import "context"

// Default ist die prozessweite Registry
var Default = NewRegistry()

// Register registriert einen Eintrag in der Default-Registry
func Register(e Entry) error {
	return Default.Register(e)
}

// MustRegister registriert einen Eintrag in der Default-Registry und paniced bei Fehlern
func MustRegister(e Entry) {
	Default.MustRegister(e)
}

// CreateModel erstellt ein Modell aus der Default-Registry
func CreateModel(ctx context.Context, modelID string, opts ...Option) (Model, error) {
	return Default.CreateModel(ctx, modelID, opts...)
}

// ListModels listet die Registrierungen der Default-Registry
func ListModels(filters ...ListFilter) []Entry {
	return Default.ListModels(filters...)
}
