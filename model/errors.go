// errors.go - Fehler-Taxonomie fuer Registry und Adapter
//
// Jeder typisierte Fehler matcht seinen Sentinel via errors.Is.
// ModelLoadError und InferenceError geben ueber Unwrap den
// urspruenglichen Backend-Fehler unveraendert zurueck.
package model

import (
	"errors"
	"strings"
)

// Sentinel-Fehler
var (
	ErrUnknownModel          = errors.New("model: unknown model")
	ErrAmbiguousModel        = errors.New("model: ambiguous model")
	ErrDuplicateRegistration = errors.New("model: duplicate registration")
	ErrModelLoad             = errors.New("model: load failed")
	ErrInference             = errors.New("model: inference failed")
	ErrNotLoaded             = errors.New("model: not loaded")
	ErrRegistrySealed        = errors.New("model: registry sealed")
	ErrInvalidEntry          = errors.New("model: invalid registry entry")
	ErrInvalidDevice         = errors.New("model: invalid device")
	ErrInvalidDType          = errors.New("model: invalid dtype")
)

// ============================================================================
// Registry-Fehler
// ============================================================================

// UnknownModelError wird zurueckgegeben wenn keine Registrierung passt
type UnknownModelError struct {
	ModelID string
	Backend string

	// Suggestions enthaelt aehnliche registrierte Modell-IDs
	Suggestions []string
}

func (e *UnknownModelError) Error() string {
	var sb strings.Builder
	sb.WriteString("model: unknown model '" + e.ModelID + "'")
	if e.Backend != "" {
		sb.WriteString(" for backend '" + e.Backend + "'")
	}
	if len(e.Suggestions) > 0 {
		sb.WriteString(" (did you mean: " + strings.Join(e.Suggestions, ", ") + "?)")
	}
	return sb.String()
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// AmbiguousModelError wird zurueckgegeben wenn mehrere Backends dieselbe ID registrieren
type AmbiguousModelError struct {
	ModelID  string
	Backends []string
}

func (e *AmbiguousModelError) Error() string {
	return "model: '" + e.ModelID + "' is registered by multiple backends (" +
		strings.Join(e.Backends, ", ") + "), specify one"
}

func (e *AmbiguousModelError) Is(target error) bool {
	return target == ErrAmbiguousModel
}

// DuplicateRegistrationError wird bei doppelter (ModelID, Backend)-Registrierung zurueckgegeben
type DuplicateRegistrationError struct {
	ModelID string
	Backend string
}

func (e *DuplicateRegistrationError) Error() string {
	return "model: '" + e.ModelID + "' already registered for backend '" + e.Backend + "'"
}

func (e *DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

// ============================================================================
// Adapter-Fehler
// ============================================================================

// ModelLoadError verpackt einen Fehler beim Konstruieren oder Laden eines Modells
type ModelLoadError struct {
	ModelID string
	Backend string
	Err     error
}

func (e *ModelLoadError) Error() string {
	return "model: load '" + e.ModelID + "' (" + e.Backend + "): " + errString(e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

func (e *ModelLoadError) Is(target error) bool {
	return target == ErrModelLoad
}

// InferenceError verpackt einen vom Backend abgelehnten Inferenz-Aufruf
type InferenceError struct {
	ModelID string
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return "model: inference '" + e.ModelID + "' (" + e.Backend + "): " + errString(e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
