// registry.go - Registry fuer Modell-Factories
//
// Bildet (ModelID, Backend) auf eine Factory ab. Die Registrierungsreihenfolge
// bleibt erhalten, ListModels liefert die Eintraege in genau dieser Reihenfolge.
//
// Backends registrieren ihre Modelle explizit ueber Register-Funktionen,
// es gibt keine Registrierung als Import-Seiteneffekt. Nach Seal() sind
// keine weiteren Registrierungen moeglich, Lookups bleiben erlaubt.
package model

import (
	"fmt"
	"log/slog"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Factory konstruiert einen Adapter aus einer aufgeloesten Konfiguration.
// Die Factory darf das Modell nicht laden, das uebernimmt CreateModel.
type Factory func(cfg Config) (Model, error)

// Entry ist eine Registrierung
type Entry struct {
	ModelID string      `json:"model_id"`
	Backend string      `json:"backend"`
	IO      InputOutput `json:"input_output"`
	Factory Factory     `json:"-"`
}

type entryKey struct {
	id      string
	backend string
}

// Registry verwaltet registrierte Modell-Factories.
// Thread-sicher durch RWMutex.
type Registry struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[entryKey, Entry]

	// byID indiziert Backends pro Modell-ID in Registrierungsreihenfolge
	byID   map[string][]string
	sealed bool
}

// NewRegistry erstellt eine neue leere Registry
func NewRegistry() *Registry {
	return &Registry{
		entries: orderedmap.New[entryKey, Entry](),
		byID:    make(map[string][]string),
	}
}

// ============================================================================
// Registrierung
// ============================================================================

// Register fuegt eine Registrierung hinzu.
// Eine zweite Registrierung desselben (ModelID, Backend)-Paares wird abgelehnt.
func (r *Registry) Register(e Entry) error {
	if e.ModelID == "" || e.Backend == "" {
		return fmt.Errorf("%w: model id and backend are required", ErrInvalidEntry)
	}
	if e.Factory == nil {
		return fmt.Errorf("%w: '%s' (%s) has no factory", ErrInvalidEntry, e.ModelID, e.Backend)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register '%s' (%s)", ErrRegistrySealed, e.ModelID, e.Backend)
	}

	key := entryKey{id: e.ModelID, backend: e.Backend}
	if _, exists := r.entries.Get(key); exists {
		return &DuplicateRegistrationError{ModelID: e.ModelID, Backend: e.Backend}
	}

	r.entries.Set(key, e)
	r.byID[e.ModelID] = append(r.byID[e.ModelID], e.Backend)

	slog.Debug("registered model", "model", e.ModelID, "backend", e.Backend, "io", e.IO)
	return nil
}

// MustRegister registriert einen Eintrag und paniced bei Fehlern.
// Nur fuer statische Tabellen beim Programmstart gedacht.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Seal beendet die Registrierungsphase
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed gibt zurueck ob die Registry versiegelt ist
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// ============================================================================
// Abfrage
// ============================================================================

// Lookup gibt die Registrierung fuer (ModelID, Backend) zurueck
func (r *Registry) Lookup(modelID, backend string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries.Get(entryKey{id: modelID, backend: backend})
}

// Backends gibt alle Backends zurueck, die modelID registriert haben
func (r *Registry) Backends(modelID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.byID[modelID]...)
}

// Len gibt die Anzahl der Registrierungen zurueck
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries.Len()
}

// ListFilter schraenkt ListModels ein
type ListFilter func(Entry) bool

// FilterBackend behaelt nur Registrierungen des angegebenen Backends
func FilterBackend(backend string) ListFilter {
	return func(e Entry) bool {
		return backend == "" || e.Backend == backend
	}
}

// FilterIO behaelt nur Registrierungen mit der angegebenen Ein-/Ausgabeart
func FilterIO(io InputOutput) ListFilter {
	return func(e Entry) bool {
		return io == "" || e.IO == io
	}
}

// ListModels gibt alle Registrierungen in Registrierungsreihenfolge zurueck.
// Das Ergebnis ist eine Kopie, Aenderungen wirken nicht auf die Registry.
func (r *Registry) ListModels(filters ...ListFilter) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		if matches(pair.Value, filters) {
			out = append(out, pair.Value)
		}
	}
	return out
}

func matches(e Entry, filters []ListFilter) bool {
	for _, f := range filters {
		if !f(e) {
			return false
		}
	}
	return true
}

// ids gibt alle eindeutigen Modell-IDs in Registrierungsreihenfolge zurueck
func (r *Registry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.byID))
	out := make([]string, 0, len(r.byID))
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := seen[pair.Key.id]; ok {
			continue
		}
		seen[pair.Key.id] = struct{}{}
		out = append(out, pair.Key.id)
	}
	return out
}
