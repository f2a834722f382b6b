// instances.go - Cache geladener Modell-Instanzen
//
// Pro (ModelID, Backend, Device, DType, Optionen) existiert hoechstens eine
// geladene Instanz. Gleichzeitige Anfragen fuer dieselbe Instanz teilen
// sich einen Ladevorgang.
package server

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/7blacky7/xinfer/envconfig"
	"github.com/7blacky7/xinfer/model"
)

// loadSpec beschreibt eine angeforderte Instanz
type loadSpec struct {
	ModelID string
	Backend string
	Device  string
	DType   string
	Options map[string]any
}

func (s loadSpec) key() string {
	opts, _ := json.Marshal(s.Options)
	return strings.Join([]string{s.ModelID, s.Backend, s.Device, s.DType, string(opts)}, "\x00")
}

type instance struct {
	model    model.Model
	loadedAt time.Time
}

type instances struct {
	registry *model.Registry

	mu     sync.RWMutex
	loaded map[string]*instance
	group  singleflight.Group
}

func newInstances(r *model.Registry) *instances {
	return &instances{
		registry: r,
		loaded:   make(map[string]*instance),
	}
}

// get gibt eine geladene Instanz zurueck und laedt sie bei Bedarf
func (in *instances) get(ctx context.Context, ls loadSpec) (model.Model, error) {
	// Backend und Defaults vorab aufloesen, damit der Cache-Key eindeutig ist
	e, err := in.registry.Resolve(ls.ModelID, ls.Backend)
	if err != nil {
		return nil, err
	}
	ls.Backend = e.Backend
	if ls.Device == "" {
		ls.Device = envconfig.Device()
	}
	if ls.DType == "" {
		ls.DType = envconfig.DType()
	}

	key := ls.key()

	in.mu.RLock()
	inst, ok := in.loaded[key]
	in.mu.RUnlock()
	if ok {
		return inst.model, nil
	}

	v, err, _ := in.group.Do(key, func() (any, error) {
		in.mu.RLock()
		inst, ok := in.loaded[key]
		in.mu.RUnlock()
		if ok {
			return inst.model, nil
		}

		// Der Ladevorgang gehoert keiner einzelnen Anfrage
		m, err := in.registry.CreateModel(context.WithoutCancel(ctx), ls.ModelID,
			model.WithBackend(ls.Backend),
			model.WithDevice(ls.Device),
			model.WithDType(ls.DType),
			model.WithOptions(ls.Options),
		)
		if err != nil {
			return nil, err
		}

		in.mu.Lock()
		in.loaded[key] = &instance{model: m, loadedAt: time.Now()}
		in.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.Model), nil
}

// list gibt alle geladenen Instanzen sortiert nach Ladezeitpunkt zurueck
func (in *instances) list() []*instance {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]*instance, 0, len(in.loaded))
	for _, inst := range in.loaded {
		out = append(out, inst)
	}
	slices.SortFunc(out, func(a, b *instance) int {
		return a.loadedAt.Compare(b.loadedAt)
	})
	return out
}

// unload entfernt alle Instanzen eines Modells, bei leerem backend aller Backends
func (in *instances) unload(modelID, backend string) int {
	in.mu.Lock()
	defer in.mu.Unlock()

	n := 0
	for key, inst := range in.loaded {
		info := inst.model.Info()
		if info.ModelID == modelID && (backend == "" || info.Backend == backend) {
			delete(in.loaded, key)
			n++
		}
	}
	return n
}
