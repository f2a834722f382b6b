// options.go - Konfiguration fuer Adapter und CreateModel-Optionen
//
// Dieses Modul enthaelt:
// - Config: Aufgeloeste Konfiguration, die an eine Factory uebergeben wird
// - Validate: Prueft Device und DType
// - Option: Funktionale Optionen fuer CreateModel
// - Typisierte Getter fuer backend-spezifische Extra-Optionen
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Unterstuetzte Devices
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
	DeviceMPS  = "mps"
)

// Unterstuetzte Datentypen
const (
	DTypeFloat32  = "float32"
	DTypeFloat16  = "float16"
	DTypeBFloat16 = "bfloat16"
)

// Config ist die an eine Factory uebergebene Konfiguration
type Config struct {
	ModelID string
	Backend string
	IO      InputOutput
	Device  string
	DType   string

	// Extra enthaelt backend-spezifische Optionen (z.B. top_k, pull)
	Extra map[string]any
}

// Validate prueft Device und DType
func (c Config) Validate() error {
	switch c.Device {
	case DeviceCPU, DeviceCUDA, DeviceMPS:
	default:
		return fmt.Errorf("%w: %q (must be one of cpu, cuda, mps)", ErrInvalidDevice, c.Device)
	}

	switch c.DType {
	case DTypeFloat32, DTypeFloat16, DTypeBFloat16:
	default:
		return fmt.Errorf("%w: %q (must be one of float32, float16, bfloat16)", ErrInvalidDType, c.DType)
	}

	return nil
}

// OptString gibt eine Extra-Option als String zurueck
func (c Config) OptString(key, defaultValue string) string {
	if v, ok := c.Extra[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultValue
}

// OptInt gibt eine Extra-Option als int zurueck.
// JSON-Zahlen (float64) und numerische Strings werden akzeptiert.
func (c Config) OptInt(key string, defaultValue int) int {
	return IntOption(c.Extra, key, defaultValue)
}

// OptBool gibt eine Extra-Option als bool zurueck
func (c Config) OptBool(key string, defaultValue bool) bool {
	return BoolOption(c.Extra, key, defaultValue)
}

// IntOption liest einen int aus einer Options-Map
func IntOption(opts map[string]any, key string, defaultValue int) int {
	v, ok := opts[key]
	if !ok {
		return defaultValue
	}

	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return defaultValue
}

// FloatOption liest einen float64 aus einer Options-Map
func FloatOption(opts map[string]any, key string, defaultValue float64) float64 {
	v, ok := opts[key]
	if !ok {
		return defaultValue
	}

	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// BoolOption liest einen bool aus einer Options-Map
func BoolOption(opts map[string]any, key string, defaultValue bool) bool {
	v, ok := opts[key]
	if !ok {
		return defaultValue
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ============================================================================
// CreateModel-Optionen
// ============================================================================

type createOptions struct {
	backend string
	device  string
	dtype   string
	extra   map[string]any
}

// Option konfiguriert einen CreateModel-Aufruf
type Option func(*createOptions)

// WithBackend waehlt das Backend, notwendig wenn eine ID mehrfach registriert ist
func WithBackend(backend string) Option {
	return func(o *createOptions) {
		o.backend = backend
	}
}

// WithDevice setzt das Device (Default: XINFER_DEVICE)
func WithDevice(device string) Option {
	return func(o *createOptions) {
		o.device = strings.ToLower(device)
	}
}

// WithDType setzt den Datentyp (Default: XINFER_DTYPE)
func WithDType(dtype string) Option {
	return func(o *createOptions) {
		o.dtype = strings.ToLower(dtype)
	}
}

// WithOption setzt eine backend-spezifische Option
func WithOption(key string, value any) Option {
	return func(o *createOptions) {
		if o.extra == nil {
			o.extra = make(map[string]any)
		}
		o.extra[key] = value
	}
}

// WithOptions uebernimmt mehrere backend-spezifische Optionen
func WithOptions(opts map[string]any) Option {
	return func(o *createOptions) {
		for k, v := range opts {
			WithOption(k, v)(o)
		}
	}
}
