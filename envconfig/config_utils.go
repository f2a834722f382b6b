// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen. Secrets werden nur als gesetzt/nicht gesetzt gemeldet.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"XINFER_DEBUG":                     {"XINFER_DEBUG", LogLevel(), "Show additional debug information (e.g. XINFER_DEBUG=1)"},
		"XINFER_HOST":                      {"XINFER_HOST", Host(), "IP Address for the xinfer server (default 127.0.0.1:8910)"},
		"XINFER_ORIGINS":                   {"XINFER_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"XINFER_DEVICE":                    {"XINFER_DEVICE", Device(), "Default device for new models (cpu, cuda, mps)"},
		"XINFER_DTYPE":                     {"XINFER_DTYPE", DType(), "Default dtype for new models (float32, float16, bfloat16)"},
		"XINFER_BATCH_CONCURRENCY":         {"XINFER_BATCH_CONCURRENCY", BatchConcurrency(), "Maximum number of parallel requests per batch inference"},
		"XINFER_LOCAL_IMAGES":              {"XINFER_LOCAL_IMAGES", LocalImages(), "Allow local file paths as image sources in server requests"},
		"HF_ENDPOINT":                      {"HF_ENDPOINT", HFEndpoint(), "Hugging Face Hub endpoint"},
		"HF_INFERENCE_ENDPOINT":            {"HF_INFERENCE_ENDPOINT", HFInferenceURL(), "Hugging Face Inference API endpoint"},
		"HF_TOKEN":                         {"HF_TOKEN", HFToken() != "", "Hugging Face access token"},
		"XINFER_ULTRALYTICS_URL":           {"XINFER_ULTRALYTICS_URL", UltralyticsURL(), "Ultralytics inference endpoint"},
		"ULTRALYTICS_API_KEY":              {"ULTRALYTICS_API_KEY", UltralyticsAPIKey() != "", "Ultralytics API key"},
		"XINFER_TORCHSERVE_URL":            {"XINFER_TORCHSERVE_URL", TorchServeURL(), "TorchServe inference API for timm models"},
		"XINFER_TORCHSERVE_MANAGEMENT_URL": {"XINFER_TORCHSERVE_MANAGEMENT_URL", TorchServeManagementURL(), "TorchServe management API for timm models"},
		"XINFER_OLLAMA_HOST":               {"XINFER_OLLAMA_HOST", OllamaHost(), "Ollama server for vision language models"},
		"XINFER_OLLAMA_PULL":               {"XINFER_OLLAMA_PULL", OllamaPull(false), "Pull missing Ollama models on load"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
