// config_backends.go - Endpunkte und Zugangsdaten der Inferenz-Backends
//
// Dieses Modul enthaelt:
// - Hugging Face Hub und Inference API (HF_TOKEN, HF_ENDPOINT, HF_INFERENCE_ENDPOINT)
// - Ultralytics Inference API (ULTRALYTICS_API_KEY, XINFER_ULTRALYTICS_URL)
// - TorchServe fuer timm-Modelle (XINFER_TORCHSERVE_URL, XINFER_TORCHSERVE_MANAGEMENT_URL)
// - Ollama-Server fuer Vision-LLMs (XINFER_OLLAMA_HOST, XINFER_OLLAMA_PULL)
package envconfig

import "strings"

// =============================================================================
// Hugging Face
// =============================================================================

var (
	// HFToken ist der Bearer-Token fuer Hub und Inference API
	HFToken = String("HF_TOKEN")
)

// HFEndpoint gibt die Basis-URL des Hugging Face Hub zurueck
// Default: https://huggingface.co
func HFEndpoint() string {
	return withDefault("HF_ENDPOINT", "https://huggingface.co")
}

// HFInferenceURL gibt die Basis-URL der Inference API zurueck
// Default: https://api-inference.huggingface.co
func HFInferenceURL() string {
	return withDefault("HF_INFERENCE_ENDPOINT", "https://api-inference.huggingface.co")
}

// =============================================================================
// Ultralytics
// =============================================================================

var (
	// UltralyticsAPIKey ist der API-Key fuer die Ultralytics Inference API
	UltralyticsAPIKey = String("ULTRALYTICS_API_KEY")
)

// UltralyticsURL gibt den Predict-Endpunkt zurueck
// Default: https://predict.ultralytics.com
func UltralyticsURL() string {
	return withDefault("XINFER_ULTRALYTICS_URL", "https://predict.ultralytics.com")
}

// =============================================================================
// TorchServe (timm)
// =============================================================================

// TorchServeURL gibt die Inference-API von TorchServe zurueck
// Default: http://127.0.0.1:8080
func TorchServeURL() string {
	return withDefault("XINFER_TORCHSERVE_URL", "http://127.0.0.1:8080")
}

// TorchServeManagementURL gibt die Management-API von TorchServe zurueck
// Default: http://127.0.0.1:8081
func TorchServeManagementURL() string {
	return withDefault("XINFER_TORCHSERVE_MANAGEMENT_URL", "http://127.0.0.1:8081")
}

// =============================================================================
// Ollama
// =============================================================================

// OllamaHost gibt die Basis-URL des Ollama-Servers zurueck
// Default: http://127.0.0.1:11434
func OllamaHost() string {
	return withDefault("XINFER_OLLAMA_HOST", "http://127.0.0.1:11434")
}

// OllamaPull legt fest, ob fehlende Modelle beim Laden heruntergeladen werden.
// Konfigurierbar via XINFER_OLLAMA_PULL, die Option pull hat Vorrang.
var OllamaPull = BoolWithDefault("XINFER_OLLAMA_PULL")

func withDefault(key, defaultValue string) string {
	if s := Var(key); s != "" {
		return strings.TrimRight(s, "/")
	}
	return defaultValue
}
