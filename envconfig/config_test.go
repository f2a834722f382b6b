package envconfig

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHost(t *testing.T) {
	cases := map[string]struct {
		value  string
		expect string
	}{
		"empty":               {"", "127.0.0.1:8910"},
		"only address":        {"1.2.3.4", "1.2.3.4:8910"},
		"only port":           {":1234", ":1234"},
		"address and port":    {"1.2.3.4:1234", "1.2.3.4:1234"},
		"hostname":            {"example.com", "example.com:8910"},
		"hostname and port":   {"example.com:1234", "example.com:1234"},
		"zero port":           {":0", ":0"},
		"too large port":      {":66000", ":8910"},
		"too large port fqdn": {"example.com:66000", "example.com:8910"},
		"ipv6 localhost":      {"[::1]", "[::1]:8910"},
		"ipv6 with port":      {"[::1]:1337", "[::1]:1337"},
		"http scheme":         {"http://1.2.3.4", "1.2.3.4:80"},
		"https scheme":        {"https://1.2.3.4", "1.2.3.4:443"},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("XINFER_HOST", tt.value)
			assert.Equal(t, tt.expect, Host().Host)
		})
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"t":     slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("XINFER_DEBUG", value)
			assert.Equal(t, expect, LogLevel())
		})
	}
}

func TestDeviceAndDType(t *testing.T) {
	t.Setenv("XINFER_DEVICE", "")
	t.Setenv("XINFER_DTYPE", "")
	assert.Equal(t, "cpu", Device())
	assert.Equal(t, "float32", DType())

	t.Setenv("XINFER_DEVICE", " CUDA ")
	t.Setenv("XINFER_DTYPE", "'bfloat16'")
	assert.Equal(t, "cuda", Device())
	assert.Equal(t, "bfloat16", DType())
}

func TestBatchConcurrency(t *testing.T) {
	t.Setenv("XINFER_BATCH_CONCURRENCY", "")
	assert.Equal(t, uint(1), BatchConcurrency())

	t.Setenv("XINFER_BATCH_CONCURRENCY", "4")
	assert.Equal(t, uint(4), BatchConcurrency())

	t.Setenv("XINFER_BATCH_CONCURRENCY", "many")
	assert.Equal(t, uint(1), BatchConcurrency())
}

func TestBackendEndpoints(t *testing.T) {
	t.Setenv("XINFER_TORCHSERVE_URL", "")
	assert.Equal(t, "http://127.0.0.1:8080", TorchServeURL())

	t.Setenv("XINFER_TORCHSERVE_URL", "http://gpu-box:9000/")
	assert.Equal(t, "http://gpu-box:9000", TorchServeURL())

	t.Setenv("HF_TOKEN", "secret")
	assert.Equal(t, "true", Values()["HF_TOKEN"])
}

func TestBoolFlags(t *testing.T) {
	t.Setenv("XINFER_LOCAL_IMAGES", "")
	assert.False(t, LocalImages())

	t.Setenv("XINFER_LOCAL_IMAGES", "1")
	assert.True(t, LocalImages())

	t.Setenv("XINFER_LOCAL_IMAGES", "false")
	assert.False(t, LocalImages())

	t.Setenv("XINFER_OLLAMA_PULL", "")
	assert.False(t, OllamaPull(false))
	assert.True(t, OllamaPull(true))

	t.Setenv("XINFER_OLLAMA_PULL", "0")
	assert.False(t, OllamaPull(true))

	// ungueltige Werte gelten als gesetzt
	t.Setenv("XINFER_OLLAMA_PULL", "yes please")
	assert.True(t, OllamaPull(false))
}
