package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7blacky7/xinfer/model"
)

func TestRegisterAll(t *testing.T) {
	r := model.NewRegistry()
	require.NoError(t, RegisterAll(r))

	entries := r.ListModels()
	require.NotEmpty(t, entries)

	seen := map[[2]string]bool{}
	for _, e := range entries {
		key := [2]string{e.ModelID, e.Backend}
		assert.False(t, seen[key], "duplicate %v", key)
		seen[key] = true
		assert.Contains(t, Names, e.Backend)
		assert.NotEmpty(t, e.IO)
	}

	// Reihenfolge folgt der Registrierung der Backends
	assert.Equal(t, "transformers", entries[0].Backend)
	assert.Equal(t, "ollama", entries[len(entries)-1].Backend)

	for _, name := range Names {
		assert.NotEmpty(t, r.ListModels(model.FilterBackend(name)), name)
	}

	// moondream gibt es nur bei ollama, die ID ist daher eindeutig
	_, err := r.Resolve("moondream", "")
	assert.NoError(t, err)

	assert.ErrorIs(t, RegisterAll(r), model.ErrDuplicateRegistration)
}

func TestCreateUnknown(t *testing.T) {
	r := model.NewRegistry()
	require.NoError(t, RegisterAll(r))
	r.Seal()

	_, err := r.CreateModel(t.Context(), "nonexistent-id")
	assert.ErrorIs(t, err, model.ErrUnknownModel)

	var unknown *model.UnknownModelError
	require.ErrorAs(t, err, &unknown)

	_, err = r.CreateModel(t.Context(), "yolov8q")
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Suggestions, "yolov8n")
}
