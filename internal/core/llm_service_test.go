package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngineWaitsForModelPath(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "tinyllama.gguf")
	cfg := EngineConfig{
		Backend:   "ollama",
		ModelPath: modelPath,
		ModelName: "tinyllama",
		OllamaURL: "http://127.0.0.1:11434",
	}

	assert.Nil(t, LoadEngine(context.Background(), cfg))

	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0o600))
	engine := LoadEngine(context.Background(), cfg)
	require.NotNil(t, engine)
	assert.Equal(t, "ollama/tinyllama", engine.Name())
	assert.NoError(t, engine.Close())
}

func TestLoadEngineDisabledBackends(t *testing.T) {
	cases := map[string]EngineConfig{
		"none":               {Backend: "none"},
		"empty":              {},
		"unknown":            {Backend: "llamacpp"},
		"gemini without key": {Backend: "gemini"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, LoadEngine(context.Background(), cfg))
		})
	}
}
