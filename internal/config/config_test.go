package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KakuleMalambo/voice-assistant/pkg/lookup"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LOG_LEVEL", "PORT", "ROOMS_PATH", "BRAVE_API_KEY", "OPENAI_API_KEY", "OPENAI_REALTIME_MODEL", "SEARCH_COUNT"} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultRoomsPath, cfg.Store.Path)
	assert.Equal(t, DefaultSearchCount, cfg.Search.Count)
	assert.Empty(t, cfg.Search.APIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "assistant.yaml")
	content := `
log_level: debug
server:
  port: "9090"
store:
  path: /tmp/house.json
search:
  api_key: file-key
  count: 3
  timeout: 4s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/house.json", cfg.Store.Path)
	assert.Equal(t, "file-key", cfg.Search.APIKey)
	assert.Equal(t, 3, cfg.Search.Count)
	assert.Equal(t, 4*time.Second, cfg.Search.Timeout)
	// untouched sections keep defaults
	assert.Equal(t, DefaultWeatherURL, cfg.Weather.BaseURL)
	assert.Equal(t, DefaultRealtimeModel, cfg.Realtime.Model)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("BRAVE_API_KEY", "env-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ROOMS_PATH", "rooms-env.json")
	t.Setenv("SEARCH_COUNT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Search.APIKey)
	assert.Equal(t, "sk-test", cfg.Realtime.APIKey)
	assert.Equal(t, "rooms-env.json", cfg.Store.Path)
	assert.Equal(t, DefaultSearchCount, cfg.Search.Count)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = ""
	cfg.Search.Count = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "server.port"))
	assert.True(t, strings.Contains(err.Error(), "search.count"))
}

func TestValidateSearchCount(t *testing.T) {
	tests := []struct {
		count   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{lookup.MaxSearchResults, false},
		{lookup.MaxSearchResults + 1, true},
		{20, true},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.count), func(t *testing.T) {
			cfg := Default()
			cfg.Search.Count = tt.count
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorContains(t, err, "search.count")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
