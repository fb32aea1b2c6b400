package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv("SOULLINK_CONFIG", "")

	t.Run("loads every field", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"server_endpoint_addr": "srv:1",
			"data_file":            "d.db",
			"user_id":              "user_9",
			"debounce":             "750ms",
			"retry_interval":       "1m",
			"keep_messages":        12,
			"media_threshold":      256,
			"quota_bytes":          4096,
			"openai_api_key":       "k",
			"openai_base_url":      "http://llm/v1",
			"openai_model":         "m",
			"requests_per_minute":  0,
			"offline":              true,
			"log_level":            "error",
		})
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "srv:1", cfg.ServerEndpointAddr)
		assert.Equal(t, "d.db", cfg.DataFile)
		assert.Equal(t, "user_9", cfg.UserID)
		assert.Equal(t, 750*time.Millisecond, cfg.Debounce)
		assert.Equal(t, time.Minute, cfg.RetryInterval)
		assert.Equal(t, 12, cfg.KeepMessages)
		assert.Equal(t, 256, cfg.MediaThreshold)
		assert.Equal(t, int64(4096), cfg.QuotaBytes)
		assert.Equal(t, "k", cfg.OpenAIAPIKey)
		assert.Equal(t, "http://llm/v1", cfg.OpenAIBaseURL)
		assert.Equal(t, "m", cfg.OpenAIModel)
		assert.Equal(t, 0, cfg.RequestsPerMinute)
		assert.True(t, cfg.Offline)
		assert.Equal(t, "error", cfg.LogLevel)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"data_file": "other.db"})
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "other.db", cfg.DataFile)
		assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
		assert.Equal(t, 20, cfg.RequestsPerMinute)
	})

	t.Run("no file", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{LogLevel: "info"}
		parseJson(cfg)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
