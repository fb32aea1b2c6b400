package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "127.0.0.1:9090", "-f", "x.db", "-u", "user_1", "-w", "500", "-i", "10",
				"-n", "5", "-t", "64", "-q", "2048", "-k", "key", "-o", "http://llm/v1", "-m", "model", "-r", "0", "-l", "debug", "-x"},
			expected: &Config{
				ServerEndpointAddr: "127.0.0.1:9090",
				DataFile:           "x.db",
				UserID:             "user_1",
				Debounce:           500 * time.Millisecond,
				RetryInterval:      10 * time.Second,
				KeepMessages:       5,
				MediaThreshold:     64,
				QuotaBytes:         2048,
				OpenAIAPIKey:       "key",
				OpenAIBaseURL:      "http://llm/v1",
				OpenAIModel:        "model",
				RequestsPerMinute:  0,
				Offline:            true,
				LogLevel:           "debug",
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"cmd", "-z", "whatever", "-a", "host:1"},
			expected: &Config{ServerEndpointAddr: "host:1"},
		},
		{name: "bad retry interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
