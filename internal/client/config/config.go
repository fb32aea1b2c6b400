package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/soullink/internal/client/client"
	"github.com/dmitrijs2005/soullink/internal/client/localstore"
	"github.com/dmitrijs2005/soullink/internal/client/replies"
	"github.com/dmitrijs2005/soullink/internal/client/repositories/kv"
	"github.com/dmitrijs2005/soullink/internal/client/services"
)

// OpenAIKeyEnv is read for the default API key.
const OpenAIKeyEnv = "OPENAI_API_KEY"

// Config holds runtime settings for the SoulLink client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the document server.
//   - DataFile: SQLite file holding the local record.
//   - UserID: replaces the generated user id when set.
//   - Debounce: quiet period before a remote save.
//   - RetryInterval: wait between remote subscription attempts.
//   - KeepMessages / MediaThreshold / QuotaBytes: local storage limits.
//   - OpenAI*: reply generator endpoint.
//   - Offline: never contact the server.
type Config struct {
	ServerEndpointAddr string
	DataFile           string
	UserID             string
	Debounce           time.Duration
	RetryInterval      time.Duration
	KeepMessages       int
	MediaThreshold     int
	QuotaBytes         int64
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	RequestsPerMinute  int
	Offline            bool
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	ai := replies.DefaultOpenAIConfig()

	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DataFile = "soullink.db"
	c.UserID = ""
	c.Debounce = services.DefaultDebounce
	c.RetryInterval = client.DefaultRetryInterval
	c.KeepMessages = localstore.DefaultKeepMessages
	c.MediaThreshold = localstore.DefaultMediaThreshold
	c.QuotaBytes = kv.DefaultQuota
	c.OpenAIAPIKey = os.Getenv(OpenAIKeyEnv)
	c.OpenAIBaseURL = ai.BaseURL
	c.OpenAIModel = ai.Model
	c.RequestsPerMinute = ai.RequestsPerMinute
	c.Offline = false
	c.LogLevel = "warn"
}

// OpenAI returns the generator settings.
func (c *Config) OpenAI() replies.OpenAIConfig {
	ai := replies.DefaultOpenAIConfig()
	ai.APIKey = c.OpenAIAPIKey
	ai.BaseURL = c.OpenAIBaseURL
	ai.Model = c.OpenAIModel
	ai.RequestsPerMinute = c.RequestsPerMinute
	return ai
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
