package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/soullink/internal/flagx"
	"github.com/dmitrijs2005/soullink/internal/timex"
)

// JsonConfig is the on-disk shape of the client configuration.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DataFile           string         `json:"data_file"`
	UserID             string         `json:"user_id"`
	Debounce           timex.Duration `json:"debounce"`
	RetryInterval      timex.Duration `json:"retry_interval"`
	KeepMessages       int            `json:"keep_messages"`
	MediaThreshold     int            `json:"media_threshold"`
	QuotaBytes         int64          `json:"quota_bytes"`
	OpenAIAPIKey       string         `json:"openai_api_key"`
	OpenAIBaseURL      string         `json:"openai_base_url"`
	OpenAIModel        string         `json:"openai_model"`
	RequestsPerMinute  *int           `json:"requests_per_minute"`
	Offline            *bool          `json:"offline"`
	LogLevel           string         `json:"log_level"`
}

// parseJson overlays Config with values from the JSON file named by
// -c/-config or $SOULLINK_CONFIG. Zero values in the file are ignored.
// Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DataFile, jc.DataFile)
	setString(&cfg.UserID, jc.UserID)
	if jc.Debounce.Duration > 0 {
		cfg.Debounce = time.Duration(jc.Debounce.Duration)
	}
	if jc.RetryInterval.Duration > 0 {
		cfg.RetryInterval = time.Duration(jc.RetryInterval.Duration)
	}
	if jc.KeepMessages > 0 {
		cfg.KeepMessages = jc.KeepMessages
	}
	if jc.MediaThreshold > 0 {
		cfg.MediaThreshold = jc.MediaThreshold
	}
	if jc.QuotaBytes > 0 {
		cfg.QuotaBytes = jc.QuotaBytes
	}
	setString(&cfg.OpenAIAPIKey, jc.OpenAIAPIKey)
	setString(&cfg.OpenAIBaseURL, jc.OpenAIBaseURL)
	setString(&cfg.OpenAIModel, jc.OpenAIModel)
	if jc.RequestsPerMinute != nil {
		cfg.RequestsPerMinute = *jc.RequestsPerMinute
	}
	if jc.Offline != nil {
		cfg.Offline = *jc.Offline
	}
	setString(&cfg.LogLevel, jc.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
