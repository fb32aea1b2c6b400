// Package config loads runtime configuration for the SoulLink client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c or -config, or
//     $SOULLINK_CONFIG.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations accept strings like "2s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "data_file": "soullink.db",
//	  "user_id": "",
//	  "debounce": "2s",
//	  "retry_interval": "5s",
//	  "keep_messages": 30,
//	  "media_threshold": 1024,
//	  "quota_bytes": 5242880,
//	  "openai_api_key": "",
//	  "openai_base_url": "https://api.openai.com/v1",
//	  "openai_model": "gpt-4o-mini",
//	  "requests_per_minute": 20,
//	  "offline": false,
//	  "log_level": "warn"
//	}
//
// The OpenAI key also defaults to $OPENAI_API_KEY. Without a key the client
// answers with the built-in mock generator.
package config
