package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/soullink/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the document server
//	-f string   local data file
//	-u string   user id override
//	-w int      remote save debounce (milliseconds)
//	-i int      subscription retry interval (seconds)
//	-n int      messages kept per companion when pruning
//	-t int      media payload size stripped when pruning (bytes)
//	-q int      local storage quota (bytes)
//	-k string   OpenAI API key
//	-o string   OpenAI base URL
//	-m string   OpenAI model
//	-r int      generator requests per minute
//	-l string   log level
//	-x          offline mode
func parseFlags(cfg *Config) {
	args := flagx.Filter(os.Args[1:],
		[]string{"-a", "-f", "-u", "-w", "-i", "-n", "-t", "-q", "-k", "-o", "-m", "-r", "-l"},
		[]string{"-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DataFile, "f", cfg.DataFile, "local data file")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id override")
	debounce := fs.Int("w", int(cfg.Debounce.Milliseconds()), "remote save debounce (in milliseconds)")
	retryInterval := fs.Int("i", int(cfg.RetryInterval.Seconds()), "subscription retry interval (in seconds)")
	fs.IntVar(&cfg.KeepMessages, "n", cfg.KeepMessages, "messages kept per companion when pruning")
	fs.IntVar(&cfg.MediaThreshold, "t", cfg.MediaThreshold, "media size stripped when pruning (bytes)")
	fs.Int64Var(&cfg.QuotaBytes, "q", cfg.QuotaBytes, "local storage quota (bytes)")
	fs.StringVar(&cfg.OpenAIAPIKey, "k", cfg.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&cfg.OpenAIBaseURL, "o", cfg.OpenAIBaseURL, "OpenAI base URL")
	fs.StringVar(&cfg.OpenAIModel, "m", cfg.OpenAIModel, "OpenAI model")
	fs.IntVar(&cfg.RequestsPerMinute, "r", cfg.RequestsPerMinute, "generator requests per minute")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Offline, "x", cfg.Offline, "offline mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Debounce = time.Duration(*debounce) * time.Millisecond
	cfg.RetryInterval = time.Duration(*retryInterval) * time.Second
}
