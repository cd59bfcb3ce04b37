package zerolog_config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var appPrefix string
var setAppPrefixOnce = &sync.Once{}
var startupLoggerOnce = &sync.Once{}

// ElasticsearchWriter sends ECS log documents directly to an Elasticsearch index
type ElasticsearchWriter struct {
	URL    string
	Client *http.Client
}

func (ew ElasticsearchWriter) Write(p []byte) (n int, err error) {
	client := ew.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Post(ew.URL+"/_doc", "application/json", bytes.NewBuffer(p))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}

	return len(p), nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// newLogger builds the logger: console always, plus ECS documents to
// Elasticsearch when a URL is set
func newLogger(console io.Writer, elasticsearchURL, index string) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}

	if elasticsearchURL == "" {
		return zerolog.New(consoleWriter).With().Str("app", appPrefix).Timestamp().Logger()
	}

	multi := zerolog.MultiLevelWriter(
		&ElasticsearchWriter{URL: elasticsearchURL + "/" + index},
		consoleWriter,
	)
	return ecszerolog.New(multi).With().Str("app", appPrefix).Logger()
}

// SetAppPrefix sets the app name attached to every log line
func SetAppPrefix(name string) {
	setAppPrefixOnce.Do(func() {
		appPrefix = name
	})
}

// StartupWithEnv sets up the global logger. index names the Elasticsearch
// index and is required. Run SetAppPrefix before StartupWithEnv.
func StartupWithEnv(elasticsearchURL, index, level string) error {
	if index == "" {
		return fmt.Errorf("index is required")
	}
	startupLoggerOnce.Do(func() {
		zerolog.SetGlobalLevel(ParseLevel(level))
		log.Logger = newLogger(os.Stdout, elasticsearchURL, index)
	})
	return nil
}
