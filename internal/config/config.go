// Package config loads and validates the application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"telereader/internal/constants"
	"telereader/internal/models"
)

var (
	ErrMissingSourceURL = models.ConfigError{Message: "missing source API base URL"}
	ErrMissingMongoURI  = models.ConfigError{Message: "missing mongo URI for mongo backend"}
	ErrMissingDBPath    = models.ConfigError{Message: "missing database path for sqlite backend"}
	ErrNoChannels       = models.ConfigError{Message: "no channels configured"}
)

// LoadConfig reads the JSON config file, applies environment overrides
// and fills in defaults.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Source.APIBaseURL == "" {
		return ErrMissingSourceURL
	}
	if c.Source.WebsocketURL == "" {
		// Derive the event stream address from the API address.
		c.Source.WebsocketURL = deriveWebsocketURL(c.Source.APIBaseURL)
	}
	if c.Source.HTTPTimeoutSec <= 0 {
		c.Source.HTTPTimeoutSec = constants.DefaultHTTPTimeoutSec
	}

	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "mongo"
		if c.Storage.MongoURI == "" {
			return ErrMissingMongoURI
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return ErrMissingMongoURI
		}
	case "sqlite":
		if c.Storage.Path == "" {
			return ErrMissingDBPath
		}
	default:
		return models.ConfigError{Message: fmt.Sprintf("unknown storage backend: %q", c.Storage.Backend)}
	}

	if len(c.Channels) == 0 {
		return ErrNoChannels
	}
	seen := make(map[string]bool)
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty channel id at index %d", i)}
		}
		if seen[ch.ID] {
			return models.ConfigError{Message: fmt.Sprintf("duplicate channel id: %s", ch.ID)}
		}
		seen[ch.ID] = true
	}

	if c.Throttle.BatchSize <= 0 {
		c.Throttle.BatchSize = constants.DefaultBatchSize
	}
	if c.Throttle.BatchDelayMs <= 0 {
		c.Throttle.BatchDelayMs = constants.DefaultBatchDelayMs
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.GracefulShutdownSec <= 0 {
		c.Server.GracefulShutdownSec = constants.DefaultGracefulShutdownSec
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("SOURCE_API_URL"); url != "" {
		c.Source.APIBaseURL = url
	}
	if url := os.Getenv("SOURCE_WS_URL"); url != "" {
		c.Source.WebsocketURL = url
	}
	if token := os.Getenv("SOURCE_API_TOKEN"); token != "" {
		c.Source.APIToken = token
	}
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		c.Storage.MongoURI = uri
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Storage.Path = path
	}

	// CHANNELS is a comma-separated channel list replacing the config
	// file's channel set; each entry is marked active.
	if channels := os.Getenv("CHANNELS"); channels != "" {
		c.Channels = ParseChannelList(channels)
	}
}

// ParseChannelList turns a comma-separated channel id list into active
// channel entries. Also used by the -channels CLI override.
func ParseChannelList(list string) []models.Channel {
	var channels []models.Channel
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		channels = append(channels, models.Channel{ID: id, Name: id, Active: true})
	}
	return channels
}

func deriveWebsocketURL(apiURL string) string {
	ws := apiURL
	ws = strings.Replace(ws, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimSuffix(ws, "/") + "/api/events"
}
