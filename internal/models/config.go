package models

// Config holds the application configuration
type Config struct {
	Source   SourceConfig   `json:"source"`
	Storage  StorageConfig  `json:"storage"`
	Throttle ThrottleConfig `json:"throttle"`
	Server   ServerConfig   `json:"server"`
	Tracing  TracingConfig  `json:"tracing"`
	Channels []Channel      `json:"channels"`
	Filters  FiltersConfig  `json:"filters"`
	LogLevel string         `json:"log_level"`
}

// SourceConfig holds the connection settings for the message-source gateway.
// The gateway owns the platform session; telereader only needs its address.
type SourceConfig struct {
	APIBaseURL     string `json:"api_base_url"`
	WebsocketURL   string `json:"websocket_url"`
	APIToken       string `json:"api_token"`
	HTTPTimeoutSec int    `json:"httpTimeoutSec"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Backend  string `json:"backend"` // "mongo" or "sqlite"
	MongoURI string `json:"mongo_uri"`
	Path     string `json:"path"` // sqlite database file
}

// ThrottleConfig controls history fetch pacing
type ThrottleConfig struct {
	BatchSize    int `json:"batchSize"`
	BatchDelayMs int `json:"batchDelayMs"`
}

// ServerConfig holds the health/metrics HTTP server settings
type ServerConfig struct {
	Port                int `json:"port"`
	ReadTimeoutSec      int `json:"readTimeoutSec"`
	WriteTimeoutSec     int `json:"writeTimeoutSec"`
	GracefulShutdownSec int `json:"gracefulShutdownSec"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

// Channel is a source stream to ingest. Read-only configuration; the
// engine never mutates channels.
type Channel struct {
	ID     string `json:"channel_id"`
	Name   string `json:"name"`
	Active bool   `json:"is_active"`
}

// FilterAction identifies what a matching rule does to a message.
type FilterAction string

const (
	ActionDropMessage     FilterAction = "drop_message"
	ActionRemoveFragment  FilterAction = "remove_fragment"
	ActionReplaceFragment FilterAction = "replace_fragment"
)

// FilterRule is one (matcher, action) pair. Literal rules use Match,
// pattern rules use Pattern.
type FilterRule struct {
	Action      FilterAction `json:"action"`
	Match       string       `json:"match,omitempty"`
	Pattern     string       `json:"pattern,omitempty"`
	Replacement string       `json:"replacement,omitempty"`
}

// FiltersConfig holds the two ordered rule groups. Order within each
// group is significant and preserved from the config file.
type FiltersConfig struct {
	String []FilterRule `json:"string"`
	Regex  []FilterRule `json:"regex"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
