// Package config reads client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stream transports.
const (
	TransportSSE       = "sse"
	TransportNATS      = "nats"
	TransportWebSocket = "websocket"
)

// Config holds the client settings.
type Config struct {
	APIBaseURL      string
	APIToken        string
	StreamTransport string
	NATSURL         string
	UserID          string
	UserEmail       string
	SessionDir      string
	LayoutFile      string
	DebugAddr       string
	LogLevel        string
	SpawnEndpoint   string
	HTTPTimeout     time.Duration
	ReconnectWait   time.Duration
	DiagnosticsSize int
}

// Load reads .env files (missing files are not an error) and then the
// environment.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	return NewConfigFromEnv()
}

// NewConfigFromEnv reads the environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
		APIToken:        getEnv("API_TOKEN", ""),
		StreamTransport: strings.ToLower(getEnv("STREAM_TRANSPORT", TransportSSE)),
		NATSURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		UserID:          getEnv("USER_ID", ""),
		UserEmail:       getEnv("USER_EMAIL", ""),
		SessionDir:      getEnv("SESSION_DIR", ""),
		LayoutFile:      getEnv("LAYOUT_FILE", ""),
		DebugAddr:       getEnv("DEBUG_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SpawnEndpoint:   strings.ToLower(getEnv("SPAWN_ENDPOINT", "actor")),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		ReconnectWait:   getEnvAsDuration("RECONNECT_WAIT", 2*time.Second),
		DiagnosticsSize: getEnvAsInt("DIAGNOSTICS_SIZE", 20),
	}
}

// Validate checks the settings the client cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	}
	switch c.StreamTransport {
	case TransportSSE, TransportNATS, TransportWebSocket:
	default:
		errs = append(errs, fmt.Errorf("STREAM_TRANSPORT %q is not one of sse, nats, websocket", c.StreamTransport))
	}
	if c.UserEmail == "" && c.UserID == "" {
		errs = append(errs, errors.New("USER_EMAIL or USER_ID is required"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
