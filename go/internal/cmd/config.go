package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/memorycell/go/internal/gateway"
	"github.com/mcdev12/memorycell/go/internal/room"
)

// fileConfig is the YAML schema of the optional config file named by
// CONFIG_PATH. Durations are plain integers (seconds or milliseconds
// as named) to keep the file trivial to write.
type fileConfig struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Game struct {
		DurationSeconds int `yaml:"duration_seconds"`
		MismatchDelayMS int `yaml:"mismatch_delay_ms"`
	} `yaml:"game"`
	Websocket struct {
		WriteTimeoutSeconds int   `yaml:"write_timeout_seconds"`
		ReadTimeoutSeconds  int   `yaml:"read_timeout_seconds"`
		PingIntervalSeconds int   `yaml:"ping_interval_seconds"`
		MaxMessageSize      int64 `yaml:"max_message_size"`
		OutboundQueue       int   `yaml:"outbound_queue"`
	} `yaml:"websocket"`
}

// Config is the assembled server configuration: YAML file when
// present, environment variables overriding the basics, defaults for
// the rest.
type Config struct {
	Port           string
	AllowedOrigins []string
	Game           room.Config
	Websocket      gateway.Config
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:           "3001",
		AllowedOrigins: []string{"*"},
		Game:           room.DefaultConfig(),
		Websocket:      gateway.DefaultConfig(),
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
		applyFileConfig(&cfg, fc)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Game.GameDuration = getEnvAsInt("GAME_DURATION_SECONDS", cfg.Game.GameDuration)
	if ms := getEnvAsInt("MISMATCH_DELAY_MS", 0); ms > 0 {
		cfg.Game.MismatchDelay = time.Duration(ms) * time.Millisecond
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Server.Port != "" {
		cfg.Port = fc.Server.Port
	}
	if len(fc.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.Server.AllowedOrigins
	}
	if fc.Game.DurationSeconds > 0 {
		cfg.Game.GameDuration = fc.Game.DurationSeconds
	}
	if fc.Game.MismatchDelayMS > 0 {
		cfg.Game.MismatchDelay = time.Duration(fc.Game.MismatchDelayMS) * time.Millisecond
	}
	if fc.Websocket.WriteTimeoutSeconds > 0 {
		cfg.Websocket.WriteTimeout = time.Duration(fc.Websocket.WriteTimeoutSeconds) * time.Second
	}
	if fc.Websocket.ReadTimeoutSeconds > 0 {
		cfg.Websocket.ReadTimeout = time.Duration(fc.Websocket.ReadTimeoutSeconds) * time.Second
	}
	if fc.Websocket.PingIntervalSeconds > 0 {
		cfg.Websocket.PingInterval = time.Duration(fc.Websocket.PingIntervalSeconds) * time.Second
	}
	if fc.Websocket.MaxMessageSize > 0 {
		cfg.Websocket.MaxMessageSize = fc.Websocket.MaxMessageSize
	}
	if fc.Websocket.OutboundQueue > 0 {
		cfg.Websocket.OutboundQueue = fc.Websocket.OutboundQueue
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
