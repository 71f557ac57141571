package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/drawsync/go/internal/drawsync/conn"
	"github.com/mcdev12/drawsync/go/internal/drawsync/game"
	"github.com/mcdev12/drawsync/go/internal/drawsync/session"
	"github.com/mcdev12/drawsync/go/internal/drawsync/transport"
)

type Config struct {
	Server struct {
		URL            string        `yaml:"url"`
		DialTimeout    time.Duration `yaml:"dial_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		CommandSubject string        `yaml:"command_subject"`
		EventSubject   string        `yaml:"event_subject"`
	} `yaml:"server"`

	Reconnect struct {
		MaxRetries int           `yaml:"max_retries"`
		BaseDelay  time.Duration `yaml:"base_delay"`
	} `yaml:"reconnect"`

	Room struct {
		ID        int64  `yaml:"id"`
		Code      string `yaml:"code"`
		Password  string `yaml:"password"`
		LookupURL string `yaml:"lookup_url"`
	} `yaml:"room"`

	Game struct {
		TotalRounds int `yaml:"total_rounds"`
	} `yaml:"game"`

	Credentials struct {
		TokenEnv  string `yaml:"token_env"`
		TokenFile string `yaml:"token_file"`
	} `yaml:"credentials"`

	Inspect struct {
		Port string `yaml:"port"`
	} `yaml:"inspect"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// defaultConfig mirrors the package defaults so a missing file still runs.
func defaultConfig() *Config {
	var config Config

	t := transport.DefaultConfig()
	config.Server.URL = t.URL
	config.Server.DialTimeout = t.DialTimeout
	config.Server.WriteTimeout = t.WriteTimeout
	config.Server.ReadTimeout = t.ReadTimeout
	config.Server.PingInterval = t.PingInterval
	config.Server.MaxMessageSize = t.MaxMessageSize
	config.Server.CommandSubject = t.CommandSubject
	config.Server.EventSubject = t.EventSubject

	c := conn.DefaultConfig()
	config.Reconnect.MaxRetries = c.MaxRetries
	config.Reconnect.BaseDelay = c.BaseDelay

	config.Game.TotalRounds = game.DefaultConfig().TotalRounds
	config.Credentials.TokenEnv = "DRAWSYNC_TOKEN"
	config.Inspect.Port = "8082"
	config.Log.Level = "info"
	return &config
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
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

// loadConfig reads the YAML file at path over the defaults. An empty path
// skips the file.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// applyEnv lets environment variables override the file.
func (c *Config) applyEnv() {
	c.Server.URL = getEnv("DRAWSYNC_SERVER_URL", c.Server.URL)
	c.Server.DialTimeout = getEnvAsDuration("DRAWSYNC_DIAL_TIMEOUT", c.Server.DialTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("DRAWSYNC_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.CommandSubject = getEnv("DRAWSYNC_COMMAND_SUBJECT", c.Server.CommandSubject)
	c.Server.EventSubject = getEnv("DRAWSYNC_EVENT_SUBJECT", c.Server.EventSubject)

	c.Reconnect.MaxRetries = getEnvAsInt("DRAWSYNC_MAX_RETRIES", c.Reconnect.MaxRetries)
	c.Reconnect.BaseDelay = getEnvAsDuration("DRAWSYNC_BASE_DELAY", c.Reconnect.BaseDelay)

	c.Room.ID = getEnvAsInt64("DRAWSYNC_ROOM_ID", c.Room.ID)
	c.Room.Code = getEnv("DRAWSYNC_ROOM_CODE", c.Room.Code)
	c.Room.Password = getEnv("DRAWSYNC_ROOM_PASSWORD", c.Room.Password)
	c.Room.LookupURL = getEnv("DRAWSYNC_LOOKUP_URL", c.Room.LookupURL)

	c.Game.TotalRounds = getEnvAsInt("DRAWSYNC_TOTAL_ROUNDS", c.Game.TotalRounds)
	c.Credentials.TokenFile = getEnv("DRAWSYNC_TOKEN_FILE", c.Credentials.TokenFile)
	c.Inspect.Port = getEnv("DRAWSYNC_INSPECT_PORT", c.Inspect.Port)
	c.Log.Level = getEnv("DRAWSYNC_LOG_LEVEL", c.Log.Level)
}

func (c *Config) transportConfig() transport.Config {
	return transport.Config{
		URL:            c.Server.URL,
		DialTimeout:    c.Server.DialTimeout,
		WriteTimeout:   c.Server.WriteTimeout,
		ReadTimeout:    c.Server.ReadTimeout,
		PingInterval:   c.Server.PingInterval,
		MaxMessageSize: c.Server.MaxMessageSize,
		CommandSubject: c.Server.CommandSubject,
		EventSubject:   c.Server.EventSubject,
	}
}

func (c *Config) sessionConfig() session.Config {
	config := session.DefaultConfig()
	config.RoomID = c.Room.ID
	config.RoomCode = c.Room.Code
	config.RoomPassword = c.Room.Password
	config.Conn.MaxRetries = c.Reconnect.MaxRetries
	config.Conn.BaseDelay = c.Reconnect.BaseDelay
	config.Conn.WriteTimeout = c.Server.WriteTimeout
	config.Game.TotalRounds = c.Game.TotalRounds
	return config
}
