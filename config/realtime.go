package config

import (
	"os"
	"strconv"
)

// Config holds realtime server configuration.
type Config struct {
	Addr            string `json:"addr"`
	TokenSecret     string `json:"-"`
	MaxConnections  int    `json:"max_connections"`
	PingInterval    int    `json:"ping_interval_seconds"`
	WriteTimeout    int    `json:"write_timeout_seconds"`
	ReadBufferSize  int    `json:"read_buffer_size"`
	WriteBufferSize int    `json:"write_buffer_size"`
}

// Default returns the default server configuration.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		MaxConnections:  1000,
		PingInterval:    30,
		WriteTimeout:    10,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// FromEnv loads configuration from environment variables, falling back
// to defaults for any missing values.
func FromEnv() *Config {
	cfg := Default()

	if addr := os.Getenv("RT_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if secret := os.Getenv("RT_TOKEN_SECRET"); secret != "" {
		cfg.TokenSecret = secret
	}
	if v := os.Getenv("RT_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConnections = n
		}
	}
	if v := os.Getenv("RT_PING_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PingInterval = n
		}
	}
	if v := os.Getenv("RT_WRITE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WriteTimeout = n
		}
	}
	if v := os.Getenv("RT_READ_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReadBufferSize = n
		}
	}
	if v := os.Getenv("RT_WRITE_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WriteBufferSize = n
		}
	}
	return cfg
}
