// Package config loads the JSON configuration files consumed by the
// server and client commands.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ConfigError reports a failure to load or validate a configuration file.
type ConfigError struct {
	What  string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.What, e.Cause)
	}
	return e.What
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ServerConfig holds the server's startup configuration, loaded from a
// JSON file.
type ServerConfig struct {
	HostPort           int32    `json:"host_port"`
	LogLevel           string   `json:"log_level"`
	LogFile            string   `json:"log_file"`
	HostCertificatePath string  `json:"host_certificate"`
	HostPrivateKeyPath  string  `json:"host_private_key"`
	MaxClients         int32    `json:"max_clients"`
	InitialRooms       []string `json:"initial_rooms"`
	WebSocketPort      int32    `json:"websocket_port"`
	MetricsPort        int32    `json:"metrics_port"`
}

// LoadServerConfig reads and validates the server configuration file at
// path. host_certificate and host_private_key are required; every other
// field falls back to its documented default.
func LoadServerConfig(path string) (*ServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{What: "unable to open config file", Cause: err}
	}

	cfg := ServerConfig{
		HostPort: 8080,
		LogLevel: "warn",
		MaxClients: 10,
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{What: "unable to parse config file", Cause: err}
	}
	if cfg.HostCertificatePath == "" {
		return nil, &ConfigError{What: "host_certificate is required"}
	}
	if cfg.HostPrivateKeyPath == "" {
		return nil, &ConfigError{What: "host_private_key is required"}
	}
	return &cfg, nil
}

// ClientConfig holds the client's startup configuration, loaded from a
// JSON file.
type ClientConfig struct {
	ServerHostName     string   `json:"server_host_name"`
	ServerHostPort     int32    `json:"server_host_port"`
	LogLevel           string   `json:"log_level"`
	LogFile            string   `json:"log_file"`
	CustomCertificates []string `json:"custom_certificates"`
}

// LoadClientConfig reads and validates the client configuration file at
// path. server_host_name is required; every other field falls back to its
// documented default.
func LoadClientConfig(path string) (*ClientConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{What: "unable to open config file", Cause: err}
	}

	cfg := ClientConfig{
		ServerHostPort: 8080,
		LogLevel:       "warn",
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{What: "unable to parse config file", Cause: err}
	}
	if cfg.ServerHostName == "" {
		return nil, &ConfigError{What: "server_host_name is required"}
	}
	return &cfg, nil
}
