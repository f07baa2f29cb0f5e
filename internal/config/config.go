package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 8086
)

type Config struct {
	Server          ServerConfig  `yaml:"server"`
	Queue           QueueConfig   `yaml:"queue"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// QueueConfig bounds the two buffering points between the engine and an
// observer's socket. Both queues trade completeness for freshness: when one
// fills, events are dropped rather than blocking the producer.
type QueueConfig struct {
	IntakeSize        int `yaml:"intake_size"`
	PerConnectionSize int `yaml:"per_connection_size"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Queue: QueueConfig{
			IntakeSize:        256,
			PerConnectionSize: 64,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load reads the configuration file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// An explicit zero or negative bound would wedge the pipeline; fall
	// back to the defaults instead.
	def := defaultConfig()
	if cfg.Queue.IntakeSize <= 0 {
		cfg.Queue.IntakeSize = def.Queue.IntakeSize
	}
	if cfg.Queue.PerConnectionSize <= 0 {
		cfg.Queue.PerConnectionSize = def.Queue.PerConnectionSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as an empty
// one, returning the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
