package core

import (
	"fmt"
	"strings"
)

type RetryConfig struct {
	BaseDelayMS int `koanf:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int `koanf:"max_delay_ms" mapstructure:"max_delay_ms"`
}

type StorageConfig struct {
	Table          string `koanf:"table" mapstructure:"table"`
	CreatedAtIndex string `koanf:"created_at_index" mapstructure:"created_at_index"`
	AutoProvision  bool   `koanf:"auto_provision" mapstructure:"auto_provision"`
	TTLSeconds     int64  `koanf:"ttl_seconds" mapstructure:"ttl_seconds"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Retry       RetryConfig   `koanf:"retry" mapstructure:"retry"`
	Storage     StorageConfig `koanf:"storage" mapstructure:"storage"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "webhooks",
		Retry: RetryConfig{
			BaseDelayMS: 500,
			MaxDelayMS:  3000,
		},
		Storage: StorageConfig{
			Table:          "webhook_logs",
			CreatedAtIndex: CreatedAtIndexName,
			TTLSeconds:     7 * 24 * 60 * 60,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Retry.BaseDelayMS <= 0 {
		return fmt.Errorf("core: retry.base_delay_ms must be positive")
	}
	if c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return fmt.Errorf("core: retry.max_delay_ms must be >= retry.base_delay_ms")
	}
	if c.Storage.TTLSeconds < 0 {
		return fmt.Errorf("core: storage.ttl_seconds must not be negative")
	}
	return nil
}
