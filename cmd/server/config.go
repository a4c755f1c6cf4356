package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/Netflix/go-env"

	"github.com/astromechza/toggle-rooms/pkg/store"
	"github.com/astromechza/toggle-rooms/pkg/transport"
)

type Config struct {
	Addr            string        `env:"ADDR,default=localhost:8080"`
	StoreDriver     string        `env:"STORE_DRIVER,default=sqlite"`
	StorePath       string        `env:"STORE_PATH,default=rooms.sqlite3"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=text"`
	OutboundBuffer  int           `env:"OUTBOUND_BUFFER,default=64"`
	MaxMessageSize  int           `env:"MAX_MESSAGE_SIZE,default=4096"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	AllowAllOrigins bool          `env:"ALLOW_ALL_ORIGINS,default=false"`
}

func loadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if !slices.Contains([]string{store.DriverSQLite, store.DriverBadger, store.DriverMemory}, c.StoreDriver) {
		return fmt.Errorf("STORE_DRIVER must be one of sqlite, badger or memory, got %q", c.StoreDriver)
	}
	if c.StoreDriver != store.DriverMemory && c.StorePath == "" {
		return fmt.Errorf("STORE_PATH is required for the %s driver", c.StoreDriver)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.OutboundBuffer <= 0 {
		return fmt.Errorf("OUTBOUND_BUFFER must be positive, got %d", c.OutboundBuffer)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	if c.WriteTimeout <= 0 || c.PingInterval <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT, PING_INTERVAL and SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) transportOptions() transport.Options {
	return transport.Options{
		OutboundBuffer:  c.OutboundBuffer,
		WriteTimeout:    c.WriteTimeout,
		PingInterval:    c.PingInterval,
		MaxMessageSize:  int64(c.MaxMessageSize),
		AllowAllOrigins: c.AllowAllOrigins,
	}
}
