package postgres

import (
	"fmt"
	"time"
)

// Config holds configuration for the PostgreSQL backed stores.
// Pool configuration is handled separately via PoolConfig.
type Config struct {
	Pool PoolConfig

	// AutoMigrate applies the embedded schema migrations on startup.
	AutoMigrate bool

	// ConnectRetryTimeout bounds how long Open keeps retrying the initial connection.
	// Default: 30 seconds
	ConnectRetryTimeout time.Duration

	// StatsInterval is how often connection pool statistics are logged.
	// Default: 30 seconds
	StatsInterval time.Duration
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if c.ConnectRetryTimeout < 0 {
		return fmt.Errorf("connect retry timeout must not be negative")
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	c.Pool.ApplyDefaults()
	if c.ConnectRetryTimeout == 0 {
		c.ConnectRetryTimeout = 30 * time.Second
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = 30 * time.Second
	}
}
