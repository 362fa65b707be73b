package config

import (
	"fmt"
	"time"
)

// DatabaseConfig selects the relational store. MySQL is the production
// driver; postgres and sqlite are supported for other deployments and local runs.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"` // overrides the discrete fields when set
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ConnString returns the driver-specific connection string.
// Parameters: none.
// Returns:
//   - string: DSN understood by the configured gorm driver.
func (c *DatabaseConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case "sqlite":
		return c.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
	}
}

// Validate checks that the database configuration has all required fields.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "mysql", "postgres":
		if c.DSN == "" && c.Host == "" {
			return fmt.Errorf("database %s: host or dsn is required", c.Driver)
		}
	case "sqlite":
		if c.DSN == "" && c.Path == "" {
			return fmt.Errorf("database sqlite: path is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Driver)
	}
	return nil
}
