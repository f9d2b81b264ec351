// Package config loads service settings from an optional TOML file, then
// applies environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Email    EmailConfig    `toml:"email"`
	Worker   WorkerConfig   `toml:"worker"`
	Log      LogConfig      `toml:"log"`
	Timezone string         `toml:"timezone"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type RedisConfig struct {
	Addr string `toml:"addr"`
}

type EmailConfig struct {
	APIKey      string `toml:"api-key"`
	FromName    string `toml:"from-name"`
	FromAddress string `toml:"from-address"`
}

type WorkerConfig struct {
	ID               string   `toml:"id"`
	PollInterval     Duration `toml:"poll-interval"`
	RolloverInterval Duration `toml:"rollover-interval"`
}

type LogConfig struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// Duration decodes TOML strings such as "30s" or "1h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Driver: "postgres"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Worker: WorkerConfig{
			PollInterval:     Duration{time.Second},
			RolloverInterval: Duration{time.Hour},
		},
		Timezone: "UTC",
	}
}

// Load reads path when it is non-empty and exists, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "POSTGRES_DSN")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Email.APIKey, "EMAIL_API_KEY")
	setString(&c.Email.FromName, "FROM_NAME")
	setString(&c.Email.FromAddress, "FROM_ADDRESS")
	setString(&c.Worker.ID, "WORKER_ID")
	setString(&c.Log.File, "LOG_FILE")
	setString(&c.Timezone, "TZ_NAME")

	if v := os.Getenv("LOG_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_DEBUG: %w", err)
		}
		c.Log.Debug = debug
	}

	for env, dst := range map[string]*Duration{
		"WORKER_POLL_INTERVAL":     &c.Worker.PollInterval,
		"WORKER_ROLLOVER_INTERVAL": &c.Worker.RolloverInterval,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
	}

	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}
	return nil
}
