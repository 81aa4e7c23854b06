package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "time/tzdata"

	libconfig "evbilling/backend/libs/config"
)

const defaultPort = "8083"

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"BILLING_HTTP_PORT"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"BILLING_POSTGRES_DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"BILLING_POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" env:"BILLING_POSTGRES_MAX_IDLE_CONNS"`
	// ConnectAttempts is how many pings are tried at startup.
	ConnectAttempts int `yaml:"connectAttempts" env:"BILLING_POSTGRES_CONNECT_ATTEMPTS"`
}

// RedisConfig holds the bill-lock redis settings. An empty Addr disables the lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"BILLING_REDIS_ADDR"`
	Password string        `yaml:"password" env:"BILLING_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"BILLING_REDIS_DB"`
	PoolSize int           `yaml:"poolSize" env:"BILLING_REDIS_POOL_SIZE"`
	LockTTL  time.Duration `yaml:"lockTTL" env:"BILLING_LOCK_TTL"`
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string `yaml:"secret" env:"BILLING_JWT_SECRET"`
}

// TariffConfig holds pricing context.
type TariffConfig struct {
	Timezone    string  `yaml:"timezone" env:"BILLING_TARIFF_TIMEZONE"`
	FastPowerKW float64 `yaml:"fastPowerKW" env:"BILLING_FAST_POWER_KW"`
	SlowPowerKW float64 `yaml:"slowPowerKW" env:"BILLING_SLOW_POWER_KW"`
}

// Config defines billing service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Tariff   TariffConfig   `yaml:"tariff"`
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:     HTTPConfig{Port: defaultPort},
		Database: DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5, ConnectAttempts: 5},
		Redis:    RedisConfig{LockTTL: 30 * time.Second},
		Tariff: TariffConfig{
			Timezone:    "Asia/Shanghai",
			FastPowerKW: 30,
			SlowPowerKW: 7,
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret required")
	}
	if c.Tariff.FastPowerKW <= 0 || c.Tariff.SlowPowerKW <= 0 {
		return errors.New("config: charging power must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the tariff timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Tariff.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: tariff timezone: %w", err)
	}
	return loc, nil
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
