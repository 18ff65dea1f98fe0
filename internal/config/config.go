/*
Package config
File: config.go
Description:
    Runtime configuration. Values come from an optional YAML file
    (ecosnap.yaml, or the path in ECOSNAP_CONFIG) and are then overridden by
    ECOSNAP_* environment variables. Simulation tuning lives separately in
    the balance file the config points at.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/ecosnap-engine/internal/logger"
	"github.com/everforgeworks/ecosnap-engine/internal/store"
)

const DefaultPath = "ecosnap.yaml"

type Config struct {
	Addr        string        `yaml:"addr"`
	LogMode     string        `yaml:"log_mode"` // dev | development | prod | production
	Tick        time.Duration `yaml:"tick"`
	Username    string        `yaml:"username"`
	BalancePath string        `yaml:"balance_path"`
	Store       StoreConfig   `yaml:"store"`
	Kafka       KafkaConfig   `yaml:"kafka"`
	Geocoder    GeoConfig     `yaml:"geocoder"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"` // memory | sqlite | redis
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// KafkaConfig enables the event stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Source  string   `yaml:"source"`
}

type GeoConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

func Default() Config {
	return Config{
		Addr:        ":8081",
		LogMode:     "development",
		Tick:        time.Minute,
		BalancePath: "balance.yaml",
		Store: StoreConfig{
			Driver:      "sqlite",
			SQLitePath:  "ecosnap.db",
			RedisPrefix: "ecosnap:",
		},
		Kafka:    KafkaConfig{Topic: "ecosnap.notifications", Source: "ecosnap-engine"},
		Geocoder: GeoConfig{Enabled: true},
	}
}

// Load reads the file named by ECOSNAP_CONFIG (DefaultPath when unset) and
// applies environment overrides. A missing file is not an error.
func Load() (Config, error) {
	path := os.Getenv("ECOSNAP_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path, os.Getenv)
}

// LoadFile is Load with an explicit path and environment lookup.
func LoadFile(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set("ECOSNAP_ADDR", &c.Addr)
	set("ECOSNAP_STORE", &c.Store.Driver)
	set("ECOSNAP_SQLITE_PATH", &c.Store.SQLitePath)
	set("ECOSNAP_REDIS_ADDR", &c.Store.RedisAddr)
	set("ECOSNAP_KAFKA_TOPIC", &c.Kafka.Topic)
	set("ECOSNAP_LOG_MODE", &c.LogMode)
	set("ECOSNAP_USERNAME", &c.Username)
	set("ECOSNAP_BALANCE", &c.BalancePath)
	set("ECOSNAP_GEOCODER_URL", &c.Geocoder.URL)

	if v := strings.TrimSpace(getenv("ECOSNAP_KAFKA_BROKERS")); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := strings.TrimSpace(getenv("ECOSNAP_TICK")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ECOSNAP_TICK: %w", err)
		}
		c.Tick = d
	}
	if v := strings.TrimSpace(getenv("ECOSNAP_GEOCODER")); v != "" {
		c.Geocoder.Enabled = v != "off" && v != "false" && v != "0"
	}
	return nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("config: tick must be positive, got %s", c.Tick)
	}
	if _, err := logger.ParseMode(c.LogMode); err != nil {
		return fmt.Errorf("config: log_mode: %w", err)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("config: kafka.topic is required when brokers are set")
	}
	return nil
}

// StoreOptions maps the store section onto store.Options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.Store.Driver,
		SQLitePath:  c.Store.SQLitePath,
		RedisAddr:   c.Store.RedisAddr,
		RedisPrefix: c.Store.RedisPrefix,
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
