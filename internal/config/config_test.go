package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecosnap.yaml")
	raw := `
addr: ":9000"
tick: 30s
store:
  driver: redis
  redis_addr: "cache:6379"
kafka:
  topic: from-file
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path, env(map[string]string{
		"ECOSNAP_KAFKA_BROKERS": "k1:9092, k2:9092,",
		"ECOSNAP_TICK":          "5s",
		"ECOSNAP_USERNAME":      "Asha",
		"ECOSNAP_GEOCODER":      "off",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Tick != 5*time.Second || cfg.Username != "Asha" || cfg.Geocoder.Enabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) || cfg.Kafka.Topic != "from-file" {
		t.Fatalf("kafka = %+v", cfg.Kafka)
	}
	opts := cfg.StoreOptions()
	if opts.Driver != "redis" || opts.RedisAddr != "cache:6379" || opts.RedisPrefix != "ecosnap:" {
		t.Fatalf("store options = %+v", opts)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]struct {
		file string
		env  map[string]string
	}{
		"bad tick env":     {"", map[string]string{"ECOSNAP_TICK": "soon"}},
		"zero tick":        {"tick: 0s\n", nil},
		"unknown log mode": {"", map[string]string{"ECOSNAP_LOG_MODE": "verbose"}},
		"kafka no topic":   {"kafka:\n  brokers: [k1]\n  topic: \"\"\n", nil},
		"bad yaml":         {"addr: [", nil},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if tt.file != "" {
				if err := os.WriteFile(path, []byte(tt.file), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := LoadFile(path, env(tt.env)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLogModesMatchLogger(t *testing.T) {
	for _, mode := range []string{"dev", "development", "prod", "production", "Production"} {
		cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"), env(map[string]string{"ECOSNAP_LOG_MODE": mode}))
		if err != nil {
			t.Fatalf("mode %q rejected: %v", mode, err)
		}
		if cfg.LogMode != mode {
			t.Fatalf("log mode = %q", cfg.LogMode)
		}
	}
}
