package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServeConfig holds the server's configuration surface. Values come from an
// optional YAML file; explicitly-set CLI flags win over file values.
type ServeConfig struct {
	Addr           string `yaml:"addr"`             // HTTP/websocket listen address
	Policy         string `yaml:"policy"`           // FCFS, SJF, SRTF, RR, PRIORITY
	Quantum        int    `yaml:"quantum"`          // Round Robin quantum in ticks
	TickIntervalMS int    `yaml:"tick_interval_ms"` // wall-clock milliseconds per tick
}

// DefaultServeConfig returns sensible defaults: the historical port 5555 and
// one tick per second.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Addr:           ":5555",
		Policy:         "FCFS",
		Quantum:        2,
		TickIntervalMS: 1000,
	}
}

// LoadServeConfig reads a YAML config file over the defaults.
// Unknown fields are errors: typos must not silently fall back to defaults.
func LoadServeConfig(path string) (ServeConfig, error) {
	cfg := DefaultServeConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
