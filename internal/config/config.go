// Package config exposes strongly typed application configuration structs
// loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Instrument maps a stable instrument key to its venue-specific identity. The
// symbol travels only inside the data and execution layers; the core pipeline
// sees keys.
type Instrument struct {
	Symbol   string `yaml:"symbol"`
	Exchange string `yaml:"exchange"`
	Currency string `yaml:"currency"`
}

// Feed describes the market-data source the live engine consumes.
type Feed struct {
	Provider       string `yaml:"provider"` // stub|binance|nats
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	NATSURL        string `yaml:"nats_url"`
	SubjectPrefix  string `yaml:"subject_prefix"`
}

// Pair holds the strategy knobs for one traded pair.
type Pair struct {
	Mode              string  `yaml:"mode"` // kalman|window
	Leg1Key           string  `yaml:"leg_1_key"`
	Leg2Key           string  `yaml:"leg_2_key"`
	EntryThreshold    float64 `yaml:"entry_threshold"`
	ExitThreshold     float64 `yaml:"exit_threshold"`
	BaseQuantity      int     `yaml:"base_quantity"`
	ProcessNoiseDelta float64 `yaml:"process_noise_delta"`
	MeasurementNoise  float64 `yaml:"measurement_noise"`
	InitialVariance   float64 `yaml:"initial_variance"`
	HedgeRatio        float64 `yaml:"hedge_ratio"` // window mode only
	Window            int     `yaml:"window"`      // window mode only
	Warmup            int     `yaml:"warmup"`      // window mode only
}

// Risk encodes the admission guard-rails applied before execution.
type Risk struct {
	MaxSignalsPerWindow int `yaml:"max_signals_per_window"`
	WindowSecs          int `yaml:"window_secs"`
}

// Engine tunes the live driver.
type Engine struct {
	CooldownSecs  int    `yaml:"cooldown_secs"`
	HeartbeatPath string `yaml:"heartbeat_path"`
}

// Store points at the redis-backed time-series store used for replays.
type Store struct {
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

// Execution selects where admitted orders are routed.
type Execution struct {
	Mode          string `yaml:"mode"` // log|nats
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	FillsPath     string `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App         App                   `yaml:"app"`
	Instruments map[string]Instrument `yaml:"instruments"`
	Feed        Feed                  `yaml:"feed"`
	Pair        Pair                  `yaml:"pair"`
	Risk        Risk                  `yaml:"risk"`
	Engine      Engine                `yaml:"engine"`
	Store       Store                 `yaml:"store"`
	Execution   Execution             `yaml:"execution"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the engine must never start with. Running
// with inverted thresholds or an unknown leg would produce undefined trading
// behavior, so these are fatal rather than defaulted.
func (c *Config) Validate() error {
	p := c.Pair
	if p.Leg1Key == "" || p.Leg2Key == "" {
		return fmt.Errorf("pair: both leg_1_key and leg_2_key are required")
	}
	if p.Leg1Key == p.Leg2Key {
		return fmt.Errorf("pair: legs must be distinct, got %q twice", p.Leg1Key)
	}
	for _, key := range []string{p.Leg1Key, p.Leg2Key} {
		if _, ok := c.Instruments[key]; !ok {
			return fmt.Errorf("pair: leg %q missing from instruments", key)
		}
	}
	if p.EntryThreshold <= 0 {
		return fmt.Errorf("pair: entry_threshold must be > 0, got %v", p.EntryThreshold)
	}
	if p.ExitThreshold <= 0 || p.ExitThreshold >= p.EntryThreshold {
		return fmt.Errorf("pair: exit_threshold must be in (0, entry_threshold), got %v", p.ExitThreshold)
	}
	if p.BaseQuantity <= 0 {
		return fmt.Errorf("pair: base_quantity must be > 0, got %d", p.BaseQuantity)
	}
	if p.Mode == "" || p.Mode == "kalman" {
		if p.ProcessNoiseDelta <= 0 {
			return fmt.Errorf("pair: process_noise_delta must be > 0, got %v", p.ProcessNoiseDelta)
		}
		if p.MeasurementNoise <= 0 {
			return fmt.Errorf("pair: measurement_noise must be > 0, got %v", p.MeasurementNoise)
		}
	}
	return nil
}
