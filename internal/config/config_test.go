package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "pairbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if len(cfg.Instruments) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(cfg.Instruments))
	}
	if cfg.Instruments["AMZN_STK"].Symbol != "AMZN" {
		t.Fatalf("unexpected AMZN_STK symbol: %+v", cfg.Instruments["AMZN_STK"])
	}
	if cfg.Feed.Provider != "stub" || cfg.Feed.PollIntervalMs != 500 {
		t.Fatalf("unexpected feed config: %+v", cfg.Feed)
	}
	if cfg.Pair.Leg1Key != "AMZN_STK" || cfg.Pair.Leg2Key != "MSFT_STK" {
		t.Fatalf("unexpected pair legs: %+v", cfg.Pair)
	}
	if cfg.Pair.EntryThreshold != 2.0 || cfg.Pair.ExitThreshold != 0.5 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Pair)
	}
	if cfg.Pair.ProcessNoiseDelta != 0.0001 || cfg.Pair.MeasurementNoise != 0.001 {
		t.Fatalf("unexpected noise config: %+v", cfg.Pair)
	}
	if cfg.Risk.MaxSignalsPerWindow != 5 || cfg.Risk.WindowSecs != 60 {
		t.Fatalf("unexpected risk config: %+v", cfg.Risk)
	}
	if cfg.Engine.CooldownSecs != 60 {
		t.Fatalf("unexpected cooldown: %d", cfg.Engine.CooldownSecs)
	}
	if cfg.Store.RedisURL != "redis://localhost:6379" {
		t.Fatalf("unexpected store url: %s", cfg.Store.RedisURL)
	}
	if cfg.Execution.Mode != "log" || cfg.Execution.SubjectPrefix != "orders" {
		t.Fatalf("unexpected execution config: %+v", cfg.Execution)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected testdata config to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join("testdata", "config.yaml"))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing leg", func(c *Config) { c.Pair.Leg2Key = "" }},
		{"identical legs", func(c *Config) { c.Pair.Leg2Key = c.Pair.Leg1Key }},
		{"unknown instrument", func(c *Config) { c.Pair.Leg2Key = "GOOG_STK" }},
		{"exit above entry", func(c *Config) { c.Pair.ExitThreshold = 3.0 }},
		{"exit equals entry", func(c *Config) { c.Pair.ExitThreshold = c.Pair.EntryThreshold }},
		{"zero quantity", func(c *Config) { c.Pair.BaseQuantity = 0 }},
		{"zero delta", func(c *Config) { c.Pair.ProcessNoiseDelta = 0 }},
		{"zero measurement noise", func(c *Config) { c.Pair.MeasurementNoise = 0 }},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
