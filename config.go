package portsim

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config carries the engine options. It is an explicit value passed to New,
// not ambient state.
type Config struct {
	// TargetCurrency is the ISO code every series is converted into.
	TargetCurrency string
	// Fill is the exchange-rate gap-fill method.
	Fill FillMethod
	// RateMissing decides what happens to rows with no resolvable rate.
	RateMissing RateMissingPolicy
	// CachePath, when set, is the SQLite file the CLI caches price data in.
	CachePath string
}

// DefaultConfig returns the defaults used when no config file is present:
// convert to JPY, forward-fill rates, drop unconvertible rows.
func DefaultConfig() Config {
	return Config{
		TargetCurrency: "JPY",
		Fill:           ForwardFill,
		RateMissing:    DropRow,
	}
}

// configFile is the on-disk JSON form of Config.
type configFile struct {
	TargetCurrency string `json:"target_currency"`
	FillnaMethod   string `json:"fillna_method"`
	RateMissing    string `json:"rate_missing"`
	CachePath      string `json:"cache_path"`
}

// LoadConfig reads a JSON config file, applying defaults for absent keys.
// `fillna_method` is the one recognized gap-fill option and must be "ffill"
// or "bfill".
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	var file configFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("cannot parse config %q: %w", path, err)
	}

	if file.TargetCurrency != "" {
		cfg.TargetCurrency = file.TargetCurrency
	}
	if file.FillnaMethod != "" {
		cfg.Fill, err = ParseFillMethod(file.FillnaMethod)
		if err != nil {
			return cfg, fmt.Errorf("config %q: %w", path, err)
		}
	}
	if file.RateMissing != "" {
		cfg.RateMissing, err = ParseRateMissingPolicy(file.RateMissing)
		if err != nil {
			return cfg, fmt.Errorf("config %q: %w", path, err)
		}
	}
	cfg.CachePath = file.CachePath
	return cfg, nil
}
