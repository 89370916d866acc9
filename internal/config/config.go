package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// LinkConfig configures one robot link.
type LinkConfig struct {
	// Port is a serial device path or a host:port TCP spec. Empty means
	// autodetect the serial port.
	Port string `toml:"port"`

	// RefreshingRateMS is the interval between variable refresh cycles.
	RefreshingRateMS int `toml:"refreshing_rate_ms"`

	// RefreshingCoverage restricts refresh cycles to these variables;
	// empty means all known variables.
	RefreshingCoverage []string `toml:"refreshing_coverage"`

	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
	GetTimeoutMS     int `toml:"get_timeout_ms"`

	// LostAfterMisses is the number of consecutive unanswered refresh
	// cycles before a node is marked lost.
	LostAfterMisses int `toml:"lost_after_misses"`
}

func LoadLinkConfig(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if err := loadToml(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	applyDefaults(&cfg)
	if err := ValidateLinkConfig(cfg); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

func Default() LinkConfig {
	var cfg LinkConfig
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *LinkConfig) {
	if cfg.RefreshingRateMS == 0 {
		cfg.RefreshingRateMS = 100
	}
	if cfg.ConnectTimeoutMS == 0 {
		cfg.ConnectTimeoutMS = 5000
	}
	if cfg.GetTimeoutMS == 0 {
		cfg.GetTimeoutMS = 3000
	}
	if cfg.LostAfterMisses == 0 {
		cfg.LostAfterMisses = 30
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateLinkConfig(cfg LinkConfig) error {
	if cfg.RefreshingRateMS < 0 {
		return fmt.Errorf("refreshing_rate_ms must be positive")
	}
	if cfg.ConnectTimeoutMS < 0 || cfg.GetTimeoutMS < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if cfg.LostAfterMisses < 0 {
		return fmt.Errorf("lost_after_misses must be positive")
	}
	for i, name := range cfg.RefreshingCoverage {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("refreshing_coverage[%d] is empty", i)
		}
	}
	return nil
}

// RefreshingRate returns the refresh interval as a duration.
func (c LinkConfig) RefreshingRate() time.Duration {
	return time.Duration(c.RefreshingRateMS) * time.Millisecond
}

// ConnectTimeout returns the handshake wait bound.
func (c LinkConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// GetTimeout returns the bound on a blocking variable read.
func (c LinkConfig) GetTimeout() time.Duration {
	return time.Duration(c.GetTimeoutMS) * time.Millisecond
}

// CoverageSet returns the coverage list as a set; nil means all.
func (c LinkConfig) CoverageSet() map[string]struct{} {
	if len(c.RefreshingCoverage) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(c.RefreshingCoverage))
	for _, name := range c.RefreshingCoverage {
		set[name] = struct{}{}
	}
	return set
}
