package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/clients/google"
	"github.com/dpup/wayfinder/internal/clients/osrm"
	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/lib/mapdoc"
)

const (
	// Section is the top level key the directions settings live under, both
	// in prefab.yaml and in standalone config files.
	Section = "directions"

	// EnvPrefix marks environment variables read by LoadFile. Double
	// underscores separate levels: WAYFINDER__DIRECTIONS__GOOGLE__API_KEY.
	EnvPrefix = "WAYFINDER__"
)

// Config represents the directions service configuration
type Config struct {
	// Providers lists routing tiers in the order they are tried.
	Providers      []string      `koanf:"providers"`
	AllowFallback  bool          `koanf:"allow_fallback"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	SessionTTL     time.Duration `koanf:"session_ttl"`

	OSRM         OSRMConfig         `koanf:"osrm"`
	Google       GoogleConfig       `koanf:"google"`
	Bounds       geo.Bounds         `koanf:"bounds"`
	Map          MapConfig          `koanf:"map"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Log          LogConfig          `koanf:"log"`
}

// OSRMConfig holds open routing tier settings
type OSRMConfig struct {
	BaseURL string `koanf:"base_url"`
}

// GoogleConfig holds Google Directions API settings
type GoogleConfig struct {
	APIKey          string `koanf:"api_key"`
	BaseURL         string `koanf:"base_url"`
	Region          string `koanf:"region"`
	AvoidTolls      bool   `koanf:"avoid_tolls"`
	AvoidHighways   bool   `koanf:"avoid_highways"`
	PreferMainRoads bool   `koanf:"prefer_main_roads"`
}

// Options converts the settings to client options
func (g GoogleConfig) Options() google.Options {
	return google.Options{
		APIKey:          g.APIKey,
		BaseURL:         g.BaseURL,
		Region:          g.Region,
		AvoidTolls:      g.AvoidTolls,
		AvoidHighways:   g.AvoidHighways,
		PreferMainRoads: g.PreferMainRoads,
	}
}

// MapConfig holds map document settings
type MapConfig struct {
	TileURL     string `koanf:"tile_url"`
	Attribution string `koanf:"attribution"`
}

// ConnectivityConfig controls the periodic provider self-test
type ConnectivityConfig struct {
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Providers:      []string{osrm.ProviderName, google.ProviderName},
		AllowFallback:  true,
		RequestTimeout: 10 * time.Second,
		SessionTTL:     30 * time.Minute,
		OSRM: OSRMConfig{
			BaseURL: osrm.DefaultBaseURL,
		},
		Google: GoogleConfig{
			BaseURL:         google.DefaultBaseURL,
			Region:          "lk",
			PreferMainRoads: true,
		},
		Bounds: geo.SriLanka,
		Map: MapConfig{
			TileURL:     mapdoc.DefaultTileURL,
			Attribution: mapdoc.DefaultAttribution,
		},
		Connectivity: ConnectivityConfig{
			Interval: 5 * time.Minute,
			Timeout:  8 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// defaults flattens DefaultConfig into koanf keys
func defaults() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"providers":                d.Providers,
		"allow_fallback":           d.AllowFallback,
		"request_timeout":          d.RequestTimeout,
		"session_ttl":              d.SessionTTL,
		"osrm.base_url":            d.OSRM.BaseURL,
		"google.api_key":           d.Google.APIKey,
		"google.base_url":          d.Google.BaseURL,
		"google.region":            d.Google.Region,
		"google.avoid_tolls":       d.Google.AvoidTolls,
		"google.avoid_highways":    d.Google.AvoidHighways,
		"google.prefer_main_roads": d.Google.PreferMainRoads,
		"bounds.min_lat":           d.Bounds.MinLat,
		"bounds.max_lat":           d.Bounds.MaxLat,
		"bounds.min_lon":           d.Bounds.MinLon,
		"bounds.max_lon":           d.Bounds.MaxLon,
		"map.tile_url":             d.Map.TileURL,
		"map.attribution":          d.Map.Attribution,
		"connectivity.interval":    d.Connectivity.Interval,
		"connectivity.timeout":     d.Connectivity.Timeout,
		"log.level":                d.Log.Level,
		"log.development":          d.Log.Development,
	}
}

// Load reads the directions section of k over the defaults. The server
// passes prefab.Config; a nil k yields the defaults.
func Load(k *koanf.Koanf) (*Config, error) {
	merged := koanf.New(".")
	if err := merged.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if k != nil && k.Exists(Section) {
		if err := merged.Merge(k.Cut(Section)); err != nil {
			return nil, fmt.Errorf("failed to merge %s section: %w", Section, err)
		}
	}

	cfg := &Config{}
	if err := merged.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s section: %w", Section, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile layers an optional YAML file and WAYFINDER__ environment
// variables, then applies Load.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return Load(k)
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks the settings that would otherwise fail at request time
func (c *Config) Validate() error {
	if len(c.Providers) == 0 && !c.AllowFallback {
		return fmt.Errorf("config: no providers and fallback disabled, no route could ever be produced")
	}
	for _, name := range c.Providers {
		switch name {
		case osrm.ProviderName, google.ProviderName:
		default:
			return fmt.Errorf("config: unknown provider %q", name)
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session_ttl must be positive, got %v", c.SessionTTL)
	}
	if c.Connectivity.Interval <= 0 {
		return fmt.Errorf("config: connectivity.interval must be positive, got %v", c.Connectivity.Interval)
	}
	if c.Connectivity.Timeout <= 0 {
		return fmt.Errorf("config: connectivity.timeout must be positive, got %v", c.Connectivity.Timeout)
	}
	if c.Bounds.MinLat >= c.Bounds.MaxLat || c.Bounds.MinLon >= c.Bounds.MaxLon {
		return fmt.Errorf("config: bounds are empty: %+v", c.Bounds)
	}
	return nil
}

// NewLogger builds the zap logger described by c
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("config: invalid log level: %w", err)
		}
		zc.Level = level
	}
	return zc.Build()
}
