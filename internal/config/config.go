package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quakepredictec/riesgo-dashboard/internal/alert"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/query"
)

// Config is the runtime configuration
type Config struct {
	Port               string
	DBPath             string
	JWTSecret          string
	BackendURL         string
	FetchTimeout       time.Duration // 0 = no timeout
	RefreshInterval    time.Duration // 0 = fetch once at startup
	AlertThreshold     float64
	PageSize           int
	LogLevel           string
	RateLimitPerMinute int
	HubBuffer          int
	OutboxSize         int
	TileLayers         []models.TileLayer
}

// Dashboard is the optional YAML overlay named by DASHBOARD_CONFIG
type Dashboard struct {
	TileLayers     []models.TileLayer `yaml:"tile_layers"`
	AlertThreshold *float64           `yaml:"alert_threshold"`
	PageSize       *int               `yaml:"page_size"`
	HubBuffer      *int               `yaml:"hub_buffer"`
}

// DefaultTileLayers are the base layers stacked under the markers
func DefaultTileLayers() []models.TileLayer {
	return []models.TileLayer{
		{
			Name:        "OpenStreetMap",
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			MaxZoom:     18,
			Opacity:     0.90,
			Attribution: "&copy; OpenStreetMap",
		},
		{
			Name:        "Esri World Physical",
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Physical_Map/MapServer/tile/{z}/{y}/{x}",
			MaxZoom:     18,
			Opacity:     0.50,
			Attribution: "Esri, USGS | Physical Map",
		},
		{
			Name:        "Esri World Topo",
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}",
			MaxZoom:     18,
			Opacity:     0.75,
			Attribution: "Esri, USGS, NOAA",
		},
	}
}

// Load reads .env (if present), the environment and the YAML overlay.
// Environment values win over the overlay.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", ":8080"),
		DBPath:             getEnv("DB_PATH", "./data/quakepredict.db"),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		BackendURL:         getEnv("RISK_BACKEND_URL", "http://localhost:8000"),
		AlertThreshold:     alert.DefaultThreshold,
		PageSize:           query.DefaultPageSize,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimitPerMinute: 120,
		HubBuffer:          256,
		OutboxSize:         500,
		TileLayers:         DefaultTileLayers(),
	}

	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		if err := cfg.applyOverlay(path); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.FetchTimeout, err = durationEnv("FETCH_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = durationEnv("REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		if cfg.AlertThreshold, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse ALERT_THRESHOLD: %w", err)
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if cfg.PageSize, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse PAGE_SIZE: %w", err)
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if cfg.RateLimitPerMinute, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse RATE_LIMIT_PER_MINUTE: %w", err)
		}
	}

	if v := os.Getenv("OUTBOX_SIZE"); v != "" {
		if cfg.OutboxSize, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse OUTBOX_SIZE: %w", err)
		}
	}

	if cfg.AlertThreshold <= 0 || cfg.AlertThreshold > 1 {
		return nil, fmt.Errorf("ALERT_THRESHOLD must be in (0, 1], got %v", cfg.AlertThreshold)
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}
	return cfg, nil
}

func (c *Config) applyOverlay(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dashboard config: %w", err)
	}
	var d Dashboard
	if err := yaml.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("parse dashboard config %s: %w", path, err)
	}

	if len(d.TileLayers) > 0 {
		c.TileLayers = d.TileLayers
	}
	if d.AlertThreshold != nil {
		c.AlertThreshold = *d.AlertThreshold
	}
	if d.PageSize != nil {
		c.PageSize = *d.PageSize
	}
	if d.HubBuffer != nil {
		c.HubBuffer = *d.HubBuffer
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
