package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ViewportConfig holds the map framing settings
type ViewportConfig struct {
	DebounceMillis    int
	DefaultLat        float64
	DefaultLng        float64
	DefaultZoom       float64
	MinFocusZoom      float64
	MaxFitZoom        float64
	PaddingPx         int
	FlyDurationMillis int

	// Number of per-city filter results kept between station list refreshes
	FilterMemoSize int
}

const (
	// Default values
	defaultDebounceMillis    = 150
	defaultLat               = 51.1657
	defaultLng               = 10.4515
	defaultZoom              = 6
	defaultMinFocusZoom      = 9
	defaultMaxFitZoom        = 8
	defaultPaddingPx         = 40
	defaultFlyDurationMillis = 750
	defaultFilterMemoSize    = 64
)

// GetViewportConfig returns the viewport configuration from environment variables or defaults
func GetViewportConfig() *ViewportConfig {
	config := &ViewportConfig{
		DebounceMillis:    getEnvInt("VIEWPORT_DEBOUNCE_MS", defaultDebounceMillis),
		DefaultLat:        getEnvFloat("VIEWPORT_DEFAULT_LAT", defaultLat),
		DefaultLng:        getEnvFloat("VIEWPORT_DEFAULT_LNG", defaultLng),
		DefaultZoom:       getEnvFloat("VIEWPORT_DEFAULT_ZOOM", defaultZoom),
		MinFocusZoom:      getEnvFloat("VIEWPORT_MIN_FOCUS_ZOOM", defaultMinFocusZoom),
		MaxFitZoom:        getEnvFloat("VIEWPORT_MAX_FIT_ZOOM", defaultMaxFitZoom),
		PaddingPx:         getEnvInt("VIEWPORT_PADDING_PX", defaultPaddingPx),
		FlyDurationMillis: getEnvInt("VIEWPORT_FLY_DURATION_MS", defaultFlyDurationMillis),
		FilterMemoSize:    getEnvInt("VIEW_FILTER_MEMO_SIZE", defaultFilterMemoSize),
	}

	log.Debug().
		Int("DebounceMillis", config.DebounceMillis).
		Float64("DefaultLat", config.DefaultLat).
		Float64("DefaultLng", config.DefaultLng).
		Float64("DefaultZoom", config.DefaultZoom).
		Float64("MinFocusZoom", config.MinFocusZoom).
		Float64("MaxFitZoom", config.MaxFitZoom).
		Int("PaddingPx", config.PaddingPx).
		Int("FlyDurationMillis", config.FlyDurationMillis).
		Int("FilterMemoSize", config.FilterMemoSize).
		Msg("Viewport configuration loaded")

	return config
}

func (c *ViewportConfig) GetDebounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

func (c *ViewportConfig) GetFlyDuration() time.Duration {
	return time.Duration(c.FlyDurationMillis) * time.Millisecond
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
		log.Warn().Str("key", key).Msg("Invalid number in environment variable, using default")
	}
	return defaultVal
}
