package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string
	LogLevel    slog.Level
	CatalogPath string
	TuningPath  string
	SaveDir     string
	RedisURL    string
	OTelEnabled bool
	Tuning      Tuning
}

// Tuning holds the gameplay knobs read from the YAML tuning file.
type Tuning struct {
	TickIntervalMS  int             `yaml:"tick_interval_ms"`
	UnitsPerTick    uint32          `yaml:"units_per_tick"`
	StartTime       clock.TimeOfDay `yaml:"start_time"`
	StartDay        int             `yaml:"start_day"`
	FlagBuckets     int             `yaml:"flag_buckets"`
	LocationBuckets int             `yaml:"location_buckets"`
}

// DefaultTuning is used when no tuning file exists.
func DefaultTuning() Tuning {
	return Tuning{
		TickIntervalMS:  1000,
		UnitsPerTick:    clock.UnitsPerSecond,
		StartTime:       clock.TimeOfDay(20 * clock.UnitsPerHour),
		StartDay:        2,
		FlagBuckets:     64,
		LocationBuckets: 64,
	}
}

// TickInterval is the real time between clock ticks.
func (t Tuning) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalMS) * time.Millisecond
}

// StartUnits is the elapsed clock value of a new game.
func (t Tuning) StartUnits() uint32 {
	return uint32(t.StartDay)*clock.UnitsPerDay + t.StartTime.Units()
}

// Load reads configuration from the environment, an optional .env file and
// the tuning file named by TUNING_PATH.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		CatalogPath: getEnv("CATALOG_PATH", "data/iwakura.json"),
		TuningPath:  getEnv("TUNING_PATH", "data/tuning.yaml"),
		SaveDir:     getEnv("SAVE_DIR", "./saves"),
		RedisURL:    os.Getenv("REDIS_URL"),
		OTelEnabled: parseBool(getEnv("OTEL_ENABLED", "false")),
	}

	tuning, err := LoadTuning(cfg.TuningPath)
	if err != nil {
		return nil, err
	}
	cfg.Tuning = tuning
	return cfg, nil
}

// LoadTuning reads a YAML tuning file over the defaults. A missing file yields
// the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	switch {
	case t.TickIntervalMS <= 0:
		return fmt.Errorf("tick_interval_ms must be positive, got %d", t.TickIntervalMS)
	case t.UnitsPerTick == 0:
		return fmt.Errorf("units_per_tick must be positive")
	case t.StartDay < 0 || t.StartDay >= clock.CycleDays:
		return fmt.Errorf("start_day must be in [0,%d), got %d", clock.CycleDays, t.StartDay)
	case t.FlagBuckets <= 0 || t.LocationBuckets <= 0:
		return fmt.Errorf("bucket counts must be positive")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
