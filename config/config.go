package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the whole application configuration. All calibratable
// thresholds live here rather than as hidden constants; the defaults below
// are the documented calibration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Engine        EngineConfig        `mapstructure:"engine"`
	AOI           AOIConfig           `mapstructure:"aoi"`
	Query         QueryConfig         `mapstructure:"query"`
	Forecast      ForecastConfig      `mapstructure:"forecast"`
	Vulnerability VulnerabilityConfig `mapstructure:"vulnerability"`
	Deforestation DeforestationConfig `mapstructure:"deforestation"`
	Fusion        FusionConfig        `mapstructure:"fusion"`
	Narrative     NarrativeConfig     `mapstructure:"narrative"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	LogFile    string `mapstructure:"log_file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// EngineConfig controls the task orchestrator.
type EngineConfig struct {
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	MaxTasks      int           `mapstructure:"max_tasks"`
	TaskRetention time.Duration `mapstructure:"task_retention"`
	SweepEvery    string        `mapstructure:"sweep_every"` // cron spec
}

type AOIConfig struct {
	DefaultRadiusM float64 `mapstructure:"default_radius_m"`
	MaxRadiusM     float64 `mapstructure:"max_radius_m"`
	// CoordDecimals is the rounding applied before hashing the identity,
	// so nearby clicks dedup to the same AOI.
	CoordDecimals int `mapstructure:"coord_decimals"`
}

// QueryConfig configures the geospatial compute platform client.
type QueryConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	Burst      int           `mapstructure:"burst"`
}

type ForecastConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// VulnerabilityConfig calibrates the historical flood-vulnerability index.
type VulnerabilityConfig struct {
	LookbackDays  int `mapstructure:"lookback_days"`
	SubPeriodDays int `mapstructure:"sub_period_days"`
	ReferenceDays int `mapstructure:"reference_days"`
	// InundationDeltaDB is the backscatter drop below the dry reference
	// that marks a pixel inundated-like (negative, dB).
	InundationDeltaDB float64 `mapstructure:"inundation_delta_db"`
	// OpenWaterCeilingDB is the absolute VH ceiling for open water (dB).
	OpenWaterCeilingDB float64 `mapstructure:"open_water_ceiling_db"`
	// PermanentWaterPct is the occurrence percentage above which a pixel
	// counts as permanent water and is excluded.
	PermanentWaterPct   float64 `mapstructure:"permanent_water_pct"`
	MinCompleteness     float64 `mapstructure:"min_completeness"`
	MinUsableSubPeriods int     `mapstructure:"min_usable_sub_periods"`
}

// DeforestationConfig calibrates the dual-source change detector.
type DeforestationConfig struct {
	WindowDays      int     `mapstructure:"window_days"`
	BaselineLagDays int     `mapstructure:"baseline_lag_days"`
	RadarDeltaDB    float64 `mapstructure:"radar_delta_db"`
	NDVIDelta       float64 `mapstructure:"ndvi_delta"`
	MinCompleteness float64 `mapstructure:"min_completeness"`
}

// FusionConfig calibrates the risk rule ladder.
type FusionConfig struct {
	VulnerabilityHigh     float64 `mapstructure:"vulnerability_high"`
	VulnerabilityElevated float64 `mapstructure:"vulnerability_elevated"`
	StormPrecipMM         float64 `mapstructure:"storm_precip_mm"`
	ModeratePrecipMM      float64 `mapstructure:"moderate_precip_mm"`
	DamagingWindKMH       float64 `mapstructure:"damaging_wind_kmh"`
}

type NarrativeConfig struct {
	// PolishWithLLM rewrites the summary sentence through OpenAI when an
	// API key is configured. Evidence is never touched.
	PolishWithLLM bool   `mapstructure:"polish_with_llm"`
	Model         string `mapstructure:"model"`
}

// SetDefaults initializes default values for every parameter.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.queue_size", 64)
	v.SetDefault("engine.max_tasks", 1000)
	v.SetDefault("engine.task_retention", 24*time.Hour)
	v.SetDefault("engine.sweep_every", "*/10 * * * *")

	v.SetDefault("aoi.default_radius_m", 11132.0) // ~0.1 degree
	v.SetDefault("aoi.max_radius_m", 55660.0)
	v.SetDefault("aoi.coord_decimals", 4)

	v.SetDefault("query.base_url", "https://geo-compute.example.com")
	v.SetDefault("query.timeout", 60*time.Second)
	v.SetDefault("query.rate_per_sec", 4.0)
	v.SetDefault("query.burst", 8)

	v.SetDefault("forecast.base_url", "https://api.open-meteo.com")
	v.SetDefault("forecast.timeout", 15*time.Second)

	v.SetDefault("vulnerability.lookback_days", 90)
	v.SetDefault("vulnerability.sub_period_days", 7)
	v.SetDefault("vulnerability.reference_days", 30)
	v.SetDefault("vulnerability.inundation_delta_db", -3.0)
	v.SetDefault("vulnerability.open_water_ceiling_db", -15.0)
	v.SetDefault("vulnerability.permanent_water_pct", 50.0)
	v.SetDefault("vulnerability.min_completeness", 0.6)
	v.SetDefault("vulnerability.min_usable_sub_periods", 6)

	v.SetDefault("deforestation.window_days", 90)
	v.SetDefault("deforestation.baseline_lag_days", 365)
	v.SetDefault("deforestation.radar_delta_db", 1.0)
	v.SetDefault("deforestation.ndvi_delta", 0.15)
	v.SetDefault("deforestation.min_completeness", 0.5)

	v.SetDefault("fusion.vulnerability_high", 0.6)
	v.SetDefault("fusion.vulnerability_elevated", 0.3)
	v.SetDefault("fusion.storm_precip_mm", 80.0)
	v.SetDefault("fusion.moderate_precip_mm", 30.0)
	v.SetDefault("fusion.damaging_wind_kmh", 60.0)

	v.SetDefault("narrative.polish_with_llm", false)
	v.SetDefault("narrative.model", "gpt-4o-mini")
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		panic(fmt.Sprintf("default config must unmarshal: %v", err))
	}
	return cfg
}

// Load reads terrawatch.yaml (if present next to the binary or in /etc/
// terrawatch) over the defaults, then applies TERRAWATCH_* env overrides.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("terrawatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/terrawatch")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TERRAWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
