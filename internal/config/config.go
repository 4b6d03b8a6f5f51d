package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
)

// Config holds the full application configuration.
type Config struct {
	Feed       FeedConfig       `yaml:"feed" mapstructure:"feed"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Directions DirectionsConfig `yaml:"directions" mapstructure:"directions"`
	Safety     safety.Params    `yaml:"safety" mapstructure:"safety"`
	Severity   SeverityConfig   `yaml:"severity" mapstructure:"severity"`
	Borough    BoroughConfig    `yaml:"borough" mapstructure:"borough"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FeedConfig configures the incident feed client and refresh loop.
type FeedConfig struct {
	URL               string  `yaml:"url" mapstructure:"url"`
	AppToken          string  `yaml:"app_token" mapstructure:"app_token"`
	PageSize          int     `yaml:"page_size" mapstructure:"page_size"`
	MaxRecords        int     `yaml:"max_records" mapstructure:"max_records"`
	DaysBack          int     `yaml:"days_back" mapstructure:"days_back"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	RefreshMinutes    int     `yaml:"refresh_minutes" mapstructure:"refresh_minutes"`
}

// GeocodeConfig configures the geocoding waterfall and its cache.
type GeocodeConfig struct {
	GoogleKey    string `yaml:"google_key" mapstructure:"google_key"`
	CachePath    string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLDays int    `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// DirectionsConfig configures the route alternatives client.
type DirectionsConfig struct {
	GoogleKey string `yaml:"google_key" mapstructure:"google_key"`
}

// SeverityConfig points at an optional keyword override file.
type SeverityConfig struct {
	KeywordsPath string `yaml:"keywords_path" mapstructure:"keywords_path"`
}

// BoroughConfig points at an optional borough boundary shapefile.
type BoroughConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DWELLSAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("feed.url", "https://data.cityofnewyork.us/resource/erm2-nwe9.json")
	v.SetDefault("feed.page_size", 5000)
	v.SetDefault("feed.max_records", 15000)
	v.SetDefault("feed.days_back", 30)
	v.SetDefault("feed.requests_per_second", 5)
	v.SetDefault("feed.refresh_minutes", 15)
	v.SetDefault("geocode.cache_path", "geocode_cache.db")
	v.SetDefault("geocode.cache_ttl_days", 30)

	p := safety.DefaultParams()
	v.SetDefault("safety.density_radius", p.DensityRadius)
	v.SetDefault("safety.area_radius", p.AreaRadius)
	v.SetDefault("safety.score_stride", p.ScoreStride)
	v.SetDefault("safety.hotspot_stride", p.HotspotStride)
	v.SetDefault("safety.hotspot_threshold", p.HotspotThreshold)
	v.SetDefault("safety.high_risk_threshold", p.HighRiskThreshold)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given mode is
// present and in range. Modes: "serve", "route", "area", "feed".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Feed.URL == "" {
			problems = append(problems, "feed.url is required")
		}
	case "route":
		if c.Directions.GoogleKey == "" {
			problems = append(problems, "directions.google_key is required")
		}
		if c.Feed.URL == "" {
			problems = append(problems, "feed.url is required")
		}
	case "area", "feed":
		if c.Feed.URL == "" {
			problems = append(problems, "feed.url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Feed.PageSize < 0 || c.Feed.PageSize > 50000 {
		problems = append(problems, "feed.page_size must be between 0 and 50000")
	}
	if c.Feed.MaxRecords < 0 {
		problems = append(problems, "feed.max_records must be >= 0")
	}
	if c.Safety.ScoreStride < 0 || c.Safety.HotspotStride < 0 {
		problems = append(problems, "safety strides must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
