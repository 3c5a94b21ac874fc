package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"streamsight/internal/logging"
)

// Config materialises application configuration. It is built once at startup
// and treated as immutable by everything downstream.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Input     InputConfig     `mapstructure:"input"`
	Output    OutputConfig    `mapstructure:"output"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Report    ReportConfig    `mapstructure:"report"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// InputConfig describes the transaction source.
type InputConfig struct {
	File        string   `mapstructure:"file"`
	DateFormats []string `mapstructure:"date_formats"`
}

// OutputConfig sets the base directory for all generated artifacts.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// TablesDir is where JSON tables are written.
func (o OutputConfig) TablesDir() string { return filepath.Join(o.Dir, "tables") }

// FiguresDir is where PNG figures are written.
func (o OutputConfig) FiguresDir() string { return filepath.Join(o.Dir, "figures") }

// ReportsDir is where markdown reports are written.
func (o OutputConfig) ReportsDir() string { return filepath.Join(o.Dir, "reports") }

// ErrorsDir is where dead-letter exports are written.
func (o OutputConfig) ErrorsDir() string { return filepath.Join(o.Dir, "errors") }

// AnalyticsConfig governs the pipeline thresholds.
type AnalyticsConfig struct {
	TopKProducts    int     `mapstructure:"top_k_products"`
	ZScoreThreshold float64 `mapstructure:"zscore_threshold"`
	WhalePercentile float64 `mapstructure:"whale_percentile"`
	ReferenceDate   string  `mapstructure:"reference_date"`
	MaxRejectRate   float64 `mapstructure:"max_reject_rate"`
	MinSampleRows   int64   `mapstructure:"min_sample_rows"`
	EnableAnomalies bool    `mapstructure:"enable_anomalies"`
	EnableRFM       bool    `mapstructure:"enable_rfm"`
}

// ReferenceTime parses the configured RFM reference date. A zero time means
// "derive from the data" (latest transaction wins).
func (a AnalyticsConfig) ReferenceTime() (time.Time, error) {
	if a.ReferenceDate == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, a.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse analytics.reference_date: %w", err)
	}
	return ts, nil
}

// DatabaseConfig encapsulates the optional PostgreSQL archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ReportConfig sets report rendering behaviour.
type ReportConfig struct {
	Figures      bool `mapstructure:"figures"`
	TopCountries int  `mapstructure:"top_countries"`
	TopAnomalies int  `mapstructure:"top_anomalies"`
	TopWhales    int  `mapstructure:"top_whales"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STREAMSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "streamsight")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("input.file", "dataset/online_retail.csv")
	v.SetDefault("input.date_formats", []string{
		"2006-01-02 15:04:05",
		"1/2/2006 15:04",
		"2/1/2006 15:04",
		"2006-01-02",
		"1/2/2006",
	})

	v.SetDefault("output.dir", "results")

	v.SetDefault("analytics.top_k_products", 10)
	v.SetDefault("analytics.zscore_threshold", 3.0)
	v.SetDefault("analytics.whale_percentile", 99.0)
	v.SetDefault("analytics.max_reject_rate", 0.5)
	v.SetDefault("analytics.min_sample_rows", int64(100))
	v.SetDefault("analytics.enable_anomalies", true)
	v.SetDefault("analytics.enable_rfm", true)

	v.SetDefault("report.figures", true)
	v.SetDefault("report.top_countries", 5)
	v.SetDefault("report.top_anomalies", 3)
	v.SetDefault("report.top_whales", 3)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate rejects invalid thresholds before a run starts; nothing downstream
// re-checks these.
func (c *Config) Validate() error {
	if c.Analytics.TopKProducts < 1 {
		return fmt.Errorf("analytics.top_k_products must be at least 1")
	}
	if c.Analytics.ZScoreThreshold <= 0 {
		return fmt.Errorf("analytics.zscore_threshold must be greater than zero")
	}
	if c.Analytics.WhalePercentile <= 0 || c.Analytics.WhalePercentile >= 100 {
		return fmt.Errorf("analytics.whale_percentile must be inside (0, 100)")
	}
	if c.Analytics.MaxRejectRate < 0 || c.Analytics.MaxRejectRate > 1 {
		return fmt.Errorf("analytics.max_reject_rate must be within [0, 1]")
	}
	if c.Analytics.MinSampleRows < 1 {
		return fmt.Errorf("analytics.min_sample_rows must be at least 1")
	}
	if len(c.Input.DateFormats) == 0 {
		return fmt.Errorf("input.date_formats must not be empty")
	}
	if _, err := c.Analytics.ReferenceTime(); err != nil {
		return err
	}
	return nil
}
