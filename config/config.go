// Package config loads featherweight settings from a config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/weiihann/featherweight/codec"
	"github.com/weiihann/featherweight/report"
	"github.com/weiihann/featherweight/scenario"
	"github.com/weiihann/featherweight/stats"
)

// EnvPrefix prefixes every environment override, e.g.
// FEATHERWEIGHT_REPETITIONS or FEATHERWEIGHT_MONGO_URI.
const EnvPrefix = "FEATHERWEIGHT"

// Mongo configures the optional connection provider.
type Mongo struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	PoolSize   uint64 `mapstructure:"pool_size"`
}

// Config is the resolved configuration of one invocation.
type Config struct {
	DataDir     string              `mapstructure:"data_dir"`
	Repetitions int                 `mapstructure:"repetitions"`
	Warmup      int                 `mapstructure:"warmup"`
	Percentiles []float64           `mapstructure:"percentiles"`
	SkipStats   bool                `mapstructure:"skip_stats"`
	Format      string              `mapstructure:"format"`
	Codec       string              `mapstructure:"codec"`
	LogLevel    string              `mapstructure:"log_level"`
	MetricsFile string              `mapstructure:"metrics_file"`
	HistoryFile string              `mapstructure:"history_file"`
	Scenarios   []scenario.Scenario `mapstructure:"scenarios"`
	Mongo       Mongo               `mapstructure:"mongo"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("repetitions", 5)
	v.SetDefault("warmup", 1)
	v.SetDefault("percentiles", []float64{50, 90})
	v.SetDefault("skip_stats", false)
	v.SetDefault("format", "text")
	v.SetDefault("codec", "bson")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_file", "")
	v.SetDefault("history_file", "")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "perftest")
	v.SetDefault("mongo.collection", "corpus")
	v.SetDefault("mongo.pool_size", 5)
}

// Load reads .env (if present), cfgFile (if set) and the environment
// into v and returns the validated result.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Repetitions < 1 {
		errs = append(errs, fmt.Errorf("repetitions must be at least 1, got %d", c.Repetitions))
	}

	if c.Warmup < 0 {
		errs = append(errs, fmt.Errorf("warmup must not be negative, got %d", c.Warmup))
	}

	for _, p := range c.Percentiles {
		if p < 0 || p > 100 {
			errs = append(errs, fmt.Errorf("percentile %v outside [0, 100]", p))

			continue
		}

		if c.SkipStats || c.Repetitions < 1 {
			continue
		}

		if _, err := stats.PercentileRank(p, c.Repetitions); err != nil {
			errs = append(errs, fmt.Errorf(
				"percentile %v needs more than %d repetitions: %w",
				p, c.Repetitions, err))
		}
	}

	if !slices.Contains(report.Formats(), c.Format) {
		errs = append(errs, fmt.Errorf("format %q not one of %v", c.Format, report.Formats()))
	}

	if !slices.Contains(codec.Names(), c.Codec) {
		errs = append(errs, fmt.Errorf("codec %q not one of %v", c.Codec, codec.Names()))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	for i, sc := range c.Scenarios {
		if sc.Name == "" || sc.Dataset == "" {
			errs = append(errs, fmt.Errorf("scenario %d needs both name and dataset", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// ResolvedScenarios returns the configured scenarios, or the default
// suite under DataDir when none are configured.
func (c *Config) ResolvedScenarios() []scenario.Scenario {
	if len(c.Scenarios) > 0 {
		return c.Scenarios
	}

	return scenario.Defaults(c.DataDir)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, err)
	}

	return lvl, nil
}
