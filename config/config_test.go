package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/featherweight/scenario"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 5, cfg.Repetitions)
	assert.Equal(t, 1, cfg.Warmup)
	assert.Equal(t, []float64{50, 90}, cfg.Percentiles)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "bson", cfg.Codec)
	assert.Equal(t, "perftest", cfg.Mongo.Database)
	assert.Equal(t, "corpus", cfg.Mongo.Collection)
	assert.Equal(t, uint64(5), cfg.Mongo.PoolSize)
	assert.Empty(t, cfg.Mongo.URI)
	assert.Equal(t, scenario.Defaults("data"), cfg.ResolvedScenarios())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "featherweight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repetitions: 10
format: json
percentiles: [75, 100]
scenarios:
  - name: twitter
    dataset: corpus/TWITTER.txt
mongo:
  database: bench
`), 0o644))

	t.Setenv("FEATHERWEIGHT_WARMUP", "3")
	t.Setenv("FEATHERWEIGHT_MONGO_URI", "mongodb://127.0.0.1:27017")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Repetitions)
	assert.Equal(t, 3, cfg.Warmup)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []float64{75, 100}, cfg.Percentiles)
	assert.Equal(t, "bench", cfg.Mongo.Database)
	assert.Equal(t, "mongodb://127.0.0.1:27017", cfg.Mongo.URI)
	assert.Equal(t,
		[]scenario.Scenario{{Name: "twitter", Dataset: "corpus/TWITTER.txt"}},
		cfg.ResolvedScenarios(),
	)
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(viper.New(), "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero repetitions", func(c *Config) { c.Repetitions = 0 }},
		{"negative warmup", func(c *Config) { c.Warmup = -1 }},
		{"percentile above 100", func(c *Config) { c.Percentiles = []float64{101} }},
		{"unknown format", func(c *Config) { c.Format = "xml" }},
		{"unknown codec", func(c *Config) { c.Codec = "gob" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"scenario without dataset", func(c *Config) {
			c.Scenarios = []scenario.Scenario{{Name: "x"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}

func validConfig() Config {
	return Config{
		DataDir:     "data",
		Repetitions: 2,
		Percentiles: []float64{50},
		Format:      "text",
		Codec:       "bson",
		LogLevel:    "info",
	}
}

func TestValidatePercentilesAgainstRepetitions(t *testing.T) {
	tests := []struct {
		name        string
		repetitions int
		percentiles []float64
		skipStats   bool
		wantErr     bool
	}{
		{"single run median", 1, []float64{50}, false, true},
		{"single run defaults", 1, []float64{50, 90}, false, true},
		{"single run p100", 1, []float64{100}, false, false},
		{"single run without stats", 1, []float64{50}, true, false},
		{"two runs median", 2, []float64{50}, false, false},
		{"four runs p10", 4, []float64{10}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Repetitions = tt.repetitions
			cfg.Percentiles = tt.percentiles
			cfg.SkipStats = tt.skipStats

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "repetitions")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
