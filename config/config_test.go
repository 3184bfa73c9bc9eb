package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-salesforecast"
	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/forecast/ets"
	"github.com/aouyang1/go-salesforecast/forecast/prophet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
data_dir: /data/favorita
cutoff: "2017-07-15"
horizon: 10
parallelism: 3
targets:
  - store: 44
    family: BEVERAGES
  - store: 3
    family: PRODUCE
models:
  - kind: snaive
  - kind: ets
    ets:
      trend: Ad
  - kind: prophet
    prophet:
      seasonality_mode: additive
closures:
  - date: "2016-04-16"
    reason: earthquake
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	opt := cfg.Options
	assert.Equal(t, []salesforecast.Target{{Store: 1, Family: "GROCERY I"}}, opt.Targets)
	assert.Equal(t, salesforecast.DefaultCutoff, opt.Cutoff)
	assert.Equal(t, 15, opt.Horizon)
	assert.Equal(t, 7, opt.Period)
	assert.Equal(t, 0.95, opt.Level)
	assert.Len(t, opt.Models, len(salesforecast.DefaultModels(7)))
	assert.Equal(t, dataset.DirFiles(salesforecast.DefaultDataDir), opt.Files)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", testYAML)
	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	opt := cfg.Options
	assert.Equal(t, "/data/favorita", opt.DataDir)
	assert.Equal(t, filepath.Join("/data/favorita", dataset.SalesFile), opt.Files.Sales)
	assert.Equal(t, time.Date(2017, 7, 15, 0, 0, 0, 0, time.UTC), opt.Cutoff)
	assert.Equal(t, 10, opt.Horizon)
	assert.Equal(t, 3, opt.Parallelism)
	assert.Equal(t, []salesforecast.Target{
		{Store: 44, Family: "BEVERAGES"},
		{Store: 3, Family: "PRODUCE"},
	}, opt.Targets)

	require.Len(t, opt.Models, 3)
	assert.Equal(t, salesforecast.ModelSNaive, opt.Models[0].Kind)
	require.NotNil(t, opt.Models[1].ETS)
	assert.Equal(t, ets.TrendDamped, opt.Models[1].ETS.Trend)
	assert.Equal(t, ets.SeasonalAuto, opt.Models[1].ETS.Seasonal)
	require.NotNil(t, opt.Models[2].Prophet)
	assert.Equal(t, prophet.SeasonalityAdditive, opt.Models[2].Prophet.SeasonalityMode)
	assert.NotEmpty(t, opt.Models[2].Prophet.HolidayOptions.Holidays)
	assert.True(t, opt.Models[2].Prophet.ChangepointOptions.Auto)

	require.Len(t, opt.Closures, 1)
	assert.Equal(t, time.Date(2016, 4, 16, 0, 0, 0, 0, time.UTC), opt.Closures[0].Date)
	assert.Equal(t, "earthquake", opt.Closures[0].Reason)
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", testYAML)
	envFile := writeFile(t, "test.env", "SALESFORECAST_LOG_LEVEL=debug\nSALESFORECAST_PERIOD=14\n")

	t.Setenv("SALESFORECAST_HORIZON", "5")
	t.Setenv("SALESFORECAST_STORE", "9")
	t.Setenv("SALESFORECAST_FILES_SALES", "/tmp/sales.csv")
	t.Setenv("SALESFORECAST_STRICT_FITS", "true")
	t.Setenv("SALESFORECAST_FAMILY", "BEVERAGES")
	t.Setenv("SALESFORECAST_OUTPUT_DIR", "/tmp/out")
	t.Setenv("SALESFORECAST_MAX_LAG", "21")
	t.Setenv("SALESFORECAST_CACHE_SIZE", "8")
	t.Setenv("SALESFORECAST_CHARTS", "false")
	t.Setenv("SALESFORECAST_LOG_FORMAT", "json")
	t.Cleanup(func() {
		os.Unsetenv("SALESFORECAST_LOG_LEVEL")
		os.Unsetenv("SALESFORECAST_PERIOD")
	})

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	opt := cfg.Options
	assert.Equal(t, 5, opt.Horizon)
	assert.Equal(t, 14, opt.Period)
	assert.True(t, opt.StrictFits)
	assert.Equal(t, []salesforecast.Target{{Store: 9, Family: "BEVERAGES"}}, opt.Targets)
	assert.Equal(t, "/tmp/out", opt.OutputDir)
	assert.Equal(t, 21, opt.MaxLag)
	assert.Equal(t, 8, opt.CacheSize)
	assert.False(t, opt.Charts)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/sales.csv", opt.Files.Sales)
	assert.Equal(t, filepath.Join("/data/favorita", dataset.StoresFile), opt.Files.Stores)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "missing.env")

	testData := map[string]struct {
		config string
		err    error
	}{
		"negative horizon": {config: "horizon: -1\n", err: salesforecast.ErrInvalidHorizon},
		"unknown model":    {config: "models:\n  - kind: lstm\n", err: salesforecast.ErrUnknownModel},
		"log level":        {config: "log_level: loud\n", err: ErrUnknownLogLevel},
		"log format":       {config: "log_format: xml\n", err: ErrUnknownLogFormat},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", td.config), noEnv)
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), noEnv)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
