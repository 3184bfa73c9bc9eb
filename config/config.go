// Package config loads the pipeline options from an optional config file, a .env file and
// SALESFORECAST_ prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aouyang1/go-salesforecast"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "SALESFORECAST"
	DefaultEnvFile = ".env"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

var (
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")
)

// Config is the loaded configuration of a command
type Config struct {
	Options   *salesforecast.Options
	LogLevel  string
	LogFormat string
}

// scalar keys bound to SALESFORECAST_<KEY> environment variables
var envKeys = []string{
	"data_dir",
	"output_dir",
	"files.sales",
	"files.stores",
	"files.transactions",
	"files.promotions",
	"cutoff",
	"horizon",
	"period",
	"level",
	"max_lag",
	"parallelism",
	"strict_fits",
	"cache_size",
	"charts",
	"metrics",
	"store",
	"family",
	"log_level",
	"log_format",
}

// Load reads the configuration. An empty path skips the config file. Missing env files are
// ignored; the default env file is .env in the working directory.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("could not bind %s to the environment, %w", key, err)
		}
	}

	defaults := salesforecast.NewDefaultOptions()
	setDefaults(v, defaults)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config, %w", err)
		}
	}

	opt := salesforecast.NewDefaultOptions()
	if v.IsSet("models") {
		opt.Models = prefillModels(v.Get("models"), v.GetInt("period"))
	}
	if v.IsSet("targets") {
		opt.Targets = nil
	}
	if err := v.Unmarshal(opt, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("could not unmarshal config, %w", err)
	}

	// a single store and family override the target list
	if v.IsSet("store") || v.IsSet("family") {
		target := defaults.Targets[0]
		if v.IsSet("store") {
			target.Store = v.GetInt("store")
		}
		if v.IsSet("family") {
			target.Family = v.GetString("family")
		}
		opt.Targets = []salesforecast.Target{target}
	}

	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config, %w", err)
	}

	cfg := &Config{
		Options:   opt,
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%q, %w", cfg.LogFormat, ErrUnknownLogFormat)
	}
	return cfg, nil
}

func loadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("could not load env file %s, %w", f, err)
		}
		slog.Debug("loaded env file", "path", f)
	}
	return nil
}

func setDefaults(v *viper.Viper, opt *salesforecast.Options) {
	v.SetDefault("data_dir", opt.DataDir)
	v.SetDefault("output_dir", opt.OutputDir)
	v.SetDefault("files.sales", "")
	v.SetDefault("files.stores", "")
	v.SetDefault("files.transactions", "")
	v.SetDefault("files.promotions", "")
	v.SetDefault("cutoff", opt.Cutoff.Format(time.DateOnly))
	v.SetDefault("horizon", opt.Horizon)
	v.SetDefault("period", opt.Period)
	v.SetDefault("level", opt.Level)
	v.SetDefault("max_lag", opt.MaxLag)
	v.SetDefault("parallelism", opt.Parallelism)
	v.SetDefault("strict_fits", opt.StrictFits)
	v.SetDefault("cache_size", opt.CacheSize)
	v.SetDefault("charts", opt.Charts)
	v.SetDefault("metrics", opt.Metrics)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
}

// prefillModels seeds each configured model with the defaults of its kind so a config entry
// only needs the values it changes
func prefillModels(raw any, period int) []salesforecast.ModelOptions {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	models := make([]salesforecast.ModelOptions, 0, len(entries))
	for _, e := range entries {
		var kind string
		if m, ok := e.(map[string]any); ok {
			kind, _ = m["kind"].(string)
		}
		models = append(models, salesforecast.NewModelOptions(salesforecast.ModelKind(kind), period))
	}
	return models
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.DateOnly),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// ParseLevel maps a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%q, %w", level, ErrUnknownLogLevel)
	}
	return l, nil
}

// NewLogger returns a text or json logger writing to w at the configured level
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
