package bench

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ifnotnil/threadpool"
)

// Config describes one synthetic workload.
type Config struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	Jobs         int           `mapstructure:"jobs" yaml:"jobs"`
	Senders      int           `mapstructure:"senders" yaml:"senders"`
	JobDuration  time.Duration `mapstructure:"job_duration" yaml:"job_duration"`
	PanicEvery   int           `mapstructure:"panic_every" yaml:"panic_every"`
	ShutdownMode string        `mapstructure:"shutdown_mode" yaml:"shutdown_mode"`
	PanicPolicy  string        `mapstructure:"panic_policy" yaml:"panic_policy"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr  string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

func DefaultConfig() Config {
	return Config{
		Workers:      4,
		Jobs:         1000,
		Senders:      1,
		JobDuration:  time.Millisecond,
		ShutdownMode: threadpool.ShutdownModeDrain.String(),
		PanicPolicy:  threadpool.PanicPolicyContinue.String(),
		LogLevel:     "info",
	}
}

var ErrInvalidConfig = errors.New("invalid bench config")

func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	if c.Senders < 1 {
		errs = append(errs, fmt.Errorf("senders must be at least 1, got %d", c.Senders))
	}
	if c.JobDuration < 0 {
		errs = append(errs, fmt.Errorf("job_duration must not be negative, got %s", c.JobDuration))
	}
	if c.PanicEvery < 0 {
		errs = append(errs, fmt.Errorf("panic_every must not be negative, got %d", c.PanicEvery))
	}
	if _, err := threadpool.ParseShutdownMode(c.ShutdownMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := threadpool.ParsePanicPolicy(c.PanicPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// PoolOptions translates the config into pool options. Validate first.
func (c Config) PoolOptions(logger *slog.Logger) []threadpool.Option {
	mode, _ := threadpool.ParseShutdownMode(c.ShutdownMode)
	policy, _ := threadpool.ParsePanicPolicy(c.PanicPolicy)

	return []threadpool.Option{
		threadpool.WithName("bench"),
		threadpool.WithLogger(logger),
		threadpool.WithShutdownMode(mode),
		threadpool.WithPanicPolicy(policy),
	}
}

func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// EnvPrefix is the prefix for environment overrides, e.g. THREADPOOL_WORKERS.
const EnvPrefix = "THREADPOOL"

// NewViper returns a viper instance carrying the defaults and env bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("workers", d.Workers)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("senders", d.Senders)
	v.SetDefault("job_duration", d.JobDuration)
	v.SetDefault("panic_every", d.PanicEvery)
	v.SetDefault("shutdown_mode", d.ShutdownMode)
	v.SetDefault("panic_policy", d.PanicPolicy)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_addr", d.MetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
