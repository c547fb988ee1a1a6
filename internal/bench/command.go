package bench

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ifnotnil/threadpool"
)

// NewCommand builds the threadpool-bench root command.
func NewCommand() *cobra.Command {
	v := NewViper()
	var (
		configPath  string
		printConfig bool
	)

	cmd := &cobra.Command{
		Use:           "threadpool-bench",
		Short:         "Run a synthetic workload through a fixed-size worker pool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Load(v, configPath)
			if err != nil {
				return err
			}

			if printConfig {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(cfg)
			}

			return execute(cmd.Context(), cmd, cfg)
		},
	}

	d := DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to a YAML config file")
	f.BoolVar(&printConfig, "print-config", false, "Print the effective config as YAML and exit")
	f.Int("workers", d.Workers, "Number of workers in the pool")
	f.Int("jobs", d.Jobs, "Number of jobs to submit")
	f.Int("senders", d.Senders, "Number of goroutines submitting jobs")
	f.Duration("job-duration", d.JobDuration, "Time each job sleeps")
	f.Int("panic-every", d.PanicEvery, "Make every n-th job panic (0 disables)")
	f.String("shutdown-mode", d.ShutdownMode, "Shutdown mode (drain, immediate)")
	f.String("panic-policy", d.PanicPolicy, "Panic policy (continue, exit)")
	f.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	f.String("metrics-addr", d.MetricsAddr, "Serve Prometheus metrics on this address and wait for interrupt after the run")

	if err := bindFlags(v, f); err != nil {
		panic(err)
	}

	return cmd
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"workers":       "workers",
	"jobs":          "jobs",
	"senders":       "senders",
	"job_duration":  "job-duration",
	"panic_every":   "panic-every",
	"shutdown_mode": "shutdown-mode",
	"panic_policy":  "panic-policy",
	"log_level":     "log-level",
	"metrics_addr":  "metrics-addr",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag --%s to %s: %w", name, key, err)
		}
	}
	return nil
}

func execute(ctx context.Context, cmd *cobra.Command, cfg Config) error {
	logger := cfg.Logger(cmd.ErrOrStderr())

	reg := prometheus.NewRegistry()
	metrics, err := threadpool.NewMetrics("threadpool", "bench", reg)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	res, runErr := Run(ctx, cfg, logger, metrics)
	logger.Info("workload finished", "result", res)
	fmt.Fprintf(cmd.OutOrStdout(), "executed %d/%d jobs (%d panicked, %d rejected) in %s\n",
		res.Executed, res.Submitted, res.Panicked, res.Rejected, res.Elapsed)

	if srv != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}

	return runErr
}
