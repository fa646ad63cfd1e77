package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relwatch/relwatch/internal/check"
	"github.com/relwatch/relwatch/internal/core"
	"github.com/relwatch/relwatch/internal/metrics"
	"github.com/relwatch/relwatch/internal/notify"
	"github.com/relwatch/relwatch/internal/report"
	"github.com/relwatch/relwatch/internal/scheduler"
)

var (
	runInterval    time.Duration
	runMetricsAddr string
	runEcosystem   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run check passes over all tracked projects",
	Long: `Run one scheduler pass, or keep running passes at a fixed interval
with --interval. SIGINT and SIGTERM abort the current pass cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		if runMetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			go func() {
				if err := http.ListenAndServe(runMetricsAddr, mux); err != nil {
					logger.Error().Err(err).Msg("metrics listener failed")
				}
			}()
		}

		var publisher core.Publisher = notify.NewLogPublisher(logger)
		if cfg.WebhookURL != "" {
			publisher = notify.Fanout{
				notify.NewLogPublisher(logger),
				notify.NewWebhook(cfg.WebhookURL),
			}
		}

		reporter := report.New(logger)
		runner := check.New(check.Config{
			Store:          store,
			Reporter:       reporter,
			DefaultTimeout: cfg.FetchTimeout,
			MaxRetries:     cfg.MaxRetries,
			Logger:         logger,
		})

		interval := cfg.Interval
		if cmd.Flags().Changed("interval") {
			interval = runInterval
		}

		for {
			sched := scheduler.New(scheduler.Config{
				Store:     store,
				Runner:    runner,
				Publisher: publisher,
				Reporter:  reporter,
				Metrics:   m,
				Workers:   cfg.Workers,
				Filter:    core.ProjectFilter{Ecosystem: runEcosystem},
				Logger:    logger,
			})
			if _, err := sched.Run(ctx); err != nil {
				return err
			}

			if interval <= 0 || ctx.Err() != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	},
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 0,
		"run passes repeatedly at this interval (0 = single pass)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().StringVar(&runEcosystem, "ecosystem", "",
		"only check projects in this ecosystem")
}
