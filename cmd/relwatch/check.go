package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relwatch/relwatch/internal/check"
	"github.com/relwatch/relwatch/internal/core"
	"github.com/relwatch/relwatch/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check <project-id>",
	Short: "Check a single project now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}

		cfg, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := store.GetProject(ctx, id)
		if err != nil {
			return err
		}

		runner := check.New(check.Config{
			Store:          store,
			Reporter:       report.New(logger),
			DefaultTimeout: cfg.FetchTimeout,
			MaxRetries:     cfg.MaxRetries,
			Logger:         logger,
		})

		res := runner.Run(ctx, p)
		switch res.Outcome {
		case core.OutcomeNewVersion:
			fmt.Printf("%s: new version %s (%s)\n", p.Name, res.NewVersion.Version, res.NewVersion.Raw)
		case core.OutcomeNoChange:
			fmt.Printf("%s: no change (latest %s)\n", p.Name, p.LatestVersion)
		default:
			return fmt.Errorf("%s: %s: %w", p.Name, res.Outcome, res.Err)
		}
		return nil
	},
}
