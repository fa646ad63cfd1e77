package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relwatch/relwatch/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Assign ecosystems to projects imported without one",
	Long: `Scan projects that have a backend configured but no ecosystem, and
assign the ecosystem the backend implies. Collisions with existing
(name, ecosystem) pairs are reported, never merged. Safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		res, err := reconcile.New(store, logger).Run(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("scanned %d, assigned %d, skipped %d\n", res.Scanned, res.Assigned, res.Skipped)
		for _, conflict := range res.Conflicts {
			fmt.Printf("conflict: %v\n", conflict)
		}
		if len(res.Conflicts) > 0 {
			return fmt.Errorf("%d conflicts need manual resolution", len(res.Conflicts))
		}
		return nil
	},
}
