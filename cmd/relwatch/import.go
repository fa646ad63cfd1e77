package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relwatch/relwatch/internal/config"
	"github.com/relwatch/relwatch/internal/core"
)

var importCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Import projects from a YAML seed file",
	Long: `Import projects from a YAML seed file. Projects that already exist
(same name and ecosystem) are skipped with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, store, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		projects, err := config.LoadSeed(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		created, skipped := 0, 0
		for i := range projects {
			p := projects[i]
			if err := store.CreateProject(ctx, &p); err != nil {
				if core.IsConflict(err) {
					logger.Warn().
						Str("project", p.Name).
						Str("ecosystem", p.Ecosystem).
						Msg("already exists, skipping")
					skipped++
					continue
				}
				return fmt.Errorf("importing %q: %w", p.Name, err)
			}
			created++
		}

		fmt.Printf("imported %d projects, skipped %d\n", created, skipped)
		return nil
	},
}
