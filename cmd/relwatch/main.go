// Command relwatch monitors upstream projects for new releases.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/relwatch/relwatch/all"
	"github.com/relwatch/relwatch/internal/config"
	"github.com/relwatch/relwatch/internal/sqlitestore"
)

var rootCmd = &cobra.Command{
	Use:   "relwatch",
	Short: "Monitor upstream projects for new releases",
	Long: `relwatch checks package ecosystems (PyPI, npm, crates.io, RubyGems,
GitHub, SourceForge, Debian, plain folder listings) for newly published
versions of the projects it tracks.

Configuration is read from RELWATCH_-prefixed environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(runCmd, checkCmd, reconcileCmd, ecosystemsCmd, importCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, builds the logger, and opens the store.
func setup() (*config.Config, zerolog.Logger, *sqlitestore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger := config.NewLogger(cfg)

	store, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		return nil, logger, nil, err
	}
	return cfg, logger, store, nil
}
