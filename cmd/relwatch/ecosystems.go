package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/relwatch/relwatch/internal/core"
)

var ecosystemsCmd = &cobra.Command{
	Use:   "ecosystems",
	Short: "List supported ecosystems",
	Run: func(cmd *cobra.Command, args []string) {
		ecosystems := core.SupportedEcosystems()
		sort.Strings(ecosystems)

		for _, eco := range ecosystems {
			if url := core.DefaultURL(eco); url != "" {
				fmt.Printf("%-14s %s\n", eco, url)
			} else {
				fmt.Println(eco)
			}
		}
	},
}
