// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/expand"
)

var expandCmd = &cobra.Command{
	Use:   "expand [seed terms...]",
	Short: "Expand seed terms into related search queries",
	Long: `Expand turns one or more seed terms into related query strings, the
same expansion a scan attaches to its cards as related keywords. Uses
the configured generative model when an API key is present, otherwise
falls back to template-derived variants.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().Int("count", 5, "number of expanded terms to produce")

	rootCmd.AddCommand(expandCmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	cfg := scoutConfig()

	var expander expand.Expander
	if cfg.AI.APIKey != "" {
		expander = expand.NewOpenAIExpander(cfg.AI)
	}

	for _, term := range expand.Terms(context.Background(), expander, args, count) {
		fmt.Println(term)
	}
	return nil
}
