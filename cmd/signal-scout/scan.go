// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/expand"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/scan"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/sources"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/store"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/synthesis"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [topic]",
	Short: "Run a horizon scan for a topic",
	Long: `Scan queries the configured providers for a topic, scores and
deduplicates the results, and prints signal cards ranked by composite
score. Modes vary the providers, freshness windows, and lookback:

` + modeHelp(),
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("mission", "", "topical category stamped onto every signal")
	scanCmd.Flags().String("mode", "radar", "scan mode: "+strings.Join(scan.ModeNames(), ", "))
	scanCmd.Flags().Int("max-results", 0, "override the per-provider result cap")
	scanCmd.Flags().String("store", "", "SQLite file for card persistence (empty disables)")
	scanCmd.Flags().Bool("json", false, "output the scan result as JSON")
	scanCmd.Flags().Bool("yaml", false, "output the scan result as YAML")

	rootCmd.AddCommand(scanCmd)
}

func modeHelp() string {
	var b strings.Builder
	for _, name := range scan.ModeNames() {
		fmt.Fprintf(&b, "  %-13s %s\n", name, scan.Modes[name].Description)
	}
	return b.String()
}

func runScan(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	mission, _ := cmd.Flags().GetString("mission")
	mode, _ := cmd.Flags().GetString("mode")

	cfg := scoutConfig()
	if v, _ := cmd.Flags().GetInt("max-results"); v > 0 {
		cfg.Sources.MaxResults = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Path = v
	}

	deps, closeStore, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	scanner := scan.New(cfg, deps)
	// Persistence runs off the scan path; wait for it before the store
	// closes underneath it.
	defer scanner.Drain()
	result, err := scanner.Scan(context.Background(), topic, mission, mode)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if yamlOut, _ := cmd.Flags().GetBool("yaml"); yamlOut {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(result)
	}
	printResult(result)
	return nil
}

// buildDeps assembles the scanner's collaborators from configuration.
// A missing web-search credential with web search enabled is a hard
// configuration error, raised here rather than mid-scan.
func buildDeps(cfg types.ScoutConfig) (scan.Deps, func(), error) {
	client := &http.Client{Timeout: cfg.Sources.Timeout}

	var adapters []sources.Adapter
	if cfg.Sources.EnableGrants {
		adapters = append(adapters, sources.NewGrantsAdapter(client, cfg.Sources, os.Stderr))
	}
	if cfg.Sources.EnablePublications {
		adapters = append(adapters, sources.NewPublicationsAdapter(client, cfg.Sources, os.Stderr))
	}
	if cfg.Sources.EnableWebSearch {
		web, err := sources.NewWebSearchAdapter(client, cfg.Sources)
		if err != nil {
			return scan.Deps{}, nil, fmt.Errorf("web search enabled: %w (put the key in .secrets/brave-api-key or disable the provider)", err)
		}
		adapters = append(adapters, web)
	}

	deps := scan.Deps{Adapters: adapters, Warn: os.Stderr}

	if cfg.AI.APIKey != "" {
		deps.Expander = expand.NewOpenAIExpander(cfg.AI)
		deps.Synthesizer = synthesis.NewOpenAISynthesizer(cfg.AI)
	}

	closeStore := func() {}
	if cfg.Store.Path != "" {
		cards, err := store.Open(cfg.Store)
		if err != nil {
			return scan.Deps{}, nil, err
		}
		deps.Store = cards
		closeStore = func() { cards.Close() }
	}

	return deps, closeStore, nil
}

func printResult(result *scan.Result) {
	if len(result.Cards) == 0 {
		fmt.Println("No signals found.")
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		return
	}

	fmt.Printf("%-4s  %-5s  %-12s  %-9s  %-12s  %s\n",
		"Rank", "Score", "Typology", "Source", "Date", "Title")
	fmt.Println(strings.Repeat("-", 100))
	for i, card := range result.Cards {
		title := card.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		fmt.Printf("%-4d  %-5.1f  %-12s  %-9s  %-12s  %s\n",
			i+1, card.FinalScore, card.Typology, card.Source, card.Date, title)
	}
	fmt.Printf("\n%d signals\n", len(result.Cards))

	if len(result.Clusters) > 0 {
		fmt.Println("\nThemes:")
		for _, c := range result.Clusters {
			fmt.Printf("  %d. %s (%d signals; %s)\n",
				c.ID, c.Title, c.Count, strings.Join(c.Keywords, ", "))
		}
	}

	if result.Narrative != nil {
		fmt.Printf("\nNarrative (confidence %.1f):\n%s\n",
			result.Narrative.Confidence, result.Narrative.Narrative)
	}

	for _, w := range result.Warnings {
		fmt.Printf("\nwarning: %s\n", w)
	}
}
