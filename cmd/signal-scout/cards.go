// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/store"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Browse and annotate persisted signal cards",
	Long: `Cards queries the local card database written by scans run with a
--store path (or store.path in the config). Use subcommands to list
cards for a topic, look a card up by URL, or update its review status.`,
}

var cardsListCmd = &cobra.Command{
	Use:   "list [topic]",
	Short: "List the most recently seen cards for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCardsList,
}

var cardsShowCmd = &cobra.Command{
	Use:   "show [url]",
	Short: "Show the stored card for a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsShow,
}

var cardsStatusCmd = &cobra.Command{
	Use:   "status [url] [status]",
	Short: "Update a card's review status (e.g. reviewed, dismissed)",
	Args:  cobra.ExactArgs(2),
	RunE:  runCardsStatus,
}

func init() {
	cardsCmd.PersistentFlags().String("store", "", "SQLite card database path")
	cardsListCmd.Flags().Int("limit", 20, "maximum number of cards to list")
	cardsListCmd.Flags().Bool("json", false, "output cards as JSON")

	cardsCmd.AddCommand(cardsListCmd)
	cardsCmd.AddCommand(cardsShowCmd)
	cardsCmd.AddCommand(cardsStatusCmd)
	rootCmd.AddCommand(cardsCmd)
}

func openCardStore(cmd *cobra.Command) (*store.Store, error) {
	cfg := scoutConfig()
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Path = v
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("no card database configured: pass --store or set store.path")
	}
	return store.Open(cfg.Store)
}

func runCardsList(cmd *cobra.Command, args []string) error {
	s, err := openCardStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	cards, err := s.RecentByTopic(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cards)
	}

	if len(cards) == 0 {
		fmt.Println("No stored cards for that topic.")
		return nil
	}
	fmt.Printf("%-5s  %-12s  %-10s  %-50s  %s\n", "Score", "Typology", "Status", "Title", "URL")
	fmt.Println(strings.Repeat("-", 120))
	for _, card := range cards {
		title := card.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Printf("%-5.1f  %-12s  %-10s  %-50s  %s\n",
			card.FinalScore, card.Typology, card.Status, title, card.URL)
	}
	fmt.Printf("\n%d cards\n", len(cards))
	return nil
}

func runCardsShow(cmd *cobra.Command, args []string) error {
	s, err := openCardStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	card, err := s.FindByURL(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("looking up %s: %w", args[0], err)
	}
	return printCard(card)
}

func printCard(card types.SignalCard) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(card)
}

func runCardsStatus(cmd *cobra.Command, args []string) error {
	s, err := openCardStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.UpdateStatus(context.Background(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", args[0], args[1])
	return nil
}
