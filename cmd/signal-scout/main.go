// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the signal-scout CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/secrets"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the signal-scout CLI.
var rootCmd = &cobra.Command{
	Use:   "signal-scout",
	Short: "Horizon scanning across grants, publications, and web search",
	Long: `signal-scout aggregates weak signals of emerging change. It queries a
grants registry, an academic publication index, and a web search API,
normalizes the results into a common signal record, scores and
deduplicates them, and groups them into narrative themes.

Run a scan with one of the named modes (radar, deep, quick, monitor,
research, intelligence); each mode composes the same pipeline with
different providers, freshness windows, and lookback horizons.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		for _, name := range secrets.Unknown(s) {
			fmt.Fprintf(os.Stderr, "warning: unrecognized secret %q (known: %v)\n", name, secrets.KnownKeys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./signal-scout.yaml or ~/.config/signal-scout/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("signal-scout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "signal-scout"))
		}
	}

	viper.SetEnvPrefix("SIGNAL_SCOUT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// scoutConfig resolves the effective configuration: built-in defaults,
// overridden by the config file / environment, with credentials falling
// back to the secrets directory.
func scoutConfig() types.ScoutConfig {
	cfg := types.DefaultConfig()

	if v := viper.GetDuration("sources.timeout"); v > 0 {
		cfg.Sources.Timeout = v
	}
	if v := viper.GetInt("sources.max_results"); v > 0 {
		cfg.Sources.MaxResults = v
	}
	if v := viper.GetFloat64("sources.requests_per_second"); v > 0 {
		cfg.Sources.RequestsPerSecond = v
	}
	if viper.IsSet("sources.enable_grants") {
		cfg.Sources.EnableGrants = viper.GetBool("sources.enable_grants")
	}
	if viper.IsSet("sources.enable_publications") {
		cfg.Sources.EnablePublications = viper.GetBool("sources.enable_publications")
	}
	if viper.IsSet("sources.enable_web_search") {
		cfg.Sources.EnableWebSearch = viper.GetBool("sources.enable_web_search")
	}
	cfg.Sources.OpenAlexEmail = secretDefault("openalex-email", viper.GetString("sources.openalex_email"))
	cfg.Sources.BraveAPIKey = secretDefault("brave-api-key", viper.GetString("sources.brave_api_key"))

	if v := viper.GetDuration("scan.cache_ttl"); v > 0 {
		cfg.Scan.CacheTTL = v
	}
	if v := viper.GetInt("scan.related_terms"); v > 0 {
		cfg.Scan.RelatedTerms = v
	}
	if viper.IsSet("scan.cluster_seed") {
		cfg.Scan.ClusterSeed = viper.GetInt64("scan.cluster_seed")
	} else {
		cfg.Scan.ClusterSeed = time.Now().UnixNano()
	}

	if v := viper.GetString("ai.model"); v != "" {
		cfg.AI.Model = v
	}
	if v := viper.GetInt("ai.max_tokens"); v > 0 {
		cfg.AI.MaxTokens = v
	}
	cfg.AI.APIKey = secretDefault("openai-api-key", viper.GetString("ai.api_key"))

	cfg.Store.Path = viper.GetString("store.path")

	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
