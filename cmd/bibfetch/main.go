// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibfetch CLI. Each input format
// is a subcommand (csv, xlsx, yaml) sharing the fetch flags; history
// inspects the optional run ledger.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibfetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger writes diagnostics to stderr; stdout is reserved for progress.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "bibfetch"})

// rootCmd is the base command for the bibfetch CLI.
var rootCmd = &cobra.Command{
	Use:   "bibfetch",
	Short: "Fetch BibTeX citations for author/title lists from CrossRef",
	Long: `bibfetch reads author/title records from a CSV file, a spreadsheet
worksheet or a YAML list, resolves each record to a DOI through the
CrossRef registry and saves the record's BibTeX citation as
<output-dir>/<author>_<title>.bib.

A record that cannot be resolved or downloaded is reported and skipped;
the rest of the batch carries on.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger.SetLevel(log.DebugLevel)
		}

		s, err := secrets.Load(secrets.DefaultDir)
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
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibfetch.yaml or ~/.config/bibfetch/bibfetch.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log per-record errors and other diagnostics to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibfetch"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("BIBFETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Info("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		logger.Warn("could not read config file", "path", cfgFile, "err", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
