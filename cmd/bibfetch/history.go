// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibfetch/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs or print a run's failed records",
	Long: `History reads the run ledger written by --history. Without flags it lists
the most recent runs. With --failures it prints the records of a run
(default: the latest) that were not saved, as an Author,Title CSV that the
csv subcommand accepts:

  bibfetch history --failures > retry.csv
  bibfetch csv retry.csv out/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("history", "", "SQLite database written by --history (default: history.path)")
	historyCmd.Flags().Int("runs", 10, "number of runs to list (0 = all)")
	historyCmd.Flags().Bool("failures", false, "print the failed records of a run as CSV")
	historyCmd.Flags().Bool("json", false, "list runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("history")
	if path == "" {
		path = viper.GetString(keyHistory)
	}
	if path == "" {
		return errors.New("no history database: pass --history or set history.path")
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	failures, _ := cmd.Flags().GetBool("failures")
	if !failures {
		if len(args) > 0 {
			return errors.New("a run id is only accepted with --failures")
		}
		limit, _ := cmd.Flags().GetInt("runs")
		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		formatRuns(runs, out)
		return nil
	}

	var runID int64
	if len(args) > 0 {
		runID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
	} else {
		runID, err = store.LatestRunID(ctx)
		if err != nil {
			return err
		}
	}

	entries, err := store.Failures(ctx, runID)
	if err != nil {
		return err
	}
	logger.Debug("failed records", "run", runID, "count", len(entries))
	return history.WriteCSV(out, entries)
}

func formatRuns(runs []history.Run, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-20s  %-10s  %-6s  %-40s  %s\n",
		"Run", "Started", "Downloaded", "Failed", "Input", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range runs {
		started := r.StartedAt.Local().Format(time.DateTime)
		downloaded := strconv.Itoa(r.Downloaded)
		if r.FinishedAt.IsZero() {
			downloaded = "-"
		}
		src := r.Input
		if len(src) > 40 {
			src = src[:37] + "..."
		}
		fmt.Fprintf(w, "%-5d  %-20s  %-10s  %-6d  %-40s  %s\n",
			r.ID, started, downloaded, r.Failed, src, r.OutputDir)
	}
}
