// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/bibfetch/internal/input"
)

var csvCmd = &cobra.Command{
	Use:   "csv <path> <output-dir>",
	Short: "Fetch citations for the records in a CSV file",
	Long: `Csv reads a comma-separated file whose header row names an Author and
a Title column (other columns are ignored) and fetches one citation per
data row into output-dir.`,
	Args: cobra.ExactArgs(2),
	RunE: runCSV,
}

func init() {
	addFetchFlags(csvCmd)
	rootCmd.AddCommand(csvCmd)
}

func runCSV(cmd *cobra.Command, args []string) error {
	return runFetch(cmd, fetchJob{
		source: "csv:" + args[0],
		open: func() (input.Parser, error) {
			return input.NewCSVParser(args[0])
		},
		outputDir: args[1],
	})
}
