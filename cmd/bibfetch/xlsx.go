// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/bibfetch/internal/input"
)

var xlsxCmd = &cobra.Command{
	Use:   "xlsx <path> <worksheet> <output-dir>",
	Short: "Fetch citations for the records in a spreadsheet worksheet",
	Long: `Xlsx reads the named worksheet of an Excel workbook. The first non-blank
row is the header and must name an Author and a Title column; blank rows
are skipped. Cells are read as they display, so numbers and dates keep
their formatting.`,
	Args: cobra.ExactArgs(3),
	RunE: runXLSX,
}

func init() {
	addFetchFlags(xlsxCmd)
	rootCmd.AddCommand(xlsxCmd)
}

func runXLSX(cmd *cobra.Command, args []string) error {
	return runFetch(cmd, fetchJob{
		source: "xlsx:" + args[0] + "#" + args[1],
		open: func() (input.Parser, error) {
			return input.NewXLSXParser(args[0], args[1])
		},
		outputDir: args[2],
	})
}
