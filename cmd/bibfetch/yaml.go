// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/bibfetch/internal/input"
)

var yamlCmd = &cobra.Command{
	Use:   "yaml <path> <output-dir>",
	Short: "Fetch citations for the records in a YAML list",
	Long: `Yaml reads a sequence of mappings with author and title keys:

  - author: Richard Feynman
    title: Room at the bottom`,
	Args: cobra.ExactArgs(2),
	RunE: runYAML,
}

func init() {
	addFetchFlags(yamlCmd)
	rootCmd.AddCommand(yamlCmd)
}

func runYAML(cmd *cobra.Command, args []string) error {
	return runFetch(cmd, fetchJob{
		source: "yaml:" + args[0],
		open: func() (input.Parser, error) {
			return input.NewYAMLParser(args[0])
		},
		outputDir: args[1],
	})
}
