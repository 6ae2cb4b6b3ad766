// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibfetch/internal/batch"
	"github.com/pdiddy/bibfetch/internal/crossref"
	"github.com/pdiddy/bibfetch/internal/history"
	"github.com/pdiddy/bibfetch/internal/httputil"
	"github.com/pdiddy/bibfetch/internal/input"
	"github.com/pdiddy/bibfetch/internal/progress"
	"github.com/pdiddy/bibfetch/internal/secrets"
)

// addFetchFlags registers the flags shared by the csv, xlsx and yaml
// subcommands.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("jobs", "j", 1, "records processed at once (1 = sequential)")
	cmd.Flags().Bool("validate", false, "skip citation bodies that do not parse as BibTeX")
	cmd.Flags().Float64("rate", 0, "maximum registry requests per second (0 = unthrottled)")
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (0 = none)")
	cmd.Flags().String("history", "", "record the run in this SQLite database")
	cmd.Flags().String("registry", crossref.DefaultBaseURL, "CrossRef API base URL")
}

// fetchJob describes one invocation of a fetch subcommand.
type fetchJob struct {
	// source identifies the input in the run history, e.g. "csv:list.csv".
	source string
	// open is called once the configuration is known to be valid.
	open      func() (input.Parser, error)
	outputDir string
}

func runFetch(cmd *cobra.Command, job fetchJob) error {
	v := viper.GetViper()
	if err := bindFetchFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	cfg.Batch.OutputDir = job.outputDir

	parser, err := job.open()
	if err != nil {
		return err
	}
	records, err := parser.Parse()
	if err != nil {
		return err
	}
	logger.Debug("parsed input", "source", job.source, "records", len(records))

	mailto := secrets.Mailto(cfg.Registry.Mailto, loadedSecrets)
	cfg.Registry.UserAgent = httputil.UserAgent(version, mailto)
	client := crossref.New(httputil.NewClient(cfg.Registry), cfg.Registry.BaseURL)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	driver := &batch.Driver{
		Registry: client,
		Reporter: progress.NewConsole(cmd.OutOrStdout()),
		Logger:   logger,
		Config:   cfg.Batch,
	}

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	// A run is only recorded once its output directory exists.
	if err := driver.EnsureOutputDir(); err != nil {
		return err
	}

	var run *history.RunRecorder
	if store != nil {
		run, err = store.BeginRun(ctx, job.source, job.outputDir)
		if err != nil {
			return err
		}
		driver.Recorder = run
	}

	result, err := driver.Run(ctx, records)
	if err != nil {
		return err
	}

	if run != nil {
		// The run is finished even when interrupted so its counts are kept.
		if err := run.Finish(context.WithoutCancel(ctx), result); err != nil {
			logger.Warn("could not finish history run", "run", run.ID, "err", err)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted after %d of %d records: %w", result.Total(), len(records), ctx.Err())
	}
	return nil
}
