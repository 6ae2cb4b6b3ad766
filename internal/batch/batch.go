// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch resolves records against the registry and writes one
// citation file per resolved record.
//
// Each record ends in one of three outcomes (saved, save failed,
// unresolved). Failures are recorded on the record's result and never
// stop the batch; only a failure to create the output directory does.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/stream"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// DefaultExtension is the citation file extension used when the config
// leaves it empty.
const DefaultExtension = "bib"

// Registry is the subset of the registry client the driver needs.
type Registry interface {
	Search(ctx context.Context, author, title string) (types.Work, error)
	FetchCitation(ctx context.Context, doi string) ([]byte, error)
}

// Reporter receives progress events. Calls are never concurrent, and
// Searching and Finished are each called in input order. Searching is
// called when a record is started, so with Jobs > 1 several records may
// be searching before the first one finishes.
type Reporter interface {
	Start(total int)
	Searching(rec types.Record)
	Finished(res RecordResult)
	Done(result Result)
}

// Recorder persists per-record outcomes (see internal/history).
type Recorder interface {
	Record(ctx context.Context, res RecordResult) error
}

// Outcome is the terminal state of one record.
type Outcome int

const (
	// OutcomeSaved: resolved, fetched and written.
	OutcomeSaved Outcome = iota
	// OutcomeSaveFailed: resolved, but the fetch, validation or write failed.
	OutcomeSaveFailed
	// OutcomeUnresolved: the search failed.
	OutcomeUnresolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeSaveFailed:
		return "save_failed"
	case OutcomeUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// RecordResult is the outcome of processing one record.
type RecordResult struct {
	// Index is the record's position in the input.
	Index  int
	Record types.Record
	// DOI is set once the search succeeded, even if the save later failed.
	DOI     string
	Path    string
	Outcome Outcome
	Err     error
}

// Result holds the outcome of a batch run.
type Result struct {
	Downloaded int
	Failed     int
	Records    []RecordResult
}

// Total returns the number of records processed.
func (r Result) Total() int {
	return r.Downloaded + r.Failed
}

// HasFailures reports whether any record failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Driver runs a batch. Registry is required; the other collaborators
// are optional.
type Driver struct {
	Registry Registry
	Reporter Reporter
	Recorder Recorder
	Logger   *log.Logger
	Config   types.BatchConfig
}

// EnsureOutputDir creates the output directory and its parents.
func (d *Driver) EnsureOutputDir() error {
	if err := os.MkdirAll(d.Config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", d.Config.OutputDir, err)
	}
	return nil
}

// Run creates the output directory and processes records in order. The
// returned error is non-nil only when the directory cannot be created;
// per-record failures are reported through the Result. Once ctx is
// cancelled no further records are started and the partial Result is
// returned.
func (d *Driver) Run(ctx context.Context, records []types.Record) (Result, error) {
	if err := d.EnsureOutputDir(); err != nil {
		return Result{}, err
	}

	var reporter Reporter = nopReporter{}
	if d.Reporter != nil {
		reporter = d.Reporter
	}
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var result Result
	collect := func(res RecordResult) {
		switch res.Outcome {
		case OutcomeSaved:
			result.Downloaded++
		default:
			result.Failed++
			logger.Debug("record failed", "author", res.Record.Author, "title", res.Record.Title,
				"outcome", res.Outcome, "doi", res.DOI, "err", res.Err)
		}
		result.Records = append(result.Records, res)
		reporter.Finished(res)
		if d.Recorder != nil {
			if err := d.Recorder.Record(context.WithoutCancel(ctx), res); err != nil {
				logger.Warn("could not record outcome", "author", res.Record.Author, "title", res.Record.Title, "err", err)
			}
		}
	}

	reporter.Start(len(records))
	if d.Config.Jobs <= 1 {
		for i, rec := range records {
			if ctx.Err() != nil {
				break
			}
			reporter.Searching(rec)
			collect(d.process(ctx, i, rec))
		}
	} else {
		// Callbacks run one at a time in submission order, so collect sees
		// records in input order. Searching is reported from this goroutine
		// while callbacks run on the stream's, hence the lock.
		reporter = &lockedReporter{Reporter: reporter}
		s := stream.New().WithMaxGoroutines(d.Config.Jobs)
		for i, rec := range records {
			if ctx.Err() != nil {
				break
			}
			i, rec := i, rec
			reporter.Searching(rec)
			s.Go(func() stream.Callback {
				res := d.process(ctx, i, rec)
				return func() { collect(res) }
			})
		}
		s.Wait()
	}
	reporter.Done(result)
	return result, nil
}

// process resolves, fetches and saves a single record. It never returns
// an error: every failure is folded into the result.
func (d *Driver) process(ctx context.Context, i int, rec types.Record) RecordResult {
	res := RecordResult{Index: i, Record: rec}

	work, err := d.Registry.Search(ctx, rec.Author, rec.Title)
	if err != nil {
		res.Outcome = OutcomeUnresolved
		res.Err = err
		return res
	}
	res.DOI = work.DOI

	body, err := d.Registry.FetchCitation(ctx, work.DOI)
	if err != nil {
		res.Outcome = OutcomeSaveFailed
		res.Err = fmt.Errorf("fetching citation: %w", err)
		return res
	}

	if d.Config.Validate {
		if err := ValidateBibTeX(body); err != nil {
			res.Outcome = OutcomeSaveFailed
			res.Err = err
			return res
		}
	}

	path := filepath.Join(d.Config.OutputDir, OutputName(rec, d.extension()))
	if err := writeFile(path, body); err != nil {
		res.Outcome = OutcomeSaveFailed
		res.Err = fmt.Errorf("writing %s: %w", path, err)
		return res
	}
	res.Path = path
	res.Outcome = OutcomeSaved
	return res
}

func (d *Driver) extension() string {
	if d.Config.Extension == "" {
		return DefaultExtension
	}
	return d.Config.Extension
}

// writeFile writes data to destPath through a temporary file in the same
// directory, so an existing file is replaced whole or not at all.
func writeFile(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".bibfetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// lockedReporter serializes calls to a Reporter.
type lockedReporter struct {
	mu sync.Mutex
	Reporter
}

func (l *lockedReporter) Searching(rec types.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Reporter.Searching(rec)
}

func (l *lockedReporter) Finished(res RecordResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Reporter.Finished(res)
}

type nopReporter struct{}

func (nopReporter) Start(int)              {}
func (nopReporter) Searching(types.Record) {}
func (nopReporter) Finished(RecordResult)  {}
func (nopReporter) Done(Result)            {}
