// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress renders batch progress on a terminal: one status line
// per notable event above a live progress bar, and a final summary.
package progress

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/bibfetch/internal/batch"
	"github.com/pdiddy/bibfetch/internal/crossref"
	"github.com/pdiddy/bibfetch/pkg/types"
)

const (
	barWidth   = 57
	labelWidth = 12
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// Console implements batch.Reporter on a writer, normally stdout.
type Console struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewConsole returns a reporter writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Start sets up the bar for total records.
func (c *Console) Start(total int) {
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWidth(barWidth),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	_ = c.bar.RenderBlank()
}

// Searching announces the lookup of rec.
func (c *Console) Searching(rec types.Record) {
	c.println(okStyle, "Searching", fmt.Sprintf("%s: %s", rec.Author, rec.Title))
}

// Finished advances the bar and reports failures.
func (c *Console) Finished(res batch.RecordResult) {
	switch res.Outcome {
	case batch.OutcomeUnresolved:
		label := "Failed search"
		if errors.Is(res.Err, crossref.ErrNotFound) {
			label = "Not found"
		}
		c.println(failStyle, label, fmt.Sprintf("%s: %s", res.Record.Author, res.Record.Title))
	case batch.OutcomeSaveFailed:
		c.println(failStyle, "Failed download", fmt.Sprintf("%s: %s (DOI: %s)", res.Record.Author, res.Record.Title, res.DOI))
	}

	if c.bar == nil {
		return
	}
	if res.DOI != "" {
		c.bar.Describe("DOI: " + res.DOI)
	}
	_ = c.bar.Add(1)
}

// Done clears the bar and prints the final counts.
func (c *Console) Done(result batch.Result) {
	if c.bar != nil {
		_ = c.bar.Finish()
		_ = c.bar.Clear()
	}
	fmt.Fprintf(c.w, "Downloaded %d, failed %d\n", result.Downloaded, result.Failed)
}

// println writes a labelled line above the bar.
func (c *Console) println(style lipgloss.Style, label, msg string) {
	if c.bar != nil {
		_ = c.bar.Clear()
	}
	fmt.Fprintf(c.w, "%s %s\n", style.Render(fmt.Sprintf("%*s", labelWidth, label)), msg)
	if c.bar != nil {
		_ = c.bar.RenderBlank()
	}
}
