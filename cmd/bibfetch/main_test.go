// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibfetch/internal/input"
	"github.com/pdiddy/bibfetch/pkg/types"
)

const feynmanBibTeX = `@inbook{Feynman_2018, title={There's Plenty of Room at the Bottom}, DOI={10.1201/9780429500459-7}, author={Feynman, Richard P.}, year={2018}}`

// newRegistry serves the CrossRef works and transform endpoints. Titles
// starting with "Missing" have no match. It records the User-Agent seen.
func newRegistry(t *testing.T, userAgent *atomic.Value) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userAgent != nil {
			userAgent.Store(r.UserAgent())
		}
		switch r.URL.Path {
		case "/works":
			w.Header().Set("Content-Type", "application/json")
			if strings.HasPrefix(r.URL.Query().Get("query.title"), "Missing") {
				fmt.Fprint(w, `{"status":"ok","message-type":"work-list","message":{"items":[]}}`)
				return
			}
			fmt.Fprint(w, `{"status":"ok","message-type":"work-list","message":{"items":[{"DOI":"10.1201/9780429500459-7"}]}}`)
		case "/works/10.1201/9780429500459-7/transform/application/x-bibtex":
			fmt.Fprint(w, feynmanBibTeX)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// execute runs the root command with args and returns its stdout. Flags
// and viper state are reset first since both are process globals.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVCommand(t *testing.T) {
	ts := newRegistry(t, nil)
	csvPath := writeCSV(t, "Author,Title\nRichard Feynman,Room at the bottom\nNobody,Missing lecture\n")
	out := filepath.Join(t.TempDir(), "bib")

	stdout, err := execute(t, "csv", csvPath, out, "--registry", ts.URL)
	require.NoError(t, err, "record failures do not fail the command")

	assert.Contains(t, stdout, "Richard Feynman: Room at the bottom")
	assert.Contains(t, stdout, "Not found")
	assert.Contains(t, stdout, "Downloaded 1, failed 1")

	data, err := os.ReadFile(filepath.Join(out, "Richard Feynman_Room at the bottom.bib"))
	require.NoError(t, err)
	assert.Equal(t, feynmanBibTeX, string(data))
}

func TestYAMLCommand(t *testing.T) {
	ts := newRegistry(t, nil)
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- author: Richard Feynman\n  title: Room at the bottom\n"), 0o644))
	out := t.TempDir()

	stdout, err := execute(t, "yaml", path, out, "--registry", ts.URL, "--validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Downloaded 1, failed 0")
	assert.FileExists(t, filepath.Join(out, "Richard Feynman_Room at the bottom.bib"))
}

func TestCSVCommandParseFailure(t *testing.T) {
	ts := newRegistry(t, nil)
	csvPath := writeCSV(t, "Name,Title\nRichard Feynman,Room at the bottom\n")
	out := filepath.Join(t.TempDir(), "bib")

	_, err := execute(t, "csv", csvPath, out, "--registry", ts.URL)
	var fe *input.FormatError
	require.ErrorAs(t, err, &fe)
	assert.NoDirExists(t, out, "the output directory is not created when parsing fails")
}

func TestCSVCommandMissingFile(t *testing.T) {
	_, err := execute(t, "csv", filepath.Join(t.TempDir(), "nope.csv"), t.TempDir())
	var ioErr *input.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestCSVCommandArgs(t *testing.T) {
	_, err := execute(t, "csv", "only-one-arg")
	assert.Error(t, err)
}

func TestHistoryRoundTrip(t *testing.T) {
	ts := newRegistry(t, nil)
	csvPath := writeCSV(t, "Author,Title\nRichard Feynman,Room at the bottom\nNobody,\"Missing, lecture\"\n")
	out := t.TempDir()
	db := filepath.Join(t.TempDir(), "history.db")

	_, err := execute(t, "csv", csvPath, out, "--registry", ts.URL, "--history", db)
	require.NoError(t, err)

	stdout, err := execute(t, "history", "--history", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Downloaded")

	stdout, err = execute(t, "history", "--history", db, "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "csv:"+csvPath)

	stdout, err = execute(t, "history", "--history", db, "--failures")
	require.NoError(t, err)

	records, err := input.NewCSVReader("failures.csv", strings.NewReader(stdout)).Parse()
	require.NoError(t, err)
	assert.Equal(t, []types.Record{{Author: "Nobody", Title: "Missing, lecture"}}, records)

	stdout, err = execute(t, "history", "--history", db, "--failures", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Missing, lecture")
}

func TestHistorySkipsRunWhenOutputDirFails(t *testing.T) {
	ts := newRegistry(t, nil)
	csvPath := writeCSV(t, "Author,Title\nRichard Feynman,Room at the bottom\n")
	db := filepath.Join(t.TempDir(), "history.db")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := execute(t, "csv", csvPath, filepath.Join(blocker, "out"), "--registry", ts.URL, "--history", db)
	require.ErrorContains(t, err, "creating output directory")

	stdout, err := execute(t, "history", "--history", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded.")
}

func TestConfigCheckedBeforeInputIsOpened(t *testing.T) {
	_, err := execute(t, "csv", filepath.Join(t.TempDir(), "nope.csv"), t.TempDir(), "--rate", "-1")
	require.ErrorContains(t, err, "registry.rate")

	var ioErr *input.IOError
	assert.False(t, errors.As(err, &ioErr), "the input is not opened when the config is invalid")
}

func TestHistoryWithoutDatabase(t *testing.T) {
	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "no history database")
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("BIBFETCH_BATCH_JOBS", "3")
	t.Setenv("BIBFETCH_REGISTRY_RATE", "2.5")
	t.Setenv("BIBFETCH_REGISTRY_TIMEOUT", "15s")

	viper.Reset()
	v := viper.GetViper()
	setDefaults(v)
	v.SetEnvPrefix("BIBFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Batch.Jobs)
	assert.Equal(t, 2.5, cfg.Registry.Rate)
	assert.Equal(t, "15s", cfg.Registry.Timeout.String())
	assert.Equal(t, "https://api.crossref.org", cfg.Registry.BaseURL)
	assert.Equal(t, "bib", cfg.Batch.Extension)
}

func TestConfigRejectsNegativeRate(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set(keyRate, -1)

	_, err := loadConfig(v)
	assert.ErrorContains(t, err, "registry.rate")
}

func TestUserAgentCarriesMailto(t *testing.T) {
	var ua atomic.Value
	ts := newRegistry(t, &ua)
	csvPath := writeCSV(t, "Author,Title\nRichard Feynman,Room at the bottom\n")

	t.Setenv("BIBFETCH_REGISTRY_MAILTO", "librarian@example.org")
	_, err := execute(t, "csv", csvPath, t.TempDir(), "--registry", ts.URL)
	require.NoError(t, err)
	got, _ := ua.Load().(string)
	assert.Contains(t, got, "bibfetch/dev")
	assert.Contains(t, got, "mailto:librarian@example.org")
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "bibfetch dev\n", stdout)
}
