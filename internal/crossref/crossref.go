// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crossref resolves author/title pairs to DOIs and downloads
// BibTeX citations from the CrossRef REST API.
package crossref

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// DefaultBaseURL is the public CrossRef API root.
const DefaultBaseURL = "https://api.crossref.org"

const (
	statusOK        = "ok"
	messageWorkList = "work-list"
	bibtexTransform = "transform/application/x-bibtex"
)

// Client queries the CrossRef works endpoint. It holds only the shared
// HTTP client and the base URL, so one Client serves the whole run.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a Client that sends requests through client. An empty
// baseURL selects DefaultBaseURL.
func New(client *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{http: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// WorksURL returns the search endpoint.
func (c *Client) WorksURL() string {
	return c.baseURL + "/works"
}

// CitationURL returns the BibTeX transform endpoint for doi. The DOI's
// slashes stay path separators; each segment between them is escaped so
// characters such as '#' and '?' reach the registry.
func (c *Client) CitationURL(doi string) string {
	segments := strings.Split(doi, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return c.WorksURL() + "/" + strings.Join(segments, "/") + "/" + bibtexTransform
}

// Search looks up works matching author and title, sent as separate
// query.author and query.title parameters. It returns the first item of
// the result list and trusts the registry's ranking; later items are
// ignored.
func (c *Client) Search(ctx context.Context, author, title string) (types.Work, error) {
	var body bytes.Buffer
	err := requests.URL(c.WorksURL()).
		Client(c.http).
		Param("query.title", title).
		Param("query.author", author).
		Accept("application/json").
		AddValidator(acceptAny).
		ToBytesBuffer(&body).
		Fetch(ctx)
	if err != nil {
		return types.Work{}, &TransportError{URL: c.WorksURL(), Err: err}
	}
	return parseWorkList(body.Bytes())
}

// FetchCitation downloads the BibTeX citation for doi and returns the
// body as received. Neither the HTTP status nor the content type is
// checked: an error page from the registry comes back as the citation.
func (c *Client) FetchCitation(ctx context.Context, doi string) ([]byte, error) {
	u := c.CitationURL(doi)
	var body bytes.Buffer
	err := requests.URL(u).
		Client(c.http).
		AddValidator(acceptAny).
		ToBytesBuffer(&body).
		Fetch(ctx)
	if err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}
	return body.Bytes(), nil
}

// acceptAny replaces the default 2xx check; response bodies are judged
// by their content instead.
func acceptAny(*http.Response) error { return nil }

// envelope is the top level of every CrossRef API response.
type envelope struct {
	Status      *string         `json:"status"`
	MessageType string          `json:"message-type"`
	Message     json.RawMessage `json:"message"`
}

type workList struct {
	Items *[]types.Work `json:"items"`
}

// parseWorkList decodes a work-list response and picks its first item.
func parseWorkList(body []byte) (types.Work, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return types.Work{}, &ParseError{Err: err}
	}
	if env.Status == nil {
		return types.Work{}, &ParseError{Err: errors.New("missing status")}
	}
	if *env.Status != statusOK {
		return types.Work{}, &StatusError{Status: *env.Status, Detail: statusDetail(body)}
	}
	if env.MessageType != messageWorkList {
		return types.Work{}, &ParseError{Err: fmt.Errorf("message-type %q, want %q", env.MessageType, messageWorkList)}
	}

	var list workList
	if err := json.Unmarshal(env.Message, &list); err != nil {
		return types.Work{}, &ParseError{Err: fmt.Errorf("decoding message: %w", err)}
	}
	if list.Items == nil {
		return types.Work{}, &ParseError{Err: errors.New("message has no items")}
	}
	items := *list.Items
	if len(items) == 0 {
		return types.Work{}, ErrNotFound
	}
	if items[0].DOI == "" {
		return types.Work{}, &ParseError{Err: errors.New("first item has no DOI")}
	}
	return items[0], nil
}

// statusDetail pulls a human-readable reason out of a failed response.
// CrossRef sends either a list of {type, value, message} objects or a
// bare string as the message.
func statusDetail(body []byte) string {
	msg := gjson.GetBytes(body, "message")
	switch {
	case msg.IsArray():
		return msg.Get("0.message").String()
	case msg.Type == gjson.String:
		return msg.Str
	default:
		return ""
	}
}
