// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crossref

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Search when the registry answers with an
// empty result list.
var ErrNotFound = errors.New("crossref: no work found")

// StatusError reports a response whose status field is not "ok".
type StatusError struct {
	Status string
	// Detail is the registry's own explanation, when it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("crossref: server status %q: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("crossref: server status %q", e.Status)
}

// ParseError reports a response body that does not match the expected
// work-list envelope.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("crossref: unexpected response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError reports a request that did not produce a readable
// response: connection failures, timeouts, cancelled contexts.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("crossref: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
