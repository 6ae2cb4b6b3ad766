// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client shared by registry calls.
package httputil

import (
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"golang.org/x/time/rate"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// ProjectURL is advertised in the User-Agent so registry operators can
// reach the maintainers.
const ProjectURL = "https://github.com/pdiddy/bibfetch"

// UserAgent builds the identification header CrossRef asks clients to
// send: name/version, a project URL and, when known, a mailto contact.
func UserAgent(version, mailto string) string {
	if mailto == "" {
		return fmt.Sprintf("bibfetch/%s (+%s)", version, ProjectURL)
	}
	return fmt.Sprintf("bibfetch/%s (+%s; mailto:%s)", version, ProjectURL, mailto)
}

// NewClient returns the process-wide client for registry requests. It
// stamps every request with cfg.UserAgent and, when cfg.Rate is positive,
// waits on a token bucket before each round trip. The returned client
// holds no per-request state and is safe to share.
func NewClient(cfg types.RegistryConfig) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	if cfg.Rate > 0 {
		burst := int(cfg.Rate)
		if burst < 1 {
			burst = 1
		}
		rt = RateLimitTransport(rate.NewLimiter(rate.Limit(cfg.Rate), burst), rt)
	}
	if cfg.UserAgent != "" {
		rt = UserAgentTransport(cfg.UserAgent, rt)
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: rt,
	}
}

// UserAgentTransport sets the User-Agent header on every outgoing request.
func UserAgentTransport(ua string, rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", ua)
		return rt.RoundTrip(req)
	})
}

// RateLimitTransport blocks each request until l admits it. A request
// whose context ends while waiting fails with the context's error.
func RateLimitTransport(l *rate.Limiter, rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		if err := l.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
		return rt.RoundTrip(req)
	})
}
