// Package httprepo talks to the CAOM-2 repository web service. Records
// travel as XML; the service keys them by collection and observationID.
// Mutating calls are retried on transient failures with a doubling delay,
// matching the service's published guidance for batch clients.
package httprepo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
)

// Config holds the service endpoint and client options.
type Config struct {
	// BaseURL is the repository service root, e.g.
	// "https://archive.example.org/caom2repo/obs".
	BaseURL string
	// HTTPClient is used for all requests; http.DefaultClient if nil.
	// Authentication (client certificates, cookies) is configured on the
	// injected client.
	HTTPClient *http.Client
	// RetryInitial is the first retry delay; it doubles on each further
	// attempt. Defaults to 10 seconds.
	RetryInitial time.Duration
	// RetryAttempts is the number of retries after the first try.
	// Defaults to 4, giving delays of 10, 20, 40 and 80 seconds.
	RetryAttempts uint64
}

// Client implements repository.Repository against the web service.
type Client struct {
	base          string
	hc            *http.Client
	retryInitial  time.Duration
	retryAttempts uint64
}

var _ repository.Repository = (*Client)(nil)

// New validates the configuration and returns a client. No request is
// made until the first operation.
func New(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httprepo: BaseURL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httprepo: invalid BaseURL %q", cfg.BaseURL)
	}
	c := &Client{
		base:          strings.TrimRight(cfg.BaseURL, "/"),
		hc:            cfg.HTTPClient,
		retryInitial:  cfg.RetryInitial,
		retryAttempts: cfg.RetryAttempts,
	}
	if c.hc == nil {
		c.hc = http.DefaultClient
	}
	if c.retryInitial <= 0 {
		c.retryInitial = 10 * time.Second
	}
	if c.retryAttempts == 0 {
		c.retryAttempts = 4
	}
	return c, nil
}

func (c *Client) recordURL(uri caom.ObservationURI) string {
	return c.base + "/" + url.PathEscape(uri.Collection) + "/" + url.PathEscape(uri.ObservationID)
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = c.retryInitial * 8
	bo.MaxElapsedTime = 0 // bounded by attempt count instead
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.retryAttempts), ctx)
}

// Read fetches and decodes one observation record. There is no retry on
// reads; callers treat a missing record per repository.ErrNotFound.
func (c *Client) Read(ctx context.Context, uri caom.ObservationURI) (*caom.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("httprepo: building read request for %s: %w", uri, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httprepo: reading %s: %w", uri, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("httprepo: reading %s: %w", uri, repository.ErrNotFound)
	default:
		return nil, fmt.Errorf("httprepo: reading %s: %s", uri, responseError(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httprepo: reading %s body: %w", uri, err)
	}
	obs, err := caom.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("httprepo: decoding %s: %w", uri, err)
	}
	return obs, nil
}

// Write stores an observation record, replacing any existing one.
func (c *Client) Write(ctx context.Context, obs *caom.Observation) error {
	body, err := caom.Marshal(obs)
	if err != nil {
		return fmt.Errorf("httprepo: encoding %s: %w", obs.URI(), err)
	}
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.recordURL(obs.URI()), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building write request: %w", err))
		}
		req.Header.Set("Content-Type", "text/xml")
		resp, err := c.hc.Do(req)
		if err != nil {
			return err // transport errors are retryable
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK,
			resp.StatusCode == http.StatusCreated,
			resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s", responseError(resp))
		default:
			return backoff.Permanent(fmt.Errorf("%s", responseError(resp)))
		}
	}
	if err := backoff.Retry(op, c.newBackoff(ctx)); err != nil {
		return fmt.Errorf("httprepo: writing %s: %w", obs.URI(), err)
	}
	return nil
}

// Remove deletes an observation record. Removing a record that does not
// exist reports repository.ErrNotFound; callers that only need the record
// gone may ignore it.
func (c *Client) Remove(ctx context.Context, uri caom.ObservationURI) error {
	notFound := false
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.recordURL(uri), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building remove request: %w", err))
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK,
			resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode == http.StatusNotFound:
			notFound = true
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s", responseError(resp))
		default:
			return backoff.Permanent(fmt.Errorf("%s", responseError(resp)))
		}
	}
	if err := backoff.Retry(op, c.newBackoff(ctx)); err != nil {
		return fmt.Errorf("httprepo: removing %s: %w", uri, err)
	}
	if notFound {
		return fmt.Errorf("httprepo: removing %s: %w", uri, repository.ErrNotFound)
	}
	return nil
}

// responseError summarizes a failed response, keeping the first line of
// the body for diagnostics.
func responseError(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	line := strings.TrimSpace(string(snippet))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return resp.Status
	}
	return resp.Status + ": " + line
}
