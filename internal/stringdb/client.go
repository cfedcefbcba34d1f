// Package stringdb queries the STRING functional enrichment service for a
// gene list against a custom background.
package stringdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Defaults for fission yeast queries.
const (
	DefaultBaseURL        = "https://string-db.org/api"
	DefaultSpecies        = 4896
	DefaultCallerIdentity = "DIT_HAP_visualization"
	DefaultRetries        = 3
	DefaultRetryDelay     = 5 * time.Second
)

// Request steps, reported in UpstreamError.
const (
	StepVersion    = "version"
	StepMapIDs     = "get_string_ids"
	StepEnrichment = "enrichment"
)

// UpstreamError reports a STRING request that failed after all attempts.
type UpstreamError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("STRING %s failed after %d attempts: %v", e.Step, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Options configures a Client. Zero values take the defaults.
type Options struct {
	BaseURL        string
	Species        int
	CallerIdentity string
	Retries        int
	RetryDelay     time.Duration
	HTTPClient     *http.Client
}

// Client talks to the STRING REST API.
type Client struct {
	baseURL    string
	species    int
	caller     string
	retries    int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a STRING client.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		species:    opts.Species,
		caller:     opts.CallerIdentity,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		httpClient: opts.HTTPClient,
		logger:     zap.NewNop(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.species == 0 {
		c.species = DefaultSpecies
	}
	if c.caller == "" {
		c.caller = DefaultCallerIdentity
	}
	if c.retries <= 0 {
		c.retries = DefaultRetries
	}
	if c.retryDelay < 0 {
		c.retryDelay = 0
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

// SetLogger sets the logger for retry diagnostics.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Enrich runs a STRING enrichment of query against background. The
// background is first mapped to STRING identifiers. An empty query
// returns no terms.
func (c *Client) Enrich(ctx context.Context, query, background []string) ([]Term, error) {
	if len(query) == 0 {
		return nil, nil
	}

	apiURL, err := c.discoverAPI(ctx)
	if err != nil {
		return nil, err
	}

	bgIDs, err := c.mapIDs(ctx, apiURL, background)
	if err != nil {
		return nil, err
	}
	if len(bgIDs) == 0 {
		return nil, &UpstreamError{Step: StepMapIDs, Attempts: 1, Err: errors.New("no background identifiers mapped")}
	}

	form := url.Values{
		"identifiers":                   {strings.Join(query, "\r")},
		"background_string_identifiers": {strings.Join(bgIDs, "\r")},
		"species":                       {strconv.Itoa(c.species)},
		"caller_identity":               {c.caller},
	}
	var terms []Term
	if err := c.post(ctx, StepEnrichment, apiURL+"/json/enrichment", form, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// discoverAPI returns the versioned API address, falling back to the
// configured base URL when no stable address is reported.
func (c *Client) discoverAPI(ctx context.Context) (string, error) {
	var versions []struct {
		Version       string `json:"string_version"`
		StableAddress string `json:"stable_address"`
	}
	if err := c.post(ctx, StepVersion, c.baseURL+"/json/version", nil, &versions); err != nil {
		return "", err
	}
	if len(versions) == 0 || versions[0].StableAddress == "" {
		return c.baseURL, nil
	}
	c.logger.Debug("STRING version",
		zap.String("version", versions[0].Version),
		zap.String("address", versions[0].StableAddress))
	return strings.TrimSuffix(versions[0].StableAddress, "/") + "/api", nil
}

func (c *Client) mapIDs(ctx context.Context, apiURL string, genes []string) ([]string, error) {
	form := url.Values{
		"identifiers":     {strings.Join(genes, "\r")},
		"species":         {strconv.Itoa(c.species)},
		"limit":           {"1"},
		"echo_query":      {"1"},
		"caller_identity": {c.caller},
	}
	var mapped []struct {
		QueryItem string `json:"queryItem"`
		StringID  string `json:"stringId"`
	}
	if err := c.post(ctx, StepMapIDs, apiURL+"/json/get_string_ids", form, &mapped); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(mapped))
	for _, m := range mapped {
		if m.StringID != "" {
			ids = append(ids, m.StringID)
		}
	}
	return ids, nil
}

// post sends a form request and decodes the JSON response into out,
// retrying a fixed number of times with a fixed delay.
func (c *Client) post(ctx context.Context, step, endpoint string, form url.Values, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		lastErr = c.postOnce(ctx, endpoint, form, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &UpstreamError{Step: step, Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == c.retries {
			break
		}

		c.logger.Warn("STRING request failed, retrying",
			zap.String("step", step),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return &UpstreamError{Step: step, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(c.retryDelay):
		}
	}
	return &UpstreamError{Step: step, Attempts: c.retries, Err: lastErr}
}

func (c *Client) postOnce(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
