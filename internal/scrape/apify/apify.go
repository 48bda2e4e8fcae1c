// Package apify talks to an Apify-style remote actor: submit a run, poll
// its status, page through the result dataset. It is the production
// implementation of the generic scrape.DataSource contract.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/ratelimit"
	"leadscout-engine/internal/scrape"
)

const defaultBaseURL = "https://api.apify.com"

// defaultActorID is the cheap LinkedIn job scraper actor.
const defaultActorID = "2rJKkhh7vjpX7pvjg"

type Config struct {
	Token   string // API token; empty means not configured
	ActorID string
	BaseURL string // overridable for tests
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *ratelimit.HostLimiter
}

func New(cfg Config, limiter *ratelimit.HostLimiter) *Client {
	if cfg.ActorID == "" {
		cfg.ActorID = defaultActorID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) ID() string { return "apify" }

func (c *Client) IsConfigured() bool {
	return strings.TrimSpace(c.cfg.Token) != ""
}

// actorInput is the actor's submission payload.
type actorInput struct {
	Keyword             []string `json:"keyword"`
	Location            string   `json:"location,omitempty"`
	MaxItems            int      `json:"maxItems,omitempty"`
	PublishedAt         string   `json:"publishedAt,omitempty"`
	SaveOnlyUniqueItems bool     `json:"saveOnlyUniqueItems"`
}

type runData struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data runData `json:"data"`
}

func (c *Client) StartRun(ctx context.Context, opts scrape.Options) (scrape.RunHandle, error) {
	if !c.IsConfigured() {
		return scrape.RunHandle{}, domain.ErrNotConfigured
	}

	location := opts.Location
	if location == "" {
		location = "United States"
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	input := actorInput{
		Keyword:             []string{opts.JobTitle},
		Location:            location,
		MaxItems:            maxResults,
		PublishedAt:         mapDateRange(opts.DateRange),
		SaveOnlyUniqueItems: true,
	}

	u := fmt.Sprintf("%s/v2/acts/%s/runs", c.cfg.BaseURL, url.PathEscape(c.cfg.ActorID))
	var env runEnvelope
	if err := c.doJSON(ctx, http.MethodPost, u, input, &env); err != nil {
		return scrape.RunHandle{}, fmt.Errorf("apify start run: %w", err)
	}
	if env.Data.ID == "" {
		return scrape.RunHandle{}, fmt.Errorf("apify start run: empty run id in response")
	}
	return scrape.RunHandle{RunID: env.Data.ID, DatasetID: env.Data.DefaultDatasetID}, nil
}

func (c *Client) RunStatus(ctx context.Context, runID string) (string, error) {
	u := fmt.Sprintf("%s/v2/actor-runs/%s", c.cfg.BaseURL, url.PathEscape(runID))
	var env runEnvelope
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &env); err != nil {
		return "", fmt.Errorf("apify run status: %w", err)
	}
	return mapRunStatus(env.Data.Status), nil
}

func (c *Client) FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error) {
	u := fmt.Sprintf("%s/v2/datasets/%s/items?format=json&offset=%d&limit=%d",
		c.cfg.BaseURL, url.PathEscape(datasetID), offset, limit)
	var items []pipeline.RawItem
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &items); err != nil {
		return nil, fmt.Errorf("apify fetch dataset page: %w", err)
	}
	return items, nil
}

func (c *Client) doJSON(ctx context.Context, method, u string, body, out any) error {
	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return &domain.TransientError{Op: method + " " + u, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return &domain.TransientError{Op: method + " " + u, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// mapDateRange converts the UI date window to the actor's relative-seconds
// encoding; unknown ranges submit no filter.
func mapDateRange(dateRange string) string {
	switch dateRange {
	case "last24hours", "24h":
		return "r86400"
	case "last3days", "3d":
		return "r259200"
	case "last7days", "7d":
		return "r604800"
	case "last14days", "14d":
		return "r1209600"
	case "last30days", "30d":
		return "r2592000"
	default:
		return ""
	}
}

// mapRunStatus folds vendor statuses onto the domain's terminal set.
func mapRunStatus(s string) string {
	switch strings.ToUpper(s) {
	case "SUCCEEDED":
		return domain.RunSucceeded
	case "FAILED":
		return domain.RunFailed
	case "ABORTED", "ABORTING":
		return domain.RunAborted
	case "TIMED-OUT", "TIMING-OUT":
		return domain.RunTimedOut
	default:
		return domain.RunRunning
	}
}
