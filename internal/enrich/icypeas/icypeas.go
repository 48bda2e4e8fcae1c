// Package icypeas enriches companies via the Icypeas B2B API: a company
// scrape (0.5 credits) plus an optional domain email search (1 credit).
// Auth is the raw API key in the Authorization header, no Bearer prefix.
package icypeas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/ratelimit"
)

const defaultBaseURL = "https://app.icypeas.com/api"

const (
	pollInterval    = 2 * time.Second
	maxPollAttempts = 30
)

type Config struct {
	APIKey  string // empty means not configured
	BaseURL string // overridable for tests
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *ratelimit.HostLimiter
}

func New(cfg Config, limiter *ratelimit.HostLimiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) ID() string { return "icypeas" }

func (c *Client) IsConfigured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

type subscriptionInfo struct {
	CreditsRemaining float64 `json:"credits_remaining"`
	CreditsUsed      float64 `json:"credits_used"`
}

func (c *Client) Credits(ctx context.Context) (*enrich.CreditBalance, error) {
	var info subscriptionInfo
	u := c.cfg.BaseURL + "/a/actions/subscription-information"
	if err := c.doJSON(ctx, http.MethodPost, u, struct{}{}, &info); err != nil {
		return nil, fmt.Errorf("icypeas subscription info: %w", err)
	}
	return &enrich.CreditBalance{
		Remaining: info.CreditsRemaining,
		Total:     info.CreditsRemaining + info.CreditsUsed,
	}, nil
}

// companyData is the /scrape/company response.
type companyData struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Tagline            string   `json:"tagline"`
	Website            string   `json:"website"`
	Industry           string   `json:"industry"`
	Headquarter        string   `json:"headquarter"`
	Specialties        []string `json:"specialties"`
	EmployeeCount      int      `json:"employeeCount"`
	EmployeeCountRange string   `json:"employeeCountRange"`
	Founded            int      `json:"founded"`
	Phone              string   `json:"phone"`
}

type searchItem struct {
	ID       string `json:"_id"`
	Status   string `json:"status"`
	Fullname string `json:"fullname"`
	Emails   []struct {
		Email     string  `json:"email"`
		Certainty float64 `json:"certainty"`
	} `json:"emails"`
}

type searchResult struct {
	Success bool       `json:"success"`
	Item    searchItem `json:"item"`
}

// EnrichJob scrapes the company's LinkedIn page, then runs a domain search
// for contact emails when a website is known. A company with neither a
// LinkedIn URL nor a website yields no data.
func (c *Client) EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error) {
	var out *domain.CompanyEnrichment

	if job.CompanyLinkedIn != "" {
		raw, err := c.scrapeCompany(ctx, job.CompanyLinkedIn)
		if err != nil {
			return nil, nil, err
		}
		if raw != nil {
			out = &domain.CompanyEnrichment{
				Industry:           raw.Industry,
				EmployeeCount:      raw.EmployeeCount,
				EmployeeCountRange: normalizeEmployeeRange(raw.EmployeeCountRange),
				Headquarters:       raw.Headquarter,
				Description:        raw.Description,
				Tagline:            raw.Tagline,
				Website:            raw.Website,
				Phone:              raw.Phone,
				Specialties:        raw.Specialties,
				Founded:            raw.Founded,
			}
		}
	}

	domainOrCompany := job.CompanyURL
	if domainOrCompany == "" && out != nil {
		domainOrCompany = out.Website
	}
	var people []domain.Person
	if domainOrCompany != "" {
		found, err := c.searchDomain(ctx, domainOrCompany)
		if err != nil {
			// Domain search is best-effort once we already hold scrape data.
			if out == nil {
				return nil, nil, err
			}
		}
		if len(found) > 0 {
			if out == nil {
				out = &domain.CompanyEnrichment{Website: domainOrCompany}
			} else if out.Website == "" {
				out.Website = domainOrCompany
			}
			people = found
		}
	}

	return out, people, nil
}

func (c *Client) scrapeCompany(ctx context.Context, linkedInURL string) (*companyData, error) {
	u := c.cfg.BaseURL + "/scrape/company?url=" + url.QueryEscape(linkedInURL)
	var raw companyData
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &raw); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("icypeas company scrape: %w", err)
	}
	return &raw, nil
}

// searchDomain finds emails at a domain, polling when the search runs async.
func (c *Client) searchDomain(ctx context.Context, domainOrCompany string) ([]domain.Person, error) {
	var res searchResult
	u := c.cfg.BaseURL + "/domain-search"
	body := map[string]string{"domainOrCompany": domainOrCompany}
	if err := c.doJSON(ctx, http.MethodPost, u, body, &res); err != nil {
		return nil, fmt.Errorf("icypeas domain search: %w", err)
	}
	if !res.Success {
		return nil, nil
	}
	item := res.Item
	if item.Status != "DEBITED" {
		polled, err := c.pollResult(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if polled == nil {
			return nil, nil
		}
		item = *polled
	}

	sort.SliceStable(item.Emails, func(i, j int) bool {
		return item.Emails[i].Certainty > item.Emails[j].Certainty
	})
	people := make([]domain.Person, 0, len(item.Emails))
	for _, e := range item.Emails {
		if e.Email == "" {
			continue
		}
		people = append(people, domain.Person{Name: item.Fullname, Email: e.Email})
	}
	return people, nil
}

// pollResult waits for an async search to reach DEBITED. A search that never
// completes within the attempt budget reads as empty, not as an error.
func (c *Client) pollResult(ctx context.Context, searchID string) (*searchItem, error) {
	u := c.cfg.BaseURL + "/bulk-single-searchs/read"
	body := map[string]any{"mode": "single", "id": searchID, "limit": 1, "next": false}

	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}

		var res searchResult
		if err := c.doJSON(ctx, http.MethodPost, u, body, &res); err != nil {
			if domain.IsTransient(err) {
				continue
			}
			return nil, fmt.Errorf("icypeas poll search: %w", err)
		}
		if res.Item.Status == "DEBITED" {
			item := res.Item
			return &item, nil
		}
	}
	return nil, nil
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
	req.Header.Set("Authorization", c.cfg.APIKey)
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
		return &statusError{code: res.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// employeeRanges are the canonical size buckets; vendor strings outside the
// set pass through empty rather than inventing a bucket.
var employeeRanges = map[string]string{
	"1-10": "1-10", "2-10": "1-10",
	"11-50":       "11-50",
	"51-200":      "51-200",
	"201-500":     "201-500",
	"501-1000":    "501-1000",
	"1001-5000":   "1001-5000",
	"5001-10000":  "5001-10000",
	"10001+":      "10001+",
	"10001-50000": "10001+",
	"50001+":      "10001+",
}

func normalizeEmployeeRange(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), ",", "")
	return employeeRanges[s]
}
