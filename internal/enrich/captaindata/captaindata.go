// Package captaindata enriches companies via the Captain Data v1 company
// enrich endpoint. Billing is subscription-based, so lookups carry no
// per-job credit cost and no balance is exposed. Auth is the API key in
// the X-API-Key header.
package captaindata

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

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/ratelimit"
)

const defaultBaseURL = "https://api.captaindata.com/v1"

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

func (c *Client) ID() string { return "captain-data" }

func (c *Client) IsConfigured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// Credits always reports no balance: Captain Data has no credit endpoint,
// usage is tracked on their dashboard only.
func (c *Client) Credits(ctx context.Context) (*enrich.CreditBalance, error) {
	return nil, nil
}

// companyData is the /companies/enrich response.
type companyData struct {
	Industry        string    `json:"industry"`
	NumberEmployees string    `json:"number_employees"`
	Headquarters    string    `json:"headquarters"`
	Description     string    `json:"description"`
	Tagline         string    `json:"tagline"`
	Website         string    `json:"website"`
	Phone           string    `json:"phone"`
	Specialties     []string  `json:"specialties"`
	TechStack       []string  `json:"tech_stack"`
	FundingStage    string    `json:"funding_stage"`
	RevenueRange    string    `json:"revenue_range"`
	FoundedDate     yearValue `json:"founded_date"`
}

// yearValue tolerates founded_date arriving as either a number or a string.
type yearValue int

func (y *yearValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*y = 0
		return nil
	}
	*y = yearValue(n)
	return nil
}

// EnrichJob enriches by LinkedIn company URL, website domain or company
// name, in that order of reliability. A job carrying none of the three
// yields no data; so does a 404 from the API. Contacts are never returned,
// the endpoint is firmographics only.
func (c *Client) EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error) {
	params := url.Values{}
	if job.CompanyLinkedIn != "" {
		params.Set("li_company_url", job.CompanyLinkedIn)
	}
	if job.CompanyURL != "" {
		params.Set("domain", job.CompanyURL)
	}
	if job.Company != "" {
		params.Set("company_name", job.Company)
	}
	if len(params) == 0 {
		return nil, nil, nil
	}

	u := c.cfg.BaseURL + "/companies/enrich?" + params.Encode()
	var raw companyData
	if err := c.doJSON(ctx, u, &raw); err != nil {
		if isNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("captain data company enrich: %w", err)
	}

	out := &domain.CompanyEnrichment{
		Industry:           raw.Industry,
		EmployeeCount:      rangeMidpoint(raw.NumberEmployees),
		EmployeeCountRange: raw.NumberEmployees,
		Headquarters:       raw.Headquarters,
		Description:        raw.Description,
		Tagline:            raw.Tagline,
		Website:            raw.Website,
		Phone:              raw.Phone,
		Specialties:        raw.Specialties,
		Technologies:       raw.TechStack,
		FundingStage:       raw.FundingStage,
		Revenue:            raw.RevenueRange,
		Founded:            int(raw.FoundedDate),
	}
	return out, nil, nil
}

func (c *Client) doJSON(ctx context.Context, u string, out any) error {
	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	res, err := c.hc.Do(req)
	if err != nil {
		return &domain.TransientError{Op: "GET " + u, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return &domain.TransientError{Op: "GET " + u, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &statusError{code: res.StatusCode, body: strings.TrimSpace(string(msg))}
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

// rangeMidpoints maps the vendor's size buckets to a representative head
// count. Unknown buckets read as 0 rather than a guess.
var rangeMidpoints = map[string]int{
	"1-10":       5,
	"11-50":      30,
	"51-200":     125,
	"201-500":    350,
	"501-1000":   750,
	"1001-5000":  3000,
	"5001-10000": 7500,
	"10001+":     15000,
}

func rangeMidpoint(s string) int {
	return rangeMidpoints[strings.ReplaceAll(s, " ", "")]
}
