// Package crawl4ai enriches companies by crawling their website through a
// self-hosted Crawl4AI sidecar. No credit system; the only cost is the
// sidecar's own browser time.
package crawl4ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/ratelimit"
)

const defaultBaseURL = "http://localhost:11235"

type Config struct {
	BaseURL  string
	APIToken string // optional Bearer token for a secured sidecar
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
		hc:      &http.Client{Timeout: 45 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) ID() string { return "crawl4ai" }

// IsConfigured checks the sidecar's health endpoint. An unreachable sidecar
// reads as unconfigured so callers get the configuration error path instead
// of per-job crawl failures.
func (c *Client) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return res.StatusCode == http.StatusOK
}

// Credits returns nil: crawling is free.
func (c *Client) Credits(ctx context.Context) (*enrich.CreditBalance, error) {
	return nil, nil
}

type crawlResult struct {
	URL          string `json:"url"`
	CleanedHTML  string `json:"cleaned_html"`
	Markdown     string `json:"markdown"`
	Success      bool   `json:"success"`
	StatusCode   int    `json:"status_code"`
	ErrorMessage string `json:"error_message"`
}

// EnrichJob crawls the company's website (falling back to its LinkedIn
// page) and extracts description, tagline, phone, headquarters and a tech
// stack from the page content.
func (c *Client) EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error) {
	target := job.CompanyURL
	if target == "" {
		target = job.CompanyLinkedIn
	}
	if target == "" {
		return nil, nil, nil
	}
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}

	res, err := c.crawl(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	if !res.Success {
		msg := res.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("crawl failed with status %d", res.StatusCode)
		}
		return nil, nil, fmt.Errorf("crawl4ai: %s", msg)
	}

	ce := extractCompany(res, target)
	if ce == nil {
		return nil, nil, nil
	}
	return ce, nil, nil
}

func (c *Client) crawl(ctx context.Context, target string) (*crawlResult, error) {
	if err := c.limiter.WaitURL(ctx, target); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"urls": []string{target},
		"browser_config": map[string]any{
			"headless":        true,
			"viewport_width":  1280,
			"viewport_height": 720,
		},
		"crawler_config": map[string]any{
			"cache_mode":              "ENABLED",
			"wait_for":                "networkidle",
			"remove_overlay_elements": true,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/crawl", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Op: "POST " + c.cfg.BaseURL + "/crawl", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("crawl4ai status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	// The sidecar returns an array for multi-URL crawls and sometimes wraps
	// a single result in {"result": {...}}.
	raw, err := io.ReadAll(io.LimitReader(res.Body, 20<<20))
	if err != nil {
		return nil, err
	}
	var many []crawlResult
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return &many[0], nil
	}
	var wrapped struct {
		Result *crawlResult `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Result != nil {
		return wrapped.Result, nil
	}
	var one crawlResult
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("crawl4ai decode response: %w", err)
	}
	return &one, nil
}

func extractCompany(res *crawlResult, website string) *domain.CompanyEnrichment {
	ce := &domain.CompanyEnrichment{Website: website}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.CleanedHTML)); err == nil {
		ce.Description = extractDescription(doc)
		ce.Tagline = extractTagline(doc)
	}
	ce.Technologies = extractTechnologies(res.Markdown)
	ce.Phone = rePhone.FindString(res.Markdown)
	ce.Headquarters = extractHeadquarters(res.Markdown)

	if ce.Description == "" && ce.Tagline == "" && len(ce.Technologies) == 0 &&
		ce.Phone == "" && ce.Headquarters == "" {
		return nil
	}
	return ce
}

var reAboutHeading = regexp.MustCompile(`(?i)^\s*(about(\s+us)?|who\s+we\s+are|our\s+(mission|story|company))\s*$`)

// extractDescription prefers the paragraph following an About-style
// heading, falling back to the first substantial paragraph on the page.
func extractDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("h1,h2,h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !reAboutHeading.MatchString(pipeline.CleanText(h.Text())) {
			return true
		}
		if t := pipeline.CleanText(h.NextAllFiltered("p").First().Text()); len(t) > 40 {
			desc = t
			return false
		}
		return true
	})
	if desc == "" {
		doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if t := pipeline.CleanText(p.Text()); len(t) > 80 {
				desc = t
				return false
			}
			return true
		})
	}
	return clipSentence(desc, 500)
}

// extractTagline takes the meta description when present, else the first
// short non-heading line of the page.
func extractTagline(doc *goquery.Document) string {
	if meta, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if t := pipeline.CleanText(meta); len(t) >= 20 {
			return clipSentence(t, 150)
		}
	}
	var tagline string
	doc.Find("p,span").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= 10 {
			return false
		}
		t := pipeline.CleanText(s.Text())
		if len(t) >= 20 && len(t) <= 150 {
			tagline = t
			return false
		}
		return true
	})
	return tagline
}

// clipSentence truncates to max chars, backing up to the last full sentence
// when one exists reasonably far in.
func clipSentence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	if i := strings.LastIndex(s, "."); i > max/4 {
		return s[:i+1]
	}
	return s
}

var rePhone = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)

var reHeadquarters = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:based|headquartered|located)\s+in\s+([A-Z][a-zA-Z\s,]+?(?:,\s*[A-Z]{2})?)(?:[.\n]|$)`),
	regexp.MustCompile(`(?i)(?:headquarters?|office|address)\s*:\s*([A-Z][a-zA-Z0-9\s,]+?(?:,\s*[A-Z]{2})?)(?:[.\n]|$)`),
}

func extractHeadquarters(markdown string) string {
	for _, re := range reHeadquarters {
		if m := re.FindStringSubmatch(markdown); len(m) == 2 {
			loc := strings.TrimSpace(m[1])
			if len(loc) > 3 && len(loc) < 100 {
				return loc
			}
		}
	}
	return ""
}

// techKeywords is the canonical spelling list scanned for in page content.
var techKeywords = []string{
	"JavaScript", "TypeScript", "Python", "Java", "Go", "Rust", "Ruby",
	"PHP", "C++", "C#", "Swift", "Kotlin", "Scala", "Elixir",
	"React", "Angular", "Vue.js", "Next.js", "Svelte", "Tailwind",
	"Node.js", "Django", "Flask", "Spring", "Rails", "Express",
	"FastAPI", "GraphQL", "REST API",
	"AWS", "Azure", "Google Cloud", "GCP", "Kubernetes", "Docker",
	"Terraform", "Vercel", "Netlify", "Heroku",
	"PostgreSQL", "MongoDB", "Redis", "Elasticsearch", "MySQL",
	"DynamoDB", "Snowflake", "BigQuery", "Kafka", "RabbitMQ",
	"Machine Learning", "Deep Learning", "TensorFlow", "PyTorch",
	"OpenAI", "LLM", "GPT", "Computer Vision", "NLP",
	"Blockchain", "IoT", "Microservices", "CI/CD", "DevOps",
}

var techPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(techKeywords))
	for i, kw := range techKeywords {
		out[i] = regexp.MustCompile(`(?i)(^|[^a-zA-Z0-9])` + regexp.QuoteMeta(kw) + `($|[^a-zA-Z0-9+#])`)
	}
	return out
}()

func extractTechnologies(markdown string) []string {
	var found []string
	for i, re := range techPatterns {
		if re.MatchString(markdown) {
			found = append(found, techKeywords[i])
		}
	}
	return found
}
