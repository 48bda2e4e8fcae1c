package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"leadscout-engine/internal/config"
	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/events"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/scrape"
	"leadscout-engine/internal/store"
)

// stubSource is a canned scrape.DataSource for handler tests.
type stubSource struct {
	configured  bool
	startErr    error
	status      string
	statusErr   error
	statusCalls int
	items       []pipeline.RawItem
}

func (s *stubSource) ID() string         { return "stub" }
func (s *stubSource) IsConfigured() bool { return s.configured }

func (s *stubSource) StartRun(ctx context.Context, opts scrape.Options) (scrape.RunHandle, error) {
	if s.startErr != nil {
		return scrape.RunHandle{}, s.startErr
	}
	return scrape.RunHandle{RunID: "run-9", DatasetID: "ds-9"}, nil
}

func (s *stubSource) RunStatus(ctx context.Context, runID string) (string, error) {
	s.statusCalls++
	if s.statusErr != nil {
		return "", s.statusErr
	}
	return s.status, nil
}

func (s *stubSource) FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error) {
	if offset >= len(s.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[offset:end], nil
}

// stubProvider is a canned enrich.Provider for handler tests.
type stubProvider struct {
	id         string
	configured bool
	balance    *enrich.CreditBalance
	fail       bool
}

func (p *stubProvider) ID() string         { return p.id }
func (p *stubProvider) IsConfigured() bool { return p.configured }

func (p *stubProvider) EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error) {
	if p.fail {
		return nil, nil, errors.New("lookup failed")
	}
	return &domain.CompanyEnrichment{Industry: "Software"}, nil, nil
}

func (p *stubProvider) Credits(ctx context.Context) (*enrich.CreditBalance, error) {
	return p.balance, nil
}

func testDeps(t *testing.T, cfg config.Config, src scrape.DataSource, provider enrich.Provider) Deps {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	return Deps{
		Hub:      events.NewHub(),
		Store:    db,
		CfgVal:   &cfgVal,
		Flight:   &enrich.Flight{},
		Source:   func() scrape.DataSource { return src },
		Enricher: func() enrich.Provider { return provider },
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("bad error body %q: %v", rec.Body.String(), err)
	}
	return e.Error.Code
}

func TestScrapeStartRejectsBadRequests(t *testing.T) {
	h := ScrapeHandler{testDeps(t, config.Default(), &stubSource{configured: true}, nil)}

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/jobs/scrape", strings.NewReader("{nope")))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_json" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/jobs/scrape", strings.NewReader(`{"jobTitle":"  "}`)))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "missing_job_title" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}

func TestScrapeStartUnconfiguredSource(t *testing.T) {
	h := ScrapeHandler{testDeps(t, config.Default(), &stubSource{configured: false}, nil)}

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/jobs/scrape", strings.NewReader(`{"jobTitle":"engineer"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}
}

func TestScrapeStartOK(t *testing.T) {
	h := ScrapeHandler{testDeps(t, config.Default(), &stubSource{configured: true}, nil)}

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/jobs/scrape", strings.NewReader(`{"jobTitle":"engineer"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body=%s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["runId"] != "run-9" || body["datasetId"] != "ds-9" || body["status"] != domain.RunRunning {
		t.Fatalf("body = %v", body)
	}
}

func TestScrapePollRequiresIDs(t *testing.T) {
	h := ScrapeHandler{testDeps(t, config.Default(), &stubSource{configured: true}, nil)}

	rec := httptest.NewRecorder()
	h.Poll(rec, httptest.NewRequest("GET", "/api/jobs/scrape/poll?runId=run-9", nil))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "missing_ids" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}

func TestScrapePollRejectsBadOffset(t *testing.T) {
	src := &stubSource{configured: true}
	h := ScrapeHandler{testDeps(t, config.Default(), src, nil)}

	for _, offset := range []string{"abc", "12abc", "-1", "1.5"} {
		rec := httptest.NewRecorder()
		h.Poll(rec, httptest.NewRequest("GET", "/api/jobs/scrape/poll?runId=r&datasetId=d&offset="+offset, nil))
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_offset" {
			t.Fatalf("offset %q: code=%d body=%s", offset, rec.Code, rec.Body)
		}
	}
	if src.statusCalls != 0 {
		t.Fatalf("bad offset must not reach the source, got %d status calls", src.statusCalls)
	}
}

func TestScrapePollUpstreamError(t *testing.T) {
	src := &stubSource{configured: true, statusErr: errors.New("503 from vendor")}
	h := ScrapeHandler{testDeps(t, config.Default(), src, nil)}

	rec := httptest.NewRecorder()
	h.Poll(rec, httptest.NewRequest("GET", "/api/jobs/scrape/poll?runId=r&datasetId=d", nil))
	if rec.Code != http.StatusBadGateway || errorCode(t, rec) != "upstream_error" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}

func TestScrapePollDeliversProcessedPage(t *testing.T) {
	src := &stubSource{
		configured: true,
		status:     domain.RunSucceeded,
		items: []pipeline.RawItem{
			{JobID: "1", JobTitle: "Engineer", CompanyName: "Acme", PublishedAt: "2026-03-05T08:00:00Z"},
			{JobID: "2", JobTitle: "Designer", CompanyName: "Globex", PublishedAt: "2026-03-05T09:00:00Z"},
		},
	}
	deps := testDeps(t, config.Default(), src, nil)
	h := ScrapeHandler{deps}

	rec := httptest.NewRecorder()
	h.Poll(rec, httptest.NewRequest("GET", "/api/jobs/scrape/poll?runId=r&datasetId=d&offset=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["status"] != domain.RunSucceeded {
		t.Fatalf("status = %v", body["status"])
	}
	if body["newCount"].(float64) != 2 || body["offset"].(float64) != 2 {
		t.Fatalf("cursor = %v/%v", body["newCount"], body["offset"])
	}
	if len(body["jobs"].([]any)) != 2 {
		t.Fatalf("jobs = %v", body["jobs"])
	}

	// A succeeded poll persists dedupe keys for the next search.
	keys, err := deps.Store.PreviousDedupeKeys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("persisted keys = %d, want 2", len(keys))
	}
}

func TestScrapePollEmptyPageKeepsOffset(t *testing.T) {
	src := &stubSource{configured: true, status: domain.RunRunning}
	h := ScrapeHandler{testDeps(t, config.Default(), src, nil)}

	rec := httptest.NewRecorder()
	h.Poll(rec, httptest.NewRequest("GET", "/api/jobs/scrape/poll?runId=r&datasetId=d&offset=5", nil))
	body := decodeBody(t, rec)
	if body["offset"].(float64) != 5 || body["newCount"].(float64) != 0 {
		t.Fatalf("cursor = %v/%v", body["offset"], body["newCount"])
	}
	// jobs is always an array, never null.
	if _, ok := body["jobs"].([]any); !ok {
		t.Fatalf("jobs = %v", body["jobs"])
	}
}

func enrichBody(jobs int) string {
	var sb strings.Builder
	sb.WriteString(`{"jobs":[`)
	for i := 0; i < jobs; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"id":"j`)
		sb.WriteString(string(rune('0' + i)))
		sb.WriteString(`","title":"Engineer","company":"Acme"}`)
	}
	sb.WriteString(`]}`)
	return sb.String()
}

func TestEnrichRejectsEmptyBatch(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "mock"
	h := EnrichHandler{testDeps(t, cfg, nil, &stubProvider{id: "mock", configured: true})}

	rec := httptest.NewRecorder()
	h.Enrich(rec, httptest.NewRequest("POST", "/api/jobs/enrich", strings.NewReader(`{"jobs":[]}`)))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "empty_batch" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}

func TestEnrichProviderNone(t *testing.T) {
	cfg := config.Default() // enrichment provider defaults to none
	h := EnrichHandler{testDeps(t, cfg, nil, &stubProvider{id: "mock", configured: true})}

	rec := httptest.NewRecorder()
	h.Enrich(rec, httptest.NewRequest("POST", "/api/jobs/enrich", strings.NewReader(enrichBody(1))))
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "enrichment_not_configured" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}

func TestEnrichBudgetRejection(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "icypeas"
	provider := &stubProvider{
		id:         "icypeas",
		configured: true,
		balance:    &enrich.CreditBalance{Remaining: 2, Total: 100},
	}
	h := EnrichHandler{testDeps(t, cfg, nil, provider)}

	// 4 jobs at 1.5 credits each need 6, balance holds 2.
	rec := httptest.NewRecorder()
	h.Enrich(rec, httptest.NewRequest("POST", "/api/jobs/enrich", strings.NewReader(enrichBody(4))))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["creditsNeeded"].(float64) != 6 || body["creditsRemaining"].(float64) != 2 {
		t.Fatalf("body = %v", body)
	}
	if body["error"] == nil || body["error"] == "" {
		t.Fatal("missing error message")
	}
}

func TestEnrichMonthlyCapRejection(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "icypeas"
	cfg.Credits.MonthlyCap = 5
	provider := &stubProvider{id: "icypeas", configured: true}
	deps := testDeps(t, cfg, nil, provider)
	h := EnrichHandler{deps}

	// 4 jobs need 6 credits; the untouched cap leaves only 5.
	rec := httptest.NewRecorder()
	h.Enrich(rec, httptest.NewRequest("POST", "/api/jobs/enrich", strings.NewReader(enrichBody(4))))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}

func TestEnrichSuccess(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "icypeas"
	cfg.Enrichment.DelayMS = 1
	provider := &stubProvider{
		id:         "icypeas",
		configured: true,
		balance:    &enrich.CreditBalance{Remaining: 100, Total: 100},
	}
	deps := testDeps(t, cfg, nil, provider)
	h := EnrichHandler{deps}

	rec := httptest.NewRecorder()
	h.Enrich(rec, httptest.NewRequest("POST", "/api/jobs/enrich", strings.NewReader(enrichBody(2))))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["enrichedCount"].(float64) != 2 || body["failedCount"].(float64) != 0 {
		t.Fatalf("counts = %v/%v", body["enrichedCount"], body["failedCount"])
	}
	if body["creditsUsed"].(float64) != 3 {
		t.Fatalf("creditsUsed = %v, want 3", body["creditsUsed"])
	}
	if body["creditsRemaining"].(float64) != 97 {
		t.Fatalf("creditsRemaining = %v, want 97", body["creditsRemaining"])
	}

	// The spend lands in the monthly ledger.
	used, err := deps.Store.UsedInMonth(context.Background(), store.MonthKey(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if used != 3 {
		t.Fatalf("ledger = %v, want 3", used)
	}
}

func TestEnrichUnboundedCreditsAreNull(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "mock"
	cfg.Enrichment.DelayMS = 1
	provider := &stubProvider{id: "mock", configured: true}
	h := EnrichHandler{testDeps(t, cfg, nil, provider)}

	rec := httptest.NewRecorder()
	h.Enrich(rec, httptest.NewRequest("POST", "/api/jobs/enrich", strings.NewReader(enrichBody(1))))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["creditsRemaining"] != nil {
		t.Fatalf("creditsRemaining = %v, want null without cap or balance", body["creditsRemaining"])
	}
}

func TestCreditsGet(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "icypeas"
	cfg.Credits.MonthlyCap = 100
	provider := &stubProvider{
		id:         "icypeas",
		configured: true,
		balance:    &enrich.CreditBalance{Remaining: 42, Total: 100},
	}
	h := CreditsHandler{testDeps(t, cfg, nil, provider)}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/credits", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["provider"] != "icypeas" || body["configured"] != true {
		t.Fatalf("body = %v", body)
	}
	if body["monthlyCap"].(float64) != 100 || body["usedThisMonth"].(float64) != 0 {
		t.Fatalf("body = %v", body)
	}
	if body["level"] != "ok" {
		t.Fatalf("level = %v", body["level"])
	}
	bal := body["credits"].(map[string]any)
	if bal["remaining"].(float64) != 42 {
		t.Fatalf("credits = %v", bal)
	}
}

func TestCreditsGetNoBalance(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Provider = "crawl4ai"
	provider := &stubProvider{id: "crawl4ai", configured: true}
	h := CreditsHandler{testDeps(t, cfg, nil, provider)}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/credits", nil))
	body := decodeBody(t, rec)
	if body["credits"] != nil {
		t.Fatalf("credits = %v, want null for a provider without a credit system", body["credits"])
	}
}

func TestSecretsUnknownAccount(t *testing.T) {
	h := SecretsHandler{}

	rec := httptest.NewRecorder()
	h.Set(rec, httptest.NewRequest("POST", "/api/secrets/launch-codes", strings.NewReader(`{"value":"x"}`)))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "unknown_secret" {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest("DELETE", "/api/secrets/launch-codes", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}
