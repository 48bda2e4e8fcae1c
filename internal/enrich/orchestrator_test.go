package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"leadscout-engine/internal/domain"
)

// scriptedProvider is a deterministic in-process provider for batch tests.
type scriptedProvider struct {
	mu         sync.Mutex
	id         string
	configured bool
	calls      int
	failFor    map[string]bool // company -> per-job failure
	latency    time.Duration
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{id: "scripted", configured: true, failFor: map[string]bool{}}
}

func (p *scriptedProvider) ID() string         { return p.id }
func (p *scriptedProvider) IsConfigured() bool { return p.configured }

func (p *scriptedProvider) EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error) {
	p.mu.Lock()
	p.calls++
	fail := p.failFor[job.Company]
	p.mu.Unlock()

	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(p.latency):
		}
	}
	if fail {
		return nil, nil, errors.New("lookup failed")
	}
	return &domain.CompanyEnrichment{
		Industry: "Software",
		Website:  "https://" + strings.ToLower(job.Company) + ".example.com",
	}, []domain.Person{{Name: "Alex Morgan", Title: "CEO"}}, nil
}

func (p *scriptedProvider) Credits(ctx context.Context) (*CreditBalance, error) {
	return &CreditBalance{Remaining: 100, Total: 100}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func batchJobs(n int) []domain.Job {
	jobs := make([]domain.Job, n)
	for i := range jobs {
		jobs[i] = domain.Job{
			ID:      fmt.Sprintf("job-%d", i),
			Title:   "Engineer",
			Company: fmt.Sprintf("Company%d", i),
		}
	}
	return jobs
}

func fastEnrichConfig() Config {
	return Config{Concurrency: 3, Delay: time.Millisecond}
}

func TestEnrichAllEmptyBatch(t *testing.T) {
	p := newScriptedProvider()
	o := New(p, fastEnrichConfig())
	res, err := o.EnrichAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 0 || p.callCount() != 0 {
		t.Fatalf("empty batch must not touch the provider: %+v calls=%d", res, p.callCount())
	}
}

func TestEnrichAllUnconfigured(t *testing.T) {
	p := newScriptedProvider()
	p.configured = false
	o := New(p, fastEnrichConfig())
	_, err := o.EnrichAll(context.Background(), batchJobs(2), nil)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestEnrichAllNilProvider(t *testing.T) {
	o := New(nil, fastEnrichConfig())
	_, err := o.EnrichAll(context.Background(), batchJobs(1), nil)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestEnrichAllWindowsAndOrder(t *testing.T) {
	p := newScriptedProvider()
	o := New(p, fastEnrichConfig())
	jobs := batchJobs(7)

	var progress []domain.BatchProgress
	res, err := o.EnrichAll(context.Background(), jobs, func(bp domain.BatchProgress) {
		progress = append(progress, bp)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 7 || res.EnrichedCount != 7 || res.FailedCount != 0 {
		t.Fatalf("res = %+v", res)
	}
	// Input order survives the parallel windows.
	for i, ej := range res.Results {
		if ej.Job.ID != jobs[i].ID {
			t.Fatalf("result %d is %s, want %s", i, ej.Job.ID, jobs[i].ID)
		}
		if !ej.Enriched || ej.CompanyData == nil {
			t.Fatalf("result %d not enriched: %+v", i, ej)
		}
		if ej.CompanyData.Source != "scripted" {
			t.Fatalf("result %d source = %q", i, ej.CompanyData.Source)
		}
		if ej.EnrichedAt.IsZero() {
			t.Fatalf("result %d has no enrichment timestamp", i)
		}
	}
	// Three windows of 3, 3, 1: one progress event each, cumulative.
	want := []int{3, 6, 7}
	if len(progress) != len(want) {
		t.Fatalf("progress events = %d, want %d", len(progress), len(want))
	}
	for i, bp := range progress {
		if bp.Completed != want[i] || bp.Total != 7 || bp.Failed != 0 {
			t.Fatalf("progress %d = %+v", i, bp)
		}
	}
}

func TestEnrichAllPerJobFailureDoesNotAbort(t *testing.T) {
	p := newScriptedProvider()
	p.failFor["Company1"] = true
	o := New(p, fastEnrichConfig())

	res, err := o.EnrichAll(context.Background(), batchJobs(4), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.EnrichedCount != 3 || res.FailedCount != 1 {
		t.Fatalf("counts = %d/%d, want 3/1", res.EnrichedCount, res.FailedCount)
	}
	failed := res.Results[1]
	if !failed.Enriched {
		t.Fatal("a failed lookup is still an attempt")
	}
	if failed.CompanyData != nil {
		t.Fatalf("failed lookup must carry no company data: %+v", failed.CompanyData)
	}
}

func TestEnrichAllCreditsAccounting(t *testing.T) {
	p := newScriptedProvider()
	p.id = "icypeas"
	p.failFor["Company2"] = true
	o := New(p, fastEnrichConfig())

	res, err := o.EnrichAll(context.Background(), batchJobs(4), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Only lookups that returned data are charged: 3 x 1.5.
	if res.CreditsUsed != 4.5 {
		t.Fatalf("creditsUsed = %v, want 4.5", res.CreditsUsed)
	}
}

func TestEnrichAllCancellationReturnsPartial(t *testing.T) {
	p := newScriptedProvider()
	p.latency = 20 * time.Millisecond
	cfg := Config{Concurrency: 2, Delay: 200 * time.Millisecond}
	o := New(p, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Cancel during the pause after the first window.
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	res, err := o.EnrichAll(ctx, batchJobs(6), nil)
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if len(res.Results) == 0 || len(res.Results) >= 6 {
		t.Fatalf("partial results = %d, want some but not all", len(res.Results))
	}
	if len(res.Results)%cfg.Concurrency != 0 {
		t.Fatalf("results = %d, want whole windows only", len(res.Results))
	}
}
