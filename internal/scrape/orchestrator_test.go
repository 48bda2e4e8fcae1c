package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/pipeline"
)

// pollStep scripts one RunStatus+FetchPage pair of a fake run.
type pollStep struct {
	status string
	items  []pipeline.RawItem
	err    error
}

// fakeSource replays a scripted run. The final step repeats once the
// script is exhausted.
type fakeSource struct {
	mu         sync.Mutex
	steps      []pollStep
	statusCall int
	fetchCalls int
	startErr   error
	configured bool
}

func newFakeSource(steps ...pollStep) *fakeSource {
	return &fakeSource{steps: steps, configured: true}
}

func (f *fakeSource) ID() string         { return "fake" }
func (f *fakeSource) IsConfigured() bool { return f.configured }

func (f *fakeSource) StartRun(ctx context.Context, opts Options) (RunHandle, error) {
	if f.startErr != nil {
		return RunHandle{}, f.startErr
	}
	return RunHandle{RunID: "run-1", DatasetID: "ds-1"}, nil
}

func (f *fakeSource) step() pollStep {
	i := f.statusCall
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	return f.steps[i]
}

func (f *fakeSource) RunStatus(ctx context.Context, runID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.step()
	f.statusCall++
	if s.err != nil {
		return "", s.err
	}
	return s.status, nil
}

func (f *fakeSource) FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	// statusCall already advanced for this attempt.
	s := f.steps[min(f.statusCall-1, len(f.steps)-1)]
	return s.items, nil
}

func (f *fakeSource) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCall
}

func rawJob(id, company, title string) pipeline.RawItem {
	return pipeline.RawItem{JobID: id, CompanyName: company, JobTitle: title, PublishedAt: "2026-03-05T08:00:00Z"}
}

func fastConfig() Config {
	return Config{
		PollInterval:   time.Millisecond,
		MaxPollRetries: 3,
		OverallTimeout: 5 * time.Second,
		PageLimit:      100,
	}
}

func TestSearchRequiresJobTitle(t *testing.T) {
	o := New(newFakeSource(), nil, fastConfig())
	if _, err := o.Search(context.Background(), Options{JobTitle: "  "}, nil); err == nil {
		t.Fatal("expected error for empty jobTitle")
	}
}

func TestSearchUnconfiguredSource(t *testing.T) {
	src := newFakeSource()
	src.configured = false
	o := New(src, nil, fastConfig())
	_, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, nil)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSearchSubmissionFailureNotRetried(t *testing.T) {
	src := newFakeSource(pollStep{status: domain.RunSucceeded})
	src.startErr = errors.New("actor rejected input")
	o := New(src, nil, fastConfig())

	_, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, nil)
	var rfe *domain.RunFailedError
	if !errors.As(err, &rfe) {
		t.Fatalf("err = %v, want RunFailedError", err)
	}
	if src.attempts() != 0 {
		t.Fatalf("no polls should happen after submission failure, got %d", src.attempts())
	}
}

func TestSearchRecoversFromTransientPollErrors(t *testing.T) {
	boom := &domain.TransientError{Op: "poll", Err: errors.New("503")}
	src := newFakeSource(
		pollStep{err: boom},
		pollStep{err: boom},
		pollStep{status: domain.RunSucceeded, items: []pipeline.RawItem{rawJob("1", "Acme", "Engineer")}},
	)
	o := New(src, nil, fastConfig())

	jobs, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	// Two failures, one success: exactly three poll attempts.
	if got := src.attempts(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestSearchFailsAfterRetryBudget(t *testing.T) {
	boom := &domain.TransientError{Op: "poll", Err: errors.New("503")}
	src := newFakeSource(pollStep{err: boom})
	cfg := fastConfig()
	cfg.MaxPollRetries = 3
	o := New(src, nil, cfg)

	_, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, nil)
	var rfe *domain.RunFailedError
	if !errors.As(err, &rfe) {
		t.Fatalf("err = %v, want RunFailedError", err)
	}
	// The budget allows MaxPollRetries consecutive failures beyond the
	// first attempt: 4 attempts total for MaxPollRetries=3.
	if got := src.attempts(); got != cfg.MaxPollRetries+1 {
		t.Fatalf("attempts = %d, want %d", got, cfg.MaxPollRetries+1)
	}
}

func TestSearchUpstreamTerminalFailure(t *testing.T) {
	src := newFakeSource(pollStep{status: domain.RunFailed})
	o := New(src, nil, fastConfig())

	_, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, nil)
	var rfe *domain.RunFailedError
	if !errors.As(err, &rfe) {
		t.Fatalf("err = %v, want RunFailedError", err)
	}
	if rfe.Status != domain.RunFailed {
		t.Fatalf("status = %q, want %q", rfe.Status, domain.RunFailed)
	}
}

func TestSearchAccumulatesPages(t *testing.T) {
	src := newFakeSource(
		pollStep{status: domain.RunRunning, items: []pipeline.RawItem{rawJob("1", "Acme", "Engineer")}},
		pollStep{status: domain.RunRunning, items: []pipeline.RawItem{rawJob("2", "Globex", "Designer")}},
		pollStep{status: domain.RunSucceeded},
	)
	o := New(src, nil, fastConfig())

	var updates []Update
	jobs, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, func(u Update) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
	if len(updates) < 2 {
		t.Fatalf("updates = %d, want at least one per page", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Run.Offset != 2 {
		t.Fatalf("final offset = %d, want 2", last.Run.Offset)
	}
}

func TestSearchCancellation(t *testing.T) {
	src := newFakeSource(pollStep{status: domain.RunRunning})
	cfg := fastConfig()
	cfg.PollInterval = 50 * time.Millisecond
	o := New(src, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var searchErr error
	callbacks := 0
	go func() {
		defer close(done)
		_, searchErr = o.Search(ctx, Options{JobTitle: "engineer"}, func(Update) { callbacks++ })
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()
	<-done

	if !errors.Is(searchErr, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", searchErr)
	}
	attemptsAtCancel := src.attempts()
	time.Sleep(150 * time.Millisecond)
	if src.attempts() != attemptsAtCancel {
		t.Fatal("source polled after cancellation")
	}
	if callbacks != 0 {
		// RunRunning with no items never fires the callback.
		t.Fatalf("callbacks = %d, want 0", callbacks)
	}
}

func TestSearchOverallTimeout(t *testing.T) {
	src := newFakeSource(pollStep{status: domain.RunRunning})
	cfg := fastConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.OverallTimeout = 30 * time.Millisecond
	o := New(src, nil, cfg)

	_, err := o.Search(context.Background(), Options{JobTitle: "engineer"}, nil)
	var rfe *domain.RunFailedError
	if !errors.As(err, &rfe) {
		t.Fatalf("err = %v, want RunFailedError for deadline", err)
	}
	if errors.Is(err, domain.ErrCancelled) {
		t.Fatal("timeout must not read as user cancellation")
	}
}

func TestSearchRecruiterAndCompanyFilters(t *testing.T) {
	src := newFakeSource(pollStep{
		status: domain.RunSucceeded,
		items: []pipeline.RawItem{
			rawJob("1", "Acme", "Engineer"),
			rawJob("2", "Hays Recruitment", "Engineer"),
			rawJob("3", "Initech", "Engineer"),
		},
	})
	o := New(src, nil, fastConfig())

	jobs, err := o.Search(context.Background(), Options{
		JobTitle:          "engineer",
		ExcludeRecruiters: true,
		ExcludeCompanies:  []string{"initech"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Company != "Acme" {
		t.Fatalf("jobs = %+v, want only Acme", jobs)
	}
}
