package enrich

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"leadscout-engine/internal/credits"
	"leadscout-engine/internal/domain"
)

type Config struct {
	// Concurrency is the window size: how many jobs enrich in parallel.
	Concurrency int
	// Delay is the pause between windows.
	Delay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Delay <= 0 {
		c.Delay = 500 * time.Millisecond
	}
	return c
}

// Result is the outcome of one batch. Results holds one entry per input
// job in input order, including per-job failures.
type Result struct {
	Results       []domain.EnrichedJob `json:"results"`
	EnrichedCount int                  `json:"enrichedCount"`
	FailedCount   int                  `json:"failedCount"`
	CreditsUsed   float64              `json:"creditsUsed"`
}

// ProgressFunc observes cumulative batch counters after each window.
type ProgressFunc func(domain.BatchProgress)

type Orchestrator struct {
	provider Provider
	cfg      Config
	now      func() time.Time
}

func New(provider Provider, cfg Config) *Orchestrator {
	return &Orchestrator{provider: provider, cfg: cfg.withDefaults(), now: time.Now}
}

func (o *Orchestrator) Provider() Provider { return o.provider }

// EnrichAll enriches jobs in windows of Concurrency. A job whose lookup
// errors or comes back empty still yields an attempted EnrichedJob with no
// company data; only cancellation aborts the batch, returning the windows
// finished so far alongside ErrCancelled.
func (o *Orchestrator) EnrichAll(ctx context.Context, jobs []domain.Job, onProgress ProgressFunc) (Result, error) {
	res := Result{Results: make([]domain.EnrichedJob, 0, len(jobs))}
	if len(jobs) == 0 {
		return res, nil
	}
	if o.provider == nil || !o.provider.IsConfigured() {
		return res, domain.ErrNotConfigured
	}

	log.Printf("[enrich] batch start provider=%s jobs=%d concurrency=%d",
		o.provider.ID(), len(jobs), o.cfg.Concurrency)

	for start := 0; start < len(jobs); start += o.cfg.Concurrency {
		end := start + o.cfg.Concurrency
		if end > len(jobs) {
			end = len(jobs)
		}
		window := jobs[start:end]
		out := make([]domain.EnrichedJob, len(window))

		g, gctx := errgroup.WithContext(ctx)
		for i, job := range window {
			i, job := i, job
			g.Go(func() error {
				out[i] = o.enrichOne(gctx, job)
				return gctx.Err()
			})
		}
		err := g.Wait()
		res.Results = append(res.Results, out...)
		for _, ej := range out {
			if ej.CompanyData != nil {
				res.EnrichedCount++
				res.CreditsUsed += credits.Estimate(1, o.provider.ID())
			} else {
				res.FailedCount++
			}
		}
		if err != nil {
			return res, cancelErr(err)
		}

		if onProgress != nil {
			onProgress(domain.BatchProgress{
				Completed: len(res.Results),
				Total:     len(jobs),
				Failed:    res.FailedCount,
			})
		}

		if end < len(jobs) {
			select {
			case <-ctx.Done():
				return res, cancelErr(ctx.Err())
			case <-time.After(o.cfg.Delay):
			}
		}
	}

	log.Printf("[enrich] batch done provider=%s enriched=%d failed=%d credits=%.1f",
		o.provider.ID(), res.EnrichedCount, res.FailedCount, res.CreditsUsed)
	return res, nil
}

func (o *Orchestrator) enrichOne(ctx context.Context, job domain.Job) domain.EnrichedJob {
	ej := domain.EnrichedJob{Job: job, Enriched: true, EnrichedAt: o.now().UTC()}

	data, people, err := o.provider.EnrichJob(ctx, job)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[enrich] job=%s company=%q: %v", job.ID, job.Company, err)
		}
		return ej
	}
	if data != nil {
		data.Source = o.provider.ID()
		if data.EnrichedAt.IsZero() {
			data.EnrichedAt = ej.EnrichedAt
		}
		ej.CompanyData = data
	}
	ej.DecisionMakers = people
	return ej
}

func cancelErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return domain.ErrCancelled
	}
	return err
}
