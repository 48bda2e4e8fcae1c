package scrape

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/filter"
	"leadscout-engine/internal/pipeline"
)

// Config tunes one orchestrator. Zero values fall back to defaults.
type Config struct {
	PollInterval   time.Duration // base wait between poll attempts
	MaxPollRetries int           // consecutive transient failures tolerated
	OverallTimeout time.Duration // wall-clock ceiling for one whole run
	PageLimit      int           // max items per dataset fetch
}

const (
	defaultPollInterval   = 2 * time.Second
	defaultMaxPollRetries = 3
	defaultOverallTimeout = 5 * time.Minute
	defaultPageLimit      = 100
)

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxPollRetries <= 0 {
		c.MaxPollRetries = defaultMaxPollRetries
	}
	if c.OverallTimeout <= 0 {
		c.OverallTimeout = defaultOverallTimeout
	}
	if c.PageLimit <= 0 {
		c.PageLimit = defaultPageLimit
	}
	return c
}

// Update is one incremental snapshot emitted while a run is polling: the
// cursor state plus the full accumulated, post-processed job set so far.
type Update struct {
	Run      domain.ScrapeRun
	Jobs     []domain.Job
	NewCount int
}

// Orchestrator drives one scrape run to completion: submit, poll on an
// interval, stream growing results through the post-processing pipeline.
type Orchestrator struct {
	src  DataSource
	keys KeyStore // optional
	cfg  Config
	now  func() time.Time
}

func New(src DataSource, keys KeyStore, cfg Config) *Orchestrator {
	return &Orchestrator{
		src:  src,
		keys: keys,
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
}

// Search runs the full Starting → Polling → terminal cycle. onUpdate (may
// be nil) fires after every page with the growing normalized set; it never
// fires after ctx is cancelled. On success the accumulated set is returned
// and its dedupe keys persisted. Cancellation surfaces domain.ErrCancelled,
// never a generic failure.
func (o *Orchestrator) Search(ctx context.Context, opts Options, onUpdate func(Update)) ([]domain.Job, error) {
	if strings.TrimSpace(opts.JobTitle) == "" {
		return nil, errors.New("jobTitle is required")
	}
	if !o.src.IsConfigured() {
		return nil, domain.ErrNotConfigured
	}

	prevKeys := o.previousKeys(ctx)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	// Starting: a bad submission will not self-correct, so no retry here.
	handle, err := o.src.StartRun(ctx, opts)
	if err != nil {
		if cerr := cancelErr(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, &domain.RunFailedError{Reason: "submission failed: " + err.Error()}
	}
	log.Printf("[scrape:%s] run started run_id=%s dataset_id=%s query=%q",
		o.src.ID(), handle.RunID, handle.DatasetID, opts.JobTitle)

	run := domain.ScrapeRun{
		RunID:     handle.RunID,
		DatasetID: handle.DatasetID,
		Status:    domain.RunRunning,
	}

	var (
		raw        []pipeline.RawItem
		jobs       []domain.Job
		consecErrs int
	)

	for {
		// Stretch the wait while errors accumulate.
		wait := o.cfg.PollInterval * time.Duration(consecErrs+1)
		select {
		case <-ctx.Done():
			return nil, cancelErr(ctx)
		case <-time.After(wait):
		}

		status, items, perr := o.pollOnce(ctx, handle, run.Offset)
		if perr != nil {
			if cerr := cancelErr(ctx); cerr != nil {
				return nil, cerr
			}
			consecErrs++
			log.Printf("[scrape:%s] poll error (%d consecutive): %v", o.src.ID(), consecErrs, perr)
			if consecErrs > o.cfg.MaxPollRetries {
				return nil, &domain.RunFailedError{
					RunID:  handle.RunID,
					Reason: "poll retries exhausted: " + perr.Error(),
				}
			}
			continue
		}
		consecErrs = 0

		if len(items) > 0 {
			raw = append(raw, items...)
			run.Offset += len(items)
			jobs = pipeline.Process(pipeline.TransformAll(raw, o.now()), prevKeys)
			jobs = filter.Apply(jobs, filter.Options{
				ExcludeRecruiters:   opts.ExcludeRecruiters,
				ExcludeCompanies:    opts.ExcludeCompanies,
				MustContainKeywords: opts.MustContainKeywords,
			})
		}

		if onUpdate != nil && (len(items) > 0 || status != domain.RunRunning) {
			if ctx.Err() != nil {
				return nil, cancelErr(ctx)
			}
			run.Status = status
			onUpdate(Update{Run: run, Jobs: jobs, NewCount: len(items)})
		}

		switch status {
		case domain.RunSucceeded:
			if len(items) == o.cfg.PageLimit {
				// Full page: the dataset may hold more; drain before finishing.
				continue
			}
			o.persistKeys(jobs)
			log.Printf("[scrape:%s] run succeeded run_id=%s jobs=%d", o.src.ID(), handle.RunID, len(jobs))
			return jobs, nil
		case domain.RunFailed, domain.RunAborted, domain.RunTimedOut:
			return nil, &domain.RunFailedError{RunID: handle.RunID, Status: status, Reason: "upstream terminal status"}
		}
	}
}

// pollOnce is one poll attempt: run status plus the next unseen page.
func (o *Orchestrator) pollOnce(ctx context.Context, handle RunHandle, offset int) (string, []pipeline.RawItem, error) {
	status, err := o.src.RunStatus(ctx, handle.RunID)
	if err != nil {
		return "", nil, err
	}
	items, err := o.src.FetchPage(ctx, handle.DatasetID, offset, o.cfg.PageLimit)
	if err != nil {
		return "", nil, err
	}
	return status, items, nil
}

func (o *Orchestrator) previousKeys(ctx context.Context) map[string]struct{} {
	if o.keys == nil {
		return nil
	}
	keys, err := o.keys.PreviousDedupeKeys(ctx)
	if err != nil {
		log.Printf("[scrape:%s] previous dedupe keys unavailable: %v", o.src.ID(), err)
		return nil
	}
	return keys
}

func (o *Orchestrator) persistKeys(jobs []domain.Job) {
	if o.keys == nil || len(jobs) == 0 {
		return
	}
	// Fresh context: the run context may be moments from its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.keys.PersistResults(ctx, jobs); err != nil {
		log.Printf("[scrape:%s] persist dedupe keys: %v", o.src.ID(), err)
	}
}

// cancelErr maps context termination onto the error taxonomy: a user cancel
// is domain.ErrCancelled, the wall-clock ceiling is a terminal run failure.
func cancelErr(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.ErrCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.RunFailedError{Reason: "overall scrape deadline exceeded"}
	default:
		return nil
	}
}
