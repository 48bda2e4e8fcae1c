// Package mocksource is a deterministic in-process data source for local
// development and tests. Runs complete after a configurable number of
// status polls so the polling path gets exercised without a network.
package mocksource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/scrape"
)

type run struct {
	items     []pipeline.RawItem
	pollsLeft int
}

type Source struct {
	// PollsUntilDone is how many RunStatus calls report RUNNING before the
	// run succeeds. Zero means the first poll already sees SUCCEEDED.
	PollsUntilDone int

	mu   sync.Mutex
	runs map[string]*run
}

func New() *Source {
	return &Source{PollsUntilDone: 1, runs: make(map[string]*run)}
}

func (s *Source) ID() string { return "mock" }

func (s *Source) IsConfigured() bool { return true }

func (s *Source) StartRun(ctx context.Context, opts scrape.Options) (scrape.RunHandle, error) {
	n := opts.MaxResults
	if n <= 0 || n > 25 {
		n = 8
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.runs[id] = &run{items: sampleItems(opts, n), pollsLeft: s.PollsUntilDone}
	s.mu.Unlock()
	return scrape.RunHandle{RunID: id, DatasetID: id}, nil
}

func (s *Source) RunStatus(ctx context.Context, runID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return domain.RunFailed, nil
	}
	if r.pollsLeft > 0 {
		r.pollsLeft--
		return domain.RunRunning, nil
	}
	return domain.RunSucceeded, nil
}

func (s *Source) FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[datasetID]
	if !ok {
		return nil, fmt.Errorf("mocksource: unknown dataset %q", datasetID)
	}
	if offset < 0 || offset >= len(r.items) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(r.items) {
		end = len(r.items)
	}
	return r.items[offset:end], nil
}

var sampleCompanies = []string{
	"Northwind Labs", "Acme Analytics", "Bluefin Systems", "Helix Software",
	"Beacon Data", "Hays Recruitment", "Quarry Cloud", "Lumen Robotics",
}

var sampleLocations = []string{"Remote", "New York, NY", "Austin, TX", "London, UK"}

func sampleItems(opts scrape.Options, n int) []pipeline.RawItem {
	title := opts.JobTitle
	if title == "" {
		title = "Software Engineer"
	}
	day := time.Now().UTC()
	items := make([]pipeline.RawItem, 0, n)
	for i := 0; i < n; i++ {
		company := sampleCompanies[i%len(sampleCompanies)]
		items = append(items, pipeline.RawItem{
			JobID:          fmt.Sprintf("mock-%03d", i+1),
			JobTitle:       fmt.Sprintf("%s %d", title, i+1),
			CompanyName:    company,
			Location:       sampleLocations[i%len(sampleLocations)],
			PublishedAt:    day.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
			JobURL:         fmt.Sprintf("https://example.com/jobs/%d?utm_source=mock", i+1),
			Description:    fmt.Sprintf("%s role at %s working on data pipelines.", title, company),
			Salary:         pipeline.FlexStrings{fmt.Sprintf("%d", 60000+i*5000), fmt.Sprintf("%d", 80000+i*5000)},
			ApplicantCount: pipeline.FlexCount(3 * (i + 1)),
		})
	}
	return items
}
