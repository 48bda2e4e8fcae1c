package scrape

import (
	"context"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/pipeline"
)

// Options are the query parameters submitted when a scrape run starts.
type Options struct {
	JobTitle            string   `json:"jobTitle"`
	Location            string   `json:"location,omitempty"`
	DateRange           string   `json:"dateRange,omitempty"`
	MaxResults          int      `json:"maxResults,omitempty"`
	CompanySizes        []string `json:"companySizes,omitempty"`
	ExcludeRecruiters   bool     `json:"excludeRecruiters,omitempty"`
	ExcludeCompanies    []string `json:"excludeCompanies,omitempty"`
	MustContainKeywords []string `json:"mustContainKeywords,omitempty"`
}

// RunHandle identifies one submitted run and its result dataset.
type RunHandle struct {
	RunID     string `json:"runId"`
	DatasetID string `json:"datasetId"`
}

// DataSource is the generic remote scraper contract: submit a job, poll its
// status, fetch incremental dataset pages. Concrete sources only differ in
// how they talk to their backend; the orchestrator never branches on
// source identity.
type DataSource interface {
	ID() string
	IsConfigured() bool
	StartRun(ctx context.Context, opts Options) (RunHandle, error)
	// RunStatus returns one of the domain.Run* status values.
	RunStatus(ctx context.Context, runID string) (string, error)
	// FetchPage returns up to limit items starting at offset. The offset is
	// a monotonic cursor owned by the caller.
	FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error)
}

// KeyStore is the persistence boundary the orchestrator needs: dedupe keys
// seen by prior searches, and recording the keys of a finished one. The
// storage mechanism behind it is not the pipeline's concern.
type KeyStore interface {
	PreviousDedupeKeys(ctx context.Context) (map[string]struct{}, error)
	PersistResults(ctx context.Context, jobs []domain.Job) error
}
