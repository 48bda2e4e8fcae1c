// Package enrich orchestrates company enrichment across pluggable
// providers: batches run in fixed-size concurrent windows with a pause
// between windows so provider rate limits hold.
package enrich

import (
	"context"

	"leadscout-engine/internal/domain"
)

// CreditBalance is a provider's remaining paid quota.
type CreditBalance struct {
	Remaining float64 `json:"remaining"`
	Total     float64 `json:"total"`
}

// Provider enriches one job's company. Implementations are safe for
// concurrent use.
type Provider interface {
	ID() string
	IsConfigured() bool

	// EnrichJob looks up firmographic data for the job's company. A nil
	// CompanyEnrichment with nil error means the provider had nothing for
	// this company; that is a per-job failure, not a batch failure.
	EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error)

	// Credits returns the provider's balance, or nil when the provider has
	// no credit system (self-hosted or flat-rate).
	Credits(ctx context.Context) (*CreditBalance, error)
}
