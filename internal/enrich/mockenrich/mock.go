// Package mockenrich is a zero-cost enrichment provider for local
// development and tests. Data is deterministic per company name.
package mockenrich

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/enrich"
)

type Provider struct {
	// Err, when set, fails every EnrichJob call. Test hook.
	Err error
	// Latency delays each call to exercise concurrency paths.
	Latency time.Duration
}

func New() *Provider { return &Provider{} }

func (p *Provider) ID() string { return "mock" }

func (p *Provider) IsConfigured() bool { return true }

func (p *Provider) Credits(ctx context.Context) (*enrich.CreditBalance, error) {
	return &enrich.CreditBalance{Remaining: 1000, Total: 1000}, nil
}

var industries = []string{"Software Development", "Financial Services", "Healthcare", "Logistics", "Consumer Goods"}

var sizeRanges = []string{"1-10", "11-50", "51-200", "201-500", "501-1000"}

func (p *Provider) EnrichJob(ctx context.Context, job domain.Job) (*domain.CompanyEnrichment, []domain.Person, error) {
	if p.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(p.Latency):
		}
	}
	if p.Err != nil {
		return nil, nil, p.Err
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(job.Company)))
	seed := h.Sum32()

	slug := strings.ReplaceAll(strings.ToLower(job.Company), " ", "")
	ce := &domain.CompanyEnrichment{
		Industry:           industries[seed%uint32(len(industries))],
		EmployeeCount:      int(seed%900) + 10,
		EmployeeCountRange: sizeRanges[seed%uint32(len(sizeRanges))],
		Headquarters:       "Springfield, USA",
		Description:        fmt.Sprintf("%s builds tools for its industry.", job.Company),
		Website:            "https://" + slug + ".example.com",
		Founded:            2000 + int(seed%24),
	}
	people := []domain.Person{{
		Name:  "Alex Morgan",
		Title: "Head of Engineering",
		Email: "alex@" + slug + ".example.com",
	}}
	return ce, people, nil
}
