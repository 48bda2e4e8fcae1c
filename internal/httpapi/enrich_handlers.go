package httpapi

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"leadscout-engine/internal/credits"
	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/events"
	"leadscout-engine/internal/store"
)

type EnrichHandler struct {
	Deps
}

type enrichReq struct {
	Jobs []domain.Job `json:"jobs"`
}

// Enrich runs one synchronous batch. The budget check happens before any
// provider call: the batch is rejected outright when its estimate exceeds
// either the provider balance or what is left of the monthly cap.
func (h EnrichHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req enrichReq
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Jobs) == 0 {
		WriteError(w, r, http.StatusBadRequest, "empty_batch", "jobs is required and must not be empty")
		return
	}

	cfg := h.cfg()
	provider := h.Enricher()
	if provider == nil || cfg.Enrichment.Provider == "none" || !provider.IsConfigured() {
		WriteError(w, r, http.StatusServiceUnavailable, "enrichment_not_configured", "enrichment provider is not configured")
		return
	}

	needed := credits.Estimate(len(req.Jobs), provider.ID())
	remaining := math.Inf(1)

	if cfg.Credits.MonthlyCap > 0 {
		used, err := h.Store.UsedInMonth(r.Context(), store.MonthKey(time.Now()))
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		remaining = math.Min(remaining, cfg.Credits.MonthlyCap-used)
	}
	if bal, err := provider.Credits(r.Context()); err != nil {
		log.Printf("[enrich] balance check %s: %v", provider.ID(), err)
	} else if bal != nil {
		remaining = math.Min(remaining, bal.Remaining)
	}

	if needed > remaining {
		WriteJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":            (&domain.BudgetError{Remaining: remaining, Needed: needed}).Error(),
			"creditsRemaining": remaining,
			"creditsNeeded":    needed,
		})
		return
	}

	orch := enrich.New(provider, enrich.Config{
		Concurrency: cfg.Enrichment.Concurrency,
		Delay:       time.Duration(cfg.Enrichment.DelayMS) * time.Millisecond,
	})
	// A new batch supersedes the one in flight.
	ctx, done := h.Flight.Begin(r.Context())
	defer done()
	res, err := orch.EnrichAll(ctx, req.Jobs, func(p domain.BatchProgress) {
		h.Hub.Emit(events.TypeEnrichProgress, p)
	})
	switch {
	case errors.Is(err, domain.ErrCancelled):
		// Client went away mid-batch; the usage that accrued still counts.
	case errors.Is(err, domain.ErrNotConfigured):
		WriteError(w, r, http.StatusServiceUnavailable, "enrichment_not_configured", "enrichment provider is not configured")
		return
	case err != nil:
		WriteError(w, r, http.StatusBadGateway, "enrich_failed", err.Error())
		return
	}

	if res.CreditsUsed > 0 {
		// Fresh context: the ledger write must survive a client disconnect.
		uctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if uerr := h.Store.RecordUsage(uctx, provider.ID(), res.CreditsUsed, time.Now()); uerr != nil {
			log.Printf("[enrich] record usage: %v", uerr)
		}
	}
	h.Hub.Emit(events.TypeEnrichDone, domain.BatchProgress{
		Completed: len(res.Results),
		Total:     len(req.Jobs),
		Failed:    res.FailedCount,
	})

	var creditsRemaining any
	if !math.IsInf(remaining, 1) {
		creditsRemaining = remaining - res.CreditsUsed
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"results":          res.Results,
		"enrichedCount":    res.EnrichedCount,
		"failedCount":      res.FailedCount,
		"creditsUsed":      res.CreditsUsed,
		"creditsRemaining": creditsRemaining,
	})
}
