package httpapi

import (
	"log"
	"net/http"
	"time"

	"leadscout-engine/internal/credits"
	"leadscout-engine/internal/store"
)

type CreditsHandler struct {
	Deps
}

// Get reports the enrichment provider's balance alongside the engine's own
// monthly ledger. credits is null for providers without a credit system.
func (h CreditsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg()
	provider := h.Enricher()

	providerID := cfg.Enrichment.Provider
	configured := provider != nil && provider.IsConfigured()

	var creditsOut any
	if configured {
		bal, err := provider.Credits(r.Context())
		if err != nil {
			log.Printf("[credits] balance check %s: %v", providerID, err)
		} else if bal != nil {
			creditsOut = bal
		}
	}

	used, err := h.Store.UsedInMonth(r.Context(), store.MonthKey(time.Now()))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"provider":      providerID,
		"configured":    configured,
		"credits":       creditsOut,
		"monthlyCap":    cfg.Credits.MonthlyCap,
		"usedThisMonth": used,
		"level":         credits.UsageLevel(used, cfg.Credits.MonthlyCap),
	})
}
