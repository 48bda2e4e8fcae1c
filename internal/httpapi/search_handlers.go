package httpapi

import (
	"net/http"
	"strings"

	"leadscout-engine/internal/scrape"
)

// SearchHandler drives the managed session: one background search at a
// time, progress over SSE, cancel on demand.
type SearchHandler struct {
	Deps
}

type startSearchReq struct {
	JobTitle     string   `json:"jobTitle"`
	Location     string   `json:"location"`
	DateRange    string   `json:"dateRange"`
	MaxResults   int      `json:"maxResults"`
	CompanySizes []string `json:"companySizes"`
}

func (h SearchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSearchReq
	if !readJSON(w, r, &req) {
		return
	}

	cfg := h.cfg()
	if req.JobTitle == "" {
		req.JobTitle = cfg.Search.Defaults.JobTitle
	}
	if strings.TrimSpace(req.JobTitle) == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_job_title", "jobTitle is required")
		return
	}
	if req.Location == "" {
		req.Location = cfg.Search.Defaults.Location
	}
	if req.DateRange == "" {
		req.DateRange = cfg.Search.Defaults.DateRange
	}
	if req.MaxResults <= 0 {
		req.MaxResults = cfg.Search.Defaults.MaxResults
	}

	src := h.Source()
	if src == nil || !src.IsConfigured() {
		WriteError(w, r, http.StatusServiceUnavailable, "source_not_configured", "data source is not configured")
		return
	}

	h.Session.Start(scrape.Options{
		JobTitle:            req.JobTitle,
		Location:            req.Location,
		DateRange:           req.DateRange,
		MaxResults:          req.MaxResults,
		CompanySizes:        req.CompanySizes,
		ExcludeRecruiters:   cfg.Filters.ExcludeRecruiters,
		ExcludeCompanies:    cfg.Filters.ExcludeCompanies,
		MustContainKeywords: cfg.Filters.MustContainKeywords,
	})
	WriteJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

func (h SearchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.Session.Cancel()
	WriteJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (h SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Session.Status())
}
