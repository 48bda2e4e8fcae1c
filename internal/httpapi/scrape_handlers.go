package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/filter"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/scrape"
)

// ScrapeHandler exposes the raw run lifecycle: start a run, then poll its
// status and drain result pages. Dedupe state persists across polls so
// repeat-hiring signals survive the stateless protocol.
type ScrapeHandler struct {
	Deps
}

type startScrapeReq struct {
	JobTitle          string   `json:"jobTitle"`
	Location          string   `json:"location"`
	DateRange         string   `json:"dateRange"`
	MaxResults        int      `json:"maxResults"`
	CompanySizes      []string `json:"companySizes"`
	ExcludeRecruiters *bool    `json:"excludeRecruiters"`
	ExcludeCompanies  []string `json:"excludeCompanies"`
}

func (h ScrapeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startScrapeReq
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.JobTitle) == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_job_title", "jobTitle is required")
		return
	}

	src := h.Source()
	if src == nil || !src.IsConfigured() {
		WriteError(w, r, http.StatusServiceUnavailable, "source_not_configured", "data source is not configured")
		return
	}

	cfg := h.cfg()
	opts := scrape.Options{
		JobTitle:          req.JobTitle,
		Location:          req.Location,
		DateRange:         req.DateRange,
		MaxResults:        req.MaxResults,
		CompanySizes:      req.CompanySizes,
		ExcludeRecruiters: cfg.Filters.ExcludeRecruiters,
		ExcludeCompanies:  cfg.Filters.ExcludeCompanies,
	}
	if req.ExcludeRecruiters != nil {
		opts.ExcludeRecruiters = *req.ExcludeRecruiters
	}
	if len(req.ExcludeCompanies) > 0 {
		opts.ExcludeCompanies = req.ExcludeCompanies
	}

	handle, err := src.StartRun(r.Context(), opts)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			WriteError(w, r, http.StatusServiceUnavailable, "source_not_configured", "data source is not configured")
			return
		}
		WriteError(w, r, http.StatusBadGateway, "start_failed", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"runId":     handle.RunID,
		"datasetId": handle.DatasetID,
		"status":    domain.RunRunning,
	})
}

// Poll reports run status and, when items are ready, the next page of
// processed jobs. Callers advance by passing back the returned offset.
func (h ScrapeHandler) Poll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	runID := strings.TrimSpace(q.Get("runId"))
	datasetID := strings.TrimSpace(q.Get("datasetId"))
	if runID == "" || datasetID == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_ids", "runId and datasetId are required")
		return
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_offset", "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	src := h.Source()
	if src == nil || !src.IsConfigured() {
		WriteError(w, r, http.StatusServiceUnavailable, "source_not_configured", "data source is not configured")
		return
	}

	status, err := src.RunStatus(r.Context(), runID)
	if err != nil {
		WriteError(w, r, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	var jobs []domain.Job
	newCount := 0
	if status == domain.RunSucceeded || status == domain.RunRunning {
		raw, err := src.FetchPage(r.Context(), datasetID, offset, 100)
		if err != nil {
			WriteError(w, r, http.StatusBadGateway, "upstream_error", err.Error())
			return
		}
		newCount = len(raw)
		if newCount > 0 {
			prev, err := h.Store.PreviousDedupeKeys(r.Context())
			if err != nil {
				WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
				return
			}
			jobs = pipeline.Process(pipeline.TransformAll(raw, time.Now()), prev)

			cfg := h.cfg()
			jobs = filter.Apply(jobs, filter.Options{
				ExcludeRecruiters:   cfg.Filters.ExcludeRecruiters,
				ExcludeCompanies:    cfg.Filters.ExcludeCompanies,
				MustContainKeywords: cfg.Filters.MustContainKeywords,
			})
			if status == domain.RunSucceeded {
				if err := h.Store.PersistResults(r.Context(), jobs); err != nil {
					WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
					return
				}
			}
		}
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"jobs":     jobs,
		"newCount": newCount,
		"offset":   offset + newCount,
	})
}
