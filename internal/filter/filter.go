package filter

import (
	"strings"

	"leadscout-engine/internal/domain"
)

// Options are the client-side exclusion filters. They run instantly over an
// already-processed job set, no re-fetch involved.
type Options struct {
	ExcludeRecruiters bool     `json:"excludeRecruiters"`
	ExcludeCompanies  []string `json:"excludeCompanies"`
	// MustContainKeywords keeps only jobs whose title or description hits
	// at least one keyword. Tokens of two characters or less are ignored.
	MustContainKeywords []string `json:"mustContainKeywords"`
}

// Apply filters jobs without mutating the input slice.
func Apply(jobs []domain.Job, o Options) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))

	excluded := make([]string, 0, len(o.ExcludeCompanies))
	for _, c := range o.ExcludeCompanies {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			excluded = append(excluded, c)
		}
	}

	// An empty or short-token-only keyword list disables the filter.
	words := QueryKeywords(strings.Join(o.MustContainKeywords, " "))
	mustContain := len(words) > 0

	for _, j := range jobs {
		if o.ExcludeRecruiters && j.IsRecruiter {
			continue
		}
		if companyExcluded(j.Company, excluded) {
			continue
		}
		if mustContain && !anyKeywordHit(j, words) {
			continue
		}
		out = append(out, j)
	}
	return out
}

func companyExcluded(company string, excluded []string) bool {
	if len(excluded) == 0 {
		return false
	}
	lc := strings.ToLower(company)
	for _, e := range excluded {
		if strings.Contains(lc, e) {
			return true
		}
	}
	return false
}

// QueryKeywords tokenizes a search query, keeping only tokens longer than
// two characters.
func QueryKeywords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func anyKeywordHit(j domain.Job, words []string) bool {
	title := strings.ToLower(j.Title)
	desc := strings.ToLower(j.Description)
	for _, w := range words {
		if strings.Contains(title, w) || strings.Contains(desc, w) {
			return true
		}
	}
	return false
}
