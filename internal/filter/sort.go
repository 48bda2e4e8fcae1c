package filter

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"leadscout-engine/internal/domain"
)

// SortOption selects the visible list order.
type SortOption string

const (
	SortRecent     SortOption = "recent"
	SortSalaryHigh SortOption = "salary-high"
	SortApplicants SortOption = "applicants"
	SortCompanyAZ  SortOption = "company-az"
	SortRelevance  SortOption = "relevance"
)

// SortJobs returns a sorted copy. All sorts are stable: equal keys keep
// their relative input order, which keeps the visible list deterministic.
func SortJobs(jobs []domain.Job, by SortOption, query string) []domain.Job {
	sorted := make([]domain.Job, len(jobs))
	copy(sorted, jobs)

	switch by {
	case SortRecent:
		sort.SliceStable(sorted, func(i, k int) bool {
			return sorted[i].PostedAt.After(sorted[k].PostedAt)
		})
	case SortSalaryHigh:
		sort.SliceStable(sorted, func(i, k int) bool {
			return ParseSalaryNumeric(sorted[i].Salary) > ParseSalaryNumeric(sorted[k].Salary)
		})
	case SortApplicants:
		sort.SliceStable(sorted, func(i, k int) bool {
			return sorted[i].ApplicantCount > sorted[k].ApplicantCount
		})
	case SortCompanyAZ:
		sort.SliceStable(sorted, func(i, k int) bool {
			return strings.ToLower(sorted[i].Company) < strings.ToLower(sorted[k].Company)
		})
	case SortRelevance:
		words := QueryKeywords(query)
		if len(words) == 0 {
			break
		}
		sort.SliceStable(sorted, func(i, k int) bool {
			return KeywordScore(sorted[i], words) > KeywordScore(sorted[k], words)
		})
	}
	return sorted
}

var (
	reSalaryValue = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reSalaryK     = regexp.MustCompile(`(?i)\d+k`)
	reHourly      = regexp.MustCompile(`(?i)hr|hour|per hour`)
	reDaily       = regexp.MustCompile(`(?i)day|daily|per day`)
)

// ParseSalaryNumeric extracts an annualized numeric magnitude from a
// free-text salary. "k" suffixes count ×1000, hourly rates ×2000, daily
// rates ×250. Unparsable salaries return -1 so they sort last.
func ParseSalaryNumeric(salary string) float64 {
	if salary == "" {
		return -1
	}
	cleaned := strings.NewReplacer("£", "", "$", "", "€", "", ",", "").Replace(salary)
	m := reSalaryValue.FindString(cleaned)
	if m == "" {
		return -1
	}
	num, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return -1
	}
	if reSalaryK.MatchString(cleaned) {
		num *= 1000
	}
	if num < 200 && reHourly.MatchString(salary) {
		num *= 2000
	}
	if num >= 200 && num <= 2000 && reDaily.MatchString(salary) {
		num *= 250
	}
	return num
}

// KeywordScore is the relevance metric: +2 per keyword present in the
// title, +1 per keyword present in the description.
func KeywordScore(j domain.Job, words []string) int {
	title := strings.ToLower(j.Title)
	desc := strings.ToLower(j.Description)
	score := 0
	for _, w := range words {
		if strings.Contains(title, w) {
			score += 2
		}
		if strings.Contains(desc, w) {
			score++
		}
	}
	return score
}
