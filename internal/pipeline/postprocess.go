package pipeline

import (
	"fmt"
	"strings"

	"leadscout-engine/internal/domain"
)

// recruiterKeywords flags staffing-industry postings. Matched on company
// name or description, case-insensitive, bounded by non-letter characters
// ("hays" hits "Hays Recruitment Ltd" but not "Haystack Inc").
var recruiterKeywords = []string{
	"recruitment", "recruiting", "recruiter", "staffing",
	"talent acquisition", "headhunter", "placement",
	"hays", "robert half", "michael page", "randstad",
	"adecco", "manpower", "kelly services", "kforce",
	"reed", "spencer ogden", "page group", "pagegroup",
	"hudson", "antal", "allegis", "modis",
}

// DedupeKey derives the stable cross-run identity of a posting:
// lowercase(company)|lowercase(title)|posted-day. It must never depend on
// volatile fields (exact timestamp, applicant count, scrape-time ids).
func DedupeKey(j domain.Job) string {
	company := strings.ToLower(strings.TrimSpace(j.Company))
	title := strings.ToLower(strings.TrimSpace(j.Title))
	day := j.PostedAt.UTC().Format("2006-01-02")
	return fmt.Sprintf("%s|%s|%s", company, title, day)
}

// Process annotates a freshly transformed batch with signal fields:
// dedupe keys, within-batch repeat counts, cross-batch repeat-hiring flags
// against previouslySeen, and recruiter flags. Pure and deterministic;
// each step only adds fields, never clears earlier flags.
func Process(jobs []domain.Job, previouslySeen map[string]struct{}) []domain.Job {
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)

	// 1. keys + 2. within-batch duplicate flagging
	counts := make(map[string]int, len(out))
	for i := range out {
		key := DedupeKey(out[i])
		out[i].DedupeKey = key
		counts[key]++
		out[i].RepeatCount = counts[key]
		if counts[key] > 1 {
			out[i].IsRepeatHiring = true
		}
	}

	// 3. cross-batch repeat hiring
	for i := range out {
		if _, ok := previouslySeen[out[i].DedupeKey]; ok {
			out[i].IsRepeatHiring = true
		}
	}

	// 4. recruiter detection (independent of duplicate status)
	for i := range out {
		out[i].IsRecruiter = looksLikeRecruiter(out[i].Company, out[i].Description)
	}

	return out
}

func looksLikeRecruiter(company, description string) bool {
	company = strings.ToLower(company)
	description = strings.ToLower(description)
	for _, kw := range recruiterKeywords {
		if containsWordBounded(company, kw) || containsWordBounded(description, kw) {
			return true
		}
	}
	return false
}

// containsWordBounded reports whether needle occurs in haystack with
// non-letter characters (or string edges) on both sides.
func containsWordBounded(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		leftOK := i == 0 || !isLetter(haystack[i-1])
		rightOK := end == len(haystack) || !isLetter(haystack[end])
		if leftOK && rightOK {
			return true
		}
		start = i + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
