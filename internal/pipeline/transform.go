package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"leadscout-engine/internal/domain"
)

// RawItem is one untyped listing as data sources emit it. Vendors disagree
// on field names, so the common aliases are all mapped and Transform picks
// the first non-empty one.
type RawItem struct {
	ID                string      `json:"id"`
	JobID             string      `json:"jobId"`
	Title             string      `json:"title"`
	JobTitle          string      `json:"jobTitle"`
	Company           string      `json:"company"`
	CompanyName       string      `json:"companyName"`
	CompanyURL        string      `json:"companyUrl"`
	CompanyLinkedIn   string      `json:"companyLinkedIn"`
	CompanyLogo       string      `json:"companyLogo"`
	Location          string      `json:"location"`
	PostedAt          string      `json:"postedAt"`
	PublishedAt       string      `json:"publishedAt"`
	PostedTime        string      `json:"postedTime"`
	URL               string      `json:"url"`
	JobURL            string      `json:"jobUrl"`
	Description       string      `json:"description"`
	JobDescription    string      `json:"jobDescription"`
	Salary            FlexStrings `json:"salary"`
	SalaryInfo        FlexStrings `json:"salaryInfo"`
	EmploymentType    string      `json:"employmentType"`
	ContractType      string      `json:"contractType"`
	ExperienceLevel   string      `json:"experienceLevel"`
	ApplicantCount    FlexCount   `json:"applicantCount"`
	ApplicationsCount FlexCount   `json:"applicationsCount"`
}

// FlexStrings accepts either a JSON string or an array of strings.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = nil
		} else {
			*f = FlexStrings{s}
		}
		return nil
	}
	var xs []string
	if err := json.Unmarshal(b, &xs); err != nil {
		return err
	}
	*f = xs
	return nil
}

// FlexCount accepts a JSON number or a free-text string like
// "Be among the first 25 applicants" and keeps the first integer found.
type FlexCount int

var reFirstInt = regexp.MustCompile(`\d+`)

func (f *FlexCount) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if m := reFirstInt.FindString(s); m != "" {
			n, _ := strconv.Atoi(m)
			*f = FlexCount(n)
		} else {
			*f = 0
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexCount(int(n))
	return nil
}

// Transform maps one raw item into a normalized Job. now anchors the
// posted-at fallback so transforms stay deterministic under test.
func Transform(item RawItem, now time.Time) domain.Job {
	title := firstNonEmpty(item.JobTitle, item.Title, "Unknown Title")
	company := firstNonEmpty(item.CompanyName, item.Company, "Unknown Company")
	postedAt := parsePostedAt(firstNonEmpty(item.PublishedAt, item.PostedAt), now)

	j := domain.Job{
		Title:            CleanText(title),
		Company:          CleanText(company),
		CompanyURL:       strings.TrimSpace(item.CompanyURL),
		CompanyLinkedIn:  strings.TrimSpace(item.CompanyLinkedIn),
		CompanyLogo:      strings.TrimSpace(item.CompanyLogo),
		Location:         CleanText(firstNonEmpty(item.Location, "Unknown Location")),
		PostedAt:         postedAt,
		PostedAtRelative: strings.TrimSpace(item.PostedTime),
		URL:              CanonicalizeURL(firstNonEmpty(item.JobURL, item.URL)),
		Description:      cleanDescription(firstNonEmpty(item.JobDescription, item.Description)),
		Salary:           formatSalary(append(item.SalaryInfo, item.Salary...)),
		EmploymentType:   strings.TrimSpace(firstNonEmpty(item.ContractType, item.EmploymentType)),
		ExperienceLevel:  strings.TrimSpace(item.ExperienceLevel),
		ApplicantCount:   int(maxCount(item.ApplicationsCount, item.ApplicantCount)),
	}
	j.ID = jobID(item, j)
	return j
}

// TransformAll maps a page of raw items in input order.
func TransformAll(items []RawItem, now time.Time) []domain.Job {
	out := make([]domain.Job, 0, len(items))
	for _, it := range items {
		out = append(out, Transform(it, now))
	}
	return out
}

const maxIDLen = 100

var reIDStrip = regexp.MustCompile(`[^a-z0-9-]`)

// jobID prefers the source-supplied id; otherwise it derives a deterministic
// composite from company, title and posted day. A random fallback would
// change on every re-scrape of the same posting and break selection/merge
// logic downstream.
func jobID(item RawItem, j domain.Job) string {
	if id := strings.TrimSpace(firstNonEmpty(item.JobID, item.ID)); id != "" {
		return id
	}
	company := strings.Join(strings.Fields(strings.ToLower(j.Company)), "-")
	title := strings.Join(strings.Fields(strings.ToLower(j.Title)), "-")
	day := j.PostedAt.UTC().Format("2006-01-02")
	id := reIDStrip.ReplaceAllString(fmt.Sprintf("%s-%s-%s", company, title, day), "")
	if len(id) > maxIDLen {
		id = id[:maxIDLen]
	}
	return id
}

func parsePostedAt(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

var (
	reSalaryNum      = regexp.MustCompile(`[0-9][0-9,.]*`)
	reSalaryCurrency = regexp.MustCompile(`^[^0-9]*`)
	reShowMore       = regexp.MustCompile(`(?i)\s*Show more Show less\s*$`)
)

// formatSalary renders a vendor salary array like ["65000","85000"] as
// "$65K - $85K". A single free-text value passes through untouched when it
// has no leading number.
func formatSalary(vals []string) string {
	var parts []string
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		loc := reSalaryNum.FindStringIndex(v)
		// Only bare currency+number values get reformatted; anything with
		// trailing text is already human-readable and passes through.
		if loc == nil || strings.TrimSpace(v[loc[1]:]) != "" {
			parts = append(parts, v)
			continue
		}
		m := v[loc[0]:loc[1]]
		num, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			parts = append(parts, v)
			continue
		}
		currency := strings.TrimSpace(reSalaryCurrency.FindString(v))
		if currency == "" {
			currency = "$"
		}
		if num >= 1000 {
			parts = append(parts, fmt.Sprintf("%s%dK", currency, int(math.Round(num/1000))))
		} else {
			parts = append(parts, fmt.Sprintf("%s%v", currency, num))
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + " - " + parts[1]
	}
}

func cleanDescription(s string) string {
	return strings.TrimSpace(reShowMore.ReplaceAllString(s, ""))
}

// CleanText collapses whitespace (incl. non-breaking spaces) and trims.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if strings.TrimSpace(x) != "" {
			return x
		}
	}
	return ""
}

func maxCount(a, b FlexCount) FlexCount {
	if a > b {
		return a
	}
	return b
}
