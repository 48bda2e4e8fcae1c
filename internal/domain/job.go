package domain

import "time"

// Job is one normalized listing from the data source. Signal fields
// (DedupeKey, IsRepeatHiring, RepeatCount, IsRecruiter) are attached by the
// post-processing pipeline and are never rewritten by later steps.
type Job struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	CompanyURL       string    `json:"companyUrl,omitempty"`
	CompanyLinkedIn  string    `json:"companyLinkedIn,omitempty"`
	CompanyLogo      string    `json:"companyLogo,omitempty"`
	Location         string    `json:"location"`
	PostedAt         time.Time `json:"postedAt"`
	PostedAtRelative string    `json:"postedAtRelative,omitempty"`
	URL              string    `json:"url"`
	Description      string    `json:"description,omitempty"`
	Salary           string    `json:"salary,omitempty"`
	EmploymentType   string    `json:"employmentType,omitempty"`
	ExperienceLevel  string    `json:"experienceLevel,omitempty"`
	ApplicantCount   int       `json:"applicantCount,omitempty"`

	DedupeKey      string `json:"dedupeKey,omitempty"`
	IsRepeatHiring bool   `json:"isRepeatHiring,omitempty"`
	RepeatCount    int    `json:"repeatCount,omitempty"`
	IsRecruiter    bool   `json:"isRecruiter,omitempty"`
}

// CompanyEnrichment is the firmographic bag a provider returned for one
// company. Absent fields mean the provider did not return them; they are
// never defaulted to placeholders.
type CompanyEnrichment struct {
	Industry           string    `json:"industry,omitempty"`
	EmployeeCount      int       `json:"employeeCount,omitempty"`
	EmployeeCountRange string    `json:"employeeCountRange,omitempty"`
	Headquarters       string    `json:"headquarters,omitempty"`
	Description        string    `json:"description,omitempty"`
	Tagline            string    `json:"tagline,omitempty"`
	Website            string    `json:"website,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Specialties        []string  `json:"specialties,omitempty"`
	Technologies       []string  `json:"technologies,omitempty"`
	FundingStage       string    `json:"fundingStage,omitempty"`
	Revenue            string    `json:"revenue,omitempty"`
	Founded            int       `json:"founded,omitempty"`
	Source             string    `json:"source,omitempty"`
	EnrichedAt         time.Time `json:"enrichedAt"`
}

// Person is a decision-maker contact attached by enrichment.
type Person struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedInUrl,omitempty"`
}

// EnrichedJob is a Job plus the outcome of one enrichment attempt. A fresh
// enrichment produces a new value that replaces the prior one; it is never
// merge-updated in place.
type EnrichedJob struct {
	Job
	Enriched       bool               `json:"enriched"`
	CompanyData    *CompanyEnrichment `json:"companyData,omitempty"`
	DecisionMakers []Person           `json:"decisionMakers,omitempty"`
	EnrichedAt     time.Time          `json:"enrichedAt"`
}

// Run status values reported by a data source for a scrape run.
const (
	RunRunning   = "RUNNING"
	RunSucceeded = "SUCCEEDED"
	RunFailed    = "FAILED"
	RunAborted   = "ABORTED"
	RunTimedOut  = "TIMED-OUT"
)

// ScrapeRun is the ephemeral cursor state of one remote scrape run. It lives
// only for the duration of a search; Offset is a monotonic cursor into the
// run's paginated dataset.
type ScrapeRun struct {
	RunID     string `json:"runId"`
	DatasetID string `json:"datasetId"`
	Offset    int    `json:"offset"`
	Status    string `json:"status"`
}

// BatchProgress carries cumulative counters for one enrichment batch.
type BatchProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Failed    int `json:"failed"`
}
