package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// SearchDefaults pre-fill the search form and drive scheduled refreshes.
type SearchDefaults struct {
	JobTitle   string `yaml:"job_title" json:"jobTitle"`
	Location   string `yaml:"location" json:"location"`
	DateRange  string `yaml:"date_range" json:"dateRange"`
	MaxResults int    `yaml:"max_results" json:"maxResults"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"dataDir"`
	} `yaml:"app" json:"app"`

	Search struct {
		PollSeconds           int            `yaml:"poll_seconds" json:"pollSeconds"`
		MaxPollRetries        int            `yaml:"max_poll_retries" json:"maxPollRetries"`
		OverallTimeoutSeconds int            `yaml:"overall_timeout_seconds" json:"overallTimeoutSeconds"`
		AutoRefreshSeconds    int            `yaml:"auto_refresh_seconds" json:"autoRefreshSeconds"`
		Defaults              SearchDefaults `yaml:"defaults" json:"defaults"`
	} `yaml:"search" json:"search"`

	DataSource struct {
		// Provider selects the listing source: apify, mailalert or mock.
		Provider string `yaml:"provider" json:"provider"`
		ActorID  string `yaml:"actor_id" json:"actorId"`
		BaseURL  string `yaml:"base_url" json:"baseURL"`

		IMAP struct {
			Host       string   `yaml:"host" json:"host"`
			Port       int      `yaml:"port" json:"port"`
			Username   string   `yaml:"username" json:"username"`
			Mailbox    string   `yaml:"mailbox" json:"mailbox"`
			SubjectAny []string `yaml:"subject_any" json:"subjectAny"`
		} `yaml:"imap" json:"imap"`
	} `yaml:"datasource" json:"datasource"`

	Enrichment struct {
		// Provider selects enrichment: icypeas, captain-data, crawl4ai,
		// mock or none.
		Provider     string `yaml:"provider" json:"provider"`
		Concurrency  int    `yaml:"concurrency" json:"concurrency"`
		DelayMS      int    `yaml:"delay_ms" json:"delayMs"`
		CrawlBaseURL string `yaml:"crawl_base_url" json:"crawlBaseURL"`
	} `yaml:"enrichment" json:"enrichment"`

	Credits struct {
		MonthlyCap float64 `yaml:"monthly_cap" json:"monthlyCap"`
	} `yaml:"credits" json:"credits"`

	Filters struct {
		ExcludeRecruiters   bool     `yaml:"exclude_recruiters" json:"excludeRecruiters"`
		ExcludeCompanies    []string `yaml:"exclude_companies" json:"excludeCompanies"`
		MustContainKeywords []string `yaml:"must_contain_keywords" json:"mustContainKeywords"`
	} `yaml:"filters" json:"filters"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default is the built-in baseline: mock providers everywhere, so a fresh
// install works before any credentials exist.
func Default() Config {
	var cfg Config
	cfg.App.Port = 8790
	cfg.App.DataDir = ""
	cfg.Search.PollSeconds = 2
	cfg.Search.MaxPollRetries = 3
	cfg.Search.OverallTimeoutSeconds = 300
	cfg.Search.AutoRefreshSeconds = 0
	cfg.Search.Defaults = SearchDefaults{
		Location:   "United States",
		DateRange:  "last24hours",
		MaxResults: 50,
	}
	cfg.DataSource.Provider = "mock"
	cfg.DataSource.IMAP.Port = 993
	cfg.DataSource.IMAP.Mailbox = "INBOX"
	cfg.DataSource.IMAP.SubjectAny = []string{"new jobs", "job alert"}
	cfg.Enrichment.Provider = "none"
	cfg.Enrichment.Concurrency = 3
	cfg.Enrichment.DelayMS = 500
	cfg.Credits.MonthlyCap = 0
	cfg.Filters.ExcludeRecruiters = false
	return cfg
}
