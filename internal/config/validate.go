package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var validDataSources = map[string]bool{"apify": true, "mailalert": true, "mock": true}

var validEnrichers = map[string]bool{"icypeas": true, "captain-data": true, "crawl4ai": true, "mock": true, "none": true}

var validDateRanges = map[string]bool{
	"": true, "last24hours": true, "last3days": true, "last7days": true,
	"last14days": true, "last30days": true,
}

// NormalizeAndValidate trims and dedupes list fields, then validates the
// result. The normalized copy is only worth keeping when OK() holds.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Filters.ExcludeCompanies = trimList(out.Filters.ExcludeCompanies)
	out.Filters.MustContainKeywords = trimList(out.Filters.MustContainKeywords)
	out.DataSource.IMAP.SubjectAny = trimList(out.DataSource.IMAP.SubjectAny)
	out.DataSource.Provider = strings.ToLower(strings.TrimSpace(out.DataSource.Provider))
	out.Enrichment.Provider = strings.ToLower(strings.TrimSpace(out.Enrichment.Provider))

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Search.PollSeconds <= 0 {
		res.addErr("search.poll_seconds must be > 0")
	}
	if out.Search.MaxPollRetries < 0 {
		res.addErr("search.max_poll_retries must be >= 0")
	}
	if out.Search.OverallTimeoutSeconds <= 0 {
		res.addErr("search.overall_timeout_seconds must be > 0")
	}
	if out.Search.AutoRefreshSeconds < 0 {
		res.addErr("search.auto_refresh_seconds must be >= 0")
	} else if out.Search.AutoRefreshSeconds > 0 && out.Search.AutoRefreshSeconds < 300 {
		res.addWarn("search.auto_refresh_seconds is very low (%d); scrape runs cost money.", out.Search.AutoRefreshSeconds)
	}
	if out.Search.AutoRefreshSeconds > 0 && strings.TrimSpace(out.Search.Defaults.JobTitle) == "" {
		res.addWarn("auto refresh is on but search.defaults.job_title is empty; refreshes will be skipped.")
	}
	if !validDateRanges[out.Search.Defaults.DateRange] {
		res.addErr("search.defaults.date_range %q is not a known range", out.Search.Defaults.DateRange)
	}
	if out.Search.Defaults.MaxResults < 0 {
		res.addErr("search.defaults.max_results must be >= 0")
	}

	if !validDataSources[out.DataSource.Provider] {
		res.addErr("datasource.provider %q is not one of apify, mailalert, mock", out.DataSource.Provider)
	}
	if out.DataSource.Provider == "mailalert" {
		if strings.TrimSpace(out.DataSource.IMAP.Host) == "" {
			res.addErr("datasource.imap.host is required for the mailalert provider")
		}
		if out.DataSource.IMAP.Port == 0 {
			res.addErr("datasource.imap.port is required for the mailalert provider")
		}
		if strings.TrimSpace(out.DataSource.IMAP.Username) == "" {
			res.addErr("datasource.imap.username is required for the mailalert provider")
		}
		if strings.TrimSpace(out.DataSource.IMAP.Mailbox) == "" {
			res.addErr("datasource.imap.mailbox is required for the mailalert provider")
		}
		if len(out.DataSource.IMAP.SubjectAny) == 0 {
			res.addWarn("datasource.imap.subject_any is empty; every recent mail will be parsed.")
		}
	}

	if !validEnrichers[out.Enrichment.Provider] {
		res.addErr("enrichment.provider %q is not one of icypeas, captain-data, crawl4ai, mock, none", out.Enrichment.Provider)
	}
	if out.Enrichment.Concurrency < 0 {
		res.addErr("enrichment.concurrency must be >= 0")
	} else if out.Enrichment.Concurrency > 10 {
		res.addWarn("enrichment.concurrency of %d may hit provider rate limits.", out.Enrichment.Concurrency)
	}
	if out.Enrichment.DelayMS < 0 {
		res.addErr("enrichment.delay_ms must be >= 0")
	}

	if out.Credits.MonthlyCap < 0 {
		res.addErr("credits.monthly_cap must be >= 0 (0 disables the cap)")
	}
	if out.Credits.MonthlyCap == 0 && out.Enrichment.Provider == "icypeas" {
		res.addWarn("icypeas enrichment has no monthly credit cap configured.")
	}

	return out, res
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}
