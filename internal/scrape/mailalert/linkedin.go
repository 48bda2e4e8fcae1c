package mailalert

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"leadscout-engine/internal/pipeline"
)

// AlertJob is one job card lifted out of an alert email.
type AlertJob struct {
	SourceID string // "linkedin:<id>" when the view URL carries one
	Title    string
	Company  string
	Location string
	Salary   string
	URL      string
	LogoURL  string
}

var (
	reAlertSalary = regexp.MustCompile(`[$£€]\s?\d[\d,]*(?:K|M)?\s*(?:-\s*[$£€]\s?\d[\d,]*(?:K|M)?)?\s*/\s*(?:year|yr|hour|hr)`)
	reViewJobID   = regexp.MustCompile(`/jobs/view/(\d+)`)
)

// ParseJobAlertHTML extracts job cards from a LinkedIn alert email body.
// Alert templates emit several anchors per job (logo, title, footer link),
// so cards are merged by job id and the best title candidate wins.
func ParseJobAlertHTML(htmlBody string) ([]AlertJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	byID := map[string]*AlertJob{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		// Tracking wrappers percent-encode the inner URL, so unwrap
		// before deciding whether this is a job link at all.
		jobURL := unwrapRedirect(href)
		lu := strings.ToLower(jobURL)
		if !strings.Contains(lu, "linkedin.com") || !strings.Contains(lu, "/jobs/view/") {
			return
		}

		key := sourceIDFromURL(jobURL)
		if key == "" {
			key = jobURL
		}
		j, ok := byID[key]
		if !ok {
			j = &AlertJob{URL: jobURL, SourceID: sourceIDFromURL(jobURL)}
			byID[key] = j
			order = append(order, key)
		}

		if t := titleCandidate(a.Text()); betterTitle(t, j.Title) {
			j.Title = t
		}
		if j.LogoURL == "" {
			if src := strings.TrimSpace(a.Find("img").First().AttrOr("src", "")); src != "" {
				j.LogoURL = src
			}
		}

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Closest("tr")
		}
		if card.Length() == 0 {
			card = a.Parent()
		}

		// "Company · Location" rides in a sibling <p>.
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := pipeline.CleanText(p.Text())
			if t == "" {
				return
			}
			if j.Company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				j.Company = strings.TrimSpace(parts[0])
				j.Location = strings.TrimSpace(parts[1])
				return
			}
			if t = titleCandidate(t); betterTitle(t, j.Title) {
				j.Title = t
			}
		})

		if j.Salary == "" {
			if m := reAlertSalary.FindString(pipeline.CleanText(card.Text())); m != "" {
				j.Salary = strings.TrimSpace(m)
			}
		}
	})

	out := make([]AlertJob, 0, len(byID))
	for _, key := range order {
		j := byID[key]
		if j.Title == "" || j.URL == "" {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func sourceIDFromURL(jobURL string) string {
	if m := reViewJobID.FindStringSubmatch(jobURL); len(m) == 2 {
		return "linkedin:" + m[1]
	}
	return ""
}

// unwrapRedirect resolves the tracking wrappers alert links are wrapped in
// (?url= param, google /url?q=) down to the real job URL.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	if u.Host != "" {
		return u.String()
	}
	return href
}

var titleJunk = []string{"Actively recruiting", "Easy Apply", "Promoted", "View job"}

// titleCandidate scrubs badge text the templates append to title anchors and
// rejects strings that are clearly not job titles.
func titleCandidate(s string) string {
	s = pipeline.CleanText(s)
	for _, junk := range titleJunk {
		s = strings.TrimSpace(strings.ReplaceAll(s, junk, ""))
	}
	low := strings.ToLower(s)
	for _, bad := range []string{"alumni", "connections", "applicants", "see all jobs", "unsubscribe"} {
		if strings.Contains(low, bad) {
			return ""
		}
	}
	// Salary lines ride in the same card markup as titles.
	if reAlertSalary.MatchString(s) {
		return ""
	}
	return pipeline.CleanText(s)
}

// betterTitle keeps the first plausible title and only upgrades to a
// clearly longer one, so logo anchors (empty text) never clobber real titles.
func betterTitle(candidate, current string) bool {
	if len(candidate) < 4 || strings.Contains(candidate, " · ") {
		return false
	}
	if current == "" {
		return true
	}
	return len(candidate) >= len(current)+8
}
