// Package mailalert turns LinkedIn job-alert emails into a scrape data
// source. A "run" snapshots the configured mailbox: alert messages are
// fetched over IMAP, parsed into raw items, and then paged out through the
// same offset contract the remote-actor source uses.
package mailalert

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/google/uuid"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/scrape"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string // defaults to INBOX
	// SubjectAny limits the search to alert mails; empty means any subject.
	SubjectAny []string
	// MaxMessages caps one snapshot; defaults to 50.
	MaxMessages int
}

// Source implements scrape.DataSource over a mailbox. Snapshots are held
// in memory per run id and discarded when a new run starts.
type Source struct {
	cfg Config

	mu   sync.Mutex
	runs map[string][]pipeline.RawItem
}

func New(cfg Config) *Source {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 50
	}
	return &Source{cfg: cfg, runs: make(map[string][]pipeline.RawItem)}
}

func (s *Source) ID() string { return "mailalert" }

func (s *Source) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != ""
}

// StartRun snapshots the mailbox. The whole fetch happens here; polling is
// then instantaneous, which keeps the orchestrator loop source-agnostic.
func (s *Source) StartRun(ctx context.Context, opts scrape.Options) (scrape.RunHandle, error) {
	if !s.IsConfigured() {
		return scrape.RunHandle{}, domain.ErrNotConfigured
	}

	items, err := s.snapshot(ctx, opts)
	if err != nil {
		return scrape.RunHandle{}, err
	}

	runID := uuid.NewString()
	s.mu.Lock()
	// One live snapshot: a new run replaces everything older.
	s.runs = map[string][]pipeline.RawItem{runID: items}
	s.mu.Unlock()

	log.Printf("[mailalert] snapshot ready run_id=%s items=%d", runID, len(items))
	return scrape.RunHandle{RunID: runID, DatasetID: runID}, nil
}

func (s *Source) RunStatus(ctx context.Context, runID string) (string, error) {
	s.mu.Lock()
	_, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return domain.RunFailed, nil
	}
	return domain.RunSucceeded, nil
}

func (s *Source) FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error) {
	s.mu.Lock()
	items, ok := s.runs[datasetID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mailalert: unknown dataset %q", datasetID)
	}
	if offset < 0 || offset >= len(items) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (s *Source) snapshot(ctx context.Context, opts scrape.Options) ([]pipeline.RawItem, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: s.cfg.Host},
	})
	if err != nil {
		return nil, &domain.TransientError{Op: "imap dial " + addr, Err: err}
	}
	defer func() {
		if err := c.Logout().Wait(); err != nil {
			log.Printf("[mailalert] imap logout: %v", err)
		}
		_ = c.Close()
	}()

	if err := c.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(s.cfg.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", s.cfg.Mailbox, err)
	}

	// Alerts older than a week are stale search results.
	criteria := &imap.SearchCriteria{Since: time.Now().AddDate(0, 0, -7)}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &domain.TransientError{Op: "imap uid search", Err: err}
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	// Newest first.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > s.cfg.MaxMessages {
		uids = uids[:s.cfg.MaxMessages]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	var items []pipeline.RawItem
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		subject := ""
		received := time.Now().UTC()
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
			if !buf.Envelope.Date.IsZero() {
				received = buf.Envelope.Date.UTC()
			}
		}
		if !s.subjectMatches(subject) {
			continue
		}

		raw := buf.FindBodySection(bodyAll)
		if len(raw) == 0 {
			continue
		}
		htmlBody := extractHTMLPart(raw)
		if htmlBody == "" {
			continue
		}

		parsed, err := ParseJobAlertHTML(htmlBody)
		if err != nil {
			log.Printf("[mailalert] parse alert %q: %v", subject, err)
			continue
		}
		for _, job := range parsed {
			items = append(items, pipeline.RawItem{
				JobID:       job.SourceID,
				JobTitle:    job.Title,
				CompanyName: job.Company,
				Location:    job.Location,
				Salary:      pipeline.FlexStrings{job.Salary},
				JobURL:      job.URL,
				CompanyLogo: job.LogoURL,
				PublishedAt: received.Format(time.RFC3339),
			})
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	if opts.MaxResults > 0 && len(items) > opts.MaxResults {
		items = items[:opts.MaxResults]
	}
	return items, nil
}

func (s *Source) subjectMatches(subject string) bool {
	if len(s.cfg.SubjectAny) == 0 {
		return true
	}
	ls := strings.ToLower(subject)
	for _, want := range s.cfg.SubjectAny {
		if want = strings.ToLower(strings.TrimSpace(want)); want != "" && strings.Contains(ls, want) {
			return true
		}
	}
	return false
}

// extractHTMLPart digs the best text/html part out of a raw RFC822 message.
func extractHTMLPart(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(msg.Body, 20<<20))
	return htmlFromPart(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), body)
}

func htmlFromPart(contentType, cte string, body []byte) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return ""
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		best := ""
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			pb, _ := io.ReadAll(io.LimitReader(p, 20<<20))
			if h := htmlFromPart(p.Header.Get("Content-Type"), p.Header.Get("Content-Transfer-Encoding"), pb); len(h) > len(best) {
				best = h
			}
		}
		return best
	}

	if !strings.HasPrefix(mediaType, "text/html") {
		return ""
	}
	return string(decodeTransferEncoding(body, strings.ToLower(strings.TrimSpace(cte))))
}

func decodeTransferEncoding(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(bytes.Map(dropSpace, b)))
		out, _ := io.ReadAll(io.LimitReader(dec, 6<<20))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 6<<20))
		return out
	default:
		return b
	}
}

func dropSpace(r rune) rune {
	switch r {
	case '\r', '\n', ' ', '\t':
		return -1
	}
	return r
}
