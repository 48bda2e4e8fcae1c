package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"leadscout-engine/internal/config"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/enrich/captaindata"
	"leadscout-engine/internal/enrich/crawl4ai"
	"leadscout-engine/internal/enrich/icypeas"
	"leadscout-engine/internal/enrich/mockenrich"
	"leadscout-engine/internal/events"
	"leadscout-engine/internal/httpapi"
	"leadscout-engine/internal/pipeline"
	"leadscout-engine/internal/ratelimit"
	"leadscout-engine/internal/scrape"
	"leadscout-engine/internal/scrape/apify"
	"leadscout-engine/internal/scrape/mailalert"
	"leadscout-engine/internal/scrape/mocksource"
	"leadscout-engine/internal/secrets"
	"leadscout-engine/internal/store"
)

func main() {
	// Engine data dir: use env if provided (a desktop shell can pass one),
	// else local folder.
	dataDir := os.Getenv("LEADSCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; a second instance would fight over sqlite
	// and scheduled refreshes.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("data dir lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance already holds %s", lock.Path())
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable.
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		if err := config.OverlayExclusions(&cfg, filepath.Join(dataDir, "exclusions.yml")); err != nil {
			return cfg, err
		}
		normalized, vr := config.NormalizeAndValidate(cfg)
		for _, warning := range vr.Warnings {
			log.Printf("[config] warning: %s", warning)
		}
		if !vr.OK() {
			return cfg, errors.New("config validation failed: " + vr.Errors[0])
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "leadscout.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	hub := events.NewHub()
	limiter := ratelimit.NewHostLimiter(5, 10)

	sourceFor := func() scrape.DataSource {
		return buildSource(cfgVal.Load().(config.Config), limiter)
	}
	enricherFor := func() enrich.Provider {
		return buildEnricher(cfgVal.Load().(config.Config), limiter)
	}

	orch := scrape.New(&switchingSource{pick: sourceFor}, db, scrape.Config{
		PollInterval:   time.Duration(cfg.Search.PollSeconds) * time.Second,
		MaxPollRetries: cfg.Search.MaxPollRetries,
		OverallTimeout: time.Duration(cfg.Search.OverallTimeoutSeconds) * time.Second,
	})
	session := scrape.NewSession(orch, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Search.AutoRefreshSeconds > 0 {
		scrape.StartAutoRefresh(ctx, session, time.Duration(cfg.Search.AutoRefreshSeconds)*time.Second)
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Hub:         hub,
		Store:       db,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		Session:     session,
		Flight:      &enrich.Flight{},
		Source:      sourceFor,
		Enricher:    enricherFor,
	})

	handler := httpapi.Chain(mux,
		httpapi.Cors,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (data=%s source=%s enrich=%s)",
		addr, dataDir, cfg.DataSource.Provider, cfg.Enrichment.Provider)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		session.Cancel()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}

// switchingSource re-picks the configured data source on every call so a
// config change takes effect without restarting the session.
type switchingSource struct {
	pick func() scrape.DataSource
}

func (s *switchingSource) ID() string         { return s.pick().ID() }
func (s *switchingSource) IsConfigured() bool { return s.pick().IsConfigured() }

func (s *switchingSource) StartRun(ctx context.Context, opts scrape.Options) (scrape.RunHandle, error) {
	return s.pick().StartRun(ctx, opts)
}

func (s *switchingSource) RunStatus(ctx context.Context, runID string) (string, error) {
	return s.pick().RunStatus(ctx, runID)
}

func (s *switchingSource) FetchPage(ctx context.Context, datasetID string, offset, limit int) ([]pipeline.RawItem, error) {
	return s.pick().FetchPage(ctx, datasetID, offset, limit)
}

func buildSource(cfg config.Config, limiter *ratelimit.HostLimiter) scrape.DataSource {
	switch cfg.DataSource.Provider {
	case "apify":
		token, err := secrets.Get(secrets.AccountApifyToken)
		if err != nil {
			log.Printf("[secrets] apify token: %v", err)
		}
		return apify.New(apify.Config{
			Token:   token,
			ActorID: cfg.DataSource.ActorID,
			BaseURL: cfg.DataSource.BaseURL,
		}, limiter)
	case "mailalert":
		password, err := secrets.Get(secrets.AccountIMAPPassword)
		if err != nil {
			log.Printf("[secrets] imap password: %v", err)
		}
		return mailalert.New(mailalert.Config{
			Host:       cfg.DataSource.IMAP.Host,
			Port:       cfg.DataSource.IMAP.Port,
			Username:   cfg.DataSource.IMAP.Username,
			Password:   password,
			Mailbox:    cfg.DataSource.IMAP.Mailbox,
			SubjectAny: cfg.DataSource.IMAP.SubjectAny,
		})
	default:
		return mocksource.New()
	}
}

func buildEnricher(cfg config.Config, limiter *ratelimit.HostLimiter) enrich.Provider {
	switch cfg.Enrichment.Provider {
	case "icypeas":
		key, err := secrets.Get(secrets.AccountIcypeasKey)
		if err != nil {
			log.Printf("[secrets] icypeas key: %v", err)
		}
		return icypeas.New(icypeas.Config{APIKey: key}, limiter)
	case "captain-data":
		key, err := secrets.Get(secrets.AccountCaptainData)
		if err != nil {
			log.Printf("[secrets] captain data key: %v", err)
		}
		return captaindata.New(captaindata.Config{APIKey: key}, limiter)
	case "crawl4ai":
		token, err := secrets.Get(secrets.AccountCrawlToken)
		if err != nil {
			log.Printf("[secrets] crawl4ai token: %v", err)
		}
		return crawl4ai.New(crawl4ai.Config{
			BaseURL:  cfg.Enrichment.CrawlBaseURL,
			APIToken: token,
		}, limiter)
	case "mock":
		return mockenrich.New()
	default:
		return nil
	}
}
