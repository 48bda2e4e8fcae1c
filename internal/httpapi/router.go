package httpapi

import "net/http"

// NewMux wires every handler onto a fresh mux. Middleware is the caller's
// to chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Stateless scrape: explicit run lifecycle for callers that poll
	// themselves instead of subscribing to events.
	sch := ScrapeHandler{Deps: d}
	mux.HandleFunc("/api/jobs/scrape", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Start,
	}))
	mux.HandleFunc("/api/jobs/scrape/poll", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Poll,
	}))

	// Managed search session: runs in the background, streams over /events.
	srh := SearchHandler{Deps: d}
	mux.HandleFunc("/api/search", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: srh.Start,
	}))
	mux.HandleFunc("/api/search/cancel", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: srh.Cancel,
	}))
	mux.HandleFunc("/api/search/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: srh.Status,
	}))

	// Enrichment
	enh := EnrichHandler{Deps: d}
	mux.HandleFunc("/api/jobs/enrich", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: enh.Enrich,
	}))

	crh := CreditsHandler{Deps: d}
	mux.HandleFunc("/api/credits", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: crh.Get,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets go to the OS keychain, never into config.yml.
	seh := SecretsHandler{}
	mux.HandleFunc("/api/secrets/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   seh.Set,
		http.MethodDelete: seh.Delete,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
