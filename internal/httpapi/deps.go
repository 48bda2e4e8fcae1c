package httpapi

import (
	"sync/atomic"

	"leadscout-engine/internal/config"
	"leadscout-engine/internal/enrich"
	"leadscout-engine/internal/events"
	"leadscout-engine/internal/scrape"
	"leadscout-engine/internal/store"
)

// Deps is the explicit wiring for every handler; main() fills it once.
// Provider accessors are funcs so a config change can swap implementations
// without rebuilding the router.
type Deps struct {
	Hub   *events.Hub
	Store *store.DB

	// Atomic store holding config.Config.
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	Session *scrape.Session
	Flight  *enrich.Flight

	Source   func() scrape.DataSource
	Enricher func() enrich.Provider
}

func (d Deps) cfg() config.Config {
	return d.CfgVal.Load().(config.Config)
}
