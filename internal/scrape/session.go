package scrape

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/events"
)

// Status is the externally visible state of a search session.
type Status struct {
	Running   bool   `json:"running"`
	LastQuery string `json:"last_query,omitempty"`
	LastRunAt string `json:"last_run_at,omitempty"`
	LastOkAt  string `json:"last_ok_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
	LastCount int    `json:"last_count"`
	Cancelled bool   `json:"cancelled"`
}

// Session serializes searches for one caller context: starting a new search
// cancels the in-flight one, so at most one run is ever active. Results and
// progress stream to the event hub.
type Session struct {
	orch *Orchestrator
	hub  *events.Hub

	mu       sync.Mutex
	cancel   context.CancelFunc
	gen      uint64 // bumped per Start; stale runs may not touch state
	active   bool
	lastOpts *Options

	status atomic.Value // Status
}

func NewSession(orch *Orchestrator, hub *events.Hub) *Session {
	s := &Session{orch: orch, hub: hub}
	s.status.Store(Status{})
	return s
}

func (s *Session) Status() Status {
	return s.status.Load().(Status)
}

// Active reports whether a run is currently in flight.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// LastOptions returns the most recently submitted query, if any.
func (s *Session) LastOptions() (Options, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastOpts == nil {
		return Options{}, false
	}
	return *s.lastOpts, true
}

// Start cancels any in-flight run and begins a fresh one in the background.
func (s *Session) Start(opts Options) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.active = true
	o := opts
	s.lastOpts = &o
	s.mu.Unlock()

	prev := s.Status()
	s.status.Store(Status{
		Running:   true,
		LastQuery: opts.JobTitle,
		LastRunAt: time.Now().Format(time.RFC3339),
		LastOkAt:  prev.LastOkAt,
	})
	s.hub.Emit(events.TypeSearchStarted, map[string]any{"query": opts.JobTitle})

	go s.run(ctx, gen, opts)
}

// Cancel stops the in-flight run, if any. No result or progress events fire
// past this point; only the cancelled notification follows.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) run(ctx context.Context, gen uint64, opts Options) {
	jobs, err := s.orch.Search(ctx, opts, func(u Update) {
		s.hub.Emit(events.TypeSearchPage, map[string]any{
			"runId":    u.Run.RunID,
			"offset":   u.Run.Offset,
			"newCount": u.NewCount,
			"total":    len(u.Jobs),
		})
	})

	s.mu.Lock()
	stale := gen != s.gen
	if !stale {
		s.active = false
		s.cancel = nil
	}
	s.mu.Unlock()
	if stale {
		// A newer search owns the session; a superseded run reports nothing.
		return
	}

	now := time.Now().Format(time.RFC3339)
	st := s.Status()
	st.Running = false
	st.LastRunAt = now

	switch {
	case errors.Is(err, domain.ErrCancelled):
		st.Cancelled = true
		s.status.Store(st)
		s.hub.Emit(events.TypeSearchCancelled, map[string]any{"query": opts.JobTitle})
	case err != nil:
		st.LastError = err.Error()
		s.status.Store(st)
		s.hub.Emit(events.TypeSearchFailed, map[string]any{"error": err.Error()})
	default:
		st.LastError = ""
		st.Cancelled = false
		st.LastOkAt = now
		st.LastCount = len(jobs)
		s.status.Store(st)
		s.hub.Emit(events.TypeSearchDone, map[string]any{"total": len(jobs)})
	}
}
