// Package api provides a read-only HTTP API over a saved simulation run.
// Every request reads the run from the snapshot database, so a `lineage
// run` writing to the same file is observed year by year.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/metrics"
	"github.com/talgya/lineage/internal/persistence"
	"github.com/talgya/lineage/internal/registry"
	"github.com/talgya/lineage/internal/report"
)

// Server serves a saved run over HTTP.
type Server struct {
	DB   *persistence.DB
	Addr string

	// Requests allowed per client per minute. Zero disables limiting.
	RateLimit int
	// TrustProxy takes the client address from X-Forwarded-For instead of
	// the connection.
	TrustProxy bool
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	wrap := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if s.RateLimit > 0 {
		limiter := NewRateLimiter(s.RateLimit, time.Minute)
		limiter.TrustProxy = s.TrustProxy
		wrap = func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(limiter, h) }
	}

	mux.HandleFunc("GET /api/v1/status", wrap(s.handleStatus))
	mux.HandleFunc("GET /api/v1/people", wrap(s.handlePeople))
	mux.HandleFunc("GET /api/v1/people/{id}", wrap(s.handlePerson))
	mux.HandleFunc("GET /api/v1/families", wrap(s.handleFamilies))
	mux.HandleFunc("GET /api/v1/events", wrap(s.handleEvents))
	mux.HandleFunc("GET /metrics", wrap(s.handleMetrics))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		slog.Info("HTTP API stopped")
		return nil
	}
}

func (s *Server) load(w http.ResponseWriter) (*engine.Simulation, string, bool) {
	sim, runID, err := s.DB.LoadRun(engine.Options{})
	if errors.Is(err, persistence.ErrNoRun) {
		http.Error(w, "no saved run", http.StatusNotFound)
		return nil, "", false
	}
	if err != nil {
		slog.Error("load run", "error", err)
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return nil, "", false
	}
	return sim, runID, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sim, runID, ok := s.load(w)
	if !ok {
		return
	}

	status := map[string]any{
		"run_id":     runID,
		"village":    sim.Config().VillageName,
		"year":       sim.CurrentYear(),
		"max_years":  sim.Config().MaxYears,
		"state":      sim.State(),
		"end_reason": sim.EndReason(),
		"stats":      sim.Stats,
		"population": report.Summarize(sim.Population()),
	}
	if p, ok := sim.CurrentPlayer(); ok {
		status["player"] = p
	}
	writeJSON(w, status)
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	sim, _, ok := s.load(w)
	if !ok {
		return
	}
	people := sim.Records()
	if r.URL.Query().Get("alive") == "true" {
		people = sim.Population()
	}
	writeJSON(w, people)
}

// personDetail is a person with the kinship answers the viewer shows.
type personDetail struct {
	registry.Record
	Player       bool              `json:"player"`
	Parents      []agents.PersonID `json:"parents"`
	Grandparents []agents.PersonID `json:"grandparents"`
	Ancestors    []agents.PersonID `json:"ancestors"`
	Descendants  []agents.PersonID `json:"descendants"`
	Events       []engine.Event    `json:"events"`
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid person id", http.StatusBadRequest)
		return
	}
	sim, _, ok := s.load(w)
	if !ok {
		return
	}

	pid := agents.PersonID(id)
	rec, found := sim.Record(pid)
	if !found {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}

	kin := sim.Kinship()
	detail := personDetail{
		Record:       rec,
		Player:       pid == sim.PlayerID(),
		Parents:      kin.Parents(pid),
		Grandparents: kin.Grandparents(pid),
		Ancestors:    kin.Ancestors(pid),
		Descendants:  kin.Descendants(pid),
	}
	for _, y := range sim.Years() {
		for _, e := range sim.EventsFor(y) {
			if e.Involves(pid) {
				detail.Events = append(detail.Events, e)
			}
		}
	}
	writeJSON(w, detail)
}

func (s *Server) handleFamilies(w http.ResponseWriter, r *http.Request) {
	sim, _, ok := s.load(w)
	if !ok {
		return
	}

	type family struct {
		Parents  []registry.Record `json:"parents"`
		Children []registry.Record `json:"children"`
		Summary  string            `json:"summary"`
	}
	var out []family
	for _, f := range report.Families(sim.Population()) {
		out = append(out, family{Parents: f.Parents, Children: f.Children, Summary: report.FormatFamily(f, sim.PlayerID())})
	}
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var (
		events []engine.Event
		err    error
	)
	q := r.URL.Query()
	switch {
	case q.Get("year") != "":
		year, convErr := strconv.Atoi(q.Get("year"))
		if convErr != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		events, err = s.DB.Events(year)
	default:
		limit := 50
		if l := q.Get("limit"); l != "" {
			if n, convErr := strconv.Atoi(l); convErr == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		events, err = s.DB.RecentEvents(limit)
	}
	if err != nil {
		slog.Error("load events", "error", err)
		http.Error(w, "failed to load events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sim, _, ok := s.load(w)
	if !ok {
		return
	}
	m := metrics.New()
	m.ObserveHistory(sim)
	promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
