package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zheng/jsdeps/internal/graph"
	"github.com/zheng/jsdeps/internal/impact"
	"github.com/zheng/jsdeps/internal/storage"
)

// Server is the JSON API over the stored dependency graph
type Server struct {
	db       *storage.DB
	analyzer *impact.Analyzer
	addr     string
	limit    int
	logger   *slog.Logger
}

// NewServer creates a new web server. limit caps search and hub results.
func NewServer(db *storage.DB, addr string, limit int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		db:       db,
		analyzer: impact.NewAnalyzer(db),
		addr:     addr,
		limit:    limit,
		logger:   logger,
	}
}

// ModuleDetail is the response of /api/module
type ModuleDetail struct {
	Module       *storage.Module       `json:"module"`
	Dependencies []*storage.Dependency `json:"dependencies"`
	Dependents   []*storage.Dependency `json:"dependents"`
	Exports      []*storage.Export     `json:"exports"`
}

// StatsData is the response of /api/stats
type StatsData struct {
	*storage.Stats
	Run *storage.Run `json:"run,omitempty"`
}

type errorData struct {
	Error string `json:"error"`
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(middleware.SetHeader("Access-Control-Allow-Origin", "*"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/modules", s.handleModules)
		r.Get("/module", s.handleModule)
		r.Get("/impact", s.handleImpact)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Get("/hubs", s.handleHubs)
		r.Get("/skipped", s.handleSkipped)
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 API 启动", "url", "http://"+s.addr+"/api/stats")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleGraph returns the complete graph payload
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	payload, err := s.db.LoadPayload()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleModules returns all modules, optionally filtered by ?kind=internal|external
func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r.URL.Query().Get("kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorData{Error: "kind must be internal or external"})
		return
	}
	modules, err := s.db.AllModules(kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

// handleModule returns one module with its edges and exports
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}

	detail := ModuleDetail{Module: m}
	var err error
	if detail.Dependencies, err = s.db.Dependencies(m.ID); err != nil {
		writeError(w, err)
		return
	}
	if detail.Dependents, err = s.db.Dependents(m.ID); err != nil {
		writeError(w, err)
		return
	}
	if detail.Exports, err = s.db.ExportsOf(m.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleImpact returns the impact report of a module; ?up= and ?down= set depths
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	up := intParam(r, "up", 0)
	down := intParam(r, "down", 1)

	report, err := s.analyzer.AnalyzeImpact(m.Name, up, down)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSearch searches modules by pattern
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, []*storage.Module{})
		return
	}

	modules, err := s.db.FindModules(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(modules) > s.limit {
		modules = modules[:s.limit]
	}
	writeJSON(w, http.StatusOK, modules)
}

// handleStats returns database statistics and the latest run
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, err)
		return
	}
	data := StatsData{Stats: stats}
	if run, err := s.db.LatestRun(); err == nil {
		data.Run = run
	}
	writeJSON(w, http.StatusOK, data)
}

// handleHubs returns the most depended-on modules
func (s *Server) handleHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := s.db.TopDependedOn(intParam(r, "limit", s.limit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hubs)
}

// handleSkipped returns the files skipped by the latest run
func (s *Server) handleSkipped(w http.ResponseWriter, r *http.Request) {
	run, err := s.db.LatestRun()
	if err != nil {
		writeError(w, err)
		return
	}
	skipped, err := s.db.Skipped(run.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, skipped)
}

// lookup resolves ?id= (row id or module name) to a module, writing the error response itself
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*storage.Module, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorData{Error: "missing id"})
		return nil, false
	}

	var (
		m   *storage.Module
		err error
	)
	if n, convErr := strconv.ParseInt(id, 10, 64); convErr == nil {
		m, err = s.db.GetModuleByID(n)
	} else {
		m, err = s.db.GetModule(id)
	}
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return m, true
}

func parseKind(s string) (graph.NodeKind, bool) {
	switch kind := graph.NodeKind(s); kind {
	case "", graph.NodeKindInternal, graph.NodeKindExternal:
		return kind, true
	default:
		return "", false
	}
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, impact.ErrAmbiguous):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorData{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
