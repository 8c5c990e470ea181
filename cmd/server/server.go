package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/arules/internal/board"
	"github.com/liamcoop/arules/internal/catalog"
	"github.com/liamcoop/arules/internal/logger"
	"github.com/liamcoop/arules/internal/person"
	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

type Server struct {
	db       *sql.DB
	registry *schema.Registry
	engine   *rules.Engine
	loader   *catalog.Loader
	board    *board.Board
	metrics  *prometheus.Registry
	router   *chi.Mux
}

// NewServer builds the engine, replays stored rule definitions, and sets up routes.
// A nil db keeps rule definitions in memory.
func NewServer(db *sql.DB) (*Server, error) {
	registry := schema.NewRegistry()
	if err := person.Declare(registry); err != nil {
		return nil, fmt.Errorf("failed to declare person schema: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := rules.NewMetrics(promRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	engine, err := rules.NewEngine(registry, rules.NewInMemoryRuleStore(),
		rules.WithMetrics(metrics),
		rules.WithLogger(logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	b := board.New(board.DefaultCapacity)
	sink := b.LogFunc(registry)
	engine.Log().SetLogging(rules.LogOptions{OnSuccess: true, OnFailure: true})
	engine.Log().SetLogCallback(func(rule *rules.Rule, success bool, record rules.Record, failure *rules.Failure) {
		if failure != nil && failure.Err != nil {
			logger.CountRuleFailure()
		}
		sink(rule, success, record, failure)
	})

	var store catalog.DefinitionStore = catalog.NewInMemoryStore()
	if db != nil {
		store = catalog.NewPostgresStore(db)
	}

	loader := catalog.NewLoader(registry, engine, store, b)
	n, err := loader.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	logger.Info("rules loaded", "count", n)

	s := &Server{
		db:       db,
		registry: registry,
		engine:   engine,
		loader:   loader,
		board:    b,
		metrics:  promRegistry,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/operators", s.handleOperators)
		r.Get("/board", s.handleBoard)

		r.Route("/schemas", func(r chi.Router) {
			r.Get("/", s.handleListSchemas)

			r.Route("/{schema}", func(r chi.Router) {
				r.Get("/", s.handleGetSchema)
				r.Get("/triggers/{event}/rules", s.handleRulesByTrigger)
				r.Post("/triggers/{event}/dispatch", s.handleDispatch)
			})
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Get("/{ruleId}", s.handleGetRule)
			r.Delete("/{ruleId}", s.handleDeleteRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs each request and feeds the 4xx/5xx counters
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.CountHTTPStatus(status)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	all, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	resp := HealthResponse{
		Status:        "healthy",
		Storage:       "memory",
		RulesLoaded:   len(all),
		RuleFailures:  logger.RuleFailures.Load(),
		TotalErrors:   logger.TotalErrors.Load(),
		TotalWarnings: logger.TotalWarnings.Load(),
	}

	if s.db != nil {
		resp.Storage = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOperators(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, OperatorsResponse{Operators: rules.Operators()})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	resp := SchemasListResponse{Schemas: []schema.Schema{}}
	for _, name := range s.registry.Schemas() {
		sc, err := s.registry.Schema(name)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to read schema", err)
			return
		}
		resp.Schemas = append(resp.Schemas, sc)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	sc, err := s.registry.Schema(chi.URLParam(r, "schema"))
	if err != nil {
		respondError(w, statusFor(err), "schema not found", err)
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

func (s *Server) handleRulesByTrigger(w http.ResponseWriter, r *http.Request) {
	trigger, err := s.registry.Trigger(chi.URLParam(r, "schema"), chi.URLParam(r, "event"))
	if err != nil {
		respondError(w, statusFor(err), "trigger not found", err)
		return
	}

	bound, err := s.engine.RulesByTrigger(trigger)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}
	respondJSON(w, http.StatusOK, s.rulesResponse(bound))
}

// handleDispatch runs every rule bound to the trigger against the request body
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	trigger, err := s.registry.Trigger(chi.URLParam(r, "schema"), chi.URLParam(r, "event"))
	if err != nil {
		respondError(w, statusFor(err), "trigger not found", err)
		return
	}

	var record map[string]any
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if record == nil {
		respondError(w, http.StatusBadRequest, "record is required", nil)
		return
	}

	bound, err := s.engine.RulesByTrigger(trigger)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	s.engine.Dispatch(trigger, rules.Fields(record))

	respondJSON(w, http.StatusAccepted, DispatchResponse{Trigger: trigger.String(), Rules: len(bound)})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	all, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}
	respondJSON(w, http.StatusOK, s.rulesResponse(all))
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	def := req.definition()
	rule, err := s.loader.Create(def)
	if err != nil {
		respondError(w, statusFor(err), "failed to create rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, newRuleResponse(def, rule))
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.engine.Rule(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondError(w, statusFor(err), "rule not found", err)
		return
	}
	respondJSON(w, http.StatusOK, newRuleResponse(s.loader.Describe(rule), rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.loader.Remove(chi.URLParam(r, "ruleId")); err != nil {
		respondError(w, statusFor(err), "failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rulesResponse(list []*rules.Rule) RulesListResponse {
	resp := RulesListResponse{Rules: make([]RuleResponse, 0, len(list))}
	for _, rule := range list {
		resp.Rules = append(resp.Rules, newRuleResponse(s.loader.Describe(rule), rule))
	}
	return resp
}

// statusFor maps engine and catalog errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrUnknownSchema),
		errors.Is(err, schema.ErrUnknownTrigger),
		errors.Is(err, schema.ErrUnknownParam),
		errors.Is(err, rules.ErrNotFound),
		errors.Is(err, catalog.ErrDefinitionNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateDefinition):
		return http.StatusConflict
	case errors.Is(err, rules.ErrInvalidRule),
		errors.Is(err, catalog.ErrInvalidDefinition),
		errors.Is(err, catalog.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}
