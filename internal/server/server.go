package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/NutanNimkar/FinChat/internal/apperr"
	"github.com/NutanNimkar/FinChat/internal/config"
	"github.com/NutanNimkar/FinChat/internal/db"
	"github.com/NutanNimkar/FinChat/internal/metrics"
	"github.com/NutanNimkar/FinChat/internal/pipeline"
	"github.com/NutanNimkar/FinChat/internal/types"
)

type QueryPipeline interface {
	Handle(ctx context.Context, req pipeline.Request) (pipeline.Reply, error)
}

// Deps are the collaborators behind the HTTP surface. Database and
// Recorder are optional.
type Deps struct {
	Pipeline QueryPipeline
	Resolver pipeline.TickerResolver
	Locator  pipeline.TranscriptLocator
	Metrics  pipeline.MetricReader
	Recorder *metrics.Recorder
	Database *db.DB
}

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	logger   *zap.Logger
	validate *validator.Validate

	pipeline QueryPipeline
	resolver pipeline.TickerResolver
	locator  pipeline.TranscriptLocator
	metric   pipeline.MetricReader
	recorder *metrics.Recorder
	database *db.DB
}

func NewServer(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
		pipeline: deps.Pipeline,
		resolver: deps.Resolver,
		locator:  deps.Locator,
		metric:   deps.Metrics,
		recorder: deps.Recorder,
		database: deps.Database,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	if s.recorder != nil {
		s.router.Handle("/metrics", s.recorder.Handler())
	}
	s.router.Route("/api/finance", func(r chi.Router) {
		r.Get("/earningscall/{ticker}", s.handleEarningsCall)
		r.Get("/ticker/{company}", s.handleTicker)
		r.Get("/metric/{ticker}/{metric}", s.handleMetric)
	})
	s.router.Post("/api/openai/summarize", s.handleQuery)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok"}
	code := http.StatusOK
	if s.database != nil {
		resp.Database = "ok"
		if err := s.database.HealthCheck(); err != nil {
			s.logger.Warn("database health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) handleEarningsCall(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	if ticker == "" {
		s.writeAppError(w, r, apperr.InvalidRequest("No ticker provided"))
		return
	}
	timeRange := strings.TrimSpace(r.URL.Query().Get("timeRange"))
	if timeRange == "" {
		timeRange = "latest"
	}
	found := s.locator.Locate(r.Context(), ticker, timeRange)
	if len(found.Transcripts) == 0 {
		s.writeAppError(w, r, apperr.NotFound("No transcript found"))
		return
	}
	s.writeJSON(w, http.StatusOK, types.TranscriptsResponse{Data: found.Transcripts})
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(chi.URLParam(r, "company"))
	if company == "" {
		s.writeAppError(w, r, apperr.InvalidRequest("No company name provided"))
		return
	}
	tickers := s.resolver.Resolve(r.Context(), []string{company})
	if len(tickers) == 0 {
		s.writeAppError(w, r, apperr.NotFound("No ticker found for the provided company"))
		return
	}
	s.writeJSON(w, http.StatusOK, types.TickerResponse{Ticker: tickers})
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	metric := strings.TrimSpace(chi.URLParam(r, "metric"))
	if ticker == "" || metric == "" {
		s.writeAppError(w, r, apperr.InvalidRequest("Ticker and metric are required."))
		return
	}
	result := s.metric.Lookup(r.Context(), ticker, metric)
	if result == "" {
		s.writeAppError(w, r, apperr.NotFound(fmt.Sprintf("No data found for %s of %s.", metric, ticker)))
		return
	}
	s.writeJSON(w, http.StatusOK, types.MetricResponse{Data: result})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAppError(w, r, apperr.InvalidRequest("invalid JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Query" {
			s.writeAppError(w, r, apperr.InvalidRequest("No query provided"))
			return
		}
		s.writeAppError(w, r, apperr.InvalidRequest("invalid request body"))
		return
	}

	reply, err := s.pipeline.Handle(r.Context(), pipeline.Request{
		Query:              req.Query,
		History:            req.Conversation,
		MentionedCompanies: req.MentionedCompanies,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if reply.IsResponse() {
		s.writeJSON(w, http.StatusOK, types.ResponseOnly{Response: reply.Response})
		return
	}
	mentioned := reply.MentionedCompanies
	if mentioned == nil {
		mentioned = []string{}
	}
	s.writeJSON(w, http.StatusOK, types.QueryResponse{Results: reply.Results, MentionedCompanies: mentioned})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// writeAppError maps err onto a status code. Internal faults are logged in
// full and answered with a generic message.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	code := apperr.HTTPStatus(kind)
	if kind == apperr.KindInternal {
		s.logger.Error("request failed",
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	s.writeError(w, code, apperr.PublicMessage(err))
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("requestId", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
