// Package api exposes the journal over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"trade-journal/internal/analysis/predict"
	"trade-journal/internal/analytics"
	"trade-journal/internal/auth"
	"trade-journal/internal/config"
	"trade-journal/internal/logging"
	"trade-journal/internal/marketdata"
	"trade-journal/internal/psychology"
	"trade-journal/internal/resilience"
	"trade-journal/internal/store"
	"trade-journal/internal/summarizer"
)

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Trades     store.TradeStore
	Auth       *auth.Service
	Market     marketdata.Provider
	Predictor  *predict.Predictor
	Summarizer *summarizer.Summarizer
	Breakers   *resilience.Registry
	Calendar   *marketdata.Calendar
	Location   *time.Location
	Logger     zerolog.Logger
	Version    string

	// BulkConcurrency bounds in-flight predictions per bulk request.
	BulkConcurrency int
}

// Server serves the journal API.
type Server struct {
	deps        Deps
	cfg         config.ServerConfig
	performance *analytics.Analyzer
	psychology  *psychology.Analyzer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Calendar == nil {
		deps.Calendar, _ = marketdata.NewCalendar(nil)
	}
	if deps.BulkConcurrency < 1 {
		deps.BulkConcurrency = 4
	}
	return &Server{
		deps:        deps,
		cfg:         cfg,
		performance: analytics.NewAnalyzer(deps.Location),
		psychology:  psychology.NewAnalyzer(deps.Location),
		logger:      deps.Logger.With().Str("component", "api").Logger(),
		now:         time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.CORSOrigin))

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.handleRegister)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)
			r.Post("/logout", s.handleLogout)
		})
	})

	r.Route("/api/trades", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/", s.handleListTrades)
		r.Post("/", s.handleCreateTrade)
		r.Get("/stats/summary", s.handleStatsSummary)
		r.Get("/analytics/insights", s.handleAnalyticsInsights)
		r.Get("/psychology/patterns", s.handlePsychologyPatterns)
		r.Get("/{id}", s.handleGetTrade)
		r.Put("/{id}", s.handleUpdateTrade)
		r.Delete("/{id}", s.handleDeleteTrade)
		r.Post("/{id}/analyze", s.handleAnalyzeTrade)
	})

	r.Route("/api/market", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/predict/bulk", s.handlePredictBulk)
		r.Get("/predict/{symbol}", s.handlePredict)
		r.Get("/quote/{symbol}", s.handleQuote)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Success: false, Message: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Envelope{Success: false, Message: "Method not allowed"})
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return auth.Middleware(s.deps.Auth, func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, err, "Authentication failed")
	})(next)
}

// requestLogger attaches a request-scoped logger and logs each response.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		logger := s.logger.With().Str("request_id", reqID).Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.LogRequest(logger, r.Method, r.URL.Path, status, time.Since(start), reqID)
	})
}

// cors allows the configured browser origin with credentials.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down gracefully...")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
