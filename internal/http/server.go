// Package http serves the expense JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

const (
	defaultMaxBodyBytes = 10 << 20
	defaultRatePerMin   = 120
)

type Server struct {
	http.Server
	svc          *services.ExpenseService
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	logger       *log.Logger
	ready        func(ctx context.Context) error
	ratePerMin   int
	maxBodyBytes int64
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithRateLimit sets the per-client request budget per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.ratePerMin = perMinute }
}

// WithMaxBodyBytes bounds request bodies, CSV uploads included.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithReadiness makes /readyz report check's result.
func WithReadiness(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// NewServer wires the routes for svc behind the standard middleware chain.
func NewServer(addr string, svc *services.ExpenseService, opts ...Option) *Server {
	s := &Server{
		svc:          svc,
		detector:     security.NewDetector(),
		ratePerMin:   defaultRatePerMin,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.FromContext(context.Background())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.ratePerMin})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses", s.handleDeleteExpense)
	mux.HandleFunc("PATCH /api/expenses", s.handleBulkAdd)
	mux.HandleFunc("POST /api/expenses/import", s.handleImport)
	mux.HandleFunc("GET /api/savings", s.handleSavings)
	mux.HandleFunc("GET /api/summary", s.handleMonthSummary)
	mux.HandleFunc("GET /api/summary/range", s.handleRangeSummary)

	var h http.Handler = mux
	h = s.limitBody(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP).Middleware(h)
	h = log.Middleware(s.logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && s.maxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded", log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.LogError(r.Context(), "Readiness check failed", err, log.ComponentHTTP, "ready")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	_, _ = w.Write([]byte("ready"))
}
