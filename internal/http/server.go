package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wisesplit/internal/log"
	"wisesplit/internal/middleware/ratelimit"
	"wisesplit/internal/middleware/security"
	"wisesplit/internal/middleware/trace"
	"wisesplit/internal/services"
)

// Server is the JSON API over groups, expenses and settlements.
type Server struct {
	http.Server
	expenses    *services.ExpenseService
	settlements *services.SettlementService
	ready       func(context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. ready backs /readyz and may be nil.
// Write requests are limited per client IP according to limits.
func NewServer(addr string, expenses *services.ExpenseService, settlements *services.SettlementService, ready func(context.Context) error, limits ratelimit.Config) *Server {
	s := &Server{
		expenses:    expenses,
		settlements: settlements,
		ready:       ready,
		limiter:     ratelimit.NewLimiter(limits),
		detector:    security.NewDetector(),
		logger:      log.Default(log.ComponentHTTP),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /groups", s.handleCreateGroup)
	mux.HandleFunc("GET /groups/{id}", s.handleGetGroup)
	mux.HandleFunc("POST /groups/{id}/members", s.handleJoinGroup)
	mux.HandleFunc("GET /groups/{id}/members", s.handleListMembers)
	mux.HandleFunc("POST /groups/{id}/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /groups/{id}/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /groups/{id}/settlement", s.handleSettlement)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// middleware wraps next, outermost first: tracing, request logger, scan
// detection, security headers, write rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Writes, s.rateLimited)

	h := limited(next)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = log.Middleware(s.logger, trace.RequestID)(h)
	return s.tracer.Middleware(h)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(r, http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
