// Package server provides the HTTP API for performer searches.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/showstart-scout/internal/config"
	"github.com/jonathan/showstart-scout/internal/server/ratelimit"
	"github.com/jonathan/showstart-scout/internal/types"
)

// Version is reported by GET /.
const Version = "1.0.0"

// ServiceName is reported by GET /health.
const ServiceName = "rapper-search-api"

// SearchService is what the handlers need from the orchestrator.
type SearchService interface {
	Search(ctx context.Context, rapperName string, timeout time.Duration) *types.SearchOutcome
	Submit(rapperName string, timeout time.Duration) (string, error)
	Ready() error
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	service         SearchService
	search          config.SearchConfig
	mode            string
	shutdownTimeout time.Duration
	rateLimiter     *ratelimit.Limiter
	closers         []func(context.Context) error
	now             func() time.Time
}

// New creates a new server instance. service may be nil; search requests then get 503.
func New(cfg *config.Config, service SearchService) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		service:         service,
		search:          cfg.Search,
		mode:            cfg.Server.Mode,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit.RateLimiter()),
		now:             time.Now,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/rapper", s.handleSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("/", s.handleNotFound)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.withRateLimit(s.withLogging(s.withRecover(s.withCORS(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Sync searches may run as long as the agent does.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// OnShutdown registers fn to run after the HTTP listener has stopped, in registration order.
func (s *Server) OnShutdown(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// Start begins listening for requests and blocks until SIGINT/SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (mode=%s)", s.httpServer.Addr, s.mode)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the listener, the rate limiter and then the registered closers.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}

	// Stop rate limiter cleanup goroutine
	s.rateLimiter.Stop()

	for _, fn := range s.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	log.Println("Server stopped")
	return errors.Join(errs...)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRecover turns handler panics into the generic 500 envelope.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("[%s] %s panic: %v", r.Method, r.URL.Path, rec)
				s.jsonResponse(w, http.StatusInternalServerError, ErrorResponse{
					ErrorMessage: "internal server error",
					ErrorCode:    CodeInternal,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes the error envelope for a handled status.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	code := errorCode(status)
	if status == http.StatusInternalServerError {
		code = CodeInternal
	}
	s.jsonResponse(w, status, ErrorResponse{ErrorMessage: message, ErrorCode: code})
}

// writeError maps err to a status. Unexpected errors are logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Unhandled error: %v", err)
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier (IP address) from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests envelope.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	resp := ErrorResponse{
		ErrorMessage: "Rate limit exceeded. Please try again later.",
		ErrorCode:    errorCode(http.StatusTooManyRequests),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		resp.RetryAfter = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, resp)
}
