// Package server exposes the dashboard REST API over net/http.
package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloudscope/cloudscope/internal/inventory"
	"github.com/cloudscope/cloudscope/internal/profiles"
	"github.com/cloudscope/cloudscope/internal/store"
	"github.com/cloudscope/cloudscope/telemetry"
)

// Server is the CloudScope HTTP server.
type Server struct {
	store         *store.ProfileStore
	inventory     *inventory.Service
	account       profiles.AccountResolver
	log           *telemetry.Logger
	listen        string
	corsOrigin    string
	defaultRegion string
	cacheEnabled  bool
	srv           *http.Server

	// rate limiter state
	limiters    sync.Map // map[string]*ipLimiter
	cleanupOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a new Server.
func New(profileStore *store.ProfileStore, inv *inventory.Service, account profiles.AccountResolver,
	log *telemetry.Logger, listen, corsOrigin, defaultRegion string, cacheEnabled bool) *Server {
	return &Server{
		store:         profileStore,
		inventory:     inv,
		account:       account,
		log:           log,
		listen:        listen,
		corsOrigin:    corsOrigin,
		defaultRegion: defaultRegion,
		cacheEnabled:  cacheEnabled,
	}
}

// securityHeaders adds standard security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request body size to 1 MB on mutating methods.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter limits API requests to 10/sec burst 20 per client IP.
func (s *Server) rateLimiter(next http.Handler) http.Handler {
	// One cleanup goroutine per server, no matter how many handlers
	// get assembled.
	s.cleanupOnce.Do(func() {
		go func() {
			for {
				time.Sleep(5 * time.Minute)
				s.limiters.Range(func(key, value any) bool {
					il := value.(*ipLimiter)
					if time.Since(il.lastSeen) > 10*time.Minute {
						s.limiters.Delete(key)
					}
					return true
				})
			}
		}()
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, _ := net.SplitHostPort(r.RemoteAddr)
		if ip == "" {
			ip = r.RemoteAddr
		}

		val, _ := s.limiters.LoadOrStore(ip, &ipLimiter{
			limiter:  rate.NewLimiter(10, 20),
			lastSeen: time.Now(),
		})
		il := val.(*ipLimiter)
		il.lastSeen = time.Now()

		if !il.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers when a cors_origin is configured.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsOrigin != "" && strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler assembles the middleware chain around the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, s)

	// security headers → body limit → CORS → rate limit → mux
	var handler http.Handler = mux
	handler = s.rateLimiter(handler)
	handler = s.corsMiddleware(handler)
	handler = limitBody(handler)
	handler = securityHeaders(handler)
	return handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.listen,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithContext(context.Background()).Info().Str("listen", s.listen).Msg("starting server")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
