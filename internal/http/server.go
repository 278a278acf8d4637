package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/services"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services the API delegates to.
type Services struct {
	Entries    *services.EntryService
	Reports    *services.ReportService
	Accounts   *services.AccountService
	Categories *services.CategoryService
}

type Options struct {
	Logger  *applog.Logger
	Metrics *metrics.Metrics
	// Verifier enables bearer token enforcement; nil trusts the owner in the request.
	Verifier *auth.Verifier
	// RateLimitPerMinute of zero disables rate limiting.
	RateLimitPerMinute int
	Readiness          map[string]Pinger
}

type Server struct {
	http.Server
	svc       Services
	metrics   *metrics.Metrics
	verifier  *auth.Verifier
	limiter   *ratelimit.Limiter
	ipLookup  *security.ClientIPResolver
	readiness map[string]Pinger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		svc:       svc,
		metrics:   opts.Metrics,
		verifier:  opts.Verifier,
		ipLookup:  security.NewClientIPResolver(),
		readiness: opts.Readiness,
		started:   time.Now(),
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(logger))
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.ipLookup.ClientIP, s.rejectRateLimited))
		}
		if s.verifier != nil {
			r.Use(s.authenticate)
		}

		r.Route("/income", func(r chi.Router) {
			s.entryRoutes(r, core.KindIncome)
		})
		r.Route("/expense", func(r chi.Router) {
			r.Post("/transfer", s.handleTransfer)
			s.entryRoutes(r, core.KindExpense)
		})

		r.Get("/transactions/{owner}", s.handleTransactions)
		r.Get("/transactions/{owner}/export", s.handleExport)
		r.Get("/dashboard/{owner}", s.handleDashboard)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", s.handleCreateAccount)
			r.Get("/{owner}", s.handleListAccounts)
			r.Get("/{owner}/{name}", s.handleGetAccount)
			r.Patch("/{id}", s.handleUpdateAccount)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", s.handleCreateCategory)
			r.Get("/{owner}", s.handleListCategories)
			r.Delete("/{id}", s.handleDeactivateCategory)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) entryRoutes(r chi.Router, kind core.Kind) {
	r.Post("/", s.handleCreateEntry(kind))
	r.Get("/{owner}", s.handleListEntries(kind))
	r.Put("/{id}", s.handleUpdateEntry(kind))
	r.Delete("/{id}", s.handleDeleteEntry(kind))
}

// instrument records request counts and latency by route pattern so
// per-owner paths do not explode label cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, r.Method, status, time.Since(start))
	})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// authenticate requires a valid bearer token and records its owner on the context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, r, auth.ErrMissingToken)
			return
		}
		claims, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), claims.Email)))
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
