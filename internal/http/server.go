package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"farmtrack/internal/cache"
	"farmtrack/internal/log"
	"farmtrack/internal/services"
)

// Server is the JSON API surface. Read-side views (dashboard, analytics) are
// cached per user; any write for a user drops all of that user's cached
// views.
type Server struct {
	http.Server
	expenses *services.ExpenseService
	registry *services.RegistryService
	farm     *services.FarmService
	reports  *services.ReportService

	defaultUser string
	rateLimiter *rateLimiter
	structured  *log.StructuredLogger

	// viewCache holds marshaled dashboard and analytics responses, keyed
	// "user:view".
	viewCache    *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Deps bundles the services the server exposes.
type Deps struct {
	Expenses *services.ExpenseService
	Registry *services.RegistryService
	Farm     *services.FarmService
	Reports  *services.ReportService

	// DefaultUser is assumed when a request carries no X-User header.
	DefaultUser string
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		expenses:     deps.Expenses,
		registry:     deps.Registry,
		farm:         deps.Farm,
		reports:      deps.Reports,
		defaultUser:  deps.DefaultUser,
		rateLimiter:  newRateLimiter(60),
		structured:   log.NewStructuredLogger(log.New(log.DefaultConfig())),
		viewCache:    cache.NewLRUCache[[]byte](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/expenses", s.withCommon(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withCommon(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.withCommon(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withCommon(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withCommon(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/expenses/{id}/breakdown", s.withCommon(s.handleExpenseBreakdown))

	mux.HandleFunc("GET /api/categories", s.withCommon(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withCommon(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withCommon(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withCommon(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/subcategories", s.withCommon(s.handleListSubcategories))
	mux.HandleFunc("POST /api/subcategories", s.withCommon(s.handleCreateSubcategory))
	mux.HandleFunc("DELETE /api/subcategories/{id}", s.withCommon(s.handleDeleteSubcategory))

	mux.HandleFunc("GET /api/milestones", s.withCommon(s.handleListMilestones))
	mux.HandleFunc("POST /api/milestones", s.withCommon(s.handleCreateMilestone))
	mux.HandleFunc("DELETE /api/milestones/{id}", s.withCommon(s.handleDeleteMilestone))

	mux.HandleFunc("GET /api/farm", s.withCommon(s.handleGetFarmInfo))
	mux.HandleFunc("PUT /api/farm", s.withCommon(s.handlePutFarmInfo))

	mux.HandleFunc("GET /api/dashboard", s.withCommon(s.handleDashboard))
	mux.HandleFunc("GET /api/analytics", s.withCommon(s.handleAnalytics))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withCommon adds security headers, rate limiting on writes, and request
// logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.structured.LogHTTPStart(ctx, r, ip, requestID, s.userFrom(r))

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, ip,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip, requestID)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateViews drops every cached read view for one user. Called from
// every write handler.
func (s *Server) invalidateViews(user string) {
	s.viewCache.DeletePrefix(user + ":")
}

func (s *Server) viewKey(user, view string) string {
	return user + ":" + view
}
