package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"campnest/internal/config"
	"campnest/internal/metrics"
	"campnest/internal/service"
)

// Server is the public booking API.
type Server struct {
	cfg          *config.Config
	auth         *authenticator
	limiter      *rateLimiter
	booking      *service.BookingService
	availability *service.AvailabilityService
	alerts       *service.AlertService
	exports      *service.ExportService
	logger       *zerolog.Logger
	router       *httprouter.Router
	httpServer   *http.Server
}

func NewServer(
	cfg *config.Config,
	booking *service.BookingService,
	availability *service.AvailabilityService,
	alerts *service.AlertService,
	exports *service.ExportService,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		cfg:          cfg,
		auth:         newAuthenticator(cfg.API.JWTSecret),
		limiter:      newRateLimiter(cfg.API.RateLimit),
		booking:      booking,
		availability: availability,
		alerts:       alerts,
		exports:      exports,
		logger:       logger,
		router:       httprouter.New(),
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.requestIDMiddleware(s.loggingMiddleware(s.rateLimitMiddleware(s.router))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.route(http.MethodGet, "/healthz", s.handleHealth)

	s.route(http.MethodGet, "/api/campgrounds", s.authenticated(s.handleListCampgrounds))
	s.route(http.MethodGet, "/api/campgrounds/:id", s.authenticated(s.handleGetCampground))
	s.route(http.MethodGet, "/api/campgrounds/:id/campsites", s.authenticated(s.handleListCampsites))
	s.route(http.MethodGet, "/api/campgrounds/:id/availability", s.authenticated(s.handleAvailability))
	s.route(http.MethodGet, "/api/campgrounds/:id/alerts", s.authenticated(s.handleListAlerts))
	s.route(http.MethodGet, "/api/campgrounds/:id/bookings", s.authenticated(s.handleCampgroundBookings))
	s.route(http.MethodPost, "/api/campgrounds/:id/bookings", s.authenticated(s.handleQuote))
	s.route(http.MethodPost, "/api/campgrounds/:id/checkout", s.authenticated(s.handleCheckout))

	s.route(http.MethodGet, "/api/payments/success", s.authenticated(s.handlePaymentSuccess))

	s.route(http.MethodGet, "/api/bookings", s.authenticated(s.handleListBookings))
	s.route(http.MethodGet, "/api/bookings/:id", s.authenticated(s.handleGetBooking))
	s.route(http.MethodPatch, "/api/bookings/:id/cancel", s.authenticated(s.handleCancelBooking))

	s.route(http.MethodPost, "/api/alerts/:id/acknowledge", s.authenticated(s.handleAcknowledgeAlert))

	s.route(http.MethodGet, "/api/admin/bookings/export", s.adminOnly(s.handleExportBookings))
	s.route(http.MethodPatch, "/api/admin/bookings/:id/complete", s.adminOnly(s.handleCompleteBooking))
}

// route registers a handler wrapped with per-route metrics. The metric
// label is the route pattern, not the request path, to keep cardinality
// bounded.
func (s *Server) route(method, pattern string, h httprouter.Handle) {
	s.router.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, ps)
		metrics.ObserveHTTP(method, pattern, rec.status, time.Since(start))
	})
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware chain, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

const requestIDKey contextKey = "request_id"

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("http request")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
