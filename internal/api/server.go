package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carevault/carevault/internal/app"
	"github.com/carevault/carevault/internal/config"
	"github.com/carevault/carevault/internal/logger"
	"github.com/carevault/carevault/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	config         *config.Config
	consentService *app.ConsentService
	recordService  *app.RecordService
	profileService *app.ProfileService
	rateLimiter    *middleware.RateLimiter
	httpServer     *http.Server
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	consentService *app.ConsentService,
	recordService *app.RecordService,
	profileService *app.ProfileService,
) *Server {
	return &Server{
		config:         cfg,
		consentService: consentService,
		recordService:  recordService,
		profileService: profileService,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitEnabled),
	}
}

// Handler builds the routing table with the middleware chain
// RequestID -> RateLimit -> Metrics -> mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health and metrics endpoints (no rate limiting concerns here; they sit
	// behind the same chain for uniform request IDs)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	// Consent lifecycle
	mux.HandleFunc("/v1/consents", s.handleRequestAccess)
	mux.HandleFunc("/v1/consents/approve", s.handleApproveAccess)
	mux.HandleFunc("/v1/consents/deny", s.handleDenyAccess)
	mux.HandleFunc("/v1/consents/revoke", s.handleRevokeAccess)
	mux.HandleFunc("/v1/consents/check", s.handleCheckAccess)

	// Ciphertext records
	mux.HandleFunc("/v1/records", s.handleRecords)

	// Managed-custody profiles
	mux.HandleFunc("/v1/custodial-wallets", s.handleProvisionWallet)
	mux.HandleFunc("/v1/profiles", s.handleProfiles)

	return middleware.RequestID(s.rateLimiter.Limit(middleware.Metrics(mux)))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Component("api").Info("starting server", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
