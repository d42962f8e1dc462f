// Package api serves stored swap records, MEV findings and arbitrage
// opportunities over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/reporting"
	"solana-mev-lab/internal/storage"
)

// Stores is the set of stores the API reads. Progress, Unknown and
// Analytics may be nil; their endpoints then answer 503.
type Stores struct {
	Swaps     storage.SwapRecordStore
	Findings  storage.MEVFindingStore
	Arbitrage storage.ArbitrageStore
	Progress  storage.ScanProgressStore
	Unknown   storage.UnknownProgramStore
	Analytics storage.AnalyticsStore
}

// Config holds server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxSlotSpan caps the width of slot range queries.
	MaxSlotSpan int64
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxSlotSpan:     10_000,
	}
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	stores     Stores
	reports    *reporting.Generator
	config     Config
	log        logrus.FieldLogger
}

// NewServer creates a new API server instance.
func NewServer(config Config, stores Stores, log logrus.FieldLogger) *Server {
	def := DefaultConfig()
	if config.MaxSlotSpan <= 0 {
		config.MaxSlotSpan = def.MaxSlotSpan
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		router: mux.NewRouter(),
		stores: stores,
		reports: reporting.NewGenerator(reporting.Stores{
			Swaps:     stores.Swaps,
			Findings:  stores.Findings,
			Arbitrage: stores.Arbitrage,
			Progress:  stores.Progress,
			Unknown:   stores.Unknown,
			Analytics: stores.Analytics,
		}),
		config: config,
		log:    log,
	}

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware(s.log))
	s.router.Use(RecoveryMiddleware(s.log))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", observability.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Swaps
	api.HandleFunc("/swaps", s.handleListSwaps).Methods("GET")
	api.HandleFunc("/swaps/{signature}", s.handleGetSwap).Methods("GET")

	// Findings
	api.HandleFunc("/findings", s.handleListFindings).Methods("GET")
	api.HandleFunc("/findings/{id}", s.handleGetFinding).Methods("GET")

	// Arbitrage
	api.HandleFunc("/arbitrage", s.handleListOpportunities).Methods("GET")
	api.HandleFunc("/arbitrage/{id}", s.handleGetOpportunity).Methods("GET")

	// Wallets
	api.HandleFunc("/wallets/{wallet}/swaps", s.handleWalletSwaps).Methods("GET")
	api.HandleFunc("/wallets/{wallet}/findings", s.handleWalletFindings).Methods("GET")
	api.HandleFunc("/wallets/{wallet}/arbitrage", s.handleWalletOpportunities).Methods("GET")

	// Discovery and analytics
	api.HandleFunc("/unknown-programs", s.handleUnknownPrograms).Methods("GET")
	api.HandleFunc("/stats/venues", s.handleVenueActivity).Methods("GET")
	api.HandleFunc("/stats/findings", s.handleFindingCounts).Methods("GET")

	// Scan runs and reports
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/report", s.handleReport).Methods("GET")
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "solana-mev-lab",
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("Starting API server")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
