package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/circuitbreaker"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout bounds the graceful shutdown of the server
const shutdownTimeout = 5 * time.Second

// ChainStatus is the observed state of one chain connection
type ChainStatus struct {
	ChainID     int               `json:"chain_id"`
	Name        string            `json:"name"`
	RPCURL      string            `json:"rpc_url"`
	Connected   bool              `json:"connected"`
	LatestBlock uint64            `json:"latest_block,omitempty"`
	Balances    map[string]string `json:"token_balances,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// StatusSource provides the chain state reported by the server
type StatusSource interface {
	// Ready returns an error while a chain client is not connected
	Ready() error
	ChainStatuses(ctx context.Context) []ChainStatus
}

// Server represents a health check HTTP server
type Server struct {
	port          string
	source        StatusSource
	breakers      *circuitbreaker.Registry
	metricsAPIKey string
	logger        logger.Logger
}

// NewServer creates a new health check server
func NewServer(port string, source StatusSource, breakers *circuitbreaker.Registry, metricsAPIKey string, logger logger.Logger) *Server {
	return &Server{
		port:          port,
		source:        source,
		breakers:      breakers,
		metricsAPIKey: metricsAPIKey,
		logger:        logger,
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routes served by the health server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := s.source.Ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/circuit/reset", s.handleCircuitReset)

	// Expose Prometheus metrics with API key authentication
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]interface{})
	for _, chain := range s.source.ChainStatuses(r.Context()) {
		status[fmt.Sprintf("chain_%d", chain.ChainID)] = chain
	}
	if s.breakers != nil {
		status["webhook_circuits"] = s.breakers.States()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

// handleCircuitReset closes the webhook circuit of one host
func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	host := r.URL.Query().Get("host")
	if host == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Missing host parameter"))
		return
	}

	if s.breakers == nil || !s.breakers.Reset(host) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(fmt.Sprintf("No circuit breaker for host %s", host)))
		return
	}

	s.logger.Notice("Circuit breaker for webhook host %s reset by operator", host)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fmt.Sprintf("Circuit breaker for host %s reset", host)))
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Starting health and metrics server on port %s", s.port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Health server error: %v", err)
	}
}
