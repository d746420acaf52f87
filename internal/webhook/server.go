package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/clarahexa/clarabot/internal/config"
	"github.com/clarahexa/clarabot/internal/logger"
)

// maxBodySize bounds webhook request bodies. Media never travels inline, so
// deliveries are small JSON documents.
const maxBodySize = 1 << 20

// Result is the JSON body answered to the gateway for one delivery.
type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Handler processes one raw webhook delivery end to end and reports the
// outcome plus the HTTP status to answer with.
type Handler interface {
	HandleWebhook(ctx context.Context, body []byte) (Result, int)
}

// Pinger is the liveness probe dependency of the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the webhook HTTP server.
type Server struct {
	srv *http.Server
	cfg config.ServerConfig
	log *slog.Logger
}

// NewServer creates the webhook server with its routes and logging
// middleware attached.
func NewServer(cfg config.ServerConfig, handler Handler, health Pinger, log *slog.Logger) *Server {
	serverLog := log.With("component", "webhook_server")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", webhookHandler(handler, serverLog))
	mux.HandleFunc("GET /healthz", healthHandler(health))

	return &Server{
		srv: &http.Server{
			Addr:    cfg.Addr,
			Handler: logger.Middleware(serverLog)(mux),
		},
		cfg: cfg,
		log: serverLog,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Webhook server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down webhook server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	return nil
}

func webhookHandler(handler Handler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Result{Status: "error", Reason: "unreadable_body"})
			return
		}

		defer func() {
			// Pipeline panics must never leak internals to the gateway.
			if rec := recover(); rec != nil {
				log.ErrorContext(r.Context(), "Panic while handling webhook", "panic", rec)
				writeJSON(w, http.StatusInternalServerError, Result{Status: "error"})
			}
		}()

		result, status := handler.HandleWebhook(r.Context(), body)
		writeJSON(w, status, result)
	}
}

func healthHandler(health Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, Result{Status: "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, Result{Status: "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
