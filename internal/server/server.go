// Package server exposes the ingestion and query HTTP surface over the
// time-series store.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/metricshub/internal/logger"
	"codeberg.org/mutker/metricshub/internal/store"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	repo        store.Repository
	mux         *http.ServeMux
	instruments *instruments
}

func New(repo store.Repository) *Server {
	s := &Server{
		repo:        repo,
		mux:         http.NewServeMux(),
		instruments: newInstruments(),
	}

	s.mux.HandleFunc("POST /metrics", s.handleIngestSystem)
	s.mux.HandleFunc("GET /api/metrics", s.handleLatestSystem)
	s.mux.HandleFunc("GET /api/metrics/table", s.handleSystemTable)
	s.mux.HandleFunc("POST /stock_metrics", s.handleIngestStocks)
	s.mux.HandleFunc("GET /api/stock_metrics", s.handleLatestStocks)
	s.mux.HandleFunc("GET /api/historical/system_metrics", s.handleSystemHistory)
	s.mux.HandleFunc("GET /api/historical/stock_metrics", s.handleStockHistory)
	s.mux.Handle("GET /debug/metrics", s.instruments.handler())

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks until ctx is cancelled, then drains in-flight
// requests
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Str("addr", addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errFactory.Wrap(ErrServeFailed, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrShutdownFailed, err)
	}

	logger.Info().Msg("HTTP server stopped")

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
