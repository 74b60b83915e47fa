package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"codeberg.org/mutker/metricshub/internal/logger"
	"codeberg.org/mutker/metricshub/internal/store"
)

func (s *Server) handleIngestSystem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.instruments.rejected.WithLabelValues("system", "read_body").Inc()
		writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	parsed, kind := parsePayload(body)
	if kind != payloadObject {
		logger.Warn().Str("remote", r.RemoteAddr).Msg("Received non-JSON metrics request")
		s.instruments.rejected.WithLabelValues("system", "invalid_payload").Inc()
		writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	rec := systemRecordFromJSON(parsed)
	logger.Info().
		Str("remote", r.RemoteAddr).
		Str("group_key", rec.GroupKey).
		Msg("Received metrics data")

	if err := s.repo.InsertSystem(r.Context(), rec); err != nil {
		logger.Error().Err(err).Msg("Error inserting metrics data")
		s.instruments.rejected.WithLabelValues("system", "storage").Inc()
		writeError(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.instruments.ingested.WithLabelValues("system").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Metrics received"})
}

func (s *Server) handleIngestStocks(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.instruments.rejected.WithLabelValues("stock", "read_body").Inc()
		writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	parsed, kind := parsePayload(body)
	if kind == payloadInvalid {
		logger.Warn().Str("remote", r.RemoteAddr).Msg("Received non-JSON stock metrics request")
		s.instruments.rejected.WithLabelValues("stock", "invalid_payload").Inc()
		writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	var recs []*store.StockRecord
	if kind == payloadArray {
		parsed.ForEach(func(_, element gjson.Result) bool {
			recs = append(recs, stockRecordFromJSON(element))
			return true
		})
	} else {
		recs = append(recs, stockRecordFromJSON(parsed))
	}

	inserted, err := s.repo.InsertStocks(r.Context(), recs)
	if err != nil {
		logger.Error().Err(err).Msg("Error inserting stock metrics data")
		s.instruments.rejected.WithLabelValues("stock", "storage").Inc()
		writeError(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	logger.Info().Int("records", inserted).Msg("Inserted stock metrics records")
	s.instruments.ingested.WithLabelValues("stock").Add(float64(inserted))
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":           "success",
		"records_inserted": inserted,
	})
}

func (s *Server) handleLatestSystem(w http.ResponseWriter, r *http.Request) {
	rec, err := s.repo.LatestSystem(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving metrics")
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSystemTable(w http.ResponseWriter, r *http.Request) {
	groupKey := r.URL.Query().Get("group_key")
	limit := queryLimit(r, store.DefaultTableLimit)

	recs, err := s.repo.SystemTable(r.Context(), groupKey, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving system metrics for table")
		writeJSON(w, http.StatusOK, []*store.SystemRecord{})
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleLatestStocks(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.LatestStocks(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving stock data")
		writeJSON(w, http.StatusOK, []*store.StockRecord{})
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSystemHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.SystemHistory(r.Context(), store.DefaultSystemHistoryLimit)
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving historical system metrics")
		writeJSON(w, http.StatusOK, []*store.SystemRecord{})
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	recs, err := s.repo.StockHistory(r.Context(), symbol, store.DefaultStockHistoryLimit)
	if err != nil {
		logger.Error().Err(err).Msg("Error retrieving historical stock metrics")
		writeJSON(w, http.StatusOK, []*store.StockRecord{})
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
