package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store store.Store
	table string
	log   logrus.FieldLogger
}

// NewHandler creates a new Handler serving records of table
func NewHandler(st store.Store, table string, log logrus.FieldLogger) *Handler {
	return &Handler{
		store: st,
		table: table,
		log:   log,
	}
}

// ListPrices handles GET /prices/{ticker}
func (h *Handler) ListPrices(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	records, err := h.store.ListRecords(r.Context(), h.table, ticker)
	if err != nil {
		h.log.WithError(err).WithField("ticker", ticker).Error("failed to list prices")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.PriceRecord{}
	}

	respondJSON(w, http.StatusOK, records)
}

// GetPrice handles GET /prices/{ticker}/{date}
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticker := strings.ToUpper(vars["ticker"])
	date := vars["date"]

	if _, err := time.Parse(models.DateLayout, date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rec, err := h.store.GetRecord(r.Context(), h.table, ticker, date)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"ticker": ticker, "date": date}).Error("failed to get price")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
