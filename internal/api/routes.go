package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Price routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/prices/{ticker}", handler.ListPrices).Methods("GET")
	api.HandleFunc("/prices/{ticker}/{date}", handler.GetPrice).Methods("GET")

	return r
}
