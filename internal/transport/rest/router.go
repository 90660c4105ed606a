package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"campaignlens/internal/logging"
	"campaignlens/internal/service"
	"campaignlens/internal/transport/rest/handler"
	"campaignlens/internal/transport/rest/middleware"
	"campaignlens/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	Dashboards  handler.Dashboards
	Answers     handler.Answerer
	WSHub       *ws.Hub
	Logger      *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	logger := logging.OrNop(c.Logger)

	// Initialize handlers
	dashboardHandler := handler.NewDashboardHandler(c.Dashboards, c.Answers, logger.Named("http"))
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Dashboards, logger.Named("ws"))

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/campaigns/{campaignId}/dashboard", wsHandler.DashboardWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes (require host auth and access to the campaign)
	hostRoutes := v1.PathPrefix("/campaigns/{campaignId}").Subrouter()
	hostRoutes.Use(authMW.RequireHost, authMW.RequireCampaign)

	hostRoutes.HandleFunc("/dashboard/load", dashboardHandler.Load).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/dashboard", dashboardHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/dashboard", dashboardHandler.Close).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/dashboard/filters", dashboardHandler.SetFilter).Methods("PUT", "OPTIONS")
	hostRoutes.HandleFunc("/dashboard/commands", dashboardHandler.Command).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/dashboard/charts/{chartId}", dashboardHandler.RemoveChart).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/ask", dashboardHandler.Ask).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/analysis", dashboardHandler.Analyze).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
