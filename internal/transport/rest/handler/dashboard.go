package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"campaignlens/internal/dashboard"
	"campaignlens/internal/model"
	"campaignlens/internal/projection"
	"campaignlens/internal/service"
)

// Dashboards is the dashboard service as seen by the HTTP layer
type Dashboards interface {
	Load(ctx context.Context, campaignID string) (*service.DashboardView, error)
	Snapshot(campaignID string, method projection.Method) *service.DashboardView
	SetFilter(campaignID, field, value string) (dashboard.Snapshot, error)
	RunCommand(campaignID, command string) service.CommandResult
	RemoveChart(campaignID, chartID string) (dashboard.Snapshot, error)
	Rows(campaignID string) []model.ViewRow
	Close(ctx context.Context, campaignID string)
	Analyze(ctx context.Context, campaignID string, method projection.Method) (*service.AnalysisView, error)
}

// Answerer answers free-text questions about a row population
type Answerer interface {
	Answer(ctx context.Context, rows []model.ViewRow, question string) service.Answer
}

// DashboardHandler handles campaign dashboard endpoints
type DashboardHandler struct {
	dashboards Dashboards
	answers    Answerer
	logger     *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboards Dashboards, answers Answerer, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		answers:    answers,
		logger:     logger,
	}
}

// SetFilterRequest is the request body for changing one filter
type SetFilterRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// CommandRequest is the request body for a free-text chart command
type CommandRequest struct {
	Command string `json:"command"`
}

// AskRequest is the request body for a free-text question
type AskRequest struct {
	Question string `json:"question"`
}

// Load handles POST /v1/campaigns/{campaignId}/dashboard/load
func (h *DashboardHandler) Load(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]

	view, err := h.dashboards.Load(r.Context(), campaignID)
	if err != nil {
		h.logger.Warn("dashboard load failed", zap.String("campaignId", campaignID), zap.Error(err))
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Get handles GET /v1/campaigns/{campaignId}/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]

	method, err := methodParam(r)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.dashboards.Snapshot(campaignID, method))
}

// SetFilter handles PUT /v1/campaigns/{campaignId}/dashboard/filters
func (h *DashboardHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]

	var req SetFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.dashboards.SetFilter(campaignID, req.Field, req.Value)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Command handles POST /v1/campaigns/{campaignId}/dashboard/commands
func (h *DashboardHandler) Command(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	writeJSON(w, http.StatusOK, h.dashboards.RunCommand(campaignID, req.Command))
}

// RemoveChart handles DELETE /v1/campaigns/{campaignId}/dashboard/charts/{chartId}
func (h *DashboardHandler) RemoveChart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	snap, err := h.dashboards.RemoveChart(vars["campaignId"], vars["chartId"])
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Close handles DELETE /v1/campaigns/{campaignId}/dashboard
func (h *DashboardHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.dashboards.Close(r.Context(), mux.Vars(r)["campaignId"])
	w.WriteHeader(http.StatusNoContent)
}

// Ask handles POST /v1/campaigns/{campaignId}/ask
func (h *DashboardHandler) Ask(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	rows := h.dashboards.Rows(campaignID)
	writeJSON(w, http.StatusOK, h.answers.Answer(r.Context(), rows, req.Question))
}

// Analyze handles POST /v1/campaigns/{campaignId}/analysis
func (h *DashboardHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]

	method, err := methodParam(r)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	view, err := h.dashboards.Analyze(r.Context(), campaignID, method)
	if err != nil {
		h.logger.Warn("analysis failed", zap.String("campaignId", campaignID), zap.Error(err))
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func methodParam(r *http.Request) (projection.Method, error) {
	m := r.URL.Query().Get("method")
	if m == "" {
		return projection.PCA, nil
	}
	return projection.ParseMethod(m)
}
