package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campaignlens/internal/dashboard"
	"campaignlens/internal/model"
	"campaignlens/internal/projection"
	"campaignlens/internal/service"
	"campaignlens/internal/transport/ws"
)

const testSecret = "router-secret"

type fakeDashboards struct {
	rows       []model.ViewRow
	loadErr    error
	analyzeErr error

	closed      []string
	lastFilter  [2]string
	lastCommand string
	lastMethod  projection.Method
}

func (f *fakeDashboards) Load(ctx context.Context, campaignID string) (*service.DashboardView, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &service.DashboardView{Snapshot: dashboard.Snapshot{Total: len(f.rows)}}, nil
}

func (f *fakeDashboards) Snapshot(campaignID string, method projection.Method) *service.DashboardView {
	f.lastMethod = method
	return &service.DashboardView{Snapshot: dashboard.Snapshot{Total: len(f.rows)}}
}

func (f *fakeDashboards) SetFilter(campaignID, field, value string) (dashboard.Snapshot, error) {
	f.lastFilter = [2]string{field, value}
	if field != dashboard.FieldParty {
		return dashboard.Snapshot{}, fmt.Errorf("%w: %s", dashboard.ErrUnknownFilter, field)
	}
	return dashboard.Snapshot{Filters: model.Filters{Party: value}}, nil
}

func (f *fakeDashboards) RunCommand(campaignID, command string) service.CommandResult {
	f.lastCommand = command
	return service.CommandResult{RemoveLast: command == "undo"}
}

func (f *fakeDashboards) RemoveChart(campaignID, chartID string) (dashboard.Snapshot, error) {
	if chartID != "chart-1" {
		return dashboard.Snapshot{}, dashboard.ErrSpecNotFound
	}
	return dashboard.Snapshot{}, nil
}

func (f *fakeDashboards) Rows(campaignID string) []model.ViewRow {
	return f.rows
}

func (f *fakeDashboards) Close(ctx context.Context, campaignID string) {
	f.closed = append(f.closed, campaignID)
}

func (f *fakeDashboards) Analyze(ctx context.Context, campaignID string, method projection.Method) (*service.AnalysisView, error) {
	f.lastMethod = method
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &service.AnalysisView{Method: method}, nil
}

type fakeAnswers struct {
	gotRows int
}

func (f *fakeAnswers) Answer(ctx context.Context, rows []model.ViewRow, question string) service.Answer {
	f.gotRows = len(rows)
	return service.Answer{Text: "answer to " + question, Source: service.SourceOffline}
}

func hostToken(t *testing.T, campaignIDs ...string) string {
	t.Helper()
	claims := &model.HostClaims{
		HostID:      "host-1",
		CampaignIDs: campaignIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newRouter(t *testing.T) (http.Handler, *fakeDashboards, *fakeAnswers) {
	t.Helper()
	hub := ws.NewHub(zap.NewNop())
	t.Cleanup(hub.Close)

	dash := &fakeDashboards{rows: make([]model.ViewRow, 3)}
	answers := &fakeAnswers{}
	return NewRouter(&Container{
		AuthService: service.NewAuthService(testSecret),
		Dashboards:  dash,
		Answers:     answers,
		WSHub:       hub,
	}), dash, answers
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newRouter(t)
	rec := do(t, h, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHostRoutesRequireAccess(t *testing.T) {
	h, _, _ := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/v1/campaigns/c1/dashboard", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/v1/campaigns/c1/dashboard", "bogus", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, "GET", "/v1/campaigns/c1/dashboard", hostToken(t, "c2"), "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/v1/campaigns/c1/dashboard", hostToken(t, "c1"), "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/v1/campaigns/c1/dashboard", hostToken(t), "").Code)
}

func TestPreflightSkipsAuth(t *testing.T) {
	h, _, _ := newRouter(t)
	rec := do(t, h, "OPTIONS", "/v1/campaigns/c1/dashboard", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDashboardEndpoints(t *testing.T) {
	h, dash, answers := newRouter(t)
	token := hostToken(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"load", "POST", "/v1/campaigns/c1/dashboard/load", "", http.StatusOK},
		{"get with method", "GET", "/v1/campaigns/c1/dashboard?method=UMAP", "", http.StatusOK},
		{"get with bad method", "GET", "/v1/campaigns/c1/dashboard?method=lda", "", http.StatusBadRequest},
		{"set filter", "PUT", "/v1/campaigns/c1/dashboard/filters", `{"field":"party","value":"Green"}`, http.StatusOK},
		{"unknown filter", "PUT", "/v1/campaigns/c1/dashboard/filters", `{"field":"shoe","value":"9"}`, http.StatusBadRequest},
		{"bad filter body", "PUT", "/v1/campaigns/c1/dashboard/filters", `{`, http.StatusBadRequest},
		{"command", "POST", "/v1/campaigns/c1/dashboard/commands", `{"command":"undo"}`, http.StatusOK},
		{"blank command", "POST", "/v1/campaigns/c1/dashboard/commands", `{"command":"  "}`, http.StatusBadRequest},
		{"remove chart", "DELETE", "/v1/campaigns/c1/dashboard/charts/chart-1", "", http.StatusOK},
		{"remove missing chart", "DELETE", "/v1/campaigns/c1/dashboard/charts/nope", "", http.StatusNotFound},
		{"ask", "POST", "/v1/campaigns/c1/ask", `{"question":"how is approval?"}`, http.StatusOK},
		{"blank question", "POST", "/v1/campaigns/c1/ask", `{"question":""}`, http.StatusBadRequest},
		{"analysis", "POST", "/v1/campaigns/c1/analysis?method=tsne", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	assert.Equal(t, [2]string{"shoe", "9"}, dash.lastFilter)
	assert.Equal(t, "undo", dash.lastCommand)
	assert.Equal(t, projection.TSNE, dash.lastMethod)
	assert.Equal(t, 3, answers.gotRows)
}

func TestCloseDashboard(t *testing.T) {
	h, dash, _ := newRouter(t)
	rec := do(t, h, "DELETE", "/v1/campaigns/c9/dashboard", hostToken(t), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"c9"}, dash.closed)
}

func TestAskResponseBody(t *testing.T) {
	h, _, _ := newRouter(t)
	rec := do(t, h, "POST", "/v1/campaigns/c1/ask", hostToken(t), `{"question":"trend?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got service.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "answer to trend?", got.Text)
	assert.Equal(t, service.SourceOffline, got.Source)
}

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"superseded", service.ErrSuperseded, http.StatusConflict},
		{"disabled", service.ErrAnalyzerDisabled, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("analyze: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"upstream", fmt.Errorf("analyzer returned status 500"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, dash, _ := newRouter(t)
			dash.analyzeErr = tt.err
			rec := do(t, h, "POST", "/v1/campaigns/c1/analysis", hostToken(t), "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	h, dash, _ := newRouter(t)
	dash.loadErr = fmt.Errorf("find responses: boom")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "POST", "/v1/campaigns/c1/dashboard/load", hostToken(t), "").Code)
}
