package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campaignlens/internal/cache"
	"campaignlens/internal/config"
	"campaignlens/internal/dashboard"
	"campaignlens/internal/model"
	"campaignlens/internal/projection"
)

var serviceNow = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func campaignRecords() []model.ResponseRecord {
	return []model.ResponseRecord{
		{
			ID: "r1", CampaignID: "c1", CreatedAt: "2024-01-01T10:00:00Z",
			Answers:        map[string]model.AnswerValue{"Q1": model.Num(5), "Q5": model.Text("Lower taxes")},
			RespondentMeta: map[string]interface{}{"party": "A"},
		},
		{
			ID: "r2", CampaignID: "c1", CreatedAt: "2024-01-01T12:00:00Z",
			Answers:        map[string]model.AnswerValue{"Q1": model.Text("n/a")},
			RespondentMeta: map[string]interface{}{"Party": "B"},
		},
		{
			ID: "r3", CampaignID: "c1", CreatedAt: "2024-01-02T09:00:00Z",
			Answers:        map[string]model.AnswerValue{"Q1": model.Text(" 3 "), "Q5": model.Text("More buses")},
			RespondentMeta: map[string]interface{}{"demographics": map[string]interface{}{"party": "A"}},
		},
	}
}

type serviceFixture struct {
	svc         *DashboardService
	repo        *fakeRepo
	cache       *fakeCache
	analyzer    *fakeAnalyzer
	broadcaster *fakeBroadcaster
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:        &fakeRepo{records: map[string][]model.ResponseRecord{"c1": campaignRecords()}},
		cache:       newFakeCache(),
		analyzer:    &fakeAnalyzer{},
		broadcaster: &fakeBroadcaster{},
	}
	f.svc = NewDashboardService(f.repo, f.cache, f.analyzer, config.DefaultAnalyticsConfig(), zap.NewNop())
	f.svc.now = func() time.Time { return serviceNow }
	f.svc.SetBroadcaster(f.broadcaster)
	return f
}

func TestLoad(t *testing.T) {
	f := newServiceFixture(t)

	view, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 3, view.Filtered)
	assert.Nil(t, view.Analysis)
	require.Len(t, view.Panels, 4)
	assert.Equal(t, []model.CategorySummary{
		{Name: "A", Avg: 4, PositiveShare: 50, Count: 2},
		{Name: "B", Avg: 0, PositiveShare: 0, Count: 1},
	}, view.Panels[0].Categories)
	assert.Equal(t, []string{MsgDashboardUpdate}, f.broadcaster.types())
}

func TestLoadRepoError(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.err = errors.New("connection refused")

	_, err := f.svc.Load(context.Background(), "c1")
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 0, f.svc.guard.InFlight())
}

func TestLoadLatestRequestWins(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.blockFirst = true
	f.repo.started = make(chan struct{}, 1)

	errc := make(chan error, 1)
	go func() {
		_, err := f.svc.Load(context.Background(), "c1")
		errc <- err
	}()
	<-f.repo.started

	view, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, 3, f.svc.Snapshot("c1", projection.PCA).Total)
}

func TestLoadUsesCachedAnalysis(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.cache.Set(context.Background(), "c1", &model.AnalyzerResponse{Items: []model.AnalyzerItem{
		{ID: "r1:Q5", PredLabel: "Right", Projections: map[string][]float64{"pca": {1, 1}}},
	}}))

	view, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, view.Analysis)
	assert.Equal(t, []string{"right"}, view.Analysis.Labels)
}

func TestLoadIgnoresCacheErrors(t *testing.T) {
	f := newServiceFixture(t)
	f.cache.getErr = errors.New("redis down")

	view, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, view.Analysis)
}

func TestLoadWithoutCache(t *testing.T) {
	repo := &fakeRepo{records: map[string][]model.ResponseRecord{"c1": campaignRecords()}}
	svc := NewDashboardService(repo, nil, &fakeAnalyzer{}, config.DefaultAnalyticsConfig(), zap.NewNop())
	svc.now = func() time.Time { return serviceNow }

	view, err := svc.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Total)
}

func TestDashboardCommands(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)

	res := f.svc.RunCommand("c1", "Show a bar chart of Q2 by region")
	assert.False(t, res.RemoveLast)
	require.Len(t, res.Added, 1)
	assert.Len(t, res.Snapshot.Panels, 5)

	snap, err := f.svc.RemoveChart("c1", res.Added[0].ID)
	require.NoError(t, err)
	assert.Len(t, snap.Panels, 4)

	_, err = f.svc.RemoveChart("c1", res.Added[0].ID)
	assert.ErrorIs(t, err, dashboard.ErrSpecNotFound)

	res = f.svc.RunCommand("c1", "undo")
	assert.True(t, res.RemoveLast)
	assert.Len(t, res.Snapshot.Panels, 3)

	snap, err = f.svc.SetFilter("c1", dashboard.FieldParty, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Filtered)

	_, err = f.svc.SetFilter("c1", "shoe size", "9")
	assert.ErrorIs(t, err, dashboard.ErrUnknownFilter)
}

func TestCloseResetsSession(t *testing.T) {
	f := newServiceFixture(t)
	f.analyzer.resp = &model.AnalyzerResponse{Items: []model.AnalyzerItem{
		{ID: "r1:Q5", PredLabel: "right", Projections: map[string][]float64{"pca": {1, 2}}},
	}}
	_, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)
	f.svc.RunCommand("c1", "pie chart of issue")
	require.Len(t, f.svc.Snapshot("c1", projection.PCA).Panels, 5)

	_, err = f.svc.Analyze(context.Background(), "c1", projection.PCA)
	require.NoError(t, err)
	cached, err := f.cache.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, cached)

	f.svc.Close(context.Background(), "c1")

	assert.Equal(t, []string{"c1"}, f.broadcaster.disconnected)
	cached, err = f.cache.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, cached, "closing drops the cached analysis")
	_, err = f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, f.svc.Snapshot("c1", projection.PCA).Analysis)
	f.svc.Close(context.Background(), "c1")

	view := f.svc.Snapshot("c1", projection.PCA)
	assert.Equal(t, 0, view.Total)
	assert.Len(t, view.Panels, len(dashboard.DefaultSpecs()))
	assert.Empty(t, f.svc.Rows("c1"))
}

func TestAnalyze(t *testing.T) {
	f := newServiceFixture(t)
	f.analyzer.resp = &model.AnalyzerResponse{Items: []model.AnalyzerItem{
		{ID: "r1:Q5", PredLabel: "Right", Projections: map[string][]float64{"pca": {1, 2}, "umap": {3, 4}}},
		{ID: "r3:Q5", PredLabel: "left", Projections: map[string][]float64{"pca": {-1, 0}}},
	}}
	_, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)

	view, err := f.svc.Analyze(context.Background(), "c1", projection.UMAP)
	require.NoError(t, err)

	assert.Equal(t, []model.QAPair{
		{ID: "r1:Q5", Question: "Q5", Answer: "Lower taxes"},
		{ID: "r2:Q1", Question: "Q1", Answer: "n/a"},
		{ID: "r3:Q5", Question: "Q5", Answer: "More buses"},
	}, f.analyzer.pairs)
	assert.Equal(t, projection.UMAP, view.Method)
	assert.Equal(t, []string{"right"}, view.Labels)
	assert.Equal(t, map[string]int{"right": 1, "left": 1}, view.Counts)
	assert.Equal(t, serviceNow, view.UpdatedAt)

	cached, err := f.cache.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Len(t, cached.Response.Items, 2)

	assert.Contains(t, f.broadcaster.types(), MsgAnalysisUpdate)

	pca := f.svc.Snapshot("c1", projection.PCA)
	require.NotNil(t, pca.Analysis)
	assert.Equal(t, []string{"left", "right"}, pca.Analysis.Labels)
}

func TestAnalyzeLoadsRowsWhenNeeded(t *testing.T) {
	f := newServiceFixture(t)
	f.analyzer.resp = &model.AnalyzerResponse{}

	_, err := f.svc.Analyze(context.Background(), "c1", projection.PCA)
	require.NoError(t, err)
	assert.Len(t, f.analyzer.pairs, 3)
}

func TestAnalyzeFailureKeepsDashboard(t *testing.T) {
	f := newServiceFixture(t)
	f.analyzer.err = ErrAnalyzerDisabled
	_, err := f.svc.Load(context.Background(), "c1")
	require.NoError(t, err)

	_, err = f.svc.Analyze(context.Background(), "c1", projection.PCA)
	assert.ErrorIs(t, err, ErrAnalyzerDisabled)

	view := f.svc.Snapshot("c1", projection.PCA)
	assert.Equal(t, 3, view.Total)
	assert.Nil(t, view.Analysis)
}

func TestBuildPairsSkipsNumbersAndBlanks(t *testing.T) {
	rows := []model.ViewRow{{ID: "x", Answers: map[string]model.AnswerValue{
		"Q1": model.Num(4),
		"Q2": model.Text("   "),
		"Q3": model.Text("Health"),
	}}}
	assert.Equal(t, []model.QAPair{{ID: "x:Q3", Question: "Q3", Answer: "Health"}}, BuildPairs(rows))
	assert.Empty(t, BuildPairs(nil))
}

var _ cache.AnalysisCache = (*fakeCache)(nil)
