package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campaignlens/internal/cache"
	"campaignlens/internal/config"
	"campaignlens/internal/dashboard"
	"campaignlens/internal/interpreter"
	"campaignlens/internal/model"
	"campaignlens/internal/normalize"
	"campaignlens/internal/projection"
	"campaignlens/internal/repository"
)

// MsgAnalysisUpdate carries an AnalysisView to connected viewers
const MsgAnalysisUpdate = "analysis_update"

// AnalysisView is the scatter-ready form of an analyzer result
type AnalysisView struct {
	Method    projection.Method                    `json:"method"`
	Groups    map[string][]projection.ScatterPoint `json:"groups"`
	Labels    []string                             `json:"labels"`
	Counts    map[string]int                       `json:"counts"`
	UpdatedAt time.Time                            `json:"updatedAt"`
}

// CommandResult is the outcome of a dashboard command
type CommandResult struct {
	RemoveLast bool               `json:"removeLast"`
	Added      []model.ChartSpec  `json:"added"`
	Snapshot   dashboard.Snapshot `json:"snapshot"`
}

// DashboardView is a dashboard snapshot plus the latest analysis, if any
type DashboardView struct {
	dashboard.Snapshot
	Analysis *AnalysisView `json:"analysis,omitempty"`
}

type session struct {
	controller *dashboard.Controller
	analysis   *model.AnalyzerResponse
	analyzedAt time.Time
}

// DashboardService manages one dashboard session per campaign
type DashboardService struct {
	repo        repository.ResponseRepo
	cache       cache.AnalysisCache // optional
	analyzer    Analyzer
	normalizer  *normalize.Normalizer
	analytics   *config.AnalyticsConfig
	guard       *RequestGuard
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewDashboardService creates the dashboard service. analysisCache may be nil.
func NewDashboardService(repo repository.ResponseRepo, analysisCache cache.AnalysisCache, analyzer Analyzer, analytics *config.AnalyticsConfig, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		repo:       repo,
		cache:      analysisCache,
		analyzer:   analyzer,
		normalizer: normalize.New(normalize.DemographicKeys(analytics.DemographicKeys)),
		analytics:  analytics,
		guard:      NewRequestGuard(logger.Named("guard")),
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
}

// SetBroadcaster sets the broadcaster for WebSocket notifications
func (s *DashboardService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *DashboardService) session(campaignID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[campaignID]
	if !ok {
		sess = &session{
			controller: dashboard.NewController(s.analytics.DefaultDaysWindow,
				dashboard.WithAggregateOptions(s.analytics.AggregateOptions()...),
				dashboard.WithClock(s.now),
				dashboard.WithListener(func(snap dashboard.Snapshot) {
					if s.broadcaster != nil {
						s.broadcaster.BroadcastToCampaign(campaignID, MsgDashboardUpdate, snap)
					}
				}),
			),
		}
		s.sessions[campaignID] = sess
	}
	return sess
}

// Load fetches the campaign's responses and its cached analysis, then
// replaces the row population. Only the latest Load per campaign commits.
func (s *DashboardService) Load(ctx context.Context, campaignID string) (*DashboardView, error) {
	ctx, ticket := s.guard.Begin(ctx, "load:"+campaignID)
	defer s.guard.End(ticket)

	var (
		records []model.ResponseRecord
		cached  *cache.CachedAnalysis
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.repo.ListByCampaign(gctx, campaignID)
		return err
	})
	if s.cache != nil {
		g.Go(func() error {
			var err error
			cached, err = s.cache.Get(gctx, campaignID)
			if err != nil {
				s.logger.Warn("analysis cache read failed", zap.String("campaignId", campaignID), zap.Error(err))
				cached = nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if cerr := s.guard.Commit(ticket, func() {}); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	rows := s.normalizer.Normalize(records)
	sess := s.session(campaignID)

	var view *DashboardView
	err := s.guard.Commit(ticket, func() {
		snap := sess.controller.SetRows(rows)

		s.mu.Lock()
		defer s.mu.Unlock()
		if cached != nil {
			sess.analysis = &cached.Response
			sess.analyzedAt = cached.UpdatedAt
		}
		view = &DashboardView{Snapshot: snap, Analysis: s.analysisView(sess, projection.PCA)}
	})
	if err != nil {
		s.logger.Debug("discarding stale load", zap.String("campaignId", campaignID), zap.String("request", ticket.ID))
		return nil, err
	}

	s.logger.Info("dashboard loaded",
		zap.String("campaignId", campaignID),
		zap.String("request", ticket.ID),
		zap.Int("records", len(records)))
	return view, nil
}

// Snapshot returns the current dashboard of a campaign
func (s *DashboardService) Snapshot(campaignID string, method projection.Method) *DashboardView {
	sess := s.session(campaignID)
	snap := sess.controller.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	return &DashboardView{Snapshot: snap, Analysis: s.analysisView(sess, method)}
}

// SetFilter replaces one filter of a campaign dashboard
func (s *DashboardService) SetFilter(campaignID, field, value string) (dashboard.Snapshot, error) {
	return s.session(campaignID).controller.SetFilter(field, value)
}

// RunCommand interprets and applies a free-text chart command
func (s *DashboardService) RunCommand(campaignID, command string) CommandResult {
	res := interpreter.Interpret(command)
	snap := s.session(campaignID).controller.Apply(res)
	s.logger.Debug("dashboard command",
		zap.String("campaignId", campaignID),
		zap.String("command", command),
		zap.Bool("removeLast", res.RemoveLast),
		zap.Int("added", len(res.Specs)))
	return CommandResult{RemoveLast: res.RemoveLast, Added: res.Specs, Snapshot: snap}
}

// RemoveChart removes one chart by id
func (s *DashboardService) RemoveChart(campaignID, chartID string) (dashboard.Snapshot, error) {
	return s.session(campaignID).controller.RemoveSpec(chartID)
}

// Close drops the campaign's session and cached analysis and disconnects its
// viewers. The next request starts from a fresh dashboard.
func (s *DashboardService) Close(ctx context.Context, campaignID string) {
	s.mu.Lock()
	delete(s.sessions, campaignID)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, campaignID); err != nil {
			s.logger.Warn("failed to drop cached analysis", zap.String("campaignId", campaignID), zap.Error(err))
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.DisconnectCampaign(campaignID)
	}
	s.logger.Info("dashboard closed", zap.String("campaignId", campaignID))
}

// Rows returns the loaded row population of a campaign
func (s *DashboardService) Rows(campaignID string) []model.ViewRow {
	return s.session(campaignID).controller.Rows()
}

// Analyze sends the campaign's free-text answers to the analyzer and stores
// the result. Only the latest Analyze per campaign commits.
func (s *DashboardService) Analyze(ctx context.Context, campaignID string, method projection.Method) (*AnalysisView, error) {
	ctx, ticket := s.guard.Begin(ctx, "analyze:"+campaignID)
	defer s.guard.End(ticket)

	sess := s.session(campaignID)
	rows := sess.controller.Rows()
	if len(rows) == 0 {
		records, err := s.repo.ListByCampaign(ctx, campaignID)
		if err != nil {
			return nil, fmt.Errorf("analyze campaign %s: %w", campaignID, err)
		}
		rows = s.normalizer.Normalize(records)
	}

	resp, err := s.analyzer.Analyze(ctx, BuildPairs(rows))
	if err != nil {
		if cerr := s.guard.Commit(ticket, func() {}); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("analyze campaign %s: %w", campaignID, err)
	}

	var view *AnalysisView
	err = s.guard.Commit(ticket, func() {
		s.mu.Lock()
		sess.analysis = resp
		sess.analyzedAt = s.now().UTC()
		view = s.analysisView(sess, method)
		s.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, campaignID, resp); err != nil {
			s.logger.Warn("analysis cache write failed", zap.String("campaignId", campaignID), zap.Error(err))
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToCampaign(campaignID, MsgAnalysisUpdate, view)
	}
	return view, nil
}

// analysisView must be called with s.mu held
func (s *DashboardService) analysisView(sess *session, method projection.Method) *AnalysisView {
	if sess.analysis == nil {
		return nil
	}
	groups := projection.GroupForScatter(sess.analysis.Items, method)
	return &AnalysisView{
		Method:    method,
		Groups:    groups,
		Labels:    projection.Labels(groups),
		Counts:    projection.CountByLabel(sess.analysis.Items),
		UpdatedAt: sess.analyzedAt,
	}
}

// BuildPairs collects the non-numeric, non-blank answers of rows for the
// analyzer, ordered by row and then question id
func BuildPairs(rows []model.ViewRow) []model.QAPair {
	pairs := make([]model.QAPair, 0)
	for _, row := range rows {
		questions := make([]string, 0, len(row.Answers))
		for q := range row.Answers {
			questions = append(questions, q)
		}
		sort.Strings(questions)

		for _, q := range questions {
			v := row.Answers[q]
			if v.Kind != model.AnswerText || strings.TrimSpace(v.Text) == "" {
				continue
			}
			pairs = append(pairs, model.QAPair{
				ID:       row.ID + ":" + q,
				Question: q,
				Answer:   strings.TrimSpace(v.Text),
			})
		}
	}
	return pairs
}
