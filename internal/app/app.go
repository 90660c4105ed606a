package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"campaignlens/internal/cache"
	"campaignlens/internal/config"
	"campaignlens/internal/interpreter"
	"campaignlens/internal/repository"
	"campaignlens/internal/service"
	"campaignlens/internal/transport/rest"
	"campaignlens/internal/transport/ws"
)

// App holds the wired dependencies of the server
type App struct {
	Mongo *mongo.Client
	Redis *redis.Client
	Hub   *ws.Hub

	ResponseRepo  repository.ResponseRepo
	AnalysisCache cache.AnalysisCache

	Auth       *service.AuthService
	Dashboards *service.DashboardService
	Answers    *service.AnswerService

	logger *zap.Logger
}

// New connects to MongoDB and Redis and wires services and the hub
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	a := &App{
		Mongo:         mongoClient,
		Redis:         rdb,
		Hub:           ws.NewHub(logger.Named("hub")),
		ResponseRepo:  repository.NewResponseRepo(mongoClient.Database(cfg.MongoDB)),
		AnalysisCache: cache.NewAnalysisCache(rdb),
		Auth:          service.NewAuthService(cfg.JWTSecret),
		logger:        logger,
	}

	analyzer := service.NewAnalyzerClient(cfg.Analyzer, logger.Named("analyzer"))
	if cfg.Analyzer.IsEnabled() {
		logger.Info("analyzer configured", zap.String("url", cfg.Analyzer.URL))
	} else {
		logger.Warn("ANALYZER_URL not set, analysis requests will be rejected")
	}

	a.Dashboards = service.NewDashboardService(a.ResponseRepo, a.AnalysisCache, analyzer, cfg.Analytics, logger.Named("dashboard"))
	a.Dashboards.SetBroadcaster(a.Hub)

	var completer service.Completer
	if cfg.LLM.IsEnabled() {
		completer = service.NewOpenAICompleter(cfg.LLM)
		logger.Info("LLM answers enabled", zap.String("model", cfg.LLM.Model))
	} else {
		logger.Warn("OPENAI_API_KEY not set, answering questions offline")
	}
	a.Answers = service.NewAnswerService(completer,
		time.Duration(cfg.LLM.TimeoutMS)*time.Millisecond,
		interpreter.AnswerOptions{
			Questions:         cfg.Analytics.Questions,
			PositiveThreshold: cfg.Analytics.PositiveThreshold,
		},
		logger.Named("answers"))

	return a, nil
}

// Router builds the HTTP handler
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService: a.Auth,
		Dashboards:  a.Dashboards,
		Answers:     a.Answers,
		WSHub:       a.Hub,
		Logger:      a.logger,
	})
}

// Close stops the hub and disconnects from the stores
func (a *App) Close(ctx context.Context) {
	a.Hub.Close()
	if err := a.Redis.Close(); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
	if err := a.Mongo.Disconnect(ctx); err != nil {
		a.logger.Warn("mongo disconnect failed", zap.Error(err))
	}
}
