package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"campaignlens/internal/model"
)

// AnalysisCache keeps the latest analyzer result per campaign so a reloaded
// dashboard can show the scatter without calling the analyzer again
type AnalysisCache interface {
	Get(ctx context.Context, campaignID string) (*CachedAnalysis, error)
	Set(ctx context.Context, campaignID string, resp *model.AnalyzerResponse) error
	Delete(ctx context.Context, campaignID string) error
}

// CachedAnalysis is an analyzer response with the time it was stored
type CachedAnalysis struct {
	Response  model.AnalyzerResponse `json:"response"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

type analysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache creates a new analysis cache
func NewAnalysisCache(client *redis.Client) AnalysisCache {
	return &analysisCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *analysisCache) key(campaignID string) string {
	return fmt.Sprintf("campaign:%s:analysis", campaignID)
}

// Get returns nil, nil on a cache miss
func (c *analysisCache) Get(ctx context.Context, campaignID string) (*CachedAnalysis, error) {
	data, err := c.client.Get(ctx, c.key(campaignID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cached CachedAnalysis
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func (c *analysisCache) Set(ctx context.Context, campaignID string, resp *model.AnalyzerResponse) error {
	data, err := json.Marshal(CachedAnalysis{Response: *resp, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(campaignID), data, c.ttl).Err()
}

func (c *analysisCache) Delete(ctx context.Context, campaignID string) error {
	return c.client.Del(ctx, c.key(campaignID)).Err()
}
