package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"campaignlens/internal/config"
	"campaignlens/internal/model"
)

var ErrAnalyzerDisabled = errors.New("analyzer is not configured")

// Analyzer classifies free-text answers and projects them to 2D
type Analyzer interface {
	Analyze(ctx context.Context, pairs []model.QAPair) (*model.AnalyzerResponse, error)
}

// AnalyzerClient calls the external analyzer over HTTP
type AnalyzerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAnalyzerClient creates a client for the analyzer at cfg.URL
func NewAnalyzerClient(cfg config.AnalyzerConfig, logger *zap.Logger) *AnalyzerClient {
	return &AnalyzerClient{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		logger: logger,
	}
}

// Analyze posts the pairs to /analyze. An empty batch is answered locally.
func (c *AnalyzerClient) Analyze(ctx context.Context, pairs []model.QAPair) (*model.AnalyzerResponse, error) {
	if c.baseURL == "" {
		return nil, ErrAnalyzerDisabled
	}
	if len(pairs) == 0 {
		return &model.AnalyzerResponse{Items: []model.AnalyzerItem{}}, nil
	}

	body, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyzer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analyzer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("analyzer returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(respBody, 512)))
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var out model.AnalyzerResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode analyzer response: %w", err)
	}

	c.logger.Info("analyzer call complete",
		zap.Int("pairs", len(pairs)),
		zap.Int("items", len(out.Items)),
		zap.Duration("took", time.Since(start)))
	return &out, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
