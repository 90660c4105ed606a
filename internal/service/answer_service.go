package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"campaignlens/internal/aggregate"
	"campaignlens/internal/config"
	"campaignlens/internal/interpreter"
	"campaignlens/internal/model"
)

// Answer sources
const (
	SourceLLM     = "llm"
	SourceOffline = "offline"
)

// Answer is a reply to a free-text question about a campaign
type Answer struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Completer sends one system+user exchange to a chat model
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// openAICompleter is the Completer backed by an OpenAI-compatible API
type openAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a chat completion client for cfg
func NewOpenAICompleter(cfg *config.LLMConfig, opts ...option.RequestOption) Completer {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &openAICompleter{
		client: openai.NewClient(reqOpts...),
		model:  cfg.Model,
	}
}

func (c *openAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// AnswerService answers questions with an LLM when one is configured and
// falls back to the offline answerer otherwise or on any error
type AnswerService struct {
	completer Completer // nil when disabled
	timeout   time.Duration
	opts      interpreter.AnswerOptions
	now       func() time.Time
	logger    *zap.Logger
}

// NewAnswerService creates an answer service. completer may be nil.
func NewAnswerService(completer Completer, timeout time.Duration, opts interpreter.AnswerOptions, logger *zap.Logger) *AnswerService {
	return &AnswerService{
		completer: completer,
		timeout:   timeout,
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// Answer replies to question using rows as the only source of facts
func (s *AnswerService) Answer(ctx context.Context, rows []model.ViewRow, question string) Answer {
	offline := Answer{
		Text:   interpreter.AnswerQuestion(rows, question, s.now(), s.opts),
		Source: SourceOffline,
	}
	if s.completer == nil {
		return offline
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.completer.Complete(ctx, answerSystemPrompt, s.buildPrompt(rows, question, offline.Text))
	if err != nil {
		s.logger.Warn("llm answer failed, using offline answer", zap.Error(err))
		return offline
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return offline
	}
	return Answer{Text: text, Source: SourceLLM}
}

const answerSystemPrompt = "You are an analyst for a political campaign. Answer in two or three sentences " +
	"using only the figures provided. If the figures do not answer the question, say so."

func (s *AnswerService) buildPrompt(rows []model.ViewRow, question, offline string) string {
	days := interpreter.WindowDays(question)
	filtered := aggregate.FilterRows(rows, model.DefaultFilters(days), s.now())

	var aggOpts []aggregate.Option
	if s.opts.Questions != (aggregate.KpiQuestions{}) {
		aggOpts = append(aggOpts, aggregate.WithQuestions(s.opts.Questions))
	}
	aggOpts = append(aggOpts, aggregate.WithPositiveThreshold(s.opts.PositiveThreshold))
	kpi := aggregate.Kpi(filtered, aggOpts...)

	var b strings.Builder
	fmt.Fprintf(&b, "Window: last %d days\n", days)
	fmt.Fprintf(&b, "Responses: %d\n", kpi.N)
	fmt.Fprintf(&b, "Approve %%: %v\n", kpi.ApprovePct)
	fmt.Fprintf(&b, "Likely %%: %v\n", kpi.LikelyPct)
	fmt.Fprintf(&b, "Top issue: %s\n", kpi.TopIssue)
	approval := aggregate.DefaultKpiQuestions().Approval
	if s.opts.Questions.Approval != "" {
		approval = s.opts.Questions.Approval
	}
	b.WriteString("Approval by party:\n")
	for _, c := range aggregate.SummarizeByCategory(filtered, approval, model.DimParty, aggOpts...) {
		fmt.Fprintf(&b, "- %s: avg %v, %v%% positive, n=%d\n", c.Name, c.Avg, c.PositiveShare, c.Count)
	}
	fmt.Fprintf(&b, "Baseline summary: %s\n\n", offline)
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
