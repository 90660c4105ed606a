package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"campaignlens/internal/aggregate"
	"campaignlens/internal/model"
)

// Window bounds for "last N days" phrases
const (
	DefaultAnswerWindow = 30
	MinAnswerWindow     = 7
	MaxAnswerWindow     = 60
)

var lastDaysPattern = regexp.MustCompile(`last (\d+) days?`)

var trendKeywords = []string{"trend", "over time", "chang", "moving", "improv", "declin"}

// AnswerOptions tunes the offline answerer
type AnswerOptions struct {
	Questions         aggregate.KpiQuestions
	PositiveThreshold float64
}

// WindowDays extracts the "last N days" window from a question, clamped to
// [MinAnswerWindow, MaxAnswerWindow], or DefaultAnswerWindow when absent
func WindowDays(question string) int {
	m := lastDaysPattern.FindStringSubmatch(parse(question).text)
	if m == nil {
		return DefaultAnswerWindow
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultAnswerWindow
	}
	if n < MinAnswerWindow {
		return MinAnswerWindow
	}
	if n > MaxAnswerWindow {
		return MaxAnswerWindow
	}
	return n
}

// AnswerQuestion answers a free-text question from the rows alone. It is the
// fallback used when no language model is configured or reachable.
func AnswerQuestion(rows []model.ViewRow, question string, today time.Time, opts AnswerOptions) string {
	cmd := parse(question)
	days := WindowDays(question)
	filtered := aggregate.FilterRows(rows, model.DefaultFilters(days), today)
	if len(filtered) == 0 {
		return fmt.Sprintf("There are no responses in the last %d days, so there is nothing to summarize yet.", days)
	}

	questions := opts.Questions
	if questions == (aggregate.KpiQuestions{}) {
		questions = aggregate.DefaultKpiQuestions()
	}
	threshold := opts.PositiveThreshold
	if threshold <= 0 {
		threshold = aggregate.DefaultPositiveThreshold
	}
	aggOpts := []aggregate.Option{
		aggregate.WithQuestions(questions),
		aggregate.WithPositiveThreshold(threshold),
	}

	by, target := detectDimension(cmd)
	q, named := detectQuestion(cmd.without(target))
	if by != "" && by != model.DimDate {
		return answerByDimension(filtered, q, by, days, aggOpts)
	}
	if cmd.hasAny(trendKeywords) || by == model.DimDate {
		return answerTrend(filtered, q, days)
	}

	kpi := aggregate.Kpi(filtered, aggOpts...)
	if named {
		switch q {
		case "Q1":
			return fmt.Sprintf("Over the last %d days, %s%% of %d respondents approve (rated %s or higher).",
				days, format(kpi.ApprovePct), kpi.N, format(threshold))
		case "Q2":
			return fmt.Sprintf("Over the last %d days, %s%% of %d respondents are likely to act (rated %s or higher).",
				days, format(kpi.LikelyPct), kpi.N, format(threshold))
		case "Q3":
			return fmt.Sprintf("The top issue over the last %d days is %s.", days, kpi.TopIssue)
		}
	}

	return fmt.Sprintf("Over the last %d days there were %d responses: %s%% approve, %s%% are likely, and the top issue is %s.",
		days, kpi.N, format(kpi.ApprovePct), format(kpi.LikelyPct), kpi.TopIssue)
}

func answerByDimension(rows []model.ViewRow, question, by string, days int, opts []aggregate.Option) string {
	summaries := aggregate.SummarizeByCategory(rows, question, by, opts...)
	if len(summaries) > 5 {
		summaries = summaries[:5]
	}
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, fmt.Sprintf("%s avg %s (%s%% positive, n=%d)", s.Name, format(s.Avg), format(s.PositiveShare), s.Count))
	}
	return fmt.Sprintf("Over the last %d days, %s by %s: %s.",
		days, QuestionLabel(question), DimensionLabel(by), strings.Join(parts, "; "))
}

func answerTrend(rows []model.ViewRow, question string, days int) string {
	series := aggregate.TimeSeries(rows, question)
	if len(series) < 2 {
		return fmt.Sprintf("There is not enough daily data in the last %d days to describe a trend for %s.", days, QuestionLabel(question))
	}
	first, last := series[0], series[len(series)-1]
	delta := aggregate.RoundTo2(last.Avg - first.Avg)
	direction := "held steady"
	switch {
	case delta > 0:
		direction = "rose by " + format(delta)
	case delta < 0:
		direction = "fell by " + format(-delta)
	}
	return fmt.Sprintf("%s %s, from %s on %s to %s on %s.",
		QuestionLabel(question), direction, format(first.Avg), first.Date, format(last.Avg), last.Date)
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
