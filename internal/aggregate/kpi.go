package aggregate

import (
	"strings"
	"time"

	"campaignlens/internal/model"
)

// Kpi computes the headline figures. Approval and likelihood shares use the
// full row count as denominator, so rows without a numeric answer pull the
// share down rather than being ignored.
func Kpi(rows []model.ViewRow, opts ...Option) model.KpiSummary {
	cfg := applyOptions(opts)

	approve, likely := 0, 0
	for _, row := range rows {
		if v, ok := row.Numeric(cfg.questions.Approval); ok && v >= cfg.positiveThreshold {
			approve++
		}
		if v, ok := row.Numeric(cfg.questions.Likelihood); ok && v >= cfg.positiveThreshold {
			likely++
		}
	}

	return model.KpiSummary{
		N:          len(rows),
		ApprovePct: percent(approve, len(rows)),
		LikelyPct:  percent(likely, len(rows)),
		TopIssue:   TopAnswer(rows, cfg.questions.Issue),
	}
}

// TopAnswer returns the most frequent non-blank answer to a question, ties
// going to the answer seen first, or model.NoIssue when nobody answered
func TopAnswer(rows []model.ViewRow, questionID string) string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, row := range rows {
		v, ok := row.Answer(questionID)
		if !ok {
			continue
		}
		s := strings.TrimSpace(v.String())
		if s == "" {
			continue
		}
		if _, seen := counts[s]; !seen {
			order = append(order, s)
		}
		counts[s]++
	}

	top, best := model.NoIssue, 0
	for _, s := range order {
		if counts[s] > best {
			top, best = s, counts[s]
		}
	}
	return top
}

// FilterRows keeps rows inside the day window that match every demographic
// filter. model.AllValue (or an empty value) leaves a dimension unconstrained.
func FilterRows(rows []model.ViewRow, f model.Filters, today time.Time) []model.ViewRow {
	cutoff := ""
	if f.DaysWindow > 0 {
		cutoff = WindowStart(today, f.DaysWindow)
	}

	out := make([]model.ViewRow, 0, len(rows))
	for _, row := range rows {
		if cutoff != "" && row.Date < cutoff {
			continue
		}
		if !matches(f.Age, row.Age) || !matches(f.Gender, row.Gender) ||
			!matches(f.Party, row.Party) || !matches(f.Region, row.Region) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// WindowStart returns the first day (YYYY-MM-DD) included in a window of
// days ending today
func WindowStart(today time.Time, days int) string {
	return today.UTC().AddDate(0, 0, -days).Format("2006-01-02")
}

func matches(filter, value string) bool {
	return filter == "" || filter == model.AllValue || filter == value
}
