package aggregate

import (
	"sort"

	"campaignlens/internal/model"
)

// numericStats collects the numeric answers to one question
type numericStats struct {
	sum      float64
	n        int
	positive int
}

func collect(rows []model.ViewRow, questionID string, threshold float64) numericStats {
	var s numericStats
	for _, row := range rows {
		v, ok := row.Numeric(questionID)
		if !ok {
			continue
		}
		s.sum += v
		s.n++
		if v >= threshold {
			s.positive++
		}
	}
	return s
}

func (s numericStats) avg() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

// SummarizeByCategory groups rows by a dimension and summarizes one question
// per group. Count is the full group size; Avg and PositiveShare use only the
// numeric answers. Groups are ordered by count descending.
func SummarizeByCategory(rows []model.ViewRow, questionID, by string, opts ...Option) []model.CategorySummary {
	cfg := applyOptions(opts)
	order, groups := orderedGroups(rows, ByDimension(by))

	out := make([]model.CategorySummary, 0, len(order))
	for _, name := range order {
		members := groups[name]
		stats := collect(members, questionID, cfg.positiveThreshold)
		out = append(out, model.CategorySummary{
			Name:          name,
			Avg:           RoundTo2(stats.avg()),
			PositiveShare: percent(stats.positive, stats.n),
			Count:         len(members),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// PieBy counts rows per distinct value of a dimension, largest first
func PieBy(rows []model.ViewRow, by string) []model.PieSlice {
	order, groups := orderedGroups(rows, ByDimension(by))

	out := make([]model.PieSlice, 0, len(order))
	for _, name := range order {
		out = append(out, model.PieSlice{Name: name, Value: len(groups[name])})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// TimeSeries averages one question per day. Days without a numeric answer
// are omitted; points are in ascending date order.
func TimeSeries(rows []model.ViewRow, questionID string) []model.TimeSeriesPoint {
	groups := GroupBy(rows, ByDimension(model.DimDate))

	out := make([]model.TimeSeriesPoint, 0, len(groups))
	for date, members := range groups {
		stats := collect(members, questionID, DefaultPositiveThreshold)
		if stats.n == 0 {
			continue
		}
		out = append(out, model.TimeSeriesPoint{
			Date:  date,
			Avg:   RoundTo2(stats.avg()),
			Count: stats.n,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
