package aggregate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignlens/internal/model"
)

func row(id, date, party string, answers map[string]model.AnswerValue) model.ViewRow {
	return model.ViewRow{
		ID:      id,
		Date:    date,
		Age:     model.AllValue,
		Gender:  model.AllValue,
		Party:   party,
		Region:  model.AllValue,
		Answers: answers,
	}
}

// scenarioRows is the three-row population used across the scenario tests
func scenarioRows() []model.ViewRow {
	return []model.ViewRow{
		row("1", "2024-01-01", "A", map[string]model.AnswerValue{"Q1": model.Num(5)}),
		row("2", "2024-01-01", "B", map[string]model.AnswerValue{"Q1": model.Text("n/a")}),
		row("3", "2024-01-02", "A", map[string]model.AnswerValue{"Q1": model.Num(3)}),
	}
}

// mixedRows builds a larger population with numeric, text and missing answers
func mixedRows() []model.ViewRow {
	parties := []string{"A", "B", "C"}
	var rows []model.ViewRow
	for i := 0; i < 30; i++ {
		answers := map[string]model.AnswerValue{}
		switch i % 4 {
		case 0:
			answers["Q1"] = model.Num(float64(i%5 + 1))
		case 1:
			answers["Q1"] = model.Text("skip")
		case 2:
			answers["Q1"] = model.Num(4)
			answers["Q2"] = model.Num(5)
		}
		answers["Q3"] = model.Text([]string{"Economy", "Health", "Economy", ""}[i%4])
		rows = append(rows, row(fmt.Sprint(i), fmt.Sprintf("2024-02-%02d", i%7+1), parties[i%3], answers))
	}
	return rows
}

func TestGroupByPartitionCompleteness(t *testing.T) {
	populations := map[string][]model.ViewRow{
		"empty":    nil,
		"scenario": scenarioRows(),
		"mixed":    mixedRows(),
	}
	keys := []string{model.DimParty, model.DimDate, "Q1", "Q3", model.DimRegion}

	for name, rows := range populations {
		for _, key := range keys {
			t.Run(name+"/"+key, func(t *testing.T) {
				groups := GroupBy(rows, ByDimension(key))

				total := 0
				seen := make(map[string]int)
				for k, members := range groups {
					total += len(members)
					for _, r := range members {
						seen[r.ID]++
						assert.Equal(t, k, DimensionValue(r, key))
					}
				}
				assert.Equal(t, len(rows), total)
				for _, r := range rows {
					assert.Equal(t, 1, seen[r.ID], "row %s must appear exactly once", r.ID)
				}
			})
		}
	}
}

func TestSummarizeByCategoryScenario(t *testing.T) {
	got := SummarizeByCategory(scenarioRows(), "Q1", model.DimParty)

	require.Len(t, got, 2)
	assert.Equal(t, model.CategorySummary{Name: "A", Avg: 4, PositiveShare: 50, Count: 2}, got[0])
	assert.Equal(t, model.CategorySummary{Name: "B", Avg: 0, PositiveShare: 0, Count: 1}, got[1])
}

func TestSummarizeAverageExclusivity(t *testing.T) {
	rows := []model.ViewRow{
		row("1", "2024-01-01", "A", map[string]model.AnswerValue{"Q1": model.Num(2)}),
		row("2", "2024-01-01", "A", map[string]model.AnswerValue{"Q1": model.Text("dunno")}),
		row("3", "2024-01-01", "A", map[string]model.AnswerValue{}),
		row("4", "2024-01-01", "A", map[string]model.AnswerValue{"Q1": model.Num(5)}),
	}

	got := SummarizeByCategory(rows, "Q1", model.DimParty)

	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, 3.5, got[0].Avg)
	assert.Equal(t, 50.0, got[0].PositiveShare)
}

func TestSummarizeSortedByCountAndStable(t *testing.T) {
	rows := mixedRows()
	first := SummarizeByCategory(rows, "Q1", "Q3")
	second := SummarizeByCategory(rows, "Q1", "Q3")

	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Count, first[i].Count)
	}
}

func TestSummarizeRounding(t *testing.T) {
	rows := []model.ViewRow{
		row("1", "d", "A", map[string]model.AnswerValue{"Q1": model.Num(5)}),
		row("2", "d", "A", map[string]model.AnswerValue{"Q1": model.Num(4)}),
		row("3", "d", "A", map[string]model.AnswerValue{"Q1": model.Num(1)}),
	}
	got := SummarizeByCategory(rows, "Q1", model.DimParty)
	require.Len(t, got, 1)
	assert.Equal(t, 3.33, got[0].Avg)
	assert.Equal(t, 66.7, got[0].PositiveShare)
}

func TestSummarizeCustomThreshold(t *testing.T) {
	got := SummarizeByCategory(scenarioRows(), "Q1", model.DimParty, WithPositiveThreshold(3))
	require.NotEmpty(t, got)
	assert.Equal(t, 100.0, got[0].PositiveShare)
}

func TestTimeSeriesScenario(t *testing.T) {
	got := TimeSeries(scenarioRows(), "Q1")

	assert.Equal(t, []model.TimeSeriesPoint{
		{Date: "2024-01-01", Avg: 5, Count: 1},
		{Date: "2024-01-02", Avg: 3, Count: 1},
	}, got)
}

func TestTimeSeriesMonotonic(t *testing.T) {
	got := TimeSeries(mixedRows(), "Q1")
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Date, got[i].Date)
	}
}

func TestTimeSeriesOmitsDaysWithoutNumbers(t *testing.T) {
	rows := []model.ViewRow{
		row("1", "2024-01-01", "A", map[string]model.AnswerValue{"Q1": model.Text("x")}),
		row("2", "2024-01-03", "A", map[string]model.AnswerValue{"Q1": model.Num(2)}),
	}
	got := TimeSeries(rows, "Q1")
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-03", got[0].Date)
}

func TestPieByScenario(t *testing.T) {
	got := PieBy(scenarioRows(), model.DimParty)
	assert.Equal(t, []model.PieSlice{{Name: "A", Value: 2}, {Name: "B", Value: 1}}, got)
}

func TestPieByAnswerKey(t *testing.T) {
	rows := []model.ViewRow{
		row("1", "d", "A", map[string]model.AnswerValue{"Q3": model.Text("Economy")}),
		row("2", "d", "A", map[string]model.AnswerValue{}),
		row("3", "d", "A", map[string]model.AnswerValue{"Q3": model.Text("Economy")}),
	}
	got := PieBy(rows, "Q3")
	assert.Equal(t, []model.PieSlice{{Name: "Economy", Value: 2}, {Name: model.UnknownValue, Value: 1}}, got)
}

func TestKpi(t *testing.T) {
	rows := []model.ViewRow{
		row("1", "d", "A", map[string]model.AnswerValue{"Q1": model.Num(5), "Q2": model.Num(4), "Q3": model.Text("Health")}),
		row("2", "d", "A", map[string]model.AnswerValue{"Q1": model.Num(2), "Q2": model.Text("maybe"), "Q3": model.Text("Economy")}),
		row("3", "d", "A", map[string]model.AnswerValue{"Q1": model.Text("n/a"), "Q3": model.Text("Economy")}),
		row("4", "d", "A", map[string]model.AnswerValue{"Q1": model.Num(4), "Q3": model.Text("Health")}),
	}

	got := Kpi(rows)

	assert.Equal(t, 4, got.N)
	assert.Equal(t, 50.0, got.ApprovePct)
	assert.Equal(t, 25.0, got.LikelyPct)
	assert.Equal(t, "Health", got.TopIssue, "ties go to the first answer seen")
}

func TestKpiBounds(t *testing.T) {
	for _, rows := range [][]model.ViewRow{scenarioRows(), mixedRows()} {
		got := Kpi(rows)
		assert.Equal(t, len(rows), got.N)
		assert.GreaterOrEqual(t, got.ApprovePct, 0.0)
		assert.LessOrEqual(t, got.ApprovePct, 100.0)
		assert.GreaterOrEqual(t, got.LikelyPct, 0.0)
		assert.LessOrEqual(t, got.LikelyPct, 100.0)
	}
}

func TestKpiCustomQuestions(t *testing.T) {
	rows := []model.ViewRow{
		row("1", "d", "A", map[string]model.AnswerValue{"A1": model.Num(5), "I": model.Text("Jobs")}),
	}
	got := Kpi(rows, WithQuestions(KpiQuestions{Approval: "A1", Issue: "I"}))
	assert.Equal(t, 100.0, got.ApprovePct)
	assert.Equal(t, 0.0, got.LikelyPct)
	assert.Equal(t, "Jobs", got.TopIssue)
}

func TestEmptyInputs(t *testing.T) {
	assert.Empty(t, SummarizeByCategory(nil, "Q1", model.DimParty))
	assert.Empty(t, TimeSeries(nil, "Q1"))
	assert.Empty(t, PieBy(nil, model.DimParty))
	assert.Empty(t, GroupBy(nil, ByDimension(model.DimParty)))
	assert.Equal(t, model.KpiSummary{TopIssue: model.NoIssue}, Kpi(nil))
}

func TestFilterRows(t *testing.T) {
	today := time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC)
	rows := []model.ViewRow{
		row("old", "2023-12-31", "A", nil),
		row("edge", "2024-01-01", "A", nil),
		row("recent", "2024-01-30", "B", nil),
		row("bad", model.InvalidDate, "A", nil),
	}

	ids := func(rs []model.ViewRow) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	all := model.DefaultFilters(0)
	assert.Equal(t, []string{"old", "edge", "recent", "bad"}, ids(FilterRows(rows, all, today)))

	windowed := model.DefaultFilters(30)
	assert.Equal(t, []string{"edge", "recent"}, ids(FilterRows(rows, windowed, today)))

	partyB := model.DefaultFilters(0)
	partyB.Party = "B"
	assert.Equal(t, []string{"recent"}, ids(FilterRows(rows, partyB, today)))

	assert.Empty(t, FilterRows(nil, windowed, today))
}
