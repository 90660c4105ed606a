package model

// Sentinels used when a value cannot be resolved
const (
	AllValue     = "All"        // unresolved demographic, and "no constraint" in filters
	UnknownValue = "Unknown"    // missing answer used as a grouping key
	InvalidDate  = "0000-00-00" // unparseable submission time
	NoIssue      = "—"          // KPI top issue when nobody answered
)

// Demographic and time dimensions a chart can be grouped by
const (
	DimAge    = "age"
	DimGender = "gender"
	DimParty  = "party"
	DimRegion = "region"
	DimDate   = "date"
)

// ViewRow is the normalized form of one ResponseRecord
type ViewRow struct {
	ID      string                 `json:"id"`
	Date    string                 `json:"date"` // YYYY-MM-DD
	Age     string                 `json:"age"`
	Gender  string                 `json:"gender"`
	Party   string                 `json:"party"`
	Region  string                 `json:"region"`
	Answers map[string]AnswerValue `json:"answers"`
}

// Answer returns the answer for a question, or false when absent
func (r ViewRow) Answer(questionID string) (AnswerValue, bool) {
	v, ok := r.Answers[questionID]
	return v, ok
}

// Numeric returns the numeric answer for a question, or false when the
// answer is missing or not a number
func (r ViewRow) Numeric(questionID string) (float64, bool) {
	v, ok := r.Answers[questionID]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Filters is the live filter state of a dashboard
type Filters struct {
	DaysWindow int    `json:"daysWindow"` // 0 = no date constraint
	Age        string `json:"age"`
	Gender     string `json:"gender"`
	Party      string `json:"party"`
	Region     string `json:"region"`
}

// DefaultFilters returns unconstrained demographics over the given window
func DefaultFilters(daysWindow int) Filters {
	return Filters{
		DaysWindow: daysWindow,
		Age:        AllValue,
		Gender:     AllValue,
		Party:      AllValue,
		Region:     AllValue,
	}
}

// ChartKind is the type of panel a ChartSpec describes
type ChartKind string

const (
	ChartBar   ChartKind = "bar"
	ChartLine  ChartKind = "line"
	ChartPie   ChartKind = "pie"
	ChartTable ChartKind = "table"
)

// ChartSpec declares one dashboard panel. Specs are never mutated; a change
// replaces the spec.
type ChartSpec struct {
	ID       string    `json:"id"`
	Kind     ChartKind `json:"kind"`
	Question string    `json:"question,omitempty"`
	By       string    `json:"by,omitempty"`
	Title    string    `json:"title"`
}

// CategorySummary is the per-group result of a bar or table panel
type CategorySummary struct {
	Name          string  `json:"name"`
	Avg           float64 `json:"avg"`
	PositiveShare float64 `json:"positiveShare"`
	Count         int     `json:"count"`
}

// TimeSeriesPoint is one day of a line panel
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// PieSlice is one segment of a pie panel
type PieSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// KpiSummary holds the headline figures of a dashboard
type KpiSummary struct {
	N          int     `json:"n"`
	ApprovePct float64 `json:"approvePct"`
	LikelyPct  float64 `json:"likelyPct"`
	TopIssue   string  `json:"topIssue"`
}
