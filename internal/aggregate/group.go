// Package aggregate computes dashboard figures from normalized rows.
//
// Every function is pure and total: the same rows always give the same
// result, and an empty input gives an empty or zeroed result.
package aggregate

import (
	"math"

	"campaignlens/internal/model"
)

// KeyFunc extracts the grouping key of a row
type KeyFunc func(model.ViewRow) string

// GroupBy partitions rows by key. Every row lands in exactly one partition.
func GroupBy(rows []model.ViewRow, key KeyFunc) map[string][]model.ViewRow {
	groups := make(map[string][]model.ViewRow)
	for _, row := range rows {
		k := key(row)
		groups[k] = append(groups[k], row)
	}
	return groups
}

// ByDimension returns the KeyFunc for a grouping dimension
func ByDimension(by string) KeyFunc {
	return func(row model.ViewRow) string {
		return DimensionValue(row, by)
	}
}

// DimensionValue resolves a grouping dimension for a row. Demographic fields
// and "date" read the row directly; anything else is treated as an answer
// key, with model.UnknownValue for missing or blank answers.
func DimensionValue(row model.ViewRow, by string) string {
	switch by {
	case model.DimAge:
		return row.Age
	case model.DimGender:
		return row.Gender
	case model.DimParty:
		return row.Party
	case model.DimRegion:
		return row.Region
	case model.DimDate:
		return row.Date
	}
	v, ok := row.Answer(by)
	if !ok || v.String() == "" {
		return model.UnknownValue
	}
	return v.String()
}

// orderedGroups groups rows like GroupBy but also returns keys in the order
// they were first encountered, so later sorts are stable for a fixed input
func orderedGroups(rows []model.ViewRow, key KeyFunc) ([]string, map[string][]model.ViewRow) {
	groups := make(map[string][]model.ViewRow)
	order := make([]string, 0)
	for _, row := range rows {
		k := key(row)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], row)
	}
	return order, groups
}

// RoundTo1 rounds to 1 decimal place
func RoundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RoundTo2 rounds to 2 decimal places
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return RoundTo1(float64(part) / float64(whole) * 100)
}
