package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignlens/internal/model"
	"campaignlens/internal/normalize"
)

var seedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateIsDeterministic(t *testing.T) {
	a := NewGenerator(42, seedNow).Generate("c1", 50, 10)
	b := NewGenerator(42, seedNow).Generate("c1", 50, 10)
	assert.Equal(t, a, b)
}

func TestGenerateRecords(t *testing.T) {
	g := NewGenerator(7, seedNow)
	g.MalformedRate = 0
	records := g.Generate("c1", 200, 30)
	require.Len(t, records, 200)

	ids := make(map[string]bool)
	rows := normalize.New(normalize.DefaultDemographicKeys()).Normalize(records)
	for i, rec := range records {
		assert.Equal(t, "c1", rec.CampaignID)
		assert.False(t, ids[rec.ID], "duplicate id %s", rec.ID)
		ids[rec.ID] = true

		row := rows[i]
		require.NotEqual(t, model.InvalidDate, row.Date)
		day, err := time.Parse("2006-01-02", row.Date)
		require.NoError(t, err)
		assert.False(t, day.After(seedNow))
		assert.False(t, day.Before(seedNow.AddDate(0, 0, -31)))

		assert.Contains(t, ages, row.Age)
		assert.Contains(t, genders, row.Gender)
		assert.Contains(t, regions, row.Region)

		q1, ok := row.Numeric("Q1")
		require.True(t, ok)
		assert.True(t, q1 >= 1 && q1 <= 5)
		q2, ok := row.Numeric("Q2")
		require.True(t, ok, "string Likert answers coerce to numbers")
		assert.True(t, q2 >= 1 && q2 <= 5)
		assert.Contains(t, issues, row.Answers["Q3"].Text)
		assert.NotEmpty(t, row.Answers["Q5"].Text)
	}
}

func TestGenerateMalformed(t *testing.T) {
	g := NewGenerator(3, seedNow)
	g.MalformedRate = 1
	records := g.Generate("c1", 20, 30)

	rows := normalize.New(normalize.DefaultDemographicKeys()).Normalize(records)
	for _, row := range rows {
		assert.Equal(t, model.InvalidDate, row.Date)
		_, ok := row.Numeric("Q1")
		assert.False(t, ok)
	}
}

func TestClampLikert(t *testing.T) {
	assert.Equal(t, 1, clampLikert(-2))
	assert.Equal(t, 3, clampLikert(3))
	assert.Equal(t, 5, clampLikert(9))
}
