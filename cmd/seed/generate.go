package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"campaignlens/internal/model"
)

var (
	ages    = []string{"18-29", "30-44", "45-64", "65+"}
	genders = []string{"Female", "Male", "Non-binary"}
	regions = []string{"Northeast", "Midwest", "South", "West"}
	issues  = []string{"Economy", "Health", "Immigration", "Climate", "Education", "Crime"}
)

// leaning places a party on a 1 (left) to 10 (right) spectrum
type leaning struct {
	party    string
	position int
	markers  []string
}

var leanings = []leaning{
	{"Green", 2, []string{"climate justice", "sustainability", "public transit"}},
	{"Democrat", 4, []string{"healthcare access", "civil rights", "good jobs"}},
	{"Independent", 5, []string{"middle ground", "less partisanship", "common sense"}},
	{"Republican", 7, []string{"lower taxes", "personal responsibility", "border security"}},
	{"Libertarian", 8, []string{"small government", "free markets", "individual liberty"}},
}

var freeTextTemplates = []string{
	"Honestly the campaign should talk more about %s.",
	"I care most about %s and I don't hear enough about it.",
	"%s. That's it, that's my answer.",
	"Not sure, maybe %s? Both sides seem to ignore it.",
}

var malformedTimestamps = []string{"not-a-date", "31/02/2024", "yesterday"}

// Generator produces synthetic survey responses. Output is deterministic for
// a given seed and clock.
type Generator struct {
	rng     *rand.Rand
	entropy *ulid.MonotonicEntropy
	now     time.Time

	// MalformedRate is the share of records with an unparseable timestamp
	// or a non-numeric Likert answer
	MalformedRate float64
}

// NewGenerator creates a generator
func NewGenerator(seed int64, now time.Time) *Generator {
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		rng:           rng,
		entropy:       ulid.Monotonic(rng, 0),
		now:           now.UTC(),
		MalformedRate: 0.03,
	}
}

// Generate returns n responses spread over the last days days
func (g *Generator) Generate(campaignID string, n, days int) []model.ResponseRecord {
	records := make([]model.ResponseRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, g.record(campaignID, days))
	}
	return records
}

func (g *Generator) record(campaignID string, days int) model.ResponseRecord {
	lean := leanings[g.rng.Intn(len(leanings))]

	// Approval drifts with the spectrum so charts by party differ
	approval := clampLikert(3 + (lean.position-5)/2 + g.rng.Intn(3) - 1)
	likelihood := clampLikert(approval + g.rng.Intn(3) - 1)
	trust := clampLikert(1 + g.rng.Intn(5))

	answers := map[string]model.AnswerValue{
		"Q1": model.Num(float64(approval)),
		"Q2": model.Num(float64(likelihood)),
		"Q3": model.Text(issues[g.rng.Intn(len(issues))]),
		"Q4": model.Num(float64(trust)),
		"Q5": model.Text(fmt.Sprintf(
			freeTextTemplates[g.rng.Intn(len(freeTextTemplates))],
			lean.markers[g.rng.Intn(len(lean.markers))])),
	}
	if g.rng.Float64() < g.MalformedRate {
		answers["Q1"] = model.Text("n/a")
	} else if g.rng.Intn(4) == 0 {
		// Some collectors store Likert answers as strings
		answers["Q2"] = model.Text(fmt.Sprintf(" %d ", likelihood))
	}

	return model.ResponseRecord{
		ID:             ulid.MustNew(ulid.Timestamp(g.now), g.entropy).String(),
		CampaignID:     campaignID,
		CreatedAt:      g.timestamp(days),
		Answers:        answers,
		RespondentMeta: g.meta(lean.party),
	}
}

func (g *Generator) timestamp(days int) model.Timestamp {
	if g.rng.Float64() < g.MalformedRate {
		return model.Timestamp(malformedTimestamps[g.rng.Intn(len(malformedTimestamps))])
	}
	span := time.Duration(days) * 24 * time.Hour
	if span <= 0 {
		span = time.Hour
	}
	at := g.now.Add(-time.Duration(g.rng.Int63n(int64(span))))
	if g.rng.Intn(5) == 0 {
		return model.Timestamp(at.Format("2006-01-02 15:04:05"))
	}
	return model.TimestampFrom(at)
}

// meta writes demographics under the spellings seen across collectors
func (g *Generator) meta(party string) map[string]interface{} {
	age := ages[g.rng.Intn(len(ages))]
	gender := genders[g.rng.Intn(len(genders))]
	region := regions[g.rng.Intn(len(regions))]

	var meta map[string]interface{}
	switch g.rng.Intn(4) {
	case 0:
		meta = map[string]interface{}{"age": age, "gender": gender, "party": party, "region": region}
	case 1:
		meta = map[string]interface{}{"Age": age, "Gender": gender, "Party": party, "Region": region}
	case 2:
		meta = map[string]interface{}{
			"demographics": map[string]interface{}{"age": age, "gender": gender, "party": party, "region": region},
		}
	default:
		meta = map[string]interface{}{"age_group": age, "sex": gender, "affiliation": party, "state": region}
	}

	// Occasionally a respondent skips the party question
	if g.rng.Intn(20) == 0 {
		delete(meta, "party")
		delete(meta, "Party")
		delete(meta, "affiliation")
		if nested, ok := meta["demographics"].(map[string]interface{}); ok {
			delete(nested, "party")
		}
	}
	return meta
}

func clampLikert(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
