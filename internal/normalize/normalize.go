// Package normalize turns raw survey submissions into uniform view rows.
//
// Normalization is total: every record yields exactly one row, in input
// order. Missing demographics fall back to model.AllValue, unparseable
// timestamps to model.InvalidDate, and answers are coerced to numbers
// whenever their text parses fully as one.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"campaignlens/internal/model"
)

// DemographicKeys maps each demographic field of a ViewRow to the metadata
// paths consulted for it, in precedence order. A path is a key or one level
// of nesting written as "parent.child".
type DemographicKeys map[string][]string

// DefaultDemographicKeys returns the accepted spellings for each field
func DefaultDemographicKeys() DemographicKeys {
	return DemographicKeys{
		model.DimAge: {
			"age", "Age", "AGE", "age_group", "ageGroup", "AgeGroup",
			"demographics.age", "demographics.Age", "demographic.age", "profile.age",
		},
		model.DimGender: {
			"gender", "Gender", "GENDER", "sex", "Sex",
			"demographics.gender", "demographics.Gender", "demographic.gender", "profile.gender",
		},
		model.DimParty: {
			"party", "Party", "PARTY", "affiliation", "party_id", "partyId",
			"demographics.party", "demographics.Party", "demographic.party", "profile.party",
		},
		model.DimRegion: {
			"region", "Region", "REGION", "state", "State", "location",
			"demographics.region", "demographics.Region", "demographic.region", "profile.region",
		},
	}
}

// Normalizer converts ResponseRecords into ViewRows
type Normalizer struct {
	keys DemographicKeys
}

// New creates a normalizer. Fields absent from keys use the defaults.
func New(keys DemographicKeys) *Normalizer {
	merged := DefaultDemographicKeys()
	for field, paths := range keys {
		if len(paths) > 0 {
			merged[field] = append([]string(nil), paths...)
		}
	}
	return &Normalizer{keys: merged}
}

// Normalize maps records to rows one-to-one, preserving order
func (n *Normalizer) Normalize(records []model.ResponseRecord) []model.ViewRow {
	rows := make([]model.ViewRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, n.Row(rec))
	}
	return rows
}

// Row normalizes a single record
func (n *Normalizer) Row(rec model.ResponseRecord) model.ViewRow {
	answers := make(map[string]model.AnswerValue, len(rec.Answers))
	for qid, v := range rec.Answers {
		answers[qid] = CoerceAnswer(v)
	}
	return model.ViewRow{
		ID:      rec.ID,
		Date:    TruncateDate(rec.CreatedAt),
		Age:     n.Resolve(rec.RespondentMeta, model.DimAge),
		Gender:  n.Resolve(rec.RespondentMeta, model.DimGender),
		Party:   n.Resolve(rec.RespondentMeta, model.DimParty),
		Region:  n.Resolve(rec.RespondentMeta, model.DimRegion),
		Answers: answers,
	}
}

// Resolve returns the first non-empty metadata value for a demographic field
func (n *Normalizer) Resolve(meta map[string]interface{}, field string) string {
	if len(meta) == 0 {
		return model.AllValue
	}
	for _, path := range n.keys[field] {
		if v := lookup(meta, path); v != "" {
			return v
		}
	}
	return model.AllValue
}

func lookup(meta map[string]interface{}, path string) string {
	parent, child, nested := strings.Cut(path, ".")
	v, ok := meta[parent]
	if !ok {
		return ""
	}
	if !nested {
		return scalar(v)
	}
	inner, ok := asMap(v)
	if !ok {
		return ""
	}
	return scalar(inner[child])
}

// asMap accepts the map shapes produced by encoding/json and the BSON decoder
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case bson.M:
		return m, true
	case bson.D:
		out := make(map[string]interface{}, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

func scalar(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TruncateDate returns the UTC calendar day of a timestamp, or
// model.InvalidDate when it cannot be parsed
func TruncateDate(ts model.Timestamp) string {
	s := strings.TrimSpace(string(ts))
	if s == "" {
		return model.InvalidDate
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return model.InvalidDate
}

// CoerceAnswer restricts an answer to Num or Text. Text that parses fully as
// a finite number becomes Num; structured answers become their JSON text.
func CoerceAnswer(v model.AnswerValue) model.AnswerValue {
	switch v.Kind {
	case model.AnswerNum:
		return v
	case model.AnswerStructured:
		return model.Text(v.Text)
	}
	s := strings.TrimSpace(v.Text)
	if s == "" {
		return model.Text(v.Text)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Text(v.Text)
	}
	return model.Num(f)
}
