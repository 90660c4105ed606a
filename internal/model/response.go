package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResponseRecord is one raw survey submission as stored by the response store
type ResponseRecord struct {
	ID             string                 `json:"id" bson:"_id,omitempty"`
	CampaignID     string                 `json:"campaignId" bson:"campaignId"`
	CreatedAt      Timestamp              `json:"createdAt" bson:"createdAt"`
	Answers        map[string]AnswerValue `json:"answers" bson:"answers"`
	RespondentMeta map[string]interface{} `json:"respondentMeta,omitempty" bson:"respondentMeta,omitempty"`
}

// Timestamp keeps the submission time in its raw textual form so that a
// malformed value survives decoding and is only judged at normalization.
type Timestamp string

// TimestampFrom formats t the way the store writes datetimes
func TimestampFrom(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts strings and epoch milliseconds
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ts = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = Timestamp(s)
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*ts = Timestamp(data)
		return nil
	}
	*ts = TimestampFrom(time.UnixMilli(int64(ms)))
	return nil
}

// UnmarshalBSONValue accepts BSON datetimes, strings and epoch milliseconds
func (ts *Timestamp) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.DateTime:
		*ts = TimestampFrom(time.UnixMilli(rv.DateTime()))
	case bsontype.String:
		*ts = Timestamp(rv.StringValue())
	case bsontype.Int64:
		*ts = TimestampFrom(time.UnixMilli(rv.Int64()))
	case bsontype.Double:
		*ts = TimestampFrom(time.UnixMilli(int64(rv.Double())))
	default:
		*ts = ""
	}
	return nil
}

// MarshalBSONValue writes parseable timestamps as BSON datetimes and
// anything else verbatim as a string
func (ts Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if t, err := time.Parse(time.RFC3339Nano, string(ts)); err == nil {
		return bson.MarshalValue(primitive.NewDateTimeFromTime(t))
	}
	return bson.MarshalValue(string(ts))
}

// AnswerKind tags the variant held by an AnswerValue
type AnswerKind uint8

const (
	AnswerText       AnswerKind = iota // free text or a choice label
	AnswerNum                          // numeric answer, e.g. a Likert rating
	AnswerStructured                   // array or object, kept as raw JSON
)

// AnswerValue is a closed union over the shapes a survey answer can take.
// The zero value is an empty text answer.
type AnswerValue struct {
	Kind AnswerKind
	Num  float64
	Text string // text for AnswerText, raw JSON for AnswerStructured
}

// Num builds a numeric answer
func Num(v float64) AnswerValue { return AnswerValue{Kind: AnswerNum, Num: v} }

// Text builds a text answer
func Text(s string) AnswerValue { return AnswerValue{Kind: AnswerText, Text: s} }

// Structured builds an answer holding raw JSON
func Structured(raw string) AnswerValue { return AnswerValue{Kind: AnswerStructured, Text: raw} }

// Float returns the numeric value and whether the answer is numeric
func (v AnswerValue) Float() (float64, bool) {
	if v.Kind != AnswerNum {
		return 0, false
	}
	return v.Num, true
}

// String renders the answer as text; numbers use the shortest exact form
func (v AnswerValue) String() string {
	if v.Kind == AnswerNum {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Text
}

// MarshalJSON writes numbers as numbers, text as strings and structured
// answers as their raw JSON
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerNum:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Num)
	case AnswerStructured:
		if json.Valid([]byte(v.Text)) {
			return []byte(v.Text), nil
		}
		return json.Marshal(v.Text)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON maps JSON shapes onto the union
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = Text("")
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '{', '[':
		*v = Structured(string(data))
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Text(strconv.FormatBool(b))
	case 'n':
		*v = Text("")
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*v = Num(f)
	}
	return nil
}

// MarshalBSONValue writes numbers as doubles, text as strings and structured
// answers as the document or array they encode
func (v AnswerValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch v.Kind {
	case AnswerNum:
		return bson.MarshalValue(v.Num)
	case AnswerStructured:
		var decoded interface{}
		if err := json.Unmarshal([]byte(v.Text), &decoded); err == nil {
			return bson.MarshalValue(decoded)
		}
		return bson.MarshalValue(v.Text)
	default:
		return bson.MarshalValue(v.Text)
	}
}

// UnmarshalBSONValue maps BSON types onto the union
func (v *AnswerValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Double:
		*v = Num(rv.Double())
	case bsontype.Int32:
		*v = Num(float64(rv.Int32()))
	case bsontype.Int64:
		*v = Num(float64(rv.Int64()))
	case bsontype.Decimal128:
		f, err := strconv.ParseFloat(rv.Decimal128().String(), 64)
		if err != nil {
			*v = Text(rv.Decimal128().String())
			return nil
		}
		*v = Num(f)
	case bsontype.String:
		*v = Text(rv.StringValue())
	case bsontype.Boolean:
		*v = Text(strconv.FormatBool(rv.Boolean()))
	case bsontype.EmbeddedDocument, bsontype.Array:
		*v = Structured(rv.String())
	case bsontype.Null, bsontype.Undefined:
		*v = Text("")
	default:
		*v = Text(rv.String())
	}
	return nil
}
