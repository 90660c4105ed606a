package model

import "encoding/json"

// QAPair is one question/answer text sent to the analyzer
type QAPair struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnalyzerItem is one classified answer returned by the analyzer
type AnalyzerItem struct {
	ID            string               `json:"id" bson:"id"`
	Question      string               `json:"question" bson:"question"`
	Answer        string               `json:"answer" bson:"answer"`
	PredLabel     string               `json:"predLabel,omitempty" bson:"predLabel,omitempty"`
	IdeologyScore *float64             `json:"ideologyScore,omitempty" bson:"ideologyScore,omitempty"`
	Projections   map[string][]float64 `json:"projections,omitempty" bson:"projections,omitempty"`
}

// UnmarshalJSON accepts both the analyzer's snake_case keys and camelCase
func (it *AnalyzerItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                 json.RawMessage      `json:"id"`
		Question           string               `json:"question"`
		Answer             string               `json:"answer"`
		PredLabel          string               `json:"predLabel"`
		PredLabelSnake     string               `json:"pred_label"`
		IdeologyScore      *float64             `json:"ideologyScore"`
		IdeologyScoreSnake *float64             `json:"ideology_score"`
		Projections        map[string][]float64 `json:"projections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*it = AnalyzerItem{
		ID:            rawID(raw.ID),
		Question:      raw.Question,
		Answer:        raw.Answer,
		PredLabel:     raw.PredLabel,
		IdeologyScore: raw.IdeologyScore,
		Projections:   raw.Projections,
	}
	if it.PredLabel == "" {
		it.PredLabel = raw.PredLabelSnake
	}
	if it.IdeologyScore == nil {
		it.IdeologyScore = raw.IdeologyScoreSnake
	}
	return nil
}

// rawID accepts string or numeric ids
func rawID(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

// AnalyzerResponse is the analyzer's /analyze payload
type AnalyzerResponse struct {
	Items      []AnalyzerItem         `json:"items" bson:"items"`
	Aggregates map[string]interface{} `json:"aggregates,omitempty" bson:"-"`
}
