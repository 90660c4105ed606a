// Package projection groups analyzer output for scatter plots.
//
// Coordinates come precomputed from the analyzer; this package only buckets
// them by predicted label so each label gets its own series.
package projection

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"campaignlens/internal/model"
)

// Method is a dimensionality reduction method offered by the analyzer
type Method string

const (
	PCA  Method = "pca"
	TSNE Method = "tsne"
	UMAP Method = "umap"
)

// UnknownLabel buckets items without a predicted label
const UnknownLabel = "unknown"

var ErrUnknownMethod = errors.New("unknown projection method")

// ParseMethod accepts pca, tsne, t-sne and umap in any case
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pca":
		return PCA, nil
	case "tsne", "t-sne":
		return TSNE, nil
	case "umap":
		return UMAP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// ScatterPoint is one plotted answer
type ScatterPoint struct {
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	IdeologyScore *float64 `json:"ideologyScore,omitempty"`
}

// GroupForScatter buckets items by lower-cased predicted label. Items
// without two finite coordinates for the method are left out.
func GroupForScatter(items []model.AnalyzerItem, method Method) map[string][]ScatterPoint {
	groups := make(map[string][]ScatterPoint)
	for _, it := range items {
		x, y, ok := coords(it, method)
		if !ok {
			continue
		}
		label := Label(it)
		groups[label] = append(groups[label], ScatterPoint{
			X:             x,
			Y:             y,
			ID:            it.ID,
			Question:      it.Question,
			Answer:        it.Answer,
			IdeologyScore: it.IdeologyScore,
		})
	}
	return groups
}

// Label returns the normalized predicted label of an item
func Label(it model.AnalyzerItem) string {
	label := strings.ToLower(strings.TrimSpace(it.PredLabel))
	if label == "" {
		return UnknownLabel
	}
	return label
}

func coords(it model.AnalyzerItem, method Method) (float64, float64, bool) {
	xy, ok := it.Projections[string(method)]
	if !ok || len(xy) < 2 {
		return 0, 0, false
	}
	x, y := xy[0], xy[1]
	if !finite(x) || !finite(y) {
		return 0, 0, false
	}
	return x, y, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CountByLabel counts every item per normalized label, with or without
// coordinates
func CountByLabel(items []model.AnalyzerItem) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		counts[Label(it)]++
	}
	return counts
}

// Labels returns the group labels sorted, giving a stable series order
func Labels(groups map[string][]ScatterPoint) []string {
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
