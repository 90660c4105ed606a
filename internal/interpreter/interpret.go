// Package interpreter turns free-text dashboard commands into chart specs.
//
// Matching is a fixed set of ordered keyword rules evaluated once per
// command. No external model is involved, so the same command always gives
// the same kinds, questions and dimensions.
package interpreter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"campaignlens/internal/model"
)

// Result is the outcome of interpreting a command: either the RemoveLast
// sentinel or one or more new chart specs, never both
type Result struct {
	RemoveLast bool
	Specs      []model.ChartSpec
}

// DefaultQuestion is used when a command names no question
const DefaultQuestion = "Q1"

// kindRule maps a chart kind to its trigger phrases
type kindRule struct {
	kind     model.ChartKind
	keywords []string
}

// questionRule maps trigger phrases to a canonical question id
type questionRule struct {
	question string
	keywords []string
}

// dimensionRule maps the phrase after "by" to a grouping dimension
type dimensionRule struct {
	dimension string
	phrases   []string
}

var removalPhrases = []string{"remove last", "delete last", "undo"}

// kindRules are listed in the order specs are emitted
var kindRules = []kindRule{
	{model.ChartBar, []string{"bar chart", "bar graph", "histogram"}},
	{model.ChartLine, []string{"line chart", "over time", "trend"}},
	{model.ChartPie, []string{"pie chart", "share", "breakdown"}},
	{model.ChartTable, []string{"table"}},
}

// panelKeywords produce a table only when no other kind matched
var panelKeywords = []string{"pane", "panel"}

// questionRules are checked in priority order after explicit q1..q4 tokens
var questionRules = []questionRule{
	{"Q1", []string{"approv", "satisf"}},
	{"Q2", []string{"likely", "likelihood", "recommend", "intend"}},
	{"Q3", []string{"issue", "priority", "priorities", "concern", "topic"}},
	{"Q4", []string{"trust", "confidence"}},
}

// dimensionRules are checked in order; longer phrases come first
var dimensionRules = []dimensionRule{
	{model.DimAge, []string{"age group", "age"}},
	{model.DimGender, []string{"gender", "sex"}},
	{model.DimParty, []string{"party", "parties", "affiliation"}},
	{model.DimRegion, []string{"region", "state", "location"}},
	{model.DimDate, []string{"date", "day"}},
	{"Q1", []string{"q1"}},
	{"Q2", []string{"q2"}},
	{"Q3", []string{"q3", "issue"}},
	{"Q4", []string{"q4"}},
}

// command is a lower-cased, punctuation-free, single-spaced command
type command struct {
	text  string
	words []string
}

func parse(raw string) command {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, raw)
	words := strings.Fields(cleaned)
	return command{text: strings.Join(words, " "), words: words}
}

// has reports whether a phrase starts at a word boundary in the command
func (c command) has(phrase string) bool {
	return strings.Contains(" "+c.text, " "+phrase)
}

// without drops the words at the given indices
func (c command) without(skip map[int]bool) command {
	if len(skip) == 0 {
		return c
	}
	words := make([]string, 0, len(c.words))
	for i, w := range c.words {
		if !skip[i] {
			words = append(words, w)
		}
	}
	return command{text: strings.Join(words, " "), words: words}
}

func (c command) hasAny(phrases []string) bool {
	for _, p := range phrases {
		if c.has(p) {
			return true
		}
	}
	return false
}

// Interpret classifies a free-text command
func Interpret(raw string) Result {
	cmd := parse(raw)

	if isRemoval(cmd) {
		return Result{RemoveLast: true}
	}

	by, target := detectDimension(cmd)
	question, named := detectQuestion(cmd.without(target))

	kinds := detectKinds(cmd)
	if len(kinds) == 0 {
		kinds = []model.ChartKind{model.ChartBar}
	}

	specs := make([]model.ChartSpec, 0, len(kinds))
	for _, kind := range kinds {
		specs = append(specs, NewSpec(kind, question, resolveDimension(kind, by, question, named)))
	}
	return Result{Specs: specs}
}

func isRemoval(cmd command) bool {
	for _, p := range removalPhrases {
		if p == "undo" {
			for _, w := range cmd.words {
				if w == "undo" {
					return true
				}
			}
			continue
		}
		if cmd.has(p) {
			return true
		}
	}
	return false
}

func detectKinds(cmd command) []model.ChartKind {
	var kinds []model.ChartKind
	for _, rule := range kindRules {
		if cmd.hasAny(rule.keywords) {
			kinds = append(kinds, rule.kind)
		}
	}
	if len(kinds) == 0 && cmd.hasAny(panelKeywords) {
		kinds = append(kinds, model.ChartTable)
	}
	return kinds
}

// detectQuestion returns the question id and whether the command named one.
// An explicit q1..q4 token wins over keywords. Callers strip the "by" target
// first so a grouping dimension is never read as the question.
func detectQuestion(cmd command) (string, bool) {
	for _, w := range cmd.words {
		if q, ok := questionToken(w); ok {
			return q, true
		}
	}
	for _, rule := range questionRules {
		if cmd.hasAny(rule.keywords) {
			return rule.question, true
		}
	}
	return DefaultQuestion, false
}

func questionToken(w string) (string, bool) {
	switch w {
	case "q1", "q2", "q3", "q4":
		return strings.ToUpper(w), true
	}
	return "", false
}

// detectDimension looks at the words after each "by" and returns the first
// dimension they name along with the indices of the words naming it. It
// returns "" when the command names none.
func detectDimension(cmd command) (string, map[int]bool) {
	for i, w := range cmd.words {
		if w != "by" || i+1 >= len(cmd.words) {
			continue
		}
		rest := strings.Join(cmd.words[i+1:], " ")
		for _, rule := range dimensionRules {
			for _, phrase := range rule.phrases {
				if rest == phrase || strings.HasPrefix(rest, phrase+" ") || strings.HasPrefix(rest, phrase+"s") {
					target := make(map[int]bool)
					for j := range strings.Fields(phrase) {
						target[i+1+j] = true
					}
					return rule.dimension, target
				}
			}
		}
	}
	return "", nil
}

// resolveDimension fills in the per-kind default grouping
func resolveDimension(kind model.ChartKind, by, question string, named bool) string {
	if kind == model.ChartLine {
		return model.DimDate
	}
	if by != "" {
		return by
	}
	switch kind {
	case model.ChartPie:
		if named {
			return question
		}
		return "Q3"
	default:
		return model.DimParty
	}
}

// NewSpec builds a spec with a fresh id and a generated title
func NewSpec(kind model.ChartKind, question, by string) model.ChartSpec {
	return model.ChartSpec{
		ID:       uuid.NewString(),
		Kind:     kind,
		Question: question,
		By:       by,
		Title:    Title(kind, question, by),
	}
}

// Title renders a human readable panel title
func Title(kind model.ChartKind, question, by string) string {
	switch kind {
	case model.ChartLine:
		return fmt.Sprintf("%s over time", QuestionLabel(question))
	case model.ChartPie:
		return fmt.Sprintf("Share by %s", DimensionLabel(by))
	case model.ChartTable:
		return fmt.Sprintf("%s by %s (table)", QuestionLabel(question), DimensionLabel(by))
	default:
		return fmt.Sprintf("%s by %s", QuestionLabel(question), DimensionLabel(by))
	}
}

var questionLabels = map[string]string{
	"Q1": "Approval",
	"Q2": "Likelihood",
	"Q3": "Top issue",
	"Q4": "Trust",
}

// QuestionLabel names a canonical question, e.g. "Approval (Q1)"
func QuestionLabel(question string) string {
	if label, ok := questionLabels[question]; ok {
		return fmt.Sprintf("%s (%s)", label, question)
	}
	return question
}

// DimensionLabel names a grouping dimension
func DimensionLabel(by string) string {
	switch by {
	case model.DimAge:
		return "age group"
	case model.DimGender, model.DimParty, model.DimRegion, model.DimDate:
		return by
	}
	return QuestionLabel(by)
}
