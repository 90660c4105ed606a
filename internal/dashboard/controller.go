// Package dashboard holds the live state of one campaign dashboard: the
// filters, the ordered chart specs and the row population. Every change
// recomputes all panels from scratch.
package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaignlens/internal/aggregate"
	"campaignlens/internal/interpreter"
	"campaignlens/internal/model"
)

var (
	ErrUnknownFilter = errors.New("unknown filter field")
	ErrInvalidWindow = errors.New("days window must be a non-negative integer")
	ErrSpecNotFound  = errors.New("chart spec not found")
)

// Filter field names accepted by SetFilter
const (
	FieldDaysWindow = "daysWindow"
	FieldAge        = model.DimAge
	FieldGender     = model.DimGender
	FieldParty      = model.DimParty
	FieldRegion     = model.DimRegion
)

// Panel is one computed chart. Exactly one of Categories, Series or Slices
// is non-nil, depending on the spec kind; an empty chart carries an empty
// slice of its kind.
type Panel struct {
	Spec       model.ChartSpec         `json:"spec"`
	Categories []model.CategorySummary `json:"categories"`
	Series     []model.TimeSeriesPoint `json:"series"`
	Slices     []model.PieSlice        `json:"slices"`
}

// Snapshot is the full computed state of a dashboard
type Snapshot struct {
	// Version increases with every applied change. Listeners may drop a
	// snapshot whose version is not newer than one already seen.
	Version  uint64           `json:"version"`
	Filters  model.Filters    `json:"filters"`
	Total    int              `json:"total"`
	Filtered int              `json:"filtered"`
	Kpi      model.KpiSummary `json:"kpi"`
	Panels   []Panel          `json:"panels"`
}

// Listener is called with every snapshot produced by a state change
type Listener func(Snapshot)

// Controller owns the dashboard state
type Controller struct {
	mu       sync.Mutex
	notifyMu sync.Mutex // orders listener calls by version
	version  uint64
	filters  model.Filters
	specs    []model.ChartSpec // newest first
	rows     []model.ViewRow
	opts     []aggregate.Option
	now      func() time.Time
	listener Listener
}

// Option configures a Controller
type Option func(*Controller)

// WithAggregateOptions passes options to every aggregation call
func WithAggregateOptions(opts ...aggregate.Option) Option {
	return func(c *Controller) {
		c.opts = append(c.opts, opts...)
	}
}

// WithClock overrides the clock used for the day window
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithListener registers the snapshot listener
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listener = l
	}
}

// WithSpecs replaces the initial default specs
func WithSpecs(specs []model.ChartSpec) Option {
	return func(c *Controller) {
		c.specs = withIDs(specs)
	}
}

// DefaultSpecs returns the panels a new dashboard starts with
func DefaultSpecs() []model.ChartSpec {
	return []model.ChartSpec{
		interpreter.NewSpec(model.ChartBar, "Q1", model.DimParty),
		interpreter.NewSpec(model.ChartLine, "Q1", model.DimDate),
		interpreter.NewSpec(model.ChartPie, "Q3", "Q3"),
		interpreter.NewSpec(model.ChartTable, "Q2", model.DimRegion),
	}
}

// NewController creates a controller with the default specs and an
// unconstrained filter over daysWindow days
func NewController(daysWindow int, opts ...Option) *Controller {
	c := &Controller{
		filters: model.DefaultFilters(daysWindow),
		specs:   DefaultSpecs(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot recomputes the current state without changing it
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compute()
}

// Specs returns a copy of the current specs, newest first
func (c *Controller) Specs() []model.ChartSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChartSpec(nil), c.specs...)
}

// Rows returns the full row population
func (c *Controller) Rows() []model.ViewRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// SetRows replaces the row population
func (c *Controller) SetRows(rows []model.ViewRow) Snapshot {
	return c.update(func() error {
		c.rows = rows
		return nil
	})
}

// AddSpecs prepends specs, assigning ids to those without one
func (c *Controller) AddSpecs(specs ...model.ChartSpec) Snapshot {
	return c.update(func() error {
		c.specs = append(withIDs(specs), c.specs...)
		return nil
	})
}

// RemoveSpec removes the spec with the given id
func (c *Controller) RemoveSpec(id string) (Snapshot, error) {
	return c.updateErr(func() error {
		for i, s := range c.specs {
			if s.ID == id {
				c.specs = append(c.specs[:i:i], c.specs[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrSpecNotFound, id)
	})
}

// RemoveLast removes the newest spec. It is a no-op on an empty dashboard.
func (c *Controller) RemoveLast() Snapshot {
	return c.update(func() error {
		if len(c.specs) > 0 {
			c.specs = append([]model.ChartSpec(nil), c.specs[1:]...)
		}
		return nil
	})
}

// SetFilter replaces one filter. The days window must be a non-negative
// integer; demographic values are taken verbatim, "All" clearing the filter.
func (c *Controller) SetFilter(field, value string) (Snapshot, error) {
	return c.updateErr(func() error {
		switch field {
		case FieldDaysWindow:
			days, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || days < 0 {
				return fmt.Errorf("%w: %q", ErrInvalidWindow, value)
			}
			c.filters.DaysWindow = days
		case FieldAge:
			c.filters.Age = filterValue(value)
		case FieldGender:
			c.filters.Gender = filterValue(value)
		case FieldParty:
			c.filters.Party = filterValue(value)
		case FieldRegion:
			c.filters.Region = filterValue(value)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownFilter, field)
		}
		return nil
	})
}

// Apply applies an interpreted command
func (c *Controller) Apply(res interpreter.Result) Snapshot {
	if res.RemoveLast {
		return c.RemoveLast()
	}
	return c.AddSpecs(res.Specs...)
}

func (c *Controller) update(mutate func() error) Snapshot {
	snap, _ := c.updateErr(mutate)
	return snap
}

// updateErr applies a mutation and recomputes. A failed mutation leaves the
// state untouched and notifies nobody.
func (c *Controller) updateErr(mutate func() error) (Snapshot, error) {
	c.mu.Lock()
	if err := mutate(); err != nil {
		snap := c.compute()
		c.mu.Unlock()
		return snap, err
	}
	c.version++
	snap := c.compute()
	listener := c.listener
	c.notifyMu.Lock()
	c.mu.Unlock()

	if listener != nil {
		listener(snap)
	}
	c.notifyMu.Unlock()
	return snap, nil
}

// compute must be called with mu held
func (c *Controller) compute() Snapshot {
	filtered := aggregate.FilterRows(c.rows, c.filters, c.now())

	panels := make([]Panel, 0, len(c.specs))
	for _, spec := range c.specs {
		panels = append(panels, c.panel(spec, filtered))
	}

	return Snapshot{
		Version:  c.version,
		Filters:  c.filters,
		Total:    len(c.rows),
		Filtered: len(filtered),
		Kpi:      aggregate.Kpi(filtered, c.opts...),
		Panels:   panels,
	}
}

func (c *Controller) panel(spec model.ChartSpec, rows []model.ViewRow) Panel {
	question := spec.Question
	if question == "" {
		question = interpreter.DefaultQuestion
	}

	p := Panel{Spec: spec}
	switch spec.Kind {
	case model.ChartLine:
		p.Series = aggregate.TimeSeries(rows, question)
		if p.Series == nil {
			p.Series = []model.TimeSeriesPoint{}
		}
	case model.ChartPie:
		by := spec.By
		if by == "" {
			by = question
		}
		p.Slices = aggregate.PieBy(rows, by)
		if p.Slices == nil {
			p.Slices = []model.PieSlice{}
		}
	default:
		by := spec.By
		if by == "" {
			by = model.DimParty
		}
		p.Categories = aggregate.SummarizeByCategory(rows, question, by, c.opts...)
		if p.Categories == nil {
			p.Categories = []model.CategorySummary{}
		}
	}
	return p
}

func withIDs(specs []model.ChartSpec) []model.ChartSpec {
	out := make([]model.ChartSpec, len(specs))
	for i, s := range specs {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Title == "" {
			s.Title = interpreter.Title(s.Kind, s.Question, s.By)
		}
		out[i] = s
	}
	return out
}

func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return model.AllValue
	}
	return v
}
