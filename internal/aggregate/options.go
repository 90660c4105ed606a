package aggregate

// Option tunes aggregation via the functional options pattern
type Option func(*config)

// KpiQuestions names the questions behind the headline KPIs
type KpiQuestions struct {
	Approval   string `json:"approval" yaml:"approval"`
	Likelihood string `json:"likelihood" yaml:"likelihood"`
	Issue      string `json:"issue" yaml:"issue"`
}

// DefaultKpiQuestions returns Q1 approval, Q2 likelihood, Q3 issue
func DefaultKpiQuestions() KpiQuestions {
	return KpiQuestions{Approval: "Q1", Likelihood: "Q2", Issue: "Q3"}
}

// DefaultPositiveThreshold is the lowest Likert rating counted as positive
const DefaultPositiveThreshold = 4.0

type config struct {
	positiveThreshold float64
	questions         KpiQuestions
}

// WithPositiveThreshold overrides the rating counted as positive
func WithPositiveThreshold(threshold float64) Option {
	return func(c *config) {
		if threshold > 0 {
			c.positiveThreshold = threshold
		}
	}
}

// WithQuestions overrides the KPI question ids; empty fields keep defaults
func WithQuestions(q KpiQuestions) Option {
	return func(c *config) {
		if q.Approval != "" {
			c.questions.Approval = q.Approval
		}
		if q.Likelihood != "" {
			c.questions.Likelihood = q.Likelihood
		}
		if q.Issue != "" {
			c.questions.Issue = q.Issue
		}
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		positiveThreshold: DefaultPositiveThreshold,
		questions:         DefaultKpiQuestions(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
