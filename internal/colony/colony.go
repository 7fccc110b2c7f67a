// Package colony runs the AntClust algorithm: ants meet pairwise, build nests
// through a pluggable rule set, weak nests are pruned and every ant left
// without a nest joins the nest of its most similar affiliated ant.
package colony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"antclust/internal/ant"
	"antclust/internal/similarity"
	"antclust/internal/telemetry"
)

var (
	ErrFeatureMismatch = errors.New("feature vector length does not match similarity strategies")
	ErrInvalidOptions  = errors.New("invalid colony options")
)

// RuleEngine updates nest labels and nest estimators of the two ants of a
// meeting. It is called once per main loop meeting and is expected to obtain
// the acceptance verdict from acc.
type RuleEngine interface {
	ApplyRules(i, j *ant.Ant, acc ant.Acceptor)
}

type Options struct {
	// StoreComputedSimilarities memoizes every pairwise similarity for the
	// run. Needs up to N*(N-1)/2 entries.
	StoreComputedSimilarities bool
	// Alpha scales the main loop: floor(0.5 * Alpha * N) meetings.
	Alpha float64
	// Beta is the fraction of Alpha each ant spends on template
	// initialization meetings: floor(Beta * Alpha).
	Beta float64
	// NestShrinkProp weighs relative nest size against mean integration in
	// the nest fitness.
	NestShrinkProp float64
	// NestRemovalProp is the fitness below which a nest is deleted.
	NestRemovalProp float64

	Seed    int64
	Workers int

	TemplateRule ant.TemplateRule
	Logger       *slog.Logger
	Metrics      *telemetry.Metrics
}

func DefaultOptions() Options {
	return Options{
		StoreComputedSimilarities: true,
		Alpha:                     150,
		Beta:                      0.5,
		NestShrinkProp:            0.2,
		NestRemovalProp:           0.3,
		Seed:                      1,
		Workers:                   1,
		TemplateRule:              ant.MeanMax{},
	}
}

type PhaseDurations struct {
	Initialize time.Duration `json:"initialize"`
	Meet       time.Duration `json:"meet"`
	Shrink     time.Duration `json:"shrink"`
	Reassign   time.Duration `json:"reassign"`
}

// NestReport describes one nest as seen by the pruning stage.
type NestReport struct {
	Label     int     `json:"label"`
	Size      int     `json:"size"`
	MeanMPlus float64 `json:"mean_m_plus"`
	Fitness   float64 `json:"fitness"`
	Deleted   bool    `json:"deleted"`
	NewLabel  int     `json:"new_label"`
}

type Report struct {
	Entities         int                   `json:"entities"`
	TemplateMeetings int                   `json:"template_meetings"`
	Meetings         int                   `json:"meetings"`
	Nests            []NestReport          `json:"nests"`
	Colonies         int                   `json:"colonies"`
	Unaffiliated     int                   `json:"unaffiliated"`
	Reassigned       int                   `json:"reassigned"`
	Cache            similarity.CacheStats `json:"cache"`
	Durations        PhaseDurations        `json:"durations"`
}

type Colony struct {
	opts       Options
	strategies []similarity.Strategy
	rules      RuleEngine
	ants       []*ant.Ant
	cache      *similarity.Cache
	rng        *rand.Rand
	logger     *slog.Logger
	metrics    *telemetry.Metrics

	templateMeetings int
	meetings         int

	labels []int
	report Report
}

// New builds the ant population for dataset and initializes every ant's
// template. Each dataset row must hold exactly one value per strategy.
func New(dataset [][]similarity.Value, strategies []similarity.Strategy, rules RuleEngine, opts Options) (*Colony, error) {
	if err := validate(dataset, strategies, rules, opts); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.TemplateRule == nil {
		opts.TemplateRule = ant.MeanMax{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ants := make([]*ant.Ant, len(dataset))
	for i, gene := range dataset {
		ants[i] = ant.New(i, gene, opts.TemplateRule)
	}

	c := &Colony{
		opts:             opts,
		strategies:       slices.Clone(strategies),
		rules:            rules,
		ants:             ants,
		rng:              rand.New(rand.NewSource(opts.Seed)),
		logger:           logger,
		metrics:          opts.Metrics,
		templateMeetings: int(opts.Beta * opts.Alpha),
		meetings:         int(0.5 * opts.Alpha * float64(len(ants))),
	}
	if opts.StoreComputedSimilarities {
		c.cache = similarity.NewCache(len(ants))
	}
	c.report = Report{
		Entities:         len(ants),
		TemplateMeetings: c.templateMeetings,
		Meetings:         c.meetings,
	}

	start := time.Now()
	_, span := telemetry.Tracer().Start(context.Background(), "antclust.initialize")
	c.initializeTemplates()
	span.End()
	c.report.Durations.Initialize = time.Since(start)
	c.metrics.ObservePhase("initialize", c.report.Durations.Initialize)

	return c, nil
}

func validate(dataset [][]similarity.Value, strategies []similarity.Strategy, rules RuleEngine, opts Options) error {
	if len(strategies) == 0 {
		return fmt.Errorf("%w: at least one similarity strategy is required", ErrInvalidOptions)
	}
	for i, s := range strategies {
		if s == nil {
			return fmt.Errorf("%w: similarity strategy %d is nil", ErrInvalidOptions, i)
		}
	}
	if rules == nil {
		return fmt.Errorf("%w: rule engine is required", ErrInvalidOptions)
	}
	if len(dataset) < 2 {
		return fmt.Errorf("%w: dataset needs at least 2 points, got %d", ErrInvalidOptions, len(dataset))
	}
	if opts.Alpha <= 0 {
		return fmt.Errorf("%w: alpha must be > 0", ErrInvalidOptions)
	}
	if opts.Beta < 0 {
		return fmt.Errorf("%w: beta must be >= 0", ErrInvalidOptions)
	}
	if opts.NestShrinkProp < 0 || opts.NestShrinkProp > 1 {
		return fmt.Errorf("%w: nest shrink proportion must be in [0, 1]", ErrInvalidOptions)
	}
	if opts.NestRemovalProp < 0 {
		return fmt.Errorf("%w: nest removal proportion must be >= 0", ErrInvalidOptions)
	}
	for i, gene := range dataset {
		if len(gene) != len(strategies) {
			return fmt.Errorf("%w: point %d has %d features, want %d", ErrFeatureMismatch, i, len(gene), len(strategies))
		}
	}
	return nil
}

func (c *Colony) Len() int {
	return len(c.ants)
}

// Ant returns the ant at index i. Rule sets and tests may mutate it; callers
// must not do so while RunClustering is in progress.
func (c *Colony) Ant(i int) *ant.Ant {
	return c.ants[i]
}

// Report describes the last run. Before RunClustering only the entity and
// meeting counts and the initialization time are set.
func (c *Colony) Report() Report {
	report := c.report
	report.Nests = slices.Clone(c.report.Nests)
	if c.cache != nil {
		report.Cache = c.cache.Stats()
	}
	return report
}
