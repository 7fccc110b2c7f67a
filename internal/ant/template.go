package ant

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrTemplateRuleNotFound = errors.New("template rule not found")

// TemplateRule adapts an ant's acceptance threshold after each meeting.
type TemplateRule interface {
	Update(a *Ant, sim float64)
}

// MeanMax sets the template halfway between the mean and the maximum
// similarity the ant has observed so far.
type MeanMax struct{}

func (MeanMax) Update(a *Ant, sim float64) {
	observe(a, sim)
	a.Template = (a.MeanSimilarity + a.MaxSimilarity) / 2
}

// RunningMean sets the template to the mean observed similarity, which makes
// ants more permissive than MeanMax.
type RunningMean struct{}

func (RunningMean) Update(a *Ant, sim float64) {
	observe(a, sim)
	a.Template = a.MeanSimilarity
}

func observe(a *Ant, sim float64) {
	a.Age++
	a.MeanSimilarity += (sim - a.MeanSimilarity) / float64(a.Age)
	if a.Age == 1 {
		a.MaxSimilarity = sim
		return
	}
	a.MaxSimilarity = math.Max(a.MaxSimilarity, sim)
}

var templateRules = map[string]TemplateRule{
	"mean_max":     MeanMax{},
	"running_mean": RunningMean{},
}

// TemplateRuleByName resolves a configured rule name. The empty name selects
// MeanMax.
func TemplateRuleByName(name string) (TemplateRule, error) {
	if name == "" {
		return MeanMax{}, nil
	}
	rule, ok := templateRules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateRuleNotFound, name)
	}
	return rule, nil
}

func TemplateRuleNames() []string {
	names := make([]string, 0, len(templateRules))
	for name := range templateRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
