// Package rules implements the behavioral rule sets that turn meeting
// verdicts into nest labels.
package rules

import (
	"errors"
	"fmt"
	"sort"

	"antclust/internal/ant"
)

var ErrRulesetNotFound = errors.New("ruleset not found")

// DefaultRate is the adaptation rate of the nest estimators M and M+.
const DefaultRate = 0.2

// Engine matches colony.RuleEngine.
type Engine interface {
	ApplyRules(i, j *ant.Ant, acc ant.Acceptor)
}

// Labroche is the rule set of Labroche et al.:
//
//	R1 two unlabeled ants that accept each other found a new nest
//	R2 an unlabeled ant accepted by a nested ant joins its nest
//	R3 accepting nestmates raise M and M+
//	R4 rejecting nestmates raise M, lower M+ and the less integrated one leaves
//	R5 accepting ants of different nests lower M and the smaller-nest one moves
//	R6 anything else changes nothing
//
// A Labroche value holds the label counter of one run and must not be shared
// between colonies.
type Labroche struct {
	Rate float64

	nextLabel int
}

func NewLabroche() *Labroche {
	return &Labroche{Rate: DefaultRate}
}

func (r *Labroche) ApplyRules(i, j *ant.Ant, acc ant.Acceptor) {
	accepted := acc.Acceptance(i, j)

	switch {
	case i.Label == ant.NoLabel && j.Label == ant.NoLabel:
		if accepted {
			label := r.newLabel()
			i.Label = label
			j.Label = label
		}
	case i.Label == ant.NoLabel:
		if accepted {
			i.Label = j.Label
		}
	case j.Label == ant.NoLabel:
		if accepted {
			j.Label = i.Label
		}
	case i.Label == j.Label:
		if accepted {
			r.positiveMeeting(i, j)
		} else {
			r.negativeMeeting(i, j)
		}
	default:
		if accepted {
			r.foreignMeeting(i, j)
		}
	}
}

func (r *Labroche) positiveMeeting(i, j *ant.Ant) {
	i.M = r.increase(i.M)
	j.M = r.increase(j.M)
	i.MPlus = r.increase(i.MPlus)
	j.MPlus = r.increase(j.MPlus)
}

func (r *Labroche) negativeMeeting(i, j *ant.Ant) {
	i.M = r.increase(i.M)
	j.M = r.increase(j.M)
	i.MPlus = r.decrease(i.MPlus)
	j.MPlus = r.decrease(j.MPlus)

	leaver := j
	if i.MPlus <= j.MPlus {
		leaver = i
	}
	leaver.Label = ant.NoLabel
	leaver.M = 0
	leaver.MPlus = 0
}

func (r *Labroche) foreignMeeting(i, j *ant.Ant) {
	i.M = r.decrease(i.M)
	j.M = r.decrease(j.M)

	if i.M <= j.M {
		i.Label = j.Label
	} else {
		j.Label = i.Label
	}
}

func (r *Labroche) newLabel() int {
	label := r.nextLabel
	r.nextLabel++
	return label
}

func (r *Labroche) increase(x float64) float64 {
	return (1-r.Rate)*x + r.Rate
}

func (r *Labroche) decrease(x float64) float64 {
	return (1 - r.Rate) * x
}

var rulesets = map[string]func() Engine{
	"labroche": func() Engine { return NewLabroche() },
}

// New returns a fresh rule engine for the named rule set.
func New(name string) (Engine, error) {
	build, ok := rulesets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRulesetNotFound, name)
	}
	return build(), nil
}

func Names() []string {
	names := make([]string, 0, len(rulesets))
	for name := range rulesets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
