// Package ant models a single data point taking part in AntClust meetings:
// its immutable feature vector plus the mutable template, nest label and
// nest estimators the rule set works on.
package ant

import "antclust/internal/similarity"

// NoLabel marks an ant that does not belong to any nest.
const NoLabel = -1

type Ant struct {
	Index int
	Gene  []similarity.Value

	Label    int
	Template float64

	// M estimates the size of the ant's nest, MPlus how well the ant is
	// integrated in it. Both live in [0, 1] and are owned by the rule set.
	M     float64
	MPlus float64

	// Running statistics over every similarity the ant has observed.
	Age            int
	MeanSimilarity float64
	MaxSimilarity  float64

	rule TemplateRule
}

// New creates an unlabeled ant. A nil rule selects MeanMax.
func New(index int, gene []similarity.Value, rule TemplateRule) *Ant {
	if rule == nil {
		rule = MeanMax{}
	}
	return &Ant{
		Index: index,
		Gene:  append([]similarity.Value(nil), gene...),
		Label: NoLabel,
		rule:  rule,
	}
}

// UpdateTemplate feeds one observed similarity into the ant's template rule.
func (a *Ant) UpdateTemplate(sim float64) {
	a.rule.Update(a, sim)
}

func (a *Ant) Affiliated() bool {
	return a.Label != NoLabel
}

// Acceptor decides whether two ants accept each other. Implementations update
// both templates as a side effect.
type Acceptor interface {
	Acceptance(i, j *Ant) bool
}
