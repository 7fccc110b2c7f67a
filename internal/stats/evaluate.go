package stats

import (
	"fmt"

	"antclust/internal/model"
)

// ClusterSizes counts the ants per colony. Labels are expected to be
// contiguous from zero; unlabeled entries are counted separately.
func ClusterSizes(labels []int) (sizes []int, unlabeled int) {
	for _, label := range labels {
		if label < 0 {
			unlabeled++
			continue
		}
		for len(sizes) <= label {
			sizes = append(sizes, 0)
		}
		sizes[label]++
	}
	return sizes, unlabeled
}

type contingency struct {
	cells      map[[2]int]int
	truthSizes map[int]int
	predSizes  map[int]int
	n          int
}

func buildContingency(truth []string, pred []int) (contingency, error) {
	if len(truth) != len(pred) {
		return contingency{}, fmt.Errorf("truth has %d entries, labels have %d", len(truth), len(pred))
	}
	classes := make(map[string]int)
	c := contingency{
		cells:      make(map[[2]int]int),
		truthSizes: make(map[int]int),
		predSizes:  make(map[int]int),
		n:          len(pred),
	}
	for i, class := range truth {
		id, ok := classes[class]
		if !ok {
			id = len(classes)
			classes[class] = id
		}
		// Unlabeled ants form one extra group.
		c.cells[[2]int{id, pred[i]}]++
		c.truthSizes[id]++
		c.predSizes[pred[i]]++
	}
	return c, nil
}

func choose2(n int) float64 {
	return float64(n) * float64(n-1) / 2
}

// AdjustedRandIndex measures the agreement between ground-truth classes and
// predicted labels, corrected for chance.
func AdjustedRandIndex(truth []string, pred []int) (float64, error) {
	c, err := buildContingency(truth, pred)
	if err != nil {
		return 0, err
	}
	if c.n < 2 {
		return 1, nil
	}

	var index, sumTruth, sumPred float64
	for _, count := range c.cells {
		index += choose2(count)
	}
	for _, count := range c.truthSizes {
		sumTruth += choose2(count)
	}
	for _, count := range c.predSizes {
		sumPred += choose2(count)
	}
	expected := sumTruth * sumPred / choose2(c.n)
	maxIndex := (sumTruth + sumPred) / 2
	if maxIndex == expected {
		// Both partitions are trivial (one group or all singletons).
		return 1, nil
	}
	return (index - expected) / (maxIndex - expected), nil
}

// Purity is the share of ants that belong to the majority class of their
// colony.
func Purity(truth []string, pred []int) (float64, error) {
	c, err := buildContingency(truth, pred)
	if err != nil {
		return 0, err
	}
	if c.n == 0 {
		return 0, nil
	}
	majority := make(map[int]int)
	for cell, count := range c.cells {
		if count > majority[cell[1]] {
			majority[cell[1]] = count
		}
	}
	total := 0
	for _, count := range majority {
		total += count
	}
	return float64(total) / float64(c.n), nil
}

func Evaluate(truth []string, pred []int) (*model.Evaluation, error) {
	ari, err := AdjustedRandIndex(truth, pred)
	if err != nil {
		return nil, err
	}
	purity, err := Purity(truth, pred)
	if err != nil {
		return nil, err
	}
	classes := make(map[string]struct{})
	for _, class := range truth {
		classes[class] = struct{}{}
	}
	return &model.Evaluation{
		AdjustedRandIndex: ari,
		Purity:            purity,
		TruthClasses:      len(classes),
	}, nil
}
