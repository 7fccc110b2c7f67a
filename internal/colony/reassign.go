package colony

import (
	"context"

	"golang.org/x/sync/errgroup"

	"antclust/internal/ant"
)

// reassign gives every ant without a nest the label of its most similar
// affiliated ant. Candidates are the ants affiliated when the stage starts,
// so the result does not depend on the number of workers. Unlike a
// sequential one-by-one pass, an ant reassigned here never becomes a
// candidate for another unlabeled ant. Ants stay unlabeled when no
// candidate exists.
func (c *Colony) reassign(ctx context.Context) error {
	var candidates, orphans []int
	for idx, a := range c.ants {
		if a.Label == ant.NoLabel {
			orphans = append(orphans, idx)
		} else {
			candidates = append(candidates, idx)
		}
	}
	c.report.Unaffiliated = len(orphans)
	c.report.Reassigned = 0

	if len(orphans) == 0 {
		return nil
	}
	if len(candidates) == 0 {
		c.logger.Warn("antclust: no affiliated ant left, unaffiliated ants keep no label",
			"unaffiliated", len(orphans),
		)
		return nil
	}

	targets := make([]int, len(orphans))
	if c.opts.Workers <= 1 || len(orphans) == 1 {
		for k, idx := range orphans {
			if k%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			targets[k] = c.mostSimilarLabel(idx, candidates)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opts.Workers)
		for k, idx := range orphans {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				targets[k] = c.mostSimilarLabel(idx, candidates)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for k, idx := range orphans {
		c.ants[idx].Label = targets[k]
		if targets[k] != ant.NoLabel {
			c.report.Reassigned++
		}
		c.logger.Debug("antclust: reassigned ant",
			"ant", idx,
			"label", targets[k],
		)
	}
	return nil
}

// mostSimilarLabel returns the label of the first candidate with the highest
// similarity to the ant at idx.
func (c *Colony) mostSimilarLabel(idx int, candidates []int) int {
	a := c.ants[idx]
	best := -1
	maxSim := -1.0
	for _, j := range candidates {
		if j == idx {
			continue
		}
		sim := c.Similarity(a, c.ants[j])
		if sim > maxSim {
			maxSim = sim
			best = j
		}
	}
	if best < 0 {
		return ant.NoLabel
	}
	return c.ants[best].Label
}
