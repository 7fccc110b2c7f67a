package colony

import (
	"context"
)

const ctxCheckInterval = 1024

// initializeTemplates lets every ant meet templateMeetings random peers so
// that templates settle before labels are assigned. Verdicts are discarded.
func (c *Colony) initializeTemplates() {
	for i, a := range c.ants {
		for k := 0; k < c.templateMeetings; k++ {
			peer := c.ants[c.randomPeer(i)]
			c.Acceptance(a, peer)
		}
	}
}

// meet runs the main loop of randomized meetings through the rule set.
func (c *Colony) meet(ctx context.Context) error {
	progressStep := c.meetings / 10
	if progressStep == 0 {
		progressStep = 1
	}

	for done := 0; done < c.meetings; done++ {
		if done%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if done%progressStep == 0 {
			c.logger.Debug("antclust: meetings left",
				"left", c.meetings-done,
				"total", c.meetings,
			)
		}

		i, j := c.distinctPair()
		c.rules.ApplyRules(c.ants[i], c.ants[j], c)
		c.metrics.ObserveMeeting()
	}
	return nil
}

// randomPeer draws an index uniformly from every ant except i.
func (c *Colony) randomPeer(i int) int {
	j := c.rng.Intn(len(c.ants))
	for j == i {
		j = c.rng.Intn(len(c.ants))
	}
	return j
}

func (c *Colony) distinctPair() (int, int) {
	i := c.rng.Intn(len(c.ants))
	return i, c.randomPeer(i)
}
