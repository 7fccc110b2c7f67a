package colony

import "antclust/internal/ant"

// Similarity is the mean of the per-feature strategy scores of two ants. When
// caching is enabled the result is memoized per unordered pair.
func (c *Colony) Similarity(i, j *ant.Ant) float64 {
	if c.cache != nil {
		if v, ok := c.cache.Get(i.Index, j.Index); ok {
			c.metrics.ObserveCacheLookup(true)
			return v
		}
		c.metrics.ObserveCacheLookup(false)
	}

	sim := 0.0
	for k, strategy := range c.strategies {
		sim += strategy.Similarity(i.Gene[k], j.Gene[k])
	}
	sim /= float64(len(c.strategies))

	if c.cache != nil {
		sim = c.cache.Put(i.Index, j.Index, sim)
	}
	return sim
}

// Acceptance updates the templates of both ants with their similarity and
// reports whether that similarity exceeds both updated templates.
func (c *Colony) Acceptance(i, j *ant.Ant) bool {
	sim := c.Similarity(i, j)

	i.UpdateTemplate(sim)
	j.UpdateTemplate(sim)

	accepted := sim > i.Template && sim > j.Template
	c.metrics.ObserveAcceptance(accepted)
	return accepted
}
