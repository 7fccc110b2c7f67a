package colony

import (
	"antclust/internal/ant"
)

// NestFitness blends the mean integration of a nest with its relative size:
// (1 - shrink) * meanMPlus + shrink * size / total.
func NestFitness(meanMPlus float64, size, total int, shrink float64) float64 {
	return (1-shrink)*meanMPlus + shrink*float64(size)/float64(total)
}

type nestGroup struct {
	label    int
	members  []int
	sumMPlus float64
}

// groupNests collects the current nests in order of first appearance by ant
// index.
func (c *Colony) groupNests() []*nestGroup {
	order := make([]*nestGroup, 0)
	byLabel := make(map[int]*nestGroup)
	for idx, a := range c.ants {
		if a.Label == ant.NoLabel {
			continue
		}
		g, ok := byLabel[a.Label]
		if !ok {
			g = &nestGroup{label: a.Label}
			byLabel[a.Label] = g
			order = append(order, g)
		}
		g.members = append(g.members, idx)
		g.sumMPlus += a.MPlus
	}
	return order
}

// shrinkNests deletes every nest whose fitness falls below NestRemovalProp
// and renumbers the survivors contiguously from 0.
func (c *Colony) shrinkNests() {
	groups := c.groupNests()
	total := len(c.ants)

	reports := make([]NestReport, 0, len(groups))
	next := 0
	for _, g := range groups {
		mean := g.sumMPlus / float64(len(g.members))
		fitness := NestFitness(mean, len(g.members), total, c.opts.NestShrinkProp)
		report := NestReport{
			Label:     g.label,
			Size:      len(g.members),
			MeanMPlus: mean,
			Fitness:   fitness,
			NewLabel:  ant.NoLabel,
		}

		if fitness < c.opts.NestRemovalProp {
			for _, idx := range g.members {
				c.ants[idx].Label = ant.NoLabel
			}
			report.Deleted = true
		} else {
			for _, idx := range g.members {
				c.ants[idx].Label = next
			}
			report.NewLabel = next
			next++
		}

		c.metrics.ObserveNest(report.Deleted)
		c.logger.Debug("antclust: nest fitness",
			"label", report.Label,
			"size", report.Size,
			"mean_m_plus", report.MeanMPlus,
			"fitness", report.Fitness,
			"deleted", report.Deleted,
		)
		reports = append(reports, report)
	}

	c.report.Nests = reports
	c.report.Colonies = next
}
