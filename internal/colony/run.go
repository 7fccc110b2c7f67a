package colony

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"antclust/internal/telemetry"
)

// RunClustering executes the meeting, nest shrink and reassignment phases in
// order and extracts the resulting labels.
func (c *Colony) RunClustering(ctx context.Context) error {
	c.logger.Info("antclust: phase 1 of 3, meeting ants",
		"ants", len(c.ants),
		"meetings", c.meetings,
	)
	if err := c.phase(ctx, "meet", &c.report.Durations.Meet, c.meet); err != nil {
		return err
	}

	c.logger.Info("antclust: phase 2 of 3, shrinking nests")
	if err := c.phase(ctx, "shrink", &c.report.Durations.Shrink, func(context.Context) error {
		c.shrinkNests()
		return nil
	}); err != nil {
		return err
	}

	c.logger.Info("antclust: phase 3 of 3, reassigning ants",
		"colonies", c.report.Colonies,
	)
	if err := c.phase(ctx, "reassign", &c.report.Durations.Reassign, c.reassign); err != nil {
		return err
	}

	c.extractLabels()
	c.logger.Info("antclust: clustering finished",
		"colonies", c.report.Colonies,
		"reassigned", c.report.Reassigned,
	)
	return nil
}

func (c *Colony) phase(ctx context.Context, name string, elapsed *time.Duration, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := telemetry.Tracer().Start(ctx, "antclust."+name)
	span.SetAttributes(attribute.Int("antclust.ants", len(c.ants)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	*elapsed = time.Since(start)
	c.metrics.ObservePhase(name, *elapsed)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Colony) extractLabels() {
	labels := make([]int, len(c.ants))
	for i, a := range c.ants {
		labels[i] = a.Label
	}
	c.labels = labels
}

// Clusters returns the label of every data point by index as extracted by the
// last RunClustering, or nil before the first run. The slice is a copy.
func (c *Colony) Clusters() []int {
	return slices.Clone(c.labels)
}
