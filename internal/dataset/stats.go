package dataset

import (
	"fmt"

	"antclust/internal/similarity"
)

type ColumnStats struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// ColumnStats summarizes every numeric column. The label column, if any, is
// reported as zeros.
func (t Table) ColumnStats() ([]ColumnStats, error) {
	if len(t.Rows) == 0 {
		return nil, nil
	}
	width := len(t.Rows[0])
	stats := make([]ColumnStats, width)
	for i, value := range t.Rows[0] {
		stats[i] = ColumnStats{Min: value, Avg: value, Max: value}
	}
	for r := 1; r < len(t.Rows); r++ {
		row := t.Rows[r]
		if len(row) != width {
			return nil, fmt.Errorf("inconsistent width at row %d: got=%d want=%d", r, len(row), width)
		}
		for i, value := range row {
			stats[i].observe(value)
		}
	}
	count := float64(len(t.Rows))
	for i := range stats {
		stats[i].Avg /= count
	}
	return stats, nil
}

// FeatureStats summarizes each feature slot over all components of all rows.
func FeatureStats(rows [][]similarity.Value) ([]ColumnStats, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	stats := make([]ColumnStats, width)
	seen := make([]int, width)
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("inconsistent feature count at row %d: got=%d want=%d", r, len(row), width)
		}
		for slot, value := range row {
			for _, x := range value {
				if seen[slot] == 0 {
					stats[slot] = ColumnStats{Min: x, Max: x}
				} else {
					stats[slot].Min = min(stats[slot].Min, x)
					stats[slot].Max = max(stats[slot].Max, x)
				}
				stats[slot].Avg += x
				seen[slot]++
			}
		}
	}
	for slot := range stats {
		if seen[slot] > 0 {
			stats[slot].Avg /= float64(seen[slot])
		}
	}
	return stats, nil
}

func (s *ColumnStats) observe(value float64) {
	if value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
	s.Avg += value
}
