package similarity

import "math"

// Value is one feature slot of a data point. Scalar features hold a single
// element, vector features one element per dimension.
type Value []float64

func Scalar(x float64) Value {
	return Value{x}
}

// Strategy scores two values of the same feature. Implementations must be
// symmetric, return 1 for identical values and stay within [0, 1].
type Strategy interface {
	Similarity(a, b Value) float64
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(a, b Value) float64

func (f StrategyFunc) Similarity(a, b Value) float64 {
	return f(a, b)
}

// Numeric is the inverted absolute distance between two scalars normalized by
// the value range.
type Numeric struct {
	Min float64
	Max float64
}

func (n Numeric) Similarity(a, b Value) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	span := math.Abs(n.Max - n.Min)
	if span == 0 {
		if a[0] == b[0] {
			return 1
		}
		return 0
	}
	return 1 - math.Abs(a[0]-b[0])/span
}

// Euclidean is the inverted euclidean distance between two vectors normalized
// by the diagonal of the [Min, Max] hypercube, so in-range points score in
// [0, 1] regardless of dimensionality. Span-only normalization, as used by
// some 2-D ports, scores d-dimensional pairs lower by a factor of √d in the
// distance term; ranges carried over from such setups need no rescaling,
// but templates tuned on them will see higher similarities here.
type Euclidean struct {
	Min float64
	Max float64
}

func (e Euclidean) Similarity(a, b Value) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	span := math.Abs(e.Max - e.Min)
	if span == 0 {
		if sum == 0 {
			return 1
		}
		return 0
	}
	return 1 - math.Sqrt(sum)/(span*math.Sqrt(float64(len(a))))
}

// Cosine maps the cosine of the angle between two vectors onto [0, 1].
type Cosine struct{}

func (Cosine) Similarity(a, b Value) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		if normA == normB {
			return 1
		}
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	cos = math.Max(-1, math.Min(1, cos))
	return (1 + cos) / 2
}

// Categorical treats values as category codes: equal codes are fully similar,
// anything else is not similar at all.
type Categorical struct{}

func (Categorical) Similarity(a, b Value) float64 {
	if len(a) != len(b) {
		return 0
	}
	for i := range a {
		if a[i] != b[i] {
			return 0
		}
	}
	return 1
}
