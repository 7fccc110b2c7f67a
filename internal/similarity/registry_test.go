package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuiltInStrategies(t *testing.T) {
	resetRegistryForTests()
	t.Cleanup(resetRegistryForTests)

	s, err := New("euclidean", Params{Min: 0, Max: 11})
	require.NoError(t, err)
	assert.Equal(t, Euclidean{Min: 0, Max: 11}, s)

	s, err = New("numeric", Params{Min: 1, Max: 3})
	require.NoError(t, err)
	assert.Equal(t, Numeric{Min: 1, Max: 3}, s)

	_, err = New("cosine", Params{})
	require.NoError(t, err)
	_, err = New("categorical", Params{})
	require.NoError(t, err)
}

func TestNewRejectsEmptyRange(t *testing.T) {
	resetRegistryForTests()
	t.Cleanup(resetRegistryForTests)

	_, err := New("numeric", Params{Min: 2, Max: 2})
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = New("euclidean", Params{})
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewUnknownStrategy(t *testing.T) {
	resetRegistryForTests()
	t.Cleanup(resetRegistryForTests)

	_, err := New("manhattan", Params{})
	require.ErrorIs(t, err, ErrStrategyNotFound)
}

func TestRegisterValidation(t *testing.T) {
	resetRegistryForTests()
	t.Cleanup(resetRegistryForTests)

	require.Error(t, Register("", func(Params) (Strategy, error) { return Cosine{}, nil }))
	require.Error(t, Register("nil-factory", nil))
	require.ErrorIs(t, Register("cosine", func(Params) (Strategy, error) { return Cosine{}, nil }), ErrStrategyExists)

	require.NoError(t, Register("always-half", func(Params) (Strategy, error) {
		return StrategyFunc(func(a, b Value) float64 { return 0.5 }), nil
	}))
	s, err := New("always-half", Params{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Similarity(Scalar(1), Scalar(2)))
}

func TestNamesSorted(t *testing.T) {
	resetRegistryForTests()
	t.Cleanup(resetRegistryForTests)

	assert.Equal(t, []string{"categorical", "cosine", "euclidean", "numeric"}, Names())
}
