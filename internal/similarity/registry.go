package similarity

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrStrategyExists   = errors.New("similarity strategy already registered")
	ErrStrategyNotFound = errors.New("similarity strategy not found")
	ErrInvalidRange     = errors.New("similarity range must be non-empty")
)

// Params carries the construction parameters a named strategy may need.
type Params struct {
	Min float64
	Max float64
}

type Factory func(p Params) (Strategy, error)

var strategyRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	initializeBuiltInStrategies()
}

func initializeBuiltInStrategies() {
	MustRegister("numeric", func(p Params) (Strategy, error) {
		if p.Min == p.Max {
			return nil, fmt.Errorf("%w: numeric min=%g max=%g", ErrInvalidRange, p.Min, p.Max)
		}
		return Numeric{Min: p.Min, Max: p.Max}, nil
	})
	MustRegister("euclidean", func(p Params) (Strategy, error) {
		if p.Min == p.Max {
			return nil, fmt.Errorf("%w: euclidean min=%g max=%g", ErrInvalidRange, p.Min, p.Max)
		}
		return Euclidean{Min: p.Min, Max: p.Max}, nil
	})
	MustRegister("cosine", func(Params) (Strategy, error) {
		return Cosine{}, nil
	})
	MustRegister("categorical", func(Params) (Strategy, error) {
		return Categorical{}, nil
	})
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("similarity strategy name is required")
	}
	if factory == nil {
		return errors.New("similarity strategy factory is required")
	}

	strategyRegistry.mu.Lock()
	defer strategyRegistry.mu.Unlock()

	if _, exists := strategyRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrStrategyExists, name)
	}
	strategyRegistry.m[name] = factory
	return nil
}

func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// New builds the strategy registered under name.
func New(name string, p Params) (Strategy, error) {
	strategyRegistry.mu.RLock()
	factory, ok := strategyRegistry.m[name]
	strategyRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return factory(p)
}

func Names() []string {
	strategyRegistry.mu.RLock()
	defer strategyRegistry.mu.RUnlock()

	names := make([]string, 0, len(strategyRegistry.m))
	for name := range strategyRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	strategyRegistry.mu.Lock()
	strategyRegistry.m = make(map[string]Factory)
	strategyRegistry.mu.Unlock()
	initializeBuiltInStrategies()
}
