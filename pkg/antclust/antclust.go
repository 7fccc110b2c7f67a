// Package antclust is the public entry point for ant-based clustering.
//
// Library users build an AntClust from a dataset, one similarity strategy per
// feature slot and a rule set, then call RunClustering and read Clusters:
//
//	c, err := antclust.New(points, []antclust.SimilarityStrategy{
//		antclust.EuclideanSimilarity(0, 10),
//	}, antclust.NewLabrocheRules(), antclust.DefaultOptions())
//	if err != nil { ... }
//	if err := c.RunClustering(ctx); err != nil { ... }
//	labels := c.Clusters()
//
// Client wraps the same engine with file datasets, persistence and
// artifacts.
package antclust

import (
	"antclust/internal/ant"
	"antclust/internal/colony"
	"antclust/internal/config"
	"antclust/internal/model"
	"antclust/internal/rules"
	"antclust/internal/similarity"
)

type (
	Value              = similarity.Value
	SimilarityStrategy = similarity.Strategy
	SimilarityFunc     = similarity.StrategyFunc
	Ant                = ant.Ant
	Acceptor           = ant.Acceptor
	TemplateRule       = ant.TemplateRule
	RuleEngine         = colony.RuleEngine
	Options            = colony.Options
	AntClust           = colony.Colony
	Report             = colony.Report
	NestReport         = colony.NestReport
	Config             = config.Config
	RunRecord          = model.RunRecord
)

// NoLabel marks an ant without a nest.
const NoLabel = ant.NoLabel

var (
	ErrFeatureMismatch = colony.ErrFeatureMismatch
	ErrInvalidOptions  = colony.ErrInvalidOptions
)

func DefaultOptions() Options {
	return colony.DefaultOptions()
}

// New builds a colony with one ant per dataset row. Templates are
// initialized before New returns.
func New(dataset [][]Value, strategies []SimilarityStrategy, rules RuleEngine, opts Options) (*AntClust, error) {
	return colony.New(dataset, strategies, rules, opts)
}

func NewLabrocheRules() RuleEngine {
	return rules.NewLabroche()
}

// Scalar wraps a single number as a feature value.
func Scalar(x float64) Value {
	return similarity.Scalar(x)
}

func NumericSimilarity(min, max float64) SimilarityStrategy {
	return similarity.Numeric{Min: min, Max: max}
}

func EuclideanSimilarity(min, max float64) SimilarityStrategy {
	return similarity.Euclidean{Min: min, Max: max}
}

func CosineSimilarity() SimilarityStrategy {
	return similarity.Cosine{}
}

func CategoricalSimilarity() SimilarityStrategy {
	return similarity.Categorical{}
}

// Strategy resolves a registered similarity strategy by name.
func Strategy(name string, min, max float64) (SimilarityStrategy, error) {
	return similarity.New(name, similarity.Params{Min: min, Max: max})
}

func StrategyNames() []string {
	return similarity.Names()
}

func RulesetNames() []string {
	return rules.Names()
}

func TemplateRuleNames() []string {
	return ant.TemplateRuleNames()
}

func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

func ParseConfig(data []byte) (Config, error) {
	return config.Parse(data)
}
