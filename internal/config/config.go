// Package config loads clustering run configuration from YAML or JSON files
// with environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"antclust/internal/ant"
	"antclust/internal/model"
	"antclust/internal/rules"
	"antclust/internal/similarity"
)

const envPrefix = "ANTCLUST_"

var validate = validator.New()

type DatasetConfig struct {
	Path        string `yaml:"path" json:"path"`
	Header      bool   `yaml:"header" json:"header"`
	LabelColumn string `yaml:"label_column" json:"label_column"`
	// Comma is the field separator; empty means ",".
	Comma string `yaml:"comma" json:"comma" validate:"omitempty,len=1"`
}

type FeatureConfig struct {
	Columns    []string `yaml:"columns" json:"columns" validate:"required,min=1,dive,required"`
	Similarity string   `yaml:"similarity" json:"similarity" validate:"required"`
	Min        float64  `yaml:"min" json:"min"`
	Max        float64  `yaml:"max" json:"max"`
}

// AutoRange reports whether the value range is left to the data: both
// bounds unset.
func (f FeatureConfig) AutoRange() bool {
	return f.Min == 0 && f.Max == 0
}

type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind" validate:"omitempty,oneof=memory sqlite badger"`
	Path string `yaml:"path" json:"path"`
}

type Config struct {
	Dataset                   DatasetConfig   `yaml:"dataset" json:"dataset"`
	Features                  []FeatureConfig `yaml:"features" json:"features" validate:"required,min=1,dive"`
	Ruleset                   string          `yaml:"ruleset" json:"ruleset" validate:"required"`
	TemplateRule              string          `yaml:"template_rule" json:"template_rule"`
	StoreComputedSimilarities bool            `yaml:"store_computed_similarities" json:"store_computed_similarities"`
	Alpha                     float64         `yaml:"alpha_ant_meeting_iterations" json:"alpha_ant_meeting_iterations" validate:"gt=0"`
	Beta                      float64         `yaml:"betta_template_init_meetings" json:"betta_template_init_meetings" validate:"gte=0"`
	NestShrinkProp            float64         `yaml:"nest_shrink_prop" json:"nest_shrink_prop" validate:"gte=0,lte=1"`
	NestRemovalProp           float64         `yaml:"nest_removal_prop" json:"nest_removal_prop" validate:"gte=0"`
	Seed                      int64           `yaml:"seed" json:"seed"`
	Workers                   int             `yaml:"workers" json:"workers" validate:"gte=1"`
	Store                     StoreConfig     `yaml:"store" json:"store"`
	ArtifactsDir              string          `yaml:"artifacts_dir" json:"artifacts_dir"`
	LogLevel                  string          `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Default mirrors colony.DefaultOptions. Dataset and features have no
// defaults.
func Default() Config {
	return Config{
		Ruleset:                   "labroche",
		TemplateRule:              "mean_max",
		StoreComputedSimilarities: true,
		Alpha:                     150,
		Beta:                      0.5,
		NestShrinkProp:            0.2,
		NestRemovalProp:           0.3,
		Seed:                      1,
		Workers:                   1,
		Store:                     StoreConfig{Kind: "memory"},
		LogLevel:                  "info",
	}
}

// Load merges defaults, the file at path, and ANTCLUST_* environment
// overrides, then validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document without consulting
// the environment.
func Parse(data []byte) (Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		cfg = Default()
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			return Config{}, fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envPrefix + "DATASET"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv(envPrefix + "SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", envPrefix, err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv(envPrefix + "WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", envPrefix, err)
		}
		cfg.Workers = workers
	}
	if v := os.Getenv(envPrefix + "ALPHA"); v != "" {
		alpha, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sALPHA: %w", envPrefix, err)
		}
		cfg.Alpha = alpha
	}
	if v := os.Getenv(envPrefix + "STORE"); v != "" {
		cfg.Store.Kind = v
	}
	if v := os.Getenv(envPrefix + "DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv(envPrefix + "ARTIFACTS_DIR"); v != "" {
		cfg.ArtifactsDir = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks field constraints and resolves every named strategy,
// ruleset and template rule.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for i, f := range c.Features {
		p := similarity.Params{Min: f.Min, Max: f.Max}
		if f.AutoRange() {
			p.Max = 1
		}
		if _, err := similarity.New(f.Similarity, p); err != nil {
			return fmt.Errorf("features[%d]: %w", i, err)
		}
	}
	if _, err := rules.New(c.Ruleset); err != nil {
		return err
	}
	if _, err := ant.TemplateRuleByName(c.TemplateRule); err != nil {
		return err
	}
	return nil
}

// Strategies builds one similarity strategy per feature slot.
func (c Config) Strategies() ([]similarity.Strategy, error) {
	out := make([]similarity.Strategy, len(c.Features))
	for i, f := range c.Features {
		s, err := similarity.New(f.Similarity, similarity.Params{Min: f.Min, Max: f.Max})
		if err != nil {
			return nil, fmt.Errorf("features[%d]: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// ColumnGroups returns the dataset columns of each feature slot.
func (c Config) ColumnGroups() [][]string {
	groups := make([][]string, len(c.Features))
	for i, f := range c.Features {
		groups[i] = append([]string(nil), f.Columns...)
	}
	return groups
}

// CommaRune returns the configured separator rune, or 0 for the default.
func (c DatasetConfig) CommaRune() rune {
	if c.Comma == "" {
		return 0
	}
	return []rune(c.Comma)[0]
}

func (c Config) Snapshot() model.RunConfig {
	features := make([]model.FeatureConfig, len(c.Features))
	for i, f := range c.Features {
		features[i] = model.FeatureConfig{
			Columns:    append([]string(nil), f.Columns...),
			Similarity: f.Similarity,
			Min:        f.Min,
			Max:        f.Max,
		}
	}
	return model.RunConfig{
		DatasetPath:               c.Dataset.Path,
		Features:                  features,
		Ruleset:                   c.Ruleset,
		TemplateRule:              c.TemplateRule,
		StoreComputedSimilarities: c.StoreComputedSimilarities,
		Alpha:                     c.Alpha,
		Beta:                      c.Beta,
		NestShrinkProp:            c.NestShrinkProp,
		NestRemovalProp:           c.NestRemovalProp,
		Seed:                      c.Seed,
		Workers:                   c.Workers,
	}
}

// ParseLevel maps a log level name to slog.Level; empty means info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}
