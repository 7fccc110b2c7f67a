package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunConfig is the parameter snapshot a clustering run was executed with.
type RunConfig struct {
	DatasetPath               string          `json:"dataset_path,omitempty"`
	Features                  []FeatureConfig `json:"features"`
	Ruleset                   string          `json:"ruleset"`
	TemplateRule              string          `json:"template_rule"`
	StoreComputedSimilarities bool            `json:"store_computed_similarities"`
	Alpha                     float64         `json:"alpha_ant_meeting_iterations"`
	Beta                      float64         `json:"betta_template_init_meetings"`
	NestShrinkProp            float64         `json:"nest_shrink_prop"`
	NestRemovalProp           float64         `json:"nest_removal_prop"`
	Seed                      int64           `json:"seed"`
	Workers                   int             `json:"workers"`
}

type FeatureConfig struct {
	Columns    []string `json:"columns"`
	Similarity string   `json:"similarity"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
}

type NestRecord struct {
	Label     int     `json:"label"`
	Size      int     `json:"size"`
	MeanMPlus float64 `json:"mean_m_plus"`
	Fitness   float64 `json:"fitness"`
	Deleted   bool    `json:"deleted"`
	NewLabel  int     `json:"new_label"`
}

type RunStats struct {
	Entities         int    `json:"entities"`
	TemplateMeetings int    `json:"template_meetings"`
	Meetings         int    `json:"meetings"`
	Colonies         int    `json:"colonies"`
	Unaffiliated     int    `json:"unaffiliated"`
	Reassigned       int    `json:"reassigned"`
	CacheEntries     int    `json:"cache_entries"`
	CacheHits        uint64 `json:"cache_hits"`
	CacheMisses      uint64 `json:"cache_misses"`
	InitializeMS     int64  `json:"initialize_ms"`
	MeetMS           int64  `json:"meet_ms"`
	ShrinkMS         int64  `json:"shrink_ms"`
	ReassignMS       int64  `json:"reassign_ms"`
}

// Evaluation compares a run's labels with ground truth when the dataset
// carries one.
type Evaluation struct {
	AdjustedRandIndex float64 `json:"adjusted_rand_index"`
	Purity            float64 `json:"purity"`
	TruthClasses      int     `json:"truth_classes"`
}

type RunRecord struct {
	VersionedRecord
	ID           string       `json:"id"`
	CreatedAtUTC string       `json:"created_at_utc"`
	Config       RunConfig    `json:"config"`
	Labels       []int        `json:"labels"`
	Nests        []NestRecord `json:"nests"`
	Stats        RunStats     `json:"stats"`
	Evaluation   *Evaluation  `json:"evaluation,omitempty"`
}
