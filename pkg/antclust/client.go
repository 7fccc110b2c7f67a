package antclust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"antclust/internal/ant"
	"antclust/internal/colony"
	"antclust/internal/config"
	"antclust/internal/dataset"
	"antclust/internal/model"
	"antclust/internal/rules"
	"antclust/internal/stats"
	"antclust/internal/storage"
	"antclust/internal/telemetry"
)

const (
	defaultDBPath     = "antclust.db"
	defaultExportsDir = "exports"
	defaultRunsLimit  = 20
)

var ErrRunNotFound = errors.New("run not found")

type ClientOptions struct {
	StoreKind string
	// DBPath is the sqlite file or badger directory. An empty path for badger
	// selects an in-memory database.
	DBPath string
	// ArtifactsDir receives per-run artifact files. Empty disables them.
	ArtifactsDir string
	ExportsDir   string
	// Registerer receives the clustering metrics. Nil disables registration.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	// Now overrides the run timestamp clock.
	Now func() time.Time
}

type Client struct {
	store        storage.Store
	artifactsDir string
	exportsDir   string
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	now          func() time.Time

	initOnce sync.Once
	initErr  error
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Record       RunRecord
	Report       Report
}

type RunItem struct {
	RunID        string   `json:"run_id"`
	CreatedAtUTC string   `json:"created_at_utc"`
	DatasetPath  string   `json:"dataset_path,omitempty"`
	Entities     int      `json:"entities"`
	Colonies     int      `json:"colonies"`
	Unaffiliated int      `json:"unaffiliated"`
	Reassigned   int      `json:"reassigned"`
	Seed         int64    `json:"seed"`
	Purity       *float64 `json:"purity,omitempty"`
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func NewClient(opts ClientOptions) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == "sqlite" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := storage.NewStore(storeKind, dbPath, logger.With("component", "store"))
	if err != nil {
		return nil, err
	}

	var metrics *telemetry.Metrics
	if opts.Registerer != nil {
		metrics = telemetry.NewMetrics(opts.Registerer)
	}

	return &Client{
		store:        store,
		artifactsDir: opts.ArtifactsDir,
		exportsDir:   exportsDir,
		metrics:      metrics,
		logger:       logger,
		now:          now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Run loads the configured dataset file and clusters it.
func (c *Client) Run(ctx context.Context, cfg Config) (RunSummary, error) {
	if cfg.Dataset.Path == "" {
		return RunSummary{}, errors.New("dataset path is required")
	}
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, fmt.Errorf("invalid config: %w", err)
	}

	table, err := dataset.LoadFile(cfg.Dataset.Path, dataset.LoadOptions{
		Header:      cfg.Dataset.Header,
		LabelColumn: cfg.Dataset.LabelColumn,
		Comma:       cfg.Dataset.CommaRune(),
	})
	if err != nil {
		return RunSummary{}, err
	}
	genes, err := table.Project(cfg.ColumnGroups())
	if err != nil {
		return RunSummary{}, err
	}
	return c.RunData(ctx, cfg, genes, table.Truth)
}

// RunData clusters in-memory feature vectors. truth may be nil; when given it
// must hold one class per row and the run is evaluated against it.
func (c *Client) RunData(ctx context.Context, cfg Config, data [][]Value, truth []string) (RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, fmt.Errorf("invalid config: %w", err)
	}
	if truth != nil && len(truth) != len(data) {
		return RunSummary{}, fmt.Errorf("truth has %d entries, dataset has %d rows", len(truth), len(data))
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	cfg, err := resolveRanges(cfg, data)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)

	col, err := c.newColony(cfg, data, logger)
	if err != nil {
		return RunSummary{}, err
	}
	if err := col.RunClustering(ctx); err != nil {
		return RunSummary{}, err
	}

	report := col.Report()
	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAtUTC:    c.now().UTC().Format(time.RFC3339Nano),
		Config:          cfg.Snapshot(),
		Labels:          col.Clusters(),
		Nests:           nestRecords(report.Nests),
		Stats:           runStats(report),
	}
	if truth != nil {
		eval, err := stats.Evaluate(truth, record.Labels)
		if err != nil {
			return RunSummary{}, err
		}
		record.Evaluation = eval
	}

	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}

	summary := RunSummary{RunID: runID, Record: record, Report: report}
	if c.artifactsDir != "" {
		runDir, err := stats.WriteRunArtifacts(c.artifactsDir, record)
		if err != nil {
			return RunSummary{}, err
		}
		if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntry(record)); err != nil {
			return RunSummary{}, err
		}
		summary.ArtifactsDir = filepath.Clean(runDir)
	}

	logger.Info("antclust: run stored",
		"colonies", record.Stats.Colonies,
		"reassigned", record.Stats.Reassigned,
		"entities", record.Stats.Entities,
	)
	return summary, nil
}

func (c *Client) newColony(cfg Config, data [][]Value, logger *slog.Logger) (*colony.Colony, error) {
	strategies, err := cfg.Strategies()
	if err != nil {
		return nil, err
	}
	engine, err := rules.New(cfg.Ruleset)
	if err != nil {
		return nil, err
	}
	templateRule, err := ant.TemplateRuleByName(cfg.TemplateRule)
	if err != nil {
		return nil, err
	}

	opts := colonyOptions(cfg)
	opts.TemplateRule = templateRule
	opts.Logger = logger
	opts.Metrics = c.metrics
	return colony.New(data, strategies, engine, opts)
}

func colonyOptions(cfg config.Config) colony.Options {
	return colony.Options{
		StoreComputedSimilarities: cfg.StoreComputedSimilarities,
		Alpha:                     cfg.Alpha,
		Beta:                      cfg.Beta,
		NestShrinkProp:            cfg.NestShrinkProp,
		NestRemovalProp:           cfg.NestRemovalProp,
		Seed:                      cfg.Seed,
		Workers:                   cfg.Workers,
	}
}

// resolveRanges fills features without a configured range from the data.
func resolveRanges(cfg Config, data [][]Value) (Config, error) {
	if !slices.ContainsFunc(cfg.Features, config.FeatureConfig.AutoRange) {
		return cfg, nil
	}
	featureStats, err := dataset.FeatureStats(data)
	if err != nil {
		return Config{}, err
	}
	features := slices.Clone(cfg.Features)
	for i := range features {
		if !features[i].AutoRange() || i >= len(featureStats) {
			continue
		}
		lo, hi := featureStats[i].Min, featureStats[i].Max
		if lo == hi {
			hi = lo + 1
		}
		features[i].Min, features[i].Max = lo, hi
	}
	cfg.Features = features
	return cfg, nil
}

func (c *Client) Runs(ctx context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		item := RunItem{
			RunID:        run.ID,
			CreatedAtUTC: run.CreatedAtUTC,
			DatasetPath:  run.Config.DatasetPath,
			Entities:     run.Stats.Entities,
			Colonies:     run.Stats.Colonies,
			Unaffiliated: run.Stats.Unaffiliated,
			Reassigned:   run.Stats.Reassigned,
			Seed:         run.Config.Seed,
		}
		if run.Evaluation != nil {
			purity := run.Evaluation.Purity
			item.Purity = &purity
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) GetRun(ctx context.Context, id string) (RunRecord, error) {
	if err := c.ensureStore(ctx); err != nil {
		return RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

func (c *Client) LatestRun(ctx context.Context) (RunRecord, error) {
	if err := c.ensureStore(ctx); err != nil {
		return RunRecord{}, err
	}
	runs, err := c.store.ListRuns(ctx, 1)
	if err != nil {
		return RunRecord{}, err
	}
	if len(runs) == 0 {
		return RunRecord{}, fmt.Errorf("%w: no runs stored", ErrRunNotFound)
	}
	return runs[0], nil
}

func (c *Client) DeleteRun(ctx context.Context, id string) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	deleted, err := c.store.DeleteRun(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Export writes the artifact files of a stored run under OutDir.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	var (
		run RunRecord
		err error
	)
	if req.Latest {
		run, err = c.LatestRun(ctx)
	} else {
		run, err = c.GetRun(ctx, req.RunID)
	}
	if err != nil {
		return ExportSummary{}, err
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, run)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Directory: filepath.Clean(dir)}, nil
}

func nestRecords(nests []colony.NestReport) []model.NestRecord {
	out := make([]model.NestRecord, len(nests))
	for i, n := range nests {
		out[i] = model.NestRecord{
			Label:     n.Label,
			Size:      n.Size,
			MeanMPlus: n.MeanMPlus,
			Fitness:   n.Fitness,
			Deleted:   n.Deleted,
			NewLabel:  n.NewLabel,
		}
	}
	return out
}

func runStats(r colony.Report) model.RunStats {
	return model.RunStats{
		Entities:         r.Entities,
		TemplateMeetings: r.TemplateMeetings,
		Meetings:         r.Meetings,
		Colonies:         r.Colonies,
		Unaffiliated:     r.Unaffiliated,
		Reassigned:       r.Reassigned,
		CacheEntries:     r.Cache.Entries,
		CacheHits:        r.Cache.Hits,
		CacheMisses:      r.Cache.Misses,
		InitializeMS:     r.Durations.Initialize.Milliseconds(),
		MeetMS:           r.Durations.Meet.Milliseconds(),
		ShrinkMS:         r.Durations.Shrink.Milliseconds(),
		ReassignMS:       r.Durations.Reassign.Milliseconds(),
	}
}
