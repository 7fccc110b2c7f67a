package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"antclust/internal/model"
)

const runIndexFile = "run_index.json"

// ArtifactFiles lists the files WriteRunArtifacts produces for each run.
var ArtifactFiles = []string{"config.json", "labels.csv", "nests.json", "summary.json"}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	DatasetPath  string  `json:"dataset_path,omitempty"`
	Entities     int     `json:"entities"`
	Colonies     int     `json:"colonies"`
	Unaffiliated int     `json:"unaffiliated"`
	Seed         int64   `json:"seed"`
	Purity       float64 `json:"purity,omitempty"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

type runSummary struct {
	RunID        string            `json:"run_id"`
	CreatedAtUTC string            `json:"created_at_utc"`
	Stats        model.RunStats    `json:"stats"`
	ClusterSizes []int             `json:"cluster_sizes"`
	Evaluation   *model.Evaluation `json:"evaluation,omitempty"`
}

func WriteRunArtifacts(baseDir string, record model.RunRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, record.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), record.Config); err != nil {
		return "", err
	}
	if err := writeLabels(filepath.Join(runDir, "labels.csv"), record.Labels); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "nests.json"), record.Nests); err != nil {
		return "", err
	}
	sizes, _ := ClusterSizes(record.Labels)
	if sizes == nil {
		sizes = []int{}
	}
	summary := runSummary{
		RunID:        record.ID,
		CreatedAtUTC: record.CreatedAtUTC,
		Stats:        record.Stats,
		ClusterSizes: sizes,
		Evaluation:   record.Evaluation,
	}
	if err := writeJSON(filepath.Join(runDir, "summary.json"), summary); err != nil {
		return "", err
	}

	return runDir, nil
}

func IndexEntry(record model.RunRecord) RunIndexEntry {
	entry := RunIndexEntry{
		RunID:        record.ID,
		DatasetPath:  record.Config.DatasetPath,
		Entities:     record.Stats.Entities,
		Colonies:     record.Stats.Colonies,
		Unaffiliated: record.Stats.Unaffiliated,
		Seed:         record.Config.Seed,
		CreatedAtUTC: record.CreatedAtUTC,
	}
	if record.Evaluation != nil {
		entry.Purity = record.Evaluation.Purity
	}
	return entry
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	replaced := false
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, entry)
	}
	sortIndexNewestFirst(index)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sortIndexNewestFirst(entries)
	return entries, nil
}

// sortIndexNewestFirst orders by creation time, then run id, both
// descending, matching the stores.
func sortIndexNewestFirst(entries []RunIndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC != entries[j].CreatedAtUTC {
			return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
		}
		return entries[i].RunID > entries[j].RunID
	})
}

// ReadLabels loads the labels.csv written for a run.
func ReadLabels(baseDir, runID string) ([]int, error) {
	f, err := os.Open(filepath.Join(baseDir, runID, "labels.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("labels.csv is empty")
	}
	labels := make([]int, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("labels.csv row %d: want 2 fields, got %d", i+1, len(record))
		}
		label, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("labels.csv row %d: %w", i+1, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func writeLabels(path string, labels []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "label"}); err != nil {
		return err
	}
	for i, label := range labels {
		if err := w.Write([]string{strconv.Itoa(i), strconv.Itoa(label)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
