package colony

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antclust/internal/ant"
	"antclust/internal/rules"
	"antclust/internal/similarity"
	"antclust/internal/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = quietLogger()
	return opts
}

func fourPoints() [][]similarity.Value {
	return [][]similarity.Value{
		{{0, 0}},
		{{0, 1}},
		{{10, 10}},
		{{10, 11}},
	}
}

func euclid11() []similarity.Strategy {
	return []similarity.Strategy{similarity.Euclidean{Min: 0, Max: 11}}
}

// blobs returns points around three well separated centers, each point with a
// 2-D position feature and a 1-D weight feature.
func blobs(seed int64, perBlob int) [][]similarity.Value {
	rng := rand.New(rand.NewSource(seed))
	centers := [][2]float64{{1, 1}, {8, 2}, {4, 9}}
	dataset := make([][]similarity.Value, 0, perBlob*len(centers))
	for c, center := range centers {
		for i := 0; i < perBlob; i++ {
			dataset = append(dataset, []similarity.Value{
				{center[0] + rng.Float64()*0.5, center[1] + rng.Float64()*0.5},
				similarity.Scalar(float64(c)*4 + rng.Float64()),
			})
		}
	}
	return dataset
}

func blobStrategies() []similarity.Strategy {
	return []similarity.Strategy{
		similarity.Euclidean{Min: 0, Max: 10},
		similarity.Numeric{Min: 0, Max: 10},
	}
}

func TestNewRejectsFeatureMismatch(t *testing.T) {
	dataset := [][]similarity.Value{
		{{0, 0}},
		{{0, 1}, similarity.Scalar(3)},
	}
	_, err := New(dataset, euclid11(), rules.NewLabroche(), testOptions())
	require.ErrorIs(t, err, ErrFeatureMismatch)
	assert.Contains(t, err.Error(), "point 1")
}

func TestNewValidatesOptions(t *testing.T) {
	cases := map[string]func(o *Options){
		"alpha":   func(o *Options) { o.Alpha = 0 },
		"beta":    func(o *Options) { o.Beta = -0.1 },
		"shrink":  func(o *Options) { o.NestShrinkProp = 1.5 },
		"removal": func(o *Options) { o.NestRemovalProp = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			mutate(&opts)
			_, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
			require.ErrorIs(t, err, ErrInvalidOptions)
		})
	}

	_, err := New(fourPoints()[:1], euclid11(), rules.NewLabroche(), testOptions())
	require.ErrorIs(t, err, ErrInvalidOptions)
	_, err = New(fourPoints(), euclid11(), nil, testOptions())
	require.ErrorIs(t, err, ErrInvalidOptions)
	_, err = New(fourPoints(), nil, rules.NewLabroche(), testOptions())
	require.ErrorIs(t, err, ErrInvalidOptions)
	_, err = New(fourPoints(), []similarity.Strategy{nil}, rules.NewLabroche(), testOptions())
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestMeetingCounts(t *testing.T) {
	opts := testOptions()
	opts.Alpha = 20
	opts.Beta = 0.5
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)

	report := c.Report()
	assert.Equal(t, 4, report.Entities)
	assert.Equal(t, 10, report.TemplateMeetings)
	assert.Equal(t, 40, report.Meetings)

	// every initialization meeting updates both participants
	totalAge := 0
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, i, c.Ant(i).Index)
		assert.Equal(t, ant.NoLabel, c.Ant(i).Label)
		assert.GreaterOrEqual(t, c.Ant(i).Age, 10)
		totalAge += c.Ant(i).Age
	}
	assert.Equal(t, 2*4*10, totalAge)
}

func TestSimilaritySymmetricAndIdentity(t *testing.T) {
	c, err := New(blobs(3, 5), blobStrategies(), rules.NewLabroche(), testOptions())
	require.NoError(t, err)

	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, 1.0, c.Similarity(c.Ant(i), c.Ant(i)))
		for j := 0; j < c.Len(); j++ {
			assert.Equal(t, c.Similarity(c.Ant(i), c.Ant(j)), c.Similarity(c.Ant(j), c.Ant(i)))
		}
	}
}

func TestCacheDoesNotChangeSimilarity(t *testing.T) {
	cached := testOptions()
	cached.StoreComputedSimilarities = true
	uncached := testOptions()
	uncached.StoreComputedSimilarities = false

	withCache, err := New(blobs(5, 6), blobStrategies(), rules.NewLabroche(), cached)
	require.NoError(t, err)
	withoutCache, err := New(blobs(5, 6), blobStrategies(), rules.NewLabroche(), uncached)
	require.NoError(t, err)

	for i := 0; i < withCache.Len(); i++ {
		for j := 0; j < withCache.Len(); j++ {
			assert.Equal(t,
				withoutCache.Similarity(withoutCache.Ant(i), withoutCache.Ant(j)),
				withCache.Similarity(withCache.Ant(i), withCache.Ant(j)),
			)
		}
	}
	assert.Positive(t, withCache.Report().Cache.Entries)
	assert.Zero(t, withoutCache.Report().Cache.Entries)
}

func TestSimilarityAveragesStrategiesWithoutClamping(t *testing.T) {
	strategies := []similarity.Strategy{
		similarity.StrategyFunc(func(a, b similarity.Value) float64 { return 1.5 }),
		similarity.StrategyFunc(func(a, b similarity.Value) float64 { return 0.5 }),
	}
	dataset := [][]similarity.Value{
		{similarity.Scalar(0), similarity.Scalar(0)},
		{similarity.Scalar(1), similarity.Scalar(1)},
	}
	opts := testOptions()
	opts.Beta = 0
	c, err := New(dataset, strategies, rules.NewLabroche(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Similarity(c.Ant(0), c.Ant(1)))
}

func TestAcceptanceUpdatesBothTemplates(t *testing.T) {
	opts := testOptions()
	opts.Beta = 0
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)

	a, b, far := c.Ant(0), c.Ant(1), c.Ant(2)

	// first observation: template equals the similarity, so no acceptance
	assert.False(t, c.Acceptance(a, b))
	assert.Equal(t, 1, a.Age)
	assert.Equal(t, 1, b.Age)

	assert.False(t, c.Acceptance(a, far))
	assert.Equal(t, 2, a.Age)
	assert.Equal(t, 1, far.Age)

	// the near partner now scores above a's lowered template
	b.UpdateTemplate(0)
	assert.True(t, c.Acceptance(a, b))
}

func TestNestFitnessSizeTerm(t *testing.T) {
	assert.InDelta(t, 0.2*3.0/10.0, NestFitness(0, 3, 10, 0.2), 1e-12)
	assert.InDelta(t, 0.8*0.5+0.2*0.5, NestFitness(0.5, 5, 10, 0.2), 1e-12)
	assert.InDelta(t, 0.7, NestFitness(0.7, 1, 10, 0), 1e-12)
}

func TestShrinkNestsDeletesAndRenumbers(t *testing.T) {
	dataset := make([][]similarity.Value, 10)
	for i := range dataset {
		dataset[i] = []similarity.Value{similarity.Scalar(float64(i))}
	}
	opts := testOptions()
	opts.Beta = 0
	opts.NestShrinkProp = 0.2
	opts.NestRemovalProp = 0.3
	c, err := New(dataset, []similarity.Strategy{similarity.Numeric{Min: 0, Max: 9}}, rules.NewLabroche(), opts)
	require.NoError(t, err)

	// nest 7: integrated, nest 3: weak, nest 12: integrated, nest 5: weak but large
	assign := []struct {
		label int
		mPlus float64
	}{
		{7, 0.9}, {3, 0.0}, {7, 0.8}, {12, 0.6}, {ant.NoLabel, 0},
		{12, 0.4}, {5, 0.1}, {5, 0.1}, {5, 0.1}, {3, 0.1},
	}
	for i, a := range assign {
		c.Ant(i).Label = a.label
		c.Ant(i).MPlus = a.mPlus
	}

	c.shrinkNests()

	report := c.Report()
	require.Len(t, report.Nests, 4)
	assert.Equal(t, []int{7, 3, 12, 5}, []int{
		report.Nests[0].Label, report.Nests[1].Label, report.Nests[2].Label, report.Nests[3].Label,
	}, "nests are visited in order of first appearance")

	assert.InDelta(t, 0.8*0.85+0.2*0.2, report.Nests[0].Fitness, 1e-12)
	assert.InDelta(t, 0.8*0.05+0.2*0.2, report.Nests[1].Fitness, 1e-12)
	assert.InDelta(t, 0.8*0.1+0.2*0.3, report.Nests[3].Fitness, 1e-12)

	assert.False(t, report.Nests[0].Deleted)
	assert.True(t, report.Nests[1].Deleted)
	assert.False(t, report.Nests[2].Deleted)
	assert.True(t, report.Nests[3].Deleted)
	assert.Equal(t, 2, report.Colonies)

	got := make([]int, c.Len())
	for i := range got {
		got[i] = c.Ant(i).Label
	}
	assert.Equal(t, []int{0, -1, 0, 1, -1, 1, -1, -1, -1, -1}, got)
}

func TestReassignUsesMostSimilarAffiliatedAnt(t *testing.T) {
	dataset := [][]similarity.Value{
		{similarity.Scalar(0)},
		{similarity.Scalar(1)},
		{similarity.Scalar(9)},
		{similarity.Scalar(10)},
		{similarity.Scalar(2)},
		{similarity.Scalar(8)},
	}
	for _, workers := range []int{1, 3} {
		opts := testOptions()
		opts.Beta = 0
		opts.Workers = workers
		c, err := New(dataset, []similarity.Strategy{similarity.Numeric{Min: 0, Max: 10}}, rules.NewLabroche(), opts)
		require.NoError(t, err)

		labels := []int{0, ant.NoLabel, 1, 1, ant.NoLabel, ant.NoLabel}
		for i, l := range labels {
			c.Ant(i).Label = l
		}

		require.NoError(t, c.reassign(context.Background()))
		c.extractLabels()

		assert.Equal(t, []int{0, 0, 1, 1, 0, 1}, c.Clusters(), "workers=%d", workers)
		assert.Equal(t, 3, c.Report().Unaffiliated)
		assert.Equal(t, 3, c.Report().Reassigned)
	}
}

func TestReassignTieKeepsFirstCandidate(t *testing.T) {
	dataset := [][]similarity.Value{
		{similarity.Scalar(5)},
		{similarity.Scalar(4)},
		{similarity.Scalar(6)},
	}
	opts := testOptions()
	opts.Beta = 0
	c, err := New(dataset, []similarity.Strategy{similarity.Numeric{Min: 0, Max: 10}}, rules.NewLabroche(), opts)
	require.NoError(t, err)
	c.Ant(1).Label = 3
	c.Ant(2).Label = 8

	require.NoError(t, c.reassign(context.Background()))
	assert.Equal(t, 3, c.Ant(0).Label)
}

func TestReassignWithoutAffiliatedAnts(t *testing.T) {
	opts := testOptions()
	opts.Beta = 0
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)

	require.NoError(t, c.reassign(context.Background()))
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, ant.NoLabel, c.Ant(i).Label)
	}
	assert.Equal(t, 4, c.Report().Unaffiliated)
	assert.Zero(t, c.Report().Reassigned)
}

func TestRunClusteringSeparatesFourPoints(t *testing.T) {
	opts := testOptions()
	opts.Alpha = 20
	opts.NestRemovalProp = 0.05
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)

	require.NoError(t, c.RunClustering(context.Background()))
	labels := c.Clusters()
	require.Len(t, labels, 4)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
	for _, l := range labels {
		assert.GreaterOrEqual(t, l, 0)
	}
	assert.Equal(t, 2, c.Report().Colonies)
}

func TestRunClusteringEverythingPruned(t *testing.T) {
	opts := testOptions()
	opts.Alpha = 20
	opts.NestRemovalProp = 1.0
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)

	require.NoError(t, c.RunClustering(context.Background()))
	assert.Equal(t, []int{-1, -1, -1, -1}, c.Clusters())
	assert.Zero(t, c.Report().Colonies)
	for _, nest := range c.Report().Nests {
		assert.True(t, nest.Deleted)
	}
}

func TestClustersBeforeAndAfterRun(t *testing.T) {
	opts := testOptions()
	opts.Alpha = 20
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)
	assert.Nil(t, c.Clusters())

	require.NoError(t, c.RunClustering(context.Background()))
	first := c.Clusters()
	second := c.Clusters()
	assert.Equal(t, first, second)

	first[0] = 99
	assert.NotEqual(t, 99, c.Clusters()[0], "returned labels are a copy")
}

func TestRunClusteringLabelsAreValid(t *testing.T) {
	opts := testOptions()
	opts.Alpha = 30
	opts.NestRemovalProp = 0.05
	c, err := New(blobs(9, 15), blobStrategies(), rules.NewLabroche(), opts)
	require.NoError(t, err)
	require.NoError(t, c.RunClustering(context.Background()))

	labels := c.Clusters()
	report := c.Report()
	for _, l := range labels {
		if report.Colonies > 0 {
			assert.GreaterOrEqual(t, l, 0)
			assert.Less(t, l, report.Colonies)
		} else {
			assert.Equal(t, ant.NoLabel, l)
		}
	}
}

func TestRunClusteringDeterministicAcrossWorkers(t *testing.T) {
	run := func(workers int) []int {
		opts := testOptions()
		opts.Alpha = 30
		opts.Seed = 42
		opts.Workers = workers
		c, err := New(blobs(4, 20), blobStrategies(), rules.NewLabroche(), opts)
		require.NoError(t, err)
		require.NoError(t, c.RunClustering(context.Background()))
		return c.Clusters()
	}

	sequential := run(1)
	assert.Equal(t, sequential, run(1))
	assert.Equal(t, sequential, run(4))
}

func TestRunClusteringHonorsCancellation(t *testing.T) {
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.RunClustering(ctx), context.Canceled)
	assert.Nil(t, c.Clusters())
}

func TestRunClusteringRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := testOptions()
	opts.Alpha = 20
	opts.Metrics = telemetry.NewMetrics(reg)
	c, err := New(fourPoints(), euclid11(), rules.NewLabroche(), opts)
	require.NoError(t, err)
	require.NoError(t, c.RunClustering(context.Background()))

	report := c.Report()
	meetings, err := testutil.GatherAndCount(reg, "antclust_meetings_total")
	require.NoError(t, err)
	assert.Equal(t, 1, meetings)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() != nil {
				values[family.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(report.Meetings), values["antclust_meetings_total"])
	assert.Equal(t, float64(report.Entities*report.TemplateMeetings+report.Meetings), values["antclust_acceptance_total"])
	assert.Equal(t, float64(len(report.Nests)), values["antclust_nests_total"])
}
