package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antclust/internal/similarity"
)

const pointsCSV = `x,y,weight,class
0,0,1.5,a
0,1,2.5,a

10,10,3,b
10,11,4,b
`

func TestLoadWithHeaderAndLabelColumn(t *testing.T) {
	table, err := Load(strings.NewReader(pointsCSV), LoadOptions{Header: true, LabelColumn: "class"})
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "weight", "class"}, table.Header)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []float64{10, 11, 4, 0}, table.Rows[3])
	assert.Equal(t, []string{"a", "a", "b", "b"}, table.Truth)
}

func TestLoadWithoutHeader(t *testing.T) {
	table, err := Load(strings.NewReader("1;2;x\n3;4;y\n"), LoadOptions{Comma: ';', LabelColumn: "2"})
	require.NoError(t, err)
	assert.Nil(t, table.Header)
	assert.Equal(t, [][]float64{{1, 2, 0}, {3, 4, 0}}, table.Rows)
	assert.Equal(t, []string{"x", "y"}, table.Truth)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load(strings.NewReader("x,y\n1,oops\n"), LoadOptions{Header: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 column 1")

	_, err = Load(strings.NewReader("x,y\n1,2\n3\n"), LoadOptions{Header: true})
	require.Error(t, err)

	_, err = Load(strings.NewReader("x,y\n1,2\n"), LoadOptions{Header: true, LabelColumn: "class"})
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestProjectGroupsColumnsIntoFeatures(t *testing.T) {
	table, err := Load(strings.NewReader(pointsCSV), LoadOptions{Header: true, LabelColumn: "class"})
	require.NoError(t, err)

	genes, err := table.Project([][]string{{"x", "y"}, {"weight"}})
	require.NoError(t, err)
	require.Len(t, genes, 4)
	assert.Equal(t, []similarity.Value{{0, 1}, {2.5}}, genes[1])

	genes, err = table.Project([][]string{{"2"}})
	require.NoError(t, err)
	assert.Equal(t, []similarity.Value{{3}}, genes[2])

	_, err = table.Project([][]string{{"z"}})
	require.ErrorIs(t, err, ErrColumnNotFound)
	_, err = table.Project([][]string{{"class"}})
	require.Error(t, err)
	_, err = table.Project([][]string{{}})
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(pointsCSV), 0o644))

	table, err := LoadFile(path, LoadOptions{Header: true})
	require.Error(t, err, "class column is not numeric without a label column")

	table, err = LoadFile(path, LoadOptions{Header: true, LabelColumn: "class"})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"), LoadOptions{})
	require.Error(t, err)
}

func TestColumnStats(t *testing.T) {
	table, err := Load(strings.NewReader(pointsCSV), LoadOptions{Header: true, LabelColumn: "class"})
	require.NoError(t, err)

	stats, err := table.ColumnStats()
	require.NoError(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, ColumnStats{Min: 0, Avg: 5, Max: 10}, stats[0])
	assert.Equal(t, ColumnStats{Min: 0, Avg: 5.5, Max: 11}, stats[1])
	assert.Equal(t, ColumnStats{}, stats[3], "label column")

	empty, err := Table{}.ColumnStats()
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestFeatureStats(t *testing.T) {
	stats, err := FeatureStats([][]similarity.Value{
		{{0, 4}, {1}},
		{{2, -2}, {3}},
	})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, ColumnStats{Min: -2, Avg: 1, Max: 4}, stats[0])
	assert.Equal(t, ColumnStats{Min: 1, Avg: 2, Max: 3}, stats[1])

	_, err = FeatureStats([][]similarity.Value{{{1}}, {{1}, {2}}})
	require.Error(t, err)
}
