package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

func smallSchema() Schema {
	return Schema{
		Categorical: []string{"pitch_name", "stand"},
		Numeric:     []string{"plate_x", "balls"},
		Label:       "swing",
	}
}

func TestSwingSchema(t *testing.T) {
	s := SwingSchema()
	assert.Equal(t, []string{"pitch_name", "stand"}, s.Categorical)
	assert.Len(t, s.Numeric, 16)
	assert.Equal(t, "swing", s.Label)
	assert.Equal(t, 18, s.NumFeatures())
}

func TestReadCSVFrom(t *testing.T) {
	input := strings.Join([]string{
		"game_pk,stand,plate_x,pitch_name,balls,swing",
		"1,R,0.25,4-Seam Fastball,0,1",
		"2,L,NA,Slider,2,0",
		"3,,-1.5,None,3,true",
		"4,R, 0.1 ,Changeup,,no",
	}, "\n")

	ds, err := ReadCSVFrom(strings.NewReader(input), "mem.csv", smallSchema(), ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, ds.Len())

	assert.Equal(t, []float64{1, 0, 1, 0}, ds.Labels)
	assert.Equal(t, []string{"4-Seam Fastball", "R"}, ds.Categorical[0])
	assert.Equal(t, []string{Missing, Missing}, ds.Categorical[2])

	assert.Equal(t, 0.25, ds.Numeric.At(0, 0))
	assert.True(t, math.IsNaN(ds.Numeric.At(1, 0)))
	assert.Equal(t, 0.1, ds.Numeric.At(3, 0))
	assert.True(t, math.IsNaN(ds.Numeric.At(3, 1)))

	assert.Equal(t, map[string]int{"plate_x": 1, "balls": 1, "pitch_name": 1, "stand": 1}, ds.MissingCounts())
	assert.Equal(t, map[float64]int{0: 2, 1: 2}, ds.ClassCounts())
	assert.Equal(t, []float64{0, 1}, ds.Classes())

	target := ds.Target()
	r, c := target.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 1, c)
}

func TestReadCSVFromErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    ReadOptions
		wantMsg string
	}{
		{
			name:    "missing feature and label columns",
			input:   "plate_x,stand\n0.1,R\n",
			wantMsg: "missing required columns: pitch_name, balls, swing",
		},
		{
			name:    "unparseable numeric cell",
			input:   "pitch_name,stand,plate_x,balls,swing\nSlider,R,left,0,1\n",
			wantMsg: "row 1, column 'plate_x': cannot parse \"left\" as a number",
		},
		{
			name:    "bad label",
			input:   "pitch_name,stand,plate_x,balls,swing\nSlider,R,0.1,0,1\nSlider,L,0.2,1,maybe\n",
			wantMsg: "row 2, column 'swing'",
		},
		{
			name:    "missing label",
			input:   "pitch_name,stand,plate_x,balls,swing\nSlider,R,0.1,0,\n",
			wantMsg: "label is missing",
		},
		{
			name:    "empty file",
			input:   "",
			wantMsg: "expected a header row",
		},
		{
			name:    "header only",
			input:   "pitch_name,stand,plate_x,balls,swing\n",
			wantMsg: "empty data",
		},
		{
			name:    "ragged row",
			input:   "pitch_name,stand,plate_x,balls,swing\nSlider,R,0.1\n",
			wantMsg: "failed to read mem.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSVFrom(strings.NewReader(tt.input), "mem.csv", smallSchema(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadCSVSchemaErrorType(t *testing.T) {
	_, err := ReadCSVFrom(strings.NewReader("a,b\n1,2\n"), "mem.csv", smallSchema(), ReadOptions{})
	var schemaErr *errors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"pitch_name", "stand", "plate_x", "balls", "swing"}, schemaErr.Missing)
}

func TestReadCSVSkipLabel(t *testing.T) {
	input := "pitch_name,stand,plate_x,balls\nSlider,R,0.1,0\n"
	ds, err := ReadCSVFrom(strings.NewReader(input), "mem.csv", smallSchema(), ReadOptions{SkipLabel: true})
	require.NoError(t, err)
	assert.Nil(t, ds.Labels)
	assert.Equal(t, 1, ds.Len())
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swing.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffpitch_name,stand,plate_x,balls,swing\nSlider,R,0.1,0,1\nCurveball,L,0.3,1,0\n"), 0o644))

	ds, err := ReadCSV(path, smallSchema(), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	_, err = ReadCSV(filepath.Join(t.TempDir(), "absent.csv"), smallSchema(), ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open dataset")
}

func TestParseLabel(t *testing.T) {
	for _, cell := range []string{"1", "1.0", "true", "True", "TRUE", "yes", "y", " 1 "} {
		y, err := ParseLabel(cell)
		require.NoError(t, err, cell)
		assert.Equal(t, 1.0, y, cell)
	}
	for _, cell := range []string{"0", "0.0", "false", "False", "FALSE", "no", "n"} {
		y, err := ParseLabel(cell)
		require.NoError(t, err, cell)
		assert.Equal(t, 0.0, y, cell)
	}
	for _, cell := range []string{"2", "", "NaN", "swing"} {
		_, err := ParseLabel(cell)
		assert.Error(t, err, cell)
	}
}

func TestSubsetIsDeepCopy(t *testing.T) {
	schema := smallSchema()
	numeric := mat.NewDense(3, 2, []float64{1, 10, 2, 20, 3, 30})
	frame, err := NewFrame(schema, numeric, [][]string{{"a", "R"}, {"b", "L"}, {"c", "R"}})
	require.NoError(t, err)
	ds, err := NewDataset(frame, []float64{0, 1, 0})
	require.NoError(t, err)

	sub := ds.Subset([]int{2, 0})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []float64{0, 0}, sub.Labels)
	assert.Equal(t, 3.0, sub.Numeric.At(0, 0))
	assert.Equal(t, []string{"a", "R"}, sub.Categorical[1])

	sub.Numeric.Set(0, 0, 99)
	sub.Categorical[1][0] = "zzz"
	assert.Equal(t, 3.0, ds.Numeric.At(2, 0))
	assert.Equal(t, "a", ds.Categorical[0][0])

	empty := ds.Subset(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Numeric)
}

func TestNewFrameValidation(t *testing.T) {
	schema := smallSchema()

	_, err := NewFrame(schema, mat.NewDense(2, 3, nil), [][]string{{"a", "R"}, {"b", "L"}})
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)

	_, err = NewFrame(schema, mat.NewDense(2, 2, nil), [][]string{{"a", "R"}})
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 0, dimErr.Axis)

	_, err = NewFrame(schema, mat.NewDense(1, 2, nil), [][]string{{"a"}})
	assert.Error(t, err)

	frame, err := NewFrame(schema, mat.NewDense(1, 2, nil), [][]string{{"a", "R"}})
	require.NoError(t, err)
	_, err = NewDataset(frame, []float64{0, 1})
	assert.Error(t, err)
}

func TestWritePredictions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePredictions(&buf, []float64{0.25, 0.8}))
	assert.Equal(t, "row,swing_probability\n1,0.250000\n2,0.800000\n", buf.String())
}

func TestSyntheticRoundTrip(t *testing.T) {
	ds := Synthetic(300, 11)
	require.Equal(t, 300, ds.Len())
	assert.Equal(t, SwingSchema(), ds.Schema)
	assert.Equal(t, []float64{0, 1}, ds.Classes())

	again := Synthetic(300, 11)
	assert.Equal(t, ds.Labels, again.Labels)
	assert.Equal(t, ds.Categorical, again.Categorical)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	read, err := ReadCSVFrom(&buf, "synthetic.csv", SwingSchema(), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, ds.Labels, read.Labels)
	assert.Equal(t, ds.Categorical, read.Categorical)
	assert.Equal(t, ds.MissingCounts(), read.MissingCounts())
	for i := 0; i < ds.Len(); i++ {
		for j := range ds.Schema.Numeric {
			want, got := ds.Numeric.At(i, j), read.Numeric.At(i, j)
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(got))
				continue
			}
			assert.Equal(t, want, got)
		}
	}
}
