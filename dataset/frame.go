package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// Missing is the sentinel stored for a missing categorical cell.
const Missing = ""

// Frame holds the feature columns of a dataset.
//
// Numeric is rows × len(Schema.Numeric) with NaN marking missing cells; it is
// nil when the frame has no rows or no numeric columns. Categorical is
// rows × len(Schema.Categorical).
type Frame struct {
	Schema      Schema
	Numeric     *mat.Dense
	Categorical [][]string
	rows        int
}

// NewFrame assembles a frame and checks that both blocks agree on the row count.
func NewFrame(schema Schema, numeric *mat.Dense, categorical [][]string) (*Frame, error) {
	rows := len(categorical)
	if numeric != nil {
		r, c := numeric.Dims()
		if c != len(schema.Numeric) {
			return nil, errors.NewDimensionError("dataset.NewFrame", len(schema.Numeric), c, 1)
		}
		if categorical == nil && len(schema.Categorical) == 0 {
			categorical = make([][]string, r)
			for i := range categorical {
				categorical[i] = []string{}
			}
		}
		if r != len(categorical) {
			return nil, errors.NewDimensionError("dataset.NewFrame", r, len(categorical), 0)
		}
		rows = r
	} else if len(schema.Numeric) > 0 && rows > 0 {
		return nil, errors.NewValueError("dataset.NewFrame", "numeric block is required when the schema has numeric columns")
	}
	for i, row := range categorical {
		if len(row) != len(schema.Categorical) {
			return nil, errors.NewSchemaError("frame", "", i+1, "categorical row has the wrong number of cells")
		}
	}
	return &Frame{Schema: schema, Numeric: numeric, Categorical: categorical, rows: rows}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// Subset returns a deep copy of the rows at indices, in the given order.
func (f *Frame) Subset(indices []int) *Frame {
	out := &Frame{Schema: f.Schema, rows: len(indices)}
	out.Categorical = make([][]string, len(indices))
	for i, src := range indices {
		out.Categorical[i] = append([]string(nil), f.Categorical[src]...)
	}
	if f.Numeric != nil && len(indices) > 0 {
		_, c := f.Numeric.Dims()
		out.Numeric = mat.NewDense(len(indices), c, nil)
		for i, src := range indices {
			out.Numeric.SetRow(i, f.Numeric.RawRowView(src))
		}
	}
	return out
}

// MissingCounts returns the number of missing cells per column name.
func (f *Frame) MissingCounts() map[string]int {
	counts := make(map[string]int)
	if f.Numeric != nil {
		for j, name := range f.Schema.Numeric {
			for i := 0; i < f.rows; i++ {
				if math.IsNaN(f.Numeric.At(i, j)) {
					counts[name]++
				}
			}
		}
	}
	for j, name := range f.Schema.Categorical {
		for i := 0; i < f.rows; i++ {
			if f.Categorical[i][j] == Missing {
				counts[name]++
			}
		}
	}
	return counts
}

// Dataset is a frame together with its binary labels.
type Dataset struct {
	*Frame
	Labels []float64
}

// NewDataset pairs a frame with labels of the same length.
func NewDataset(frame *Frame, labels []float64) (*Dataset, error) {
	if len(labels) != frame.Len() {
		return nil, errors.NewDimensionError("dataset.NewDataset", frame.Len(), len(labels), 0)
	}
	return &Dataset{Frame: frame, Labels: labels}, nil
}

// Target returns the labels as an n×1 matrix.
func (d *Dataset) Target() *mat.Dense {
	if len(d.Labels) == 0 {
		return nil
	}
	return mat.NewDense(len(d.Labels), 1, append([]float64(nil), d.Labels...))
}

// ClassCounts returns the number of samples per label.
func (d *Dataset) ClassCounts() map[float64]int {
	counts := make(map[float64]int)
	for _, y := range d.Labels {
		counts[y]++
	}
	return counts
}

// Classes returns the distinct labels in ascending order.
func (d *Dataset) Classes() []float64 {
	counts := d.ClassCounts()
	classes := make([]float64, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	return classes
}

// Subset returns a deep copy of the rows at indices with their labels.
func (d *Dataset) Subset(indices []int) *Dataset {
	labels := make([]float64, len(indices))
	for i, src := range indices {
		labels[i] = d.Labels[src]
	}
	return &Dataset{Frame: d.Frame.Subset(indices), Labels: labels}
}
