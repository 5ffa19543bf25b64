// Package dataset loads the pitch-level swing data into typed column blocks.
package dataset

import (
	"strings"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// Schema lists the columns a dataset must provide.
type Schema struct {
	Categorical []string
	Numeric     []string
	Label       string
}

// SwingSchema returns the schema of the swing training data.
func SwingSchema() Schema {
	return Schema{
		Categorical: []string{"pitch_name", "stand"},
		Numeric: []string{
			"release_extension", "release_pos_x", "release_pos_y", "release_pos_z",
			"release_speed", "release_spin_rate", "spin_axis",
			"plate_x", "plate_z", "pfx_x", "pfx_z",
			"balls", "strikes", "outs_when_up",
			"sz_top", "sz_bot",
		},
		Label: "swing",
	}
}

// NumFeatures returns the number of raw feature columns.
func (s Schema) NumFeatures() int {
	return len(s.Numeric) + len(s.Categorical)
}

// columnIndex maps every required column to its position in header.
type columnIndex struct {
	numeric     []int
	categorical []int
	label       int
}

// resolve validates header against the schema. Every missing column is
// reported in a single SchemaError, in schema order.
func (s Schema) resolve(source string, header []string, requireLabel bool) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var missing []string
	lookup := func(names []string) []int {
		idx := make([]int, len(names))
		for j, name := range names {
			i, ok := pos[name]
			if !ok {
				missing = append(missing, name)
				i = -1
			}
			idx[j] = i
		}
		return idx
	}

	ci := columnIndex{
		categorical: lookup(s.Categorical),
		numeric:     lookup(s.Numeric),
		label:       -1,
	}
	if i, ok := pos[s.Label]; ok {
		ci.label = i
	} else if requireLabel {
		missing = append(missing, s.Label)
	}

	if len(missing) > 0 {
		return columnIndex{}, errors.NewMissingColumnsError(source, missing)
	}
	return ci, nil
}

// ValidateHeader reports whether header provides every column of the schema.
func (s Schema) ValidateHeader(source string, header []string, requireLabel bool) error {
	_, err := s.resolve(source, header, requireLabel)
	return err
}
