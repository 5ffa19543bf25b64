package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/pkg/log"
)

// missingTokens are the cell values read as missing, matching the pandas defaults
// the data files were produced with.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {},
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.TrimSpace(cell)]
	return ok
}

// ReadOptions controls ReadCSV.
type ReadOptions struct {
	// SkipLabel allows files without the label column. Labels are left nil.
	SkipLabel bool
}

// ReadCSV reads a header-row CSV file and extracts the schema's columns.
// Extra columns are ignored.
func ReadCSV(path string, schema Schema, opts ReadOptions) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %s", path)
	}
	defer file.Close()

	ds, err := ReadCSVFrom(bufio.NewReader(file), path, schema, opts)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("dataset")
	missing := 0
	for _, c := range ds.MissingCounts() {
		missing += c
	}
	fields := []any{
		log.PathKey, path,
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, schema.NumFeatures(),
		log.MissingKey, missing,
	}
	if ds.Labels != nil {
		fields = append(fields, log.ClassCountsKey, formatCounts(ds.ClassCounts()))
	}
	logger.Info("Loaded dataset", fields...)
	return ds, nil
}

// ReadCSVFrom reads CSV data from r. source names the input in error messages.
func ReadCSVFrom(r io.Reader, source string, schema Schema, opts ReadOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewSchemaError(source, "", 0, "file is empty, expected a header row")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header of %s", source)
	}

	idx, err := schema.resolve(source, header, !opts.SkipLabel)
	if err != nil {
		return nil, err
	}

	var (
		numeric     []float64
		categorical [][]string
		labels      []float64
	)
	row := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", source)
		}
		row++

		for j, col := range idx.numeric {
			v, err := parseNumeric(rec[col])
			if err != nil {
				return nil, errors.NewSchemaError(source, schema.Numeric[j], row, err.Error())
			}
			numeric = append(numeric, v)
		}

		cats := make([]string, len(idx.categorical))
		for j, col := range idx.categorical {
			if cell := strings.TrimSpace(rec[col]); !IsMissing(cell) {
				cats[j] = cell
			}
		}
		categorical = append(categorical, cats)

		if idx.label >= 0 && !opts.SkipLabel {
			y, err := ParseLabel(rec[idx.label])
			if err != nil {
				return nil, errors.NewSchemaError(source, schema.Label, row, err.Error())
			}
			labels = append(labels, y)
		}
	}

	if row == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s has a header but no data rows", source)
	}

	var numBlock *mat.Dense
	if len(schema.Numeric) > 0 {
		numBlock = mat.NewDense(row, len(schema.Numeric), numeric)
	}
	frame, err := NewFrame(schema, numBlock, categorical)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		return &Dataset{Frame: frame}, nil
	}
	return NewDataset(frame, labels)
}

func parseNumeric(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if IsMissing(cell) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a number", cell)
	}
	return v, nil
}

// ParseLabel converts a label cell to 0 or 1.
func ParseLabel(cell string) (float64, error) {
	switch strings.TrimSpace(cell) {
	case "1", "1.0", "true", "True", "TRUE", "yes", "y":
		return 1, nil
	case "0", "0.0", "false", "False", "FALSE", "no", "n":
		return 0, nil
	default:
		if IsMissing(cell) {
			return 0, fmt.Errorf("label is missing")
		}
		return 0, fmt.Errorf("cannot parse %q as a binary label", cell)
	}
}

// WritePredictions writes one "row,swing_probability" line per probability.
// Rows are numbered from 1 in input order.
func WritePredictions(w io.Writer, probabilities []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "swing_probability"}); err != nil {
		return errors.Wrap(err, "failed to write predictions header")
	}
	for i, p := range probabilities {
		rec := []string{strconv.Itoa(i + 1), strconv.FormatFloat(p, 'f', 6, 64)}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write predictions")
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

// WriteCSV writes d with a header row in schema order: categorical columns,
// numeric columns, then the label when d has labels. Missing cells are empty.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), d.Schema.Categorical...), d.Schema.Numeric...)
	if d.Labels != nil {
		header = append(header, d.Schema.Label)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	rec := make([]string, len(header))
	for i := 0; i < d.Len(); i++ {
		k := copy(rec, d.Categorical[i])
		for j := range d.Schema.Numeric {
			v := d.Numeric.At(i, j)
			if math.IsNaN(v) {
				rec[k] = ""
			} else {
				rec[k] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			k++
		}
		if d.Labels != nil {
			rec[k] = strconv.FormatFloat(d.Labels[i], 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func formatCounts(counts map[float64]int) string {
	return fmt.Sprintf("0:%d 1:%d", counts[0], counts[1])
}
