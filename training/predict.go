package training

import (
	"io"
	"os"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/pkg/log"
	"github.com/YuminosukeSato/swingprob/sklearn/pipeline"
)

// LoadPipeline loads a saved pipeline. When the manifest sidecar exists the
// model file is checked against its SHA-256 first; the returned manifest is
// nil otherwise.
func LoadPipeline(path string) (*pipeline.Pipeline, *model.Manifest, error) {
	var manifest *model.Manifest
	if _, err := os.Stat(model.ManifestPath(path)); err == nil {
		if manifest, err = model.VerifyManifest(path); err != nil {
			return nil, nil, err
		}
	} else {
		log.GetLoggerWithName("training").Warn("Model has no manifest, skipping checksum verification",
			log.PathKey, path)
	}

	var p pipeline.Pipeline
	if err := model.LoadModel(&p, path); err != nil {
		return nil, nil, err
	}
	if !p.IsFitted() {
		return nil, nil, errors.NewNotFittedError("Pipeline", "LoadPipeline")
	}
	return &p, manifest, nil
}

// Predict writes the swing probability of every row of the CSV at dataPath
// to w. The label column is optional.
func Predict(modelPath, dataPath string, w io.Writer) error {
	p, _, err := LoadPipeline(modelPath)
	if err != nil {
		return err
	}
	ds, err := dataset.ReadCSV(dataPath, dataset.SwingSchema(), dataset.ReadOptions{SkipLabel: true})
	if err != nil {
		return err
	}
	proba, err := p.PredictPositive(ds.Frame)
	if err != nil {
		return err
	}
	return dataset.WritePredictions(w, proba)
}

// EvaluateModel scores a saved pipeline on the labeled CSV at dataPath and
// prints the metrics to w.
func EvaluateModel(modelPath, dataPath string, w io.Writer) (Metrics, error) {
	p, _, err := LoadPipeline(modelPath)
	if err != nil {
		return Metrics{}, err
	}
	ds, err := dataset.ReadCSV(dataPath, dataset.SwingSchema(), dataset.ReadOptions{})
	if err != nil {
		return Metrics{}, err
	}
	proba, err := p.PredictPositive(ds.Frame)
	if err != nil {
		return Metrics{}, err
	}
	m, err := Evaluate(ds.Labels, proba)
	if err != nil {
		return Metrics{}, err
	}
	return m, m.Print(w)
}
