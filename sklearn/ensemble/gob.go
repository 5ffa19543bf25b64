package ensemble

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/sklearn/tree"
)

type forestState struct {
	Base            model.BaseEstimator
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeaturesMode string
	MaxFeaturesN    int
	Bootstrap       bool
	RandomState     int64
	NJobs           int
	Classes         []float64
	Estimators      []*tree.DecisionTreeClassifier
	Importances     []float64
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestState{
		Base:            rf.BaseEstimator,
		NEstimators:     rf.nEstimators,
		Criterion:       rf.criterion,
		MaxDepth:        rf.maxDepth,
		MinSamplesSplit: rf.minSamplesSplit,
		MinSamplesLeaf:  rf.minSamplesLeaf,
		MaxFeaturesMode: rf.maxFeaturesMode,
		MaxFeaturesN:    rf.maxFeaturesN,
		Bootstrap:       rf.bootstrap,
		RandomState:     rf.randomState,
		NJobs:           rf.nJobs,
		Classes:         rf.classes_,
		Estimators:      rf.estimators_,
		Importances:     rf.featureImportances_,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode RandomForestClassifier")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var s forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "decode RandomForestClassifier")
	}
	if s.Base.IsFitted() && len(s.Estimators) == 0 {
		return errors.NewModelError("RandomForestClassifier.GobDecode", "fitted forest without trees", errors.ErrEmptyData)
	}
	*rf = RandomForestClassifier{
		BaseEstimator:       s.Base,
		nEstimators:         s.NEstimators,
		criterion:           s.Criterion,
		maxDepth:            s.MaxDepth,
		minSamplesSplit:     s.MinSamplesSplit,
		minSamplesLeaf:      s.MinSamplesLeaf,
		maxFeaturesMode:     s.MaxFeaturesMode,
		maxFeaturesN:        s.MaxFeaturesN,
		bootstrap:           s.Bootstrap,
		randomState:         s.RandomState,
		nJobs:               s.NJobs,
		classes_:            s.Classes,
		estimators_:         s.Estimators,
		featureImportances_: s.Importances,
	}
	return nil
}
