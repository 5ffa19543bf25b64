package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// treeState is the serialized form of a DecisionTreeClassifier.
type treeState struct {
	Base            model.BaseEstimator
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int64
	Classes         []float64
	Tree            *Tree
	Importances     []float64
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeState{
		Base:            dt.BaseEstimator,
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		MaxFeatures:     dt.maxFeatures,
		RandomState:     dt.randomState,
		Classes:         dt.classes_,
		Tree:            dt.tree_,
		Importances:     dt.featureImportances_,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode DecisionTreeClassifier")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var s treeState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "decode DecisionTreeClassifier")
	}
	if s.Base.IsFitted() && (s.Tree == nil || len(s.Tree.Nodes) == 0) {
		return errors.NewModelError("DecisionTreeClassifier.GobDecode", "fitted model without nodes", errors.ErrEmptyData)
	}
	*dt = DecisionTreeClassifier{
		BaseEstimator:       s.Base,
		criterion:           s.Criterion,
		maxDepth:            s.MaxDepth,
		minSamplesSplit:     s.MinSamplesSplit,
		minSamplesLeaf:      s.MinSamplesLeaf,
		maxFeatures:         s.MaxFeatures,
		randomState:         s.RandomState,
		nClasses_:           len(s.Classes),
		classes_:            s.Classes,
		tree_:               s.Tree,
		featureImportances_: s.Importances,
	}
	return nil
}
