package model_selection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/swingprob/core/parallel"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/pkg/log"
	"github.com/YuminosukeSato/swingprob/sklearn/pipeline"
)

// FitOutcome describes one finished (candidate, fold) job.
type FitOutcome struct {
	Candidate int
	Fold      int
	Params    map[string]interface{}
	Score     float64 // NaN when Err is set
	FitTime   time.Duration
	ScoreTime time.Duration
	Err       error
}

// FitObserver receives every job outcome. ObserveFit may be called from
// several goroutines at once.
type FitObserver interface {
	ObserveFit(FitOutcome)
}

// CVResults holds the per-candidate cross-validation results. All slices are
// indexed by candidate in grid order.
type CVResults struct {
	Params        []map[string]interface{}
	SplitScores   [][]float64 // [candidate][fold]
	MeanTestScore []float64
	StdTestScore  []float64
	RankTestScore []int
	MeanFitTime   []float64 // seconds
	MeanScoreTime []float64 // seconds
}

// GridSearchCV evaluates every parameter combination of ParamGrid with
// stratified k-fold cross-validation and refits the best one on all data.
type GridSearchCV struct {
	Estimator *pipeline.Pipeline
	ParamGrid ParamGrid
	CV        int
	Scoring   string
	NJobs     int
	Verbose   int
	Refit     bool
	Observer  FitObserver

	// Results, set by Fit.
	CVResults     *CVResults
	BestIndex     int
	BestParams    map[string]interface{}
	BestScore     float64
	BestEstimator *pipeline.Pipeline
	NSplits       int
	RefitTime     time.Duration

	logger log.Logger
}

// Option configures a GridSearchCV.
type Option func(*GridSearchCV)

// WithCV sets the number of stratified folds.
func WithCV(n int) Option {
	return func(gs *GridSearchCV) { gs.CV = n }
}

// WithScoring sets the scorer used to rank candidates.
func WithScoring(name string) Option {
	return func(gs *GridSearchCV) { gs.Scoring = name }
}

// WithNJobs sets the number of concurrent fits (<= 0 uses all cores).
func WithNJobs(n int) Option {
	return func(gs *GridSearchCV) { gs.NJobs = n }
}

// WithVerbose sets the verbosity. 1 logs the search plan and the best
// candidate, 2 or more also logs every fit.
func WithVerbose(v int) Option {
	return func(gs *GridSearchCV) { gs.Verbose = v }
}

// WithRefit toggles refitting the best candidate on the whole dataset.
func WithRefit(refit bool) Option {
	return func(gs *GridSearchCV) { gs.Refit = refit }
}

// WithObserver registers a FitObserver.
func WithObserver(o FitObserver) Option {
	return func(gs *GridSearchCV) { gs.Observer = o }
}

// WithLogger sets the logger. The default is the "model_selection" component logger.
func WithLogger(l log.Logger) Option {
	return func(gs *GridSearchCV) { gs.logger = l }
}

// NewGridSearchCV creates a grid search over estimator with 5 folds,
// neg_log_loss scoring, one job and refit enabled.
func NewGridSearchCV(estimator *pipeline.Pipeline, grid ParamGrid, opts ...Option) *GridSearchCV {
	gs := &GridSearchCV{
		Estimator: estimator,
		ParamGrid: grid,
		CV:        5,
		Scoring:   ScoringNegLogLoss,
		NJobs:     1,
		Refit:     true,
	}
	for _, opt := range opts {
		opt(gs)
	}
	if gs.logger == nil {
		gs.logger = log.GetLoggerWithName("model_selection")
	}
	return gs
}

// foldData is the pre-split data of one fold shared read-only by all jobs.
type foldData struct {
	trainX *dataset.Frame
	trainY *mat.Dense
	testX  *dataset.Frame
	testY  *mat.VecDense
}

// Fit runs the search. It blocks until every job has finished or ctx is
// cancelled. A job whose fit or scoring fails scores NaN and emits a
// FitFailedWarning; Fit fails only when every job failed.
func (gs *GridSearchCV) Fit(ctx context.Context, f *dataset.Frame, y []float64) error {
	if gs.Estimator == nil {
		return errors.NewValidationError("estimator", "must not be nil", nil)
	}
	if f == nil || f.Len() == 0 {
		return errors.NewModelError("GridSearchCV.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != f.Len() {
		return errors.NewDimensionError("GridSearchCV.Fit", f.Len(), len(y), 0)
	}
	scorer, err := GetScorer(gs.Scoring)
	if err != nil {
		return err
	}
	candidates, err := gs.ParamGrid.Candidates()
	if err != nil {
		return err
	}
	for i, params := range candidates {
		if err := gs.Estimator.Clone().SetParams(params); err != nil {
			return errors.Wrapf(err, "candidate %d", i)
		}
	}

	splitter := NewStratifiedKFold(gs.CV, false, 0)
	cvFolds, err := splitter.Split(y)
	if err != nil {
		return err
	}
	folds := make([]foldData, len(cvFolds))
	for k, fold := range cvFolds {
		folds[k] = foldData{
			trainX: f.Subset(fold.TrainIndices),
			trainY: labelMatrix(y, fold.TrainIndices),
			testX:  f.Subset(fold.TestIndices),
			testY:  mat.NewVecDense(len(fold.TestIndices), gather(y, fold.TestIndices)),
		}
	}

	nFolds := len(folds)
	nJobs := len(candidates) * nFolds
	workers := parallel.Workers(gs.NJobs, nJobs)
	if gs.Verbose > 0 {
		gs.logger.Info(fmt.Sprintf("Fitting %d folds for each of %d candidates, totalling %d fits",
			nFolds, len(candidates), nJobs),
			log.CVSplitsKey, nFolds,
			log.CandidatesKey, len(candidates),
			log.ScoringKey, gs.Scoring,
			log.JobsKey, workers,
		)
	}

	outcomes := make([]FitOutcome, nJobs)
	var failedMu sync.Mutex
	failed := 0
	err = parallel.ForEach(ctx, nJobs, workers, func(ctx context.Context, job int) error {
		c, k := job/nFolds, job%nFolds
		out := gs.fitAndScore(candidates[c], folds[k], scorer)
		out.Candidate, out.Fold, out.Params = c, k, candidates[c]
		outcomes[job] = out

		if out.Err != nil {
			failedMu.Lock()
			failed++
			failedMu.Unlock()
			errors.Warn(errors.NewFitFailedWarning(c, k, out.Err))
		} else if gs.Verbose > 1 {
			gs.logger.Debug("CV fit finished",
				log.CandidateKey, c,
				log.FoldKey, k,
				log.ScoreKey, out.Score,
				log.DurationMsKey, out.FitTime.Milliseconds(),
			)
		}
		if gs.Observer != nil {
			gs.Observer.ObserveFit(out)
		}
		return ctx.Err()
	})
	if err != nil {
		return errors.Wrap(err, "grid search interrupted")
	}
	if failed == nJobs {
		return errors.Wrapf(errors.ErrAllFitsFailed, "all %d fits failed; first error: %v", nJobs, outcomes[0].Err)
	}

	gs.CVResults = aggregate(candidates, outcomes, nFolds)
	gs.NSplits = nFolds
	gs.BestIndex = bestIndex(gs.CVResults.RankTestScore)
	gs.BestParams = candidates[gs.BestIndex]
	gs.BestScore = gs.CVResults.MeanTestScore[gs.BestIndex]
	if gs.Verbose > 0 {
		gs.logger.Info("Best candidate selected",
			log.CandidateKey, gs.BestIndex,
			log.ScoreKey, gs.BestScore,
			log.HyperParamsKey, pipeline.FormatParams(gs.BestParams),
		)
	}

	gs.BestEstimator = nil
	if gs.Refit {
		best := gs.Estimator.Clone()
		if err := best.SetParams(gs.BestParams); err != nil {
			return err
		}
		start := time.Now()
		if err := best.Fit(f, labelMatrix(y, nil)); err != nil {
			return errors.Wrap(err, "refit of best candidate failed")
		}
		gs.RefitTime = time.Since(start)
		gs.BestEstimator = best
	}
	return nil
}

// fitAndScore fits a fresh clone with params on one fold and scores it.
func (gs *GridSearchCV) fitAndScore(params map[string]interface{}, fold foldData, scorer ScoreFunc) (out FitOutcome) {
	out.Score = math.NaN()
	defer errors.Recover(&out.Err, "GridSearchCV.fitAndScore")

	est := gs.Estimator.Clone()
	if err := est.SetParams(params); err != nil {
		out.Err = err
		return out
	}
	start := time.Now()
	if err := est.Fit(fold.trainX, fold.trainY); err != nil {
		out.Err = err
		out.FitTime = time.Since(start)
		return out
	}
	out.FitTime = time.Since(start)

	start = time.Now()
	proba, err := est.PredictPositive(fold.testX)
	if err != nil {
		out.Err = err
		return out
	}
	score, err := scorer(fold.testY, mat.NewVecDense(len(proba), proba))
	out.ScoreTime = time.Since(start)
	if err != nil {
		out.Err = err
		return out
	}
	if err := errors.CheckScalar("GridSearchCV.score", score, 0); err != nil {
		out.Err = err
		return out
	}
	out.Score = score
	return out
}

// Predict returns the labels predicted by the refitted best estimator.
func (gs *GridSearchCV) Predict(f *dataset.Frame) (mat.Matrix, error) {
	if gs.BestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return gs.BestEstimator.Predict(f)
}

// PredictProba returns the probabilities of the refitted best estimator.
func (gs *GridSearchCV) PredictProba(f *dataset.Frame) (mat.Matrix, error) {
	if gs.BestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "PredictProba")
	}
	return gs.BestEstimator.PredictProba(f)
}

func aggregate(candidates []map[string]interface{}, outcomes []FitOutcome, nFolds int) *CVResults {
	n := len(candidates)
	res := &CVResults{
		Params:        candidates,
		SplitScores:   make([][]float64, n),
		MeanTestScore: make([]float64, n),
		StdTestScore:  make([]float64, n),
		MeanFitTime:   make([]float64, n),
		MeanScoreTime: make([]float64, n),
	}
	for c := 0; c < n; c++ {
		scores := make([]float64, nFolds)
		var fitTime, scoreTime time.Duration
		for k := 0; k < nFolds; k++ {
			out := outcomes[c*nFolds+k]
			scores[k] = out.Score
			fitTime += out.FitTime
			scoreTime += out.ScoreTime
		}
		res.SplitScores[c] = scores
		// NaN in any fold propagates to the mean and std
		res.MeanTestScore[c], res.StdTestScore[c] = stat.PopMeanStdDev(scores, nil)
		res.MeanFitTime[c] = fitTime.Seconds() / float64(nFolds)
		res.MeanScoreTime[c] = scoreTime.Seconds() / float64(nFolds)
	}
	res.RankTestScore = rankScores(res.MeanTestScore)
	return res
}

// rankScores ranks scores in descending order with ties sharing the lowest
// rank. NaN scores rank after every finite score.
func rankScores(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		if math.IsNaN(sa) {
			return false
		}
		return sa > sb
	})

	ranks := make([]int, len(scores))
	for pos, idx := range order {
		if pos > 0 {
			prev := order[pos-1]
			if scores[prev] == scores[idx] || (math.IsNaN(scores[prev]) && math.IsNaN(scores[idx])) {
				ranks[idx] = ranks[prev]
				continue
			}
		}
		ranks[idx] = pos + 1
	}
	return ranks
}

// bestIndex returns the first candidate with rank 1.
func bestIndex(ranks []int) int {
	for i, r := range ranks {
		if r == 1 {
			return i
		}
	}
	return 0
}

func gather(y []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}

// labelMatrix returns the labels at indices (all labels when indices is nil)
// as an n×1 matrix.
func labelMatrix(y []float64, indices []int) *mat.Dense {
	values := append([]float64(nil), y...)
	if indices != nil {
		values = gather(y, indices)
	}
	return mat.NewDense(len(values), 1, values)
}
