package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/swingprob/metrics"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

var (
	curveColor     = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	referenceColor = color.RGBA{R: 120, G: 120, B: 120, A: 200}
)

// PlotROC saves the ROC curve with the chance diagonal to path. The image
// format follows the file extension.
func PlotROC(roc *metrics.ROC, auc float64, path string) error {
	if roc == nil || len(roc.FPR) == 0 {
		return errors.NewValueError("PlotROC", "empty ROC curve")
	}
	pts := make(plotter.XYs, len(roc.FPR))
	for i := range roc.FPR {
		pts[i] = plotter.XY{X: roc.FPR[i], Y: roc.TPR[i]}
	}

	p := unitPlot("ROC curve", "False positive rate", "True positive rate")
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "roc line")
	}
	line.Color = curveColor
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("model (AUC = %.3f)", auc), line)

	if err := addDiagonal(p, "chance"); err != nil {
		return err
	}
	return save(p, path)
}

// PlotCalibration saves the reliability diagram of cal to path.
func PlotCalibration(cal *metrics.Calibration, path string) error {
	if cal == nil || len(cal.MeanPredicted) == 0 {
		return errors.NewValueError("PlotCalibration", "empty calibration curve")
	}
	pts := make(plotter.XYs, len(cal.MeanPredicted))
	for i := range cal.MeanPredicted {
		pts[i] = plotter.XY{X: cal.MeanPredicted[i], Y: cal.FractionTrue[i]}
	}

	p := unitPlot("Calibration curve", "Mean predicted probability", "Fraction of positives")
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "calibration line")
	}
	line.Color = curveColor
	line.Width = vg.Points(1.5)
	points.Color = curveColor
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(2.5)
	p.Add(line, points)
	p.Legend.Add("model", line, points)

	if err := addDiagonal(p, "perfectly calibrated"); err != nil {
		return err
	}
	return save(p, path)
}

func unitPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = false
	p.Add(plotter.NewGrid())
	return p
}

func addDiagonal(p *plot.Plot, label string) error {
	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "diagonal")
	}
	diag.Color = referenceColor
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)
	p.Legend.Add(label, diag)
	return nil
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
