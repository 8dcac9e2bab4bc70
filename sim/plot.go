package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewUncertaintyPlot creates a plot of the covariance trace recorded in h
// over time. It returns error if h is nil or empty or the gonum plotters
// fail to be created.
func NewUncertaintyPlot(h *History) (*plot.Plot, error) {
	if h == nil || h.Len() == 0 {
		return nil, fmt.Errorf("invalid history supplied")
	}

	p := plot.New()

	p.Title.Text = "State uncertainty"
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = "covariance trace"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	pts := make(plotter.XYs, h.Len())
	times, traces := h.Times(), h.Traces()
	for i := range pts {
		pts[i].X = times[i]
		pts[i].Y = traces[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create line: %v", err)
	}
	line.Color = color.RGBA{R: 255, B: 128, A: 255}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	scatter.Shape = draw.CrossGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(line, scatter)
	p.Legend.Add("trace", line)

	return p, nil
}
