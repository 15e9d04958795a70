package sim

import (
	"fmt"
	"image/color"

	"github.com/milosgajdos/go-fos/estimate"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewResultPlot creates new plot of state component i of the filter results in store:
// state:    mean of the state
// estimate: mean of the filter estimates
// band:     estimate mean +/- 2 standard deviations of the estimation error
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * store is nil or holds fewer than 2 records
// * i is not a valid state component
// * gonum plot fails to be created
func NewResultPlot(store *estimate.Store, i int) (*plot.Plot, error) {
	if store == nil {
		return nil, fmt.Errorf("invalid store supplied")
	}

	if store.Len() < 2 {
		return nil, fmt.Errorf("invalid number of records: %d", store.Len())
	}

	if i < 0 || i >= store.Dim() {
		return nil, fmt.Errorf("invalid state component: %d", i)
	}

	n := store.Len()
	state := make(plotter.XYs, n)
	est := make(plotter.XYs, n)
	upper := make(plotter.XYs, n)
	lower := make(plotter.XYs, n)

	for k := 0; k < n; k++ {
		rec, err := store.At(k)
		if err != nil {
			return nil, err
		}

		e, err := rec.Error()
		if err != nil {
			return nil, err
		}

		sd := 2 * e.StdDev().AtVec(i)
		z := rec.MeanZ.AtVec(i)

		state[k].X, state[k].Y = rec.Time, rec.MeanX.AtVec(i)
		est[k].X, est[k].Y = rec.Time, z
		upper[k].X, upper[k].Y = rec.Time, z+sd
		lower[k].X, lower[k].Y = rec.Time, z-sd
	}

	p := plot.New()

	p.Title.Text = fmt.Sprintf("State component %d", i)
	p.X.Label.Text = "t"
	p.Y.Label.Text = fmt.Sprintf("x[%d]", i)

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// Make a line plotter for state mean
	stateLine, err := plotter.NewLine(state)
	if err != nil {
		return nil, err
	}
	stateLine.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	stateLine.LineStyle.Width = vg.Points(1)

	p.Add(stateLine)
	p.Legend.Add("state", stateLine)

	// Make a scatter plotter for estimate mean
	estScatter, err := plotter.NewScatter(est)
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	estScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169}
	estScatter.Shape = draw.CrossGlyph{}
	estScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(estScatter)
	p.Legend.Add("estimate", estScatter)

	// Make dashed lines for the error band
	for _, band := range []plotter.XYs{upper, lower} {
		line, err := plotter.NewLine(band)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = color.RGBA{G: 128, A: 255}
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

		p.Add(line)
	}

	return p, nil
}
