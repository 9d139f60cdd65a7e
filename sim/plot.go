package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Style is the way a Series is drawn
type Style int

const (
	// Line draws series as a line
	Line Style = iota
	// Scatter draws series as scattered glyphs
	Scatter
)

// Series is a named sequence of 2D points
type Series struct {
	// Name is the legend entry of the series
	Name string
	// X holds X coordinates
	X []float64
	// Y holds Y coordinates
	Y []float64
	// Style is the drawing style
	Style Style
}

var palette = []color.Color{
	color.RGBA{R: 255, B: 128, A: 255},
	color.RGBA{G: 160, A: 255},
	color.RGBA{R: 169, G: 169, B: 169, A: 255},
	color.RGBA{B: 255, A: 255},
	color.RGBA{R: 255, G: 140, A: 255},
}

var glyphs = []draw.GlyphDrawer{
	draw.PyramidGlyph{},
	draw.CircleGlyph{},
	draw.CrossGlyph{},
	draw.BoxGlyph{},
	draw.RingGlyph{},
}

// NewTrajectoryPlot creates new plot with the given title from series.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * no series is supplied
// * either of the supplied series has different number of X and Y coordinates or is empty
// * gonum plot fails to be created
func NewTrajectoryPlot(title string, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no data series supplied")
	}

	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = "t"
	p.Y.Label.Text = "value"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.X) == 0 || len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("invalid series %q dimensions: %d x %d", s.Name, len(s.X), len(s.Y))
		}

		pts := make(plotter.XYs, len(s.X))
		for j := range pts {
			pts[j].X = s.X[j]
			pts[j].Y = s.Y[j]
		}

		c := palette[i%len(palette)]

		switch s.Style {
		case Scatter:
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, fmt.Errorf("failed to create scatter: %w", err)
			}
			sc.GlyphStyle.Color = c
			sc.GlyphStyle.Shape = glyphs[i%len(glyphs)]
			sc.GlyphStyle.Radius = vg.Points(2)
			p.Add(sc)
			p.Legend.Add(s.Name, sc)
		default:
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("failed to create line: %w", err)
			}
			l.LineStyle.Color = c
			l.LineStyle.Width = vg.Points(1)
			p.Add(l)
			p.Legend.Add(s.Name, l)
		}
	}

	return p, nil
}
