// Package diagram draws CD over CL of target and computed polars, the
// view the strak is reviewed in.
package diagram

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"strakmachine/polar"
	"strakmachine/strakerr"
	"strakmachine/util"
)

// Curve is one polar of the diagram. Markers draws the rows as points
// only, used for target polars.
type Curve struct {
	Label   string
	Polar   *polar.Polar
	Markers bool
}

const (
	width  = 8 * vg.Inch
	height = 6 * vg.Inch
)

func points(p *polar.Polar) plotter.XYs {
	pts := make(plotter.XYs, p.Len())
	for i := range pts {
		pts[i].X = p.CD[i]
		pts[i].Y = p.CL[i]
	}
	return pts
}

// Plot builds the diagram; curves without rows are left out.
func Plot(title string, curves ...Curve) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "CD"
	p.Y.Label.Text = "CL"
	p.Add(plotter.NewGrid())

	n := 0
	for i, c := range curves {
		if c.Polar == nil || c.Polar.Len() == 0 {
			continue
		}
		pts := points(c.Polar)
		if c.Markers {
			s, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, err
			}
			s.GlyphStyle.Color = plotutil.Color(i)
			s.GlyphStyle.Shape = plotutil.Shape(i)
			p.Add(s)
			p.Legend.Add(c.Label, s)
		} else {
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			l.Color = plotutil.Color(i)
			l.Dashes = plotutil.Dashes(i)
			p.Add(l)
			p.Legend.Add(c.Label, l)
		}
		n++
	}
	if n == 0 {
		return nil, strakerr.New(strakerr.OutOfRange, title, "nothing to draw")
	}
	p.Legend.Top = false
	p.Legend.Left = false
	return p, nil
}

// Save renders the diagram as PNG and replaces path.
func Save(path, title string, curves ...Curve) error {
	p, err := Plot(title, curves...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
