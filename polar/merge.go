package polar

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"strakmachine/strakerr"
)

// Merge builds the composite polar: the leading rows of t1 with
// CL <= clMerge, followed by the rows of t2 beyond them.
func Merge(t1, t2 *Polar, clMerge float64) (*Polar, error) {
	m := New(t1.AirfoilName, Merged, t2.Re, t1.NCrit)
	m.Mach = t1.Mach
	m.MergeCL = clMerge

	for i := range t1.Alpha {
		if t1.CL[i] > clMerge {
			break
		}
		m.Add(t1.Row(i))
	}
	if m.Len() == 0 {
		return nil, strakerr.New(strakerr.OutOfRange, clMerge, "T1 polar of %s starts above CL_merge", t1.AirfoilName)
	}
	lastAlpha := m.Alpha[m.Len()-1]
	m.SwitchIdx = m.Len() - 1

	start := -1
	for i := range t2.Alpha {
		if t2.CL[i] > clMerge && t2.Alpha[i] > lastAlpha {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, strakerr.New(strakerr.OutOfRange, clMerge, "T2 polar of %s never exceeds CL_merge", t2.AirfoilName)
	}
	for i := start; i < t2.Len(); i++ {
		m.Add(t2.Row(i))
	}
	return m, nil
}

// Resample interpolates every column onto a uniform alpha grid starting
// at the first alpha of p. Resampling an already resampled polar with
// the same step reproduces it.
func (p *Polar) Resample(step float64) (*Polar, error) {
	if step <= 0 || p.Len() < 2 {
		return nil, strakerr.New(strakerr.BadConfig, step, "cannot resample polar of %s", p.AirfoilName)
	}
	a0, a1 := p.Alpha[0], p.Alpha[p.Len()-1]
	n := int(math.Floor((a1-a0)/step+1e-9)) + 1
	grid := make([]float64, n)
	for k := range grid {
		grid[k] = a0 + float64(k)*step
	}
	if grid[n-1] > a1 {
		grid[n-1] = a1
	}

	r := New(p.AirfoilName, p.Type, p.Re, p.NCrit)
	r.Mach = p.Mach
	r.MergeCL = p.MergeCL
	r.Alpha = grid
	var err error
	for _, c := range []struct {
		dst *[]float64
		src []float64
	}{
		{&r.CL, p.CL}, {&r.CD, p.CD}, {&r.CDp, p.CDp}, {&r.Cm, p.Cm},
		{&r.TopXtr, p.TopXtr}, {&r.BotXtr, p.BotXtr},
	} {
		if *c.dst, err = resampleColumn(p.Alpha, c.src, grid); err != nil {
			return nil, err
		}
	}
	r.Glide = make([]float64, n)
	floats.DivTo(r.Glide, r.CL, r.CD)

	if r.Type == Merged {
		r.recomputeSwitchIdx()
	}
	return r, nil
}

func resampleColumn(xs, ys, grid []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, strakerr.Wrap(strakerr.MalformedPolar, len(xs), err, "resample")
	}
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = pl.Predict(x)
	}
	return out, nil
}
