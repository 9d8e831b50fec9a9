package polar

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"strakmachine/strakerr"
)

func lerp(x0, x1, y0, y1, x float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// alphaBracket returns i such that Alpha[i] <= alpha <= Alpha[i+1].
func (p *Polar) alphaBracket(alpha float64) (int, error) {
	n := len(p.Alpha)
	if n < 2 || alpha < p.Alpha[0] || alpha > p.Alpha[n-1] {
		return 0, strakerr.New(strakerr.OutOfRange, alpha, "alpha outside polar of %s", p.AirfoilName)
	}
	i := sort.SearchFloat64s(p.Alpha, alpha)
	if i == 0 {
		return 0, nil
	}
	return i - 1, nil
}

// clBracket searches the ascending branch up to maximum lift for the
// first pair of rows enclosing cl.
func (p *Polar) clBracket(cl float64) (int, error) {
	if len(p.CL) < 2 {
		return 0, strakerr.New(strakerr.OutOfRange, cl, "polar of %s has no rows", p.AirfoilName)
	}
	top := floats.MaxIdx(p.CL)
	for i := 0; i < top; i++ {
		lo, hi := p.CL[i], p.CL[i+1]
		if lo > hi {
			lo, hi = hi, lo
		}
		if cl >= lo && cl <= hi {
			return i, nil
		}
	}
	return 0, strakerr.New(strakerr.OutOfRange, cl, "CL outside polar of %s", p.AirfoilName)
}

func (p *Polar) fromCL(cl float64, ys []float64) (float64, error) {
	i, err := p.clBracket(cl)
	if err != nil {
		return 0, err
	}
	return lerp(p.CL[i], p.CL[i+1], ys[i], ys[i+1], cl), nil
}

func (p *Polar) fromAlpha(alpha float64, ys []float64) (float64, error) {
	i, err := p.alphaBracket(alpha)
	if err != nil {
		return 0, err
	}
	return lerp(p.Alpha[i], p.Alpha[i+1], ys[i], ys[i+1], alpha), nil
}

func (p *Polar) CDFromCL(cl float64) (float64, error) {
	return p.fromCL(cl, p.CD)
}

func (p *Polar) AlphaFromCL(cl float64) (float64, error) {
	return p.fromCL(cl, p.Alpha)
}

func (p *Polar) CLFromAlpha(alpha float64) (float64, error) {
	return p.fromAlpha(alpha, p.CL)
}

func (p *Polar) CDFromAlpha(alpha float64) (float64, error) {
	return p.fromAlpha(alpha, p.CD)
}

// CLFromCD searches the drag bucket on the upper side, between maximum
// speed and maximum lift, where CD grows with CL.
func (p *Polar) CLFromCD(cd float64) (float64, error) {
	if p.Len() < 2 {
		return 0, strakerr.New(strakerr.OutOfRange, cd, "polar of %s has no rows", p.AirfoilName)
	}
	start := 0
	if p.Features != nil {
		start = p.Features.MaxSpeed
	}
	top := floats.MaxIdx(p.CL)
	for i := start; i < top; i++ {
		lo, hi := p.CD[i], p.CD[i+1]
		if lo > hi {
			lo, hi = hi, lo
		}
		if cd >= lo && cd <= hi {
			return lerp(p.CD[i], p.CD[i+1], p.CL[i], p.CL[i+1], cd), nil
		}
	}
	return 0, strakerr.New(strakerr.OutOfRange, cd, "CD outside polar of %s", p.AirfoilName)
}
