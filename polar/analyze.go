package polar

import (
	"gonum.org/v1/gonum/floats"

	"strakmachine/strakerr"
)

type AnalyzeOptions struct {
	CLMin           float64
	CLPreMaxSpeed   float64
	MaxLiftDistance float64
}

// Features holds row indices of the characteristic points of a polar.
type Features struct {
	Min         int
	MaxSpeed    int
	PreMaxSpeed int
	MaxGlide    int
	MaxLift     int
	PreMaxLift  int

	// CL_maxLift - maxLiftDistance; the row at PreMaxLift is the first
	// one reaching it.
	PreMaxLiftCL float64
	AlphaCL0     float64
}

// Analyze locates the feature points and stores them in p.Features.
func (p *Polar) Analyze(opts AnalyzeOptions) (*Features, error) {
	if p.Len() < 2 {
		return nil, strakerr.New(strakerr.MalformedPolar, p.Len(), "polar of %s has too few rows to analyze", p.AirfoilName)
	}

	var f Features
	f.MaxGlide = floats.MaxIdx(p.Glide)
	f.MaxSpeed = p.findMaxSpeed(f.MaxGlide)

	var err error
	if f.Min, err = p.firstCLAtLeast(opts.CLMin); err != nil {
		return nil, err
	}
	if f.PreMaxSpeed, err = p.firstCLAtLeast(opts.CLPreMaxSpeed); err != nil {
		return nil, err
	}

	f.MaxLift = floats.MaxIdx(p.CL)
	f.PreMaxLiftCL = p.CL[f.MaxLift] - opts.MaxLiftDistance
	if f.PreMaxLift, err = p.firstCLAtLeast(f.PreMaxLiftCL); err != nil {
		return nil, err
	}

	if f.AlphaCL0, err = p.alphaAtZeroLift(); err != nil {
		return nil, err
	}

	p.Features = &f
	return &f, nil
}

// findMaxSpeed walks from maxGlide towards lower alpha while CD keeps
// strictly decreasing and returns the first local minimum of CD. The low
// alpha branch may have a second bucket, so this is not the global min.
func (p *Polar) findMaxSpeed(maxGlide int) int {
	i := maxGlide
	for i > 0 && p.CD[i-1] < p.CD[i] {
		i--
	}
	return i
}

func (p *Polar) firstCLAtLeast(cl float64) (int, error) {
	for i, v := range p.CL {
		if v >= cl {
			return i, nil
		}
	}
	return 0, strakerr.New(strakerr.OutOfRange, cl, "polar of %s never reaches CL", p.AirfoilName)
}

// alphaAtZeroLift interpolates alpha in the first bracket where CL
// crosses zero from below.
func (p *Polar) alphaAtZeroLift() (float64, error) {
	for i := 0; i < len(p.CL)-1; i++ {
		if p.CL[i] == 0 {
			return p.Alpha[i], nil
		}
		if p.CL[i] < 0 && p.CL[i+1] >= 0 {
			return lerp(p.CL[i], p.CL[i+1], p.Alpha[i], p.Alpha[i+1], 0), nil
		}
	}
	if n := len(p.CL); n > 0 && p.CL[n-1] == 0 {
		return p.Alpha[n-1], nil
	}
	return 0, strakerr.New(strakerr.NoZeroCrossing, nil, "polar of %s never crosses CL = 0", p.AirfoilName)
}

// Point is a (CL, CD, alpha) triple at a feature row.
type Point struct {
	CL    float64
	CD    float64
	Alpha float64
}

func (p *Polar) PointAt(i int) Point {
	return Point{CL: p.CL[i], CD: p.CD[i], Alpha: p.Alpha[i]}
}
