// Package strak computes the target op-points of every airfoil of a strak
// from the root polar and the airfoil's reference polar.
package strak

import (
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"strakmachine/polar"
	"strakmachine/strakerr"
)

// Triple is a target point. Missing is set when the reference polar does
// not cover it and no CD could be looked up.
type Triple struct {
	CL      float64
	CD      float64
	Alpha   float64
	Missing bool
}

type Targets struct {
	Min         Triple
	MaxSpeed    Triple
	PreMaxSpeed Triple
	MaxGlide    Triple
	PreMaxLift  Triple
	CL0         Triple

	AlphaCL0         float64
	AlphaPreMaxGlide float64
	AlphaPreMaxLift  float64

	// CL_pre_maxLift of the reference polar, target of the alphaMaxLift
	// anchor.
	RefPreMaxLiftCL float64
}

// CL of the CL0 op-point. Zero lift would make CL/CD singular.
const cl0 = 0.0001

// Synthesize takes every CL and alpha from the root polar and looks the CD
// up in ref at the root alpha. Only the root polar must have been analyzed;
// targets outside the range of ref come back Missing.
func Synthesize(root, ref *polar.Polar, maxLiftDistance float64) (*Targets, error) {
	if root.Features == nil {
		return nil, strakerr.New(strakerr.BadConfig, root.AirfoilName, "root polar must be analyzed before target synthesis")
	}
	if ref.Len() == 0 {
		return nil, strakerr.New(strakerr.MalformedPolar, ref.AirfoilName, "reference polar is empty")
	}
	rf := root.Features
	t := &Targets{
		AlphaCL0:         rf.AlphaCL0,
		AlphaPreMaxGlide: root.Alpha[rf.MaxGlide],
		AlphaPreMaxLift:  root.Alpha[rf.PreMaxLift],
		RefPreMaxLiftCL:  ref.CL[floats.MaxIdx(ref.CL)] - maxLiftDistance,
	}

	var err error
	for _, f := range []struct {
		dst *Triple
		idx int
	}{
		{&t.Min, rf.Min},
		{&t.MaxSpeed, rf.MaxSpeed},
		{&t.PreMaxSpeed, rf.PreMaxSpeed},
		{&t.MaxGlide, rf.MaxGlide},
		{&t.PreMaxLift, rf.PreMaxLift},
	} {
		pt := root.PointAt(f.idx)
		if *f.dst, err = lookupTriple(ref, pt.CL, pt.Alpha); err != nil {
			return nil, err
		}
	}
	if t.CL0, err = lookupTriple(ref, cl0, rf.AlphaCL0); err != nil {
		return nil, err
	}
	return t, nil
}

// lookupTriple returns the smaller of the reference CDs at alpha and at
// cl, so a target never asks for more drag than the reference polar
// already has at that CL.
func lookupTriple(ref *polar.Polar, cl, alpha float64) (Triple, error) {
	tr := Triple{CL: cl, Alpha: alpha, CD: math.Inf(1)}
	for _, lookup := range []func() (float64, error){
		func() (float64, error) { return ref.CDFromAlpha(alpha) },
		func() (float64, error) { return ref.CDFromCL(cl) },
	} {
		cd, err := lookup()
		if strakerr.Is(err, strakerr.OutOfRange) {
			continue
		}
		if err != nil {
			return tr, err
		}
		tr.CD = math.Min(tr.CD, cd)
	}
	if math.IsInf(tr.CD, 1) {
		log.WithFields(log.Fields{
			"airfoil": ref.AirfoilName,
			"cl":      cl,
			"alpha":   alpha,
		}).Warn("reference polar does not cover target")
		tr.CD = 0
		tr.Missing = true
	}
	return tr, nil
}
