package strak

import (
	"math"

	log "github.com/sirupsen/logrus"
)

type Quality string

const (
	QualityDefault Quality = "default"
	QualityHigh    Quality = "high"
)

// Pass is one optimizer run on an airfoil.
type Pass struct {
	MaxIterations  int
	Competitors    int
	ShapeFunctions string
}

var presets = map[Quality][]Pass{
	QualityDefault: {
		{MaxIterations: 350, Competitors: 1, ShapeFunctions: "hicks-henne"},
	},
	QualityHigh: {
		{MaxIterations: 80, Competitors: 3, ShapeFunctions: "hicks-henne"},
		{MaxIterations: 300, Competitors: 1, ShapeFunctions: "hicks-henne"},
	},
}

// ParseQuality falls back to the default preset with a warning.
func ParseQuality(s string) Quality {
	q := Quality(s)
	if _, ok := presets[q]; ok {
		return q
	}
	log.WithFields(log.Fields{"quality": s}).Warn("unknown quality, using default")
	return QualityDefault
}

func (q Quality) Passes() []Pass {
	p, ok := presets[q]
	if !ok {
		p = presets[QualityDefault]
	}
	return append([]Pass(nil), p...)
}

// PassPerturb halves the initial perturb from one pass to the next.
func PassPerturb(initial float64, pass int) float64 {
	return initial / math.Pow(2, float64(pass))
}

const (
	perturbAtHighRe = 0.0025 // ReFactor 0.7
	perturbAtLowRe  = 0.0028 // ReFactor 0.5
)

// InitialPerturb returns the initial perturb of airfoil i. The root airfoil
// and airfoils without adaptation keep the template default; otherwise the
// value is interpolated from Re_i / Re_0.
func InitialPerturb(i int, re, rootRe, templateDefault float64, adapt bool) float64 {
	if i == 0 || !adapt {
		return templateDefault
	}
	f := math.Max(0.5, math.Min(0.7, re/rootRe))
	return perturbAtLowRe + (f-0.5)*(perturbAtHighRe-perturbAtLowRe)/0.2
}
