package polar

import (
	"fmt"
	"sort"
)

type Type int

const (
	T1     Type = 1 // fixed Re
	T2     Type = 2 // fixed Re*sqrt(CL)
	Merged Type = 3 // T1 below CL_merge, T2 above
)

func (t Type) String() string {
	switch t {
	case T1:
		return "T1"
	case T2:
		return "T2"
	case Merged:
		return "merged"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Row is one line of a polar.
type Row struct {
	Alpha  float64
	CL     float64
	CD     float64
	CDp    float64
	Cm     float64
	TopXtr float64
	BotXtr float64
}

// Polar holds parallel arrays sorted by strictly increasing alpha.
type Polar struct {
	AirfoilName string
	Type        Type
	Re          float64
	Mach        float64
	NCrit       float64

	// Only meaningful for merged polars: the switch CL and the index of
	// the last row taken from the T1 source.
	MergeCL   float64
	SwitchIdx int

	Alpha  []float64
	CL     []float64
	CD     []float64
	CDp    []float64
	Cm     []float64
	TopXtr []float64
	BotXtr []float64
	Glide  []float64 // CL/CD

	// Set by Analyze.
	Features *Features
}

func New(name string, typ Type, re, ncrit float64) *Polar {
	return &Polar{
		AirfoilName: name,
		Type:        typ,
		Re:          re,
		NCrit:       ncrit,
		SwitchIdx:   -1,
	}
}

func (p *Polar) Len() int {
	return len(p.Alpha)
}

func (p *Polar) Row(i int) Row {
	return Row{
		Alpha:  p.Alpha[i],
		CL:     p.CL[i],
		CD:     p.CD[i],
		CDp:    p.CDp[i],
		Cm:     p.Cm[i],
		TopXtr: p.TopXtr[i],
		BotXtr: p.BotXtr[i],
	}
}

// Add inserts r keeping alpha strictly increasing. The analysis tool
// sweeps alpha in both directions, so rows arrive out of order. A row
// whose alpha is already present is dropped and Add returns false.
func (p *Polar) Add(r Row) bool {
	i := sort.SearchFloat64s(p.Alpha, r.Alpha)
	if i < len(p.Alpha) && p.Alpha[i] == r.Alpha {
		return false
	}
	glide := 0.0
	if r.CD != 0 {
		glide = r.CL / r.CD
	}
	p.Alpha = insertAt(p.Alpha, i, r.Alpha)
	p.CL = insertAt(p.CL, i, r.CL)
	p.CD = insertAt(p.CD, i, r.CD)
	p.CDp = insertAt(p.CDp, i, r.CDp)
	p.Cm = insertAt(p.Cm, i, r.Cm)
	p.TopXtr = insertAt(p.TopXtr, i, r.TopXtr)
	p.BotXtr = insertAt(p.BotXtr, i, r.BotXtr)
	p.Glide = insertAt(p.Glide, i, glide)
	p.Features = nil
	return true
}

func insertAt(s []float64, i int, v float64) []float64 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func (p *Polar) Clone() *Polar {
	c := *p
	c.Alpha = append([]float64(nil), p.Alpha...)
	c.CL = append([]float64(nil), p.CL...)
	c.CD = append([]float64(nil), p.CD...)
	c.CDp = append([]float64(nil), p.CDp...)
	c.Cm = append([]float64(nil), p.Cm...)
	c.TopXtr = append([]float64(nil), p.TopXtr...)
	c.BotXtr = append([]float64(nil), p.BotXtr...)
	c.Glide = append([]float64(nil), p.Glide...)
	if p.Features != nil {
		f := *p.Features
		c.Features = &f
	}
	return &c
}

// recomputeSwitchIdx sets SwitchIdx to the last row of the leading run
// with CL <= MergeCL.
func (p *Polar) recomputeSwitchIdx() {
	p.SwitchIdx = -1
	for i, cl := range p.CL {
		if cl > p.MergeCL {
			break
		}
		p.SwitchIdx = i
	}
}
