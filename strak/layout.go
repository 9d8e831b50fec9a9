package strak

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"strakmachine/model"
	"strakmachine/polar"
	"strakmachine/strakerr"
)

const MinOpPoints = 6

type LayoutOptions struct {
	NumOpPoints int
	// spec-cl op-points at or below CLMerge are pinned to MaxRe
	CLMerge    float64
	MaxRe      float64
	Additional []float64
	// weighting of the spec-al anchors, nil for the optimizer default
	WeightingSpecAl *float64
}

type anchor struct {
	name   string
	target func(*Targets) Triple
	// lowest index the anchor may take, leaving room for the anchors
	// below it and the fixed first op-point
	lowest int
}

// outermost first
var anchors = []anchor{
	{model.NamePreClmax, func(t *Targets) Triple { return t.PreMaxLift }, 4},
	{model.NameMaxGlide, func(t *Targets) Triple { return t.MaxGlide }, 3},
	{model.NamePreMaxSpeed, func(t *Targets) Triple { return t.PreMaxSpeed }, 2},
	{model.NameMaxSpeed, func(t *Targets) Triple { return t.MaxSpeed }, 1},
}

// layout is the working state: op-points plus the flags telling which of
// them may be moved by the spacing equalization and which already carry
// a target.
type layout struct {
	ops      []model.OpPoint
	fixed    []bool
	targeted []bool
}

func (l *layout) insert(pos int, op model.OpPoint, targeted bool) {
	l.ops = append(l.ops, model.OpPoint{})
	copy(l.ops[pos+1:], l.ops[pos:])
	l.ops[pos] = op
	l.fixed = append(l.fixed, false)
	copy(l.fixed[pos+1:], l.fixed[pos:])
	l.fixed[pos] = true
	l.targeted = append(l.targeted, false)
	copy(l.targeted[pos+1:], l.targeted[pos:])
	l.targeted[pos] = targeted
}

// insertPos returns the upper-bound position of cl: after every op-point
// with CL <= cl, never crossing a fixed op-point.
func (l *layout) insertPos(cl float64) int {
	lo, hi := -1, len(l.ops)
	for i, op := range l.ops {
		if !l.fixed[i] {
			continue
		}
		if op.Value <= cl {
			lo = i
		} else if hi == len(l.ops) {
			hi = i
		}
	}
	for i := lo + 1; i < hi; i++ {
		if l.ops[i].Value > cl {
			return i
		}
	}
	return hi
}

// closest returns the index whose CL is nearest to cl. Ties go to the
// lower index.
func (l *layout) closest(cl float64) int {
	best, dist := 0, math.Inf(1)
	for i, op := range l.ops {
		if d := math.Abs(op.Value - cl); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// Layout builds the op-point list of one optimizer run from the targets
// of an airfoil and its reference polar.
func Layout(t *Targets, ref *polar.Polar, opts LayoutOptions) ([]model.OpPoint, error) {
	if opts.NumOpPoints < MinOpPoints {
		return nil, strakerr.New(strakerr.BadConfig, opts.NumOpPoints, "numOpPoints must be at least %d", MinOpPoints)
	}

	// skeleton: one point less than requested, CL0 is inserted later
	n := opts.NumOpPoints - 1
	l := &layout{
		ops:      make([]model.OpPoint, n),
		fixed:    make([]bool, n),
		targeted: make([]bool, n),
	}
	lo, hi := t.Min.CL, t.PreMaxLift.CL
	for i := range l.ops {
		l.ops[i] = model.OpPoint{Mode: model.SpecCL, Value: lo + float64(i)*(hi-lo)/float64(n-1)}
	}
	l.ops[0].Target, l.ops[0].Missing = t.Min.CD, t.Min.Missing
	l.fixed[0], l.targeted[0] = true, true

	upper := n
	for _, a := range anchors {
		tr := a.target(t)
		idx := l.closest(tr.CL)
		if idx >= upper {
			idx = upper - 1
		}
		if idx < a.lowest {
			idx = a.lowest
		}
		l.ops[idx] = model.OpPoint{Name: a.name, Mode: model.SpecCL, Value: tr.CL, Target: tr.CD, Missing: tr.Missing}
		l.fixed[idx], l.targeted[idx] = true, true
		upper = idx
	}

	pos := l.insertPos(t.CL0.CL)
	l.insert(pos, model.OpPoint{Name: model.NameCL0, Mode: model.SpecCL, Value: t.CL0.CL, Target: t.CL0.CD, Missing: t.CL0.Missing}, true)
	if pos > model.IndexOf(l.ops, model.NameMaxSpeed) {
		return nil, strakerr.New(strakerr.BadConfig, t.MaxSpeed.CL, "CL0 op-point would follow maxSpeed")
	}

	for k, cl := range opts.Additional {
		name := fmt.Sprintf("add_op_%d", k+1)
		l.insert(l.insertPos(cl), model.OpPoint{Name: name, Mode: model.SpecCL, Value: cl}, false)
	}

	if err := l.checkFixedOrder(); err != nil {
		return nil, err
	}
	l.equalize()

	for i := range l.ops {
		op := &l.ops[i]
		if op.Name == "" {
			op.Name = fmt.Sprintf("op_%d", i+1)
		}
		if op.Value <= opts.CLMerge {
			op.Re = model.Float(opts.MaxRe)
		}
		if l.targeted[i] {
			continue
		}
		cd, err := ref.CDFromCL(op.Value)
		switch {
		case strakerr.Is(err, strakerr.OutOfRange):
			log.WithFields(log.Fields{
				"airfoil": ref.AirfoilName,
				"opPoint": op.Name,
				"cl":      op.Value,
			}).Warn("no target in reference polar")
			op.Missing = true
		case err != nil:
			return nil, err
		default:
			op.Target = cd
		}
	}

	w := model.NormalWeighting(opts.WeightingSpecAl)
	l.ops = append(l.ops,
		model.OpPoint{Name: model.NameAlpha0, Mode: model.SpecAL, Value: t.AlphaCL0, Target: 0, Re: model.Float(opts.MaxRe), Weighting: w},
		model.OpPoint{Name: model.NameAlphaMaxGlide, Mode: model.SpecAL, Value: t.AlphaPreMaxGlide, Target: t.MaxGlide.CL, Weighting: w},
		model.OpPoint{Name: model.NameAlphaMaxLift, Mode: model.SpecAL, Value: t.AlphaPreMaxLift, Target: t.RefPreMaxLiftCL, Weighting: w},
	)
	return l.ops, nil
}

func (l *layout) checkFixedOrder() error {
	last := math.Inf(-1)
	for i, op := range l.ops {
		if !l.fixed[i] {
			continue
		}
		if op.Value < last {
			return strakerr.New(strakerr.BadConfig, op.Value, "op-point %s at CL %.5f is below the previous fixed op-point", op.Name, op.Value)
		}
		last = op.Value
	}
	return nil
}

// equalize spaces the free op-points evenly between each pair of
// neighbouring fixed op-points.
func (l *layout) equalize() {
	prev := -1
	for i := range l.ops {
		if !l.fixed[i] {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			a, b := l.ops[prev].Value, l.ops[i].Value
			for k := prev + 1; k < i; k++ {
				l.ops[k].Value = a + float64(k-prev)*(b-a)/float64(i-prev)
			}
		}
		prev = i
	}
}
